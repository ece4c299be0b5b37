package statemachine

// stage is one step of a sequencer: build constructs the next sub-machine
// given the outputs collected from every prior stage.
type stage func(prior []interface{}) (Machine, error)

// sequencer drives a fixed chain of sub-machines one at a time, only
// Start-ing stage i+1 once stage i reaches Done, and folding their outputs
// together at the end. This is how the bit-level protocols (BIT-ADDER and
// friends) are built: each is a named composition of smaller primitives
// (Mul(share·share), local XOR-as-Add/Sub) rather than a bespoke
// round-advance implementation per protocol.
//
// Round numbers are offset per stage (stage i's sub-machine sees rounds
// starting at i*roundsPerStage) so messages from different stages never
// collide on the wire within one sequencer instance.
type sequencer struct {
	stages        []stage
	roundsPerStage int
	cur           int
	curMachine    Machine
	results       []interface{}
	status        Status
	abortErr      error
	finish        func([]interface{}) (interface{}, error)
}

func newSequencer(roundsPerStage int, finish func([]interface{}) (interface{}, error), stages ...stage) *sequencer {
	return &sequencer{stages: stages, roundsPerStage: roundsPerStage, finish: finish, status: Running}
}

func (s *sequencer) Start() ([]OutboundMessage, error) {
	return s.advance(nil)
}

// advance begins stage s.cur, building it from s.results, and tags its
// outbound messages with the stage's round offset.
func (s *sequencer) advance(priorOut []OutboundMessage) ([]OutboundMessage, error) {
	if s.cur >= len(s.stages) {
		out, err := s.finish(s.results)
		if err != nil {
			s.status = Aborted
			s.abortErr = err
			return priorOut, nil
		}
		s.results = append(s.results, out)
		s.status = Done
		return priorOut, nil
	}
	m, err := s.stages[s.cur](s.results)
	if err != nil {
		s.status = Aborted
		s.abortErr = err
		return priorOut, nil
	}
	s.curMachine = m
	msgs, err := m.Start()
	if err != nil {
		s.status = Aborted
		s.abortErr = err
		return priorOut, nil
	}
	offset := s.cur * s.roundsPerStage
	for i := range msgs {
		msgs[i].Round += offset
	}
	if m.Status() == Done {
		out, oerr := m.Output()
		if oerr != nil {
			s.status = Aborted
			s.abortErr = oerr
			return append(priorOut, msgs...), nil
		}
		s.results = append(s.results, out)
		s.cur++
		return s.advance(append(priorOut, msgs...))
	}
	return append(priorOut, msgs...), nil
}

func (s *sequencer) Deliver(msg PeerMessage) ([]OutboundMessage, error) {
	if s.status != Running || s.curMachine == nil {
		return nil, nil
	}
	offset := s.cur * s.roundsPerStage
	inner := msg
	inner.Round -= offset
	if inner.Round < 0 {
		return nil, nil // stray message for a stage already past
	}
	msgs, err := s.curMachine.Deliver(inner)
	if err != nil {
		s.status = Aborted
		s.abortErr = err
		return nil, nil
	}
	for i := range msgs {
		msgs[i].Round += offset
	}
	if s.curMachine.Status() == Done {
		out, oerr := s.curMachine.Output()
		if oerr != nil {
			s.status = Aborted
			s.abortErr = oerr
			return msgs, nil
		}
		s.results = append(s.results, out)
		s.cur++
		more, aerr := s.advance(msgs)
		if aerr != nil {
			return nil, aerr
		}
		return more, nil
	}
	if s.curMachine.Status() == Aborted {
		s.status = Aborted
		s.abortErr = &AbortError{Protocol: "sequencer", Reason: "sub-protocol aborted"}
	}
	return msgs, nil
}

func (s *sequencer) Status() Status { return s.status }

func (s *sequencer) Output() (interface{}, error) {
	if s.status == Aborted {
		return nil, s.abortErr
	}
	if s.status != Done {
		return nil, ErrNotDone
	}
	return s.results[len(s.results)-1], nil
}
