package eddsa

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// stageDriver runs one generic statemachine.Machine as a step inside
// EDDSA-SIGN's hand-rolled round FSM, offsetting its wire rounds past
// whatever earlier stages used. Mirrors internal/statemachine/ecdsa's own
// copy of this pattern (see that package's stagedriver.go) — duplicated
// rather than shared since neither package exports it and a shared
// dependency between the two signing families would blur the "genuinely
// distinct state machines" boundary SPEC_FULL.md asks for.
type stageDriver struct {
	machine statemachine.Machine
	offset  int
}

func newStageDriver(m statemachine.Machine, offset int) *stageDriver {
	return &stageDriver{machine: m, offset: offset}
}

func (d *stageDriver) start() ([]statemachine.OutboundMessage, error) {
	msgs, err := d.machine.Start()
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Round += d.offset
	}
	return msgs, nil
}

func (d *stageDriver) deliver(msg statemachine.PeerMessage) (out []statemachine.OutboundMessage, done bool, result interface{}, err error) {
	inner := msg
	inner.Round -= d.offset
	if inner.Round < 0 {
		return nil, false, nil, nil
	}
	msgs, err := d.machine.Deliver(inner)
	if err != nil {
		return nil, false, nil, err
	}
	for i := range msgs {
		msgs[i].Round += d.offset
	}
	switch d.machine.Status() {
	case statemachine.Done:
		res, oerr := d.machine.Output()
		if oerr != nil {
			return msgs, false, nil, oerr
		}
		return msgs, true, res, nil
	case statemachine.Aborted:
		return msgs, false, nil, fmt.Errorf("eddsa: sign sub-stage aborted")
	default:
		return msgs, false, nil, nil
	}
}
