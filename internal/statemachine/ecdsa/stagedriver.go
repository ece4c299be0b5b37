package ecdsa

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/statemachine"
)

// stageDriver runs one generic statemachine.Machine as a step inside
// ECDSA-SIGN's hand-rolled round FSM, offsetting its wire rounds so they
// never collide with an earlier or later stage's own round numbering.
// offset is a fixed, manually-chosen upper bound on the rounds the
// wrapped machine will ever use — the same bookkeeping sequencer does
// internally for the generic protocol compositions in internal/statemachine,
// copied here since that type isn't exported.
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

// deliver subtracts the stage's offset from msg's wire round, drops the
// message if that lands below zero, and forwards it to the wrapped
// machine. done reports whether the stage just completed, in which case
// result holds its Output().
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
		return msgs, false, nil, fmt.Errorf("ecdsa: sign sub-stage aborted")
	default:
		return msgs, false, nil, nil
	}
}
