package stream

import "fmt"

// Phase is a named stage of the remote pipeline's processing, reflected
// client-side for display and coordination.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePrepare     Phase = "prepare"
	PhaseSynchronize Phase = "synchronize"
	PhaseBroadcast   Phase = "broadcast"
	PhaseSustain     Phase = "sustain"
	PhaseDissolve    Phase = "dissolve"
	PhaseComplete    Phase = "complete"
	PhaseFailed      Phase = "failed"
)

// phaseOrder indexes the nominal pipeline sequence. PhaseFailed sits
// outside the sequence: it is reachable from any non-terminal phase.
var phaseOrder = map[Phase]int{
	PhaseIdle:        0,
	PhasePrepare:     1,
	PhaseSynchronize: 2,
	PhaseBroadcast:   3,
	PhaseSustain:     4,
	PhaseDissolve:    5,
	PhaseComplete:    6,
}

// Known reports whether p is part of the fixed phase vocabulary.
func (p Phase) Known() bool {
	if p == PhaseFailed {
		return true
	}
	_, ok := phaseOrder[p]
	return ok
}

// Terminal reports whether p is a terminal phase.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// Transitioner decides the phase that results from a producer-declared
// phase value. Sequencing correctness is the producer's responsibility;
// the client's job is reflection, not enforcement, so the default
// implementation is PassThrough. Strict exists for conformance testing.
type Transitioner interface {
	Apply(current, declared Phase) (Phase, error)
}

// PassThrough records whichever phase the producer declares, verbatim.
// New intermediate phases can be introduced by the producer without a
// client release.
type PassThrough struct{}

func (PassThrough) Apply(_, declared Phase) (Phase, error) {
	return declared, nil
}

// Strict validates declared phases against the nominal pipeline order.
// A declared phase must not move backwards, terminal phases absorb all
// further declarations, and phases outside the vocabulary are rejected.
type Strict struct{}

func (Strict) Apply(current, declared Phase) (Phase, error) {
	if current.Terminal() {
		return current, fmt.Errorf("phase %q is terminal, cannot move to %q", current, declared)
	}
	if declared == PhaseFailed {
		return declared, nil
	}
	di, ok := phaseOrder[declared]
	if !ok {
		return current, fmt.Errorf("unknown phase %q", declared)
	}
	if ci, ok := phaseOrder[current]; ok && di < ci {
		return current, fmt.Errorf("phase %q declared after %q violates pipeline order", declared, current)
	}
	return declared, nil
}
