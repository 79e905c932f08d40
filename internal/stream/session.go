package stream

// Session is a read-only snapshot of the coordinator's state. Slices are
// copies; mutating a snapshot never affects the live session.
type Session struct {
	// Generation tags the session/connection pair this snapshot belongs
	// to. It increases monotonically with every Start call.
	Generation uint64

	Connected bool
	Streaming bool

	Phase           Phase
	Coherence       float64
	TargetCoherence float64

	// Fragments is the ordered transcript; FullText its concatenation.
	Fragments []string
	FullText  string

	// Events is the chronological, append-only event log for the
	// session, distinct from the derived fields above.
	Events []Event

	// Err holds the last surfaced error message; empty means none.
	Err string
}
