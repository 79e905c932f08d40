// Package stream implements the client-side coordinator for the Noesis
// pipeline's server-pushed event stream: the event decoder, the phase
// state machine, the transcript accumulation buffer, and the session
// controller that owns the single live connection.
package stream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the kind of stream event.
type Kind string

const (
	KindStart     Kind = "start"
	KindPhase     Kind = "phase"
	KindCoherence Kind = "coherence"
	KindToken     Kind = "token"
	KindComplete  Kind = "complete"
	KindError     Kind = "error"

	// KindUnknown covers well-formed records whose type the client does
	// not recognize. They are kept in the event log but drive no state.
	KindUnknown Kind = "unknown"
)

// envelope mirrors the wire record: a JSON object with a required
// "type" discriminator and per-type payload fields.
type envelope struct {
	Type    string  `json:"type"`
	Phase   string  `json:"phase,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Token   string  `json:"token,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Event is an immutable record received from the stream. Exactly one of
// the payload fields is meaningful, selected by Kind.
type Event struct {
	Kind    Kind
	Phase   Phase   // KindPhase
	Value   float64 // KindCoherence
	Token   string  // KindToken
	Message string  // KindError

	// WireType preserves the raw "type" value, so unknown kinds stay
	// identifiable in the event log.
	WireType   string
	Raw        json.RawMessage
	ReceivedAt time.Time
}

// Decode parses a raw stream record into an Event. A record that is not
// a well-formed JSON object yields an error; decode failures are
// non-fatal to the stream and cause no state transition. Records with an
// unrecognized type decode as KindUnknown.
func Decode(raw []byte, receivedAt time.Time) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode stream record: %w", err)
	}

	ev := Event{
		WireType:   env.Type,
		Raw:        append(json.RawMessage(nil), raw...),
		ReceivedAt: receivedAt,
	}

	switch env.Type {
	case "start":
		ev.Kind = KindStart
	case "phase":
		ev.Kind = KindPhase
		ev.Phase = Phase(env.Phase)
	case "coherence":
		ev.Kind = KindCoherence
		ev.Value = env.Value
	case "token":
		ev.Kind = KindToken
		ev.Token = env.Token
	case "complete":
		ev.Kind = KindComplete
	case "error":
		ev.Kind = KindError
		ev.Message = env.Message
	default:
		ev.Kind = KindUnknown
	}

	return ev, nil
}
