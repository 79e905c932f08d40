// Package producer implements a conformant Noesis event-stream producer
// for demos and conformance testing. It synthesizes the phased pipeline
// run the console expects: ignition phases, a coherence ramp toward the
// session target, streamed reflection tokens, and a terminal record.
package producer

import (
	"context"
	"math"
	"time"
)

// Record is one wire record pushed to stream consumers. Exactly the
// fields relevant to Type are set; the rest are omitted.
type Record struct {
	Type      string  `json:"type"`
	Phase     string  `json:"phase,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Token     string  `json:"token,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// Step pairs a record with the delay to respect before emitting it.
type Step struct {
	Delay  time.Duration
	Record Record
}

// Pipeline scripts synthetic runs.
type Pipeline struct {
	baseline      float64
	increment     float64
	phaseDwell    time.Duration
	tokenInterval time.Duration
}

// NewPipeline creates a pipeline with the given coherence-target
// parameters and pacing.
func NewPipeline(baseline, increment float64, phaseDwell, tokenInterval time.Duration) *Pipeline {
	return &Pipeline{
		baseline:      baseline,
		increment:     increment,
		phaseDwell:    phaseDwell,
		tokenInterval: tokenInterval,
	}
}

// Target returns the coherence target for a depth.
func (p *Pipeline) Target(depth int) float64 {
	return p.baseline + float64(depth)*p.increment
}

// coherenceRamp is the per-phase order-parameter trajectory, as
// fractions of the session target. The shape approximates oscillator
// synchronization: slow onset, steep middle, saturation.
var coherenceRamp = map[string][]float64{
	"prepare":     {0.10, 0.22},
	"synchronize": {0.45, 0.62, 0.78},
	"broadcast":   {0.88, 0.94},
	"sustain":     {0.98, 1.00},
	"dissolve":    {1.00},
}

var phaseSequence = []string{"prepare", "synchronize", "broadcast", "sustain", "dissolve"}

// Script builds the full ordered run for a session. Tokens are streamed
// during the sustain phase, where the original pipeline voices its
// response while the workspace holds ignition.
func (p *Pipeline) Script(content string, depth int) []Step {
	target := p.Target(depth)
	steps := []Step{{Record: Record{Type: "start"}}}

	for _, phase := range phaseSequence {
		steps = append(steps, Step{
			Delay:  p.phaseDwell / 4,
			Record: Record{Type: "phase", Phase: phase},
		})

		samples := coherenceRamp[phase]
		for _, f := range samples {
			steps = append(steps, Step{
				Delay:  p.phaseDwell / time.Duration(len(samples)+1),
				Record: Record{Type: "coherence", Value: round3(f * target)},
			})
		}

		if phase == "sustain" {
			for _, tok := range Fragments(Reflect(content, depth).Response) {
				steps = append(steps, Step{
					Delay:  p.tokenInterval,
					Record: Record{Type: "token", Token: tok},
				})
			}
		}
	}

	steps = append(steps, Step{Delay: p.phaseDwell / 4, Record: Record{Type: "complete"}})
	return steps
}

// Run paces the script and hands each record to emit. A heartbeat
// record is pushed whenever the gap to the next step exceeds the
// heartbeat interval (zero disables heartbeats). Run returns the first
// emit error, or nil once the terminal record is delivered.
func (p *Pipeline) Run(ctx context.Context, content string, depth int, heartbeat time.Duration, emit func(Record) error) error {
	for _, step := range p.Script(content, depth) {
		remaining := step.Delay
		for heartbeat > 0 && remaining > heartbeat {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(heartbeat):
			}
			remaining -= heartbeat
			hb := Record{Type: "heartbeat", Timestamp: time.Now().Format(time.RFC3339)}
			if err := emit(hb); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
		if err := emit(step.Record); err != nil {
			return err
		}
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
