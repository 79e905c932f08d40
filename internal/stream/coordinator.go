package stream

import (
	"log"
	"net/http"
	"sync"
	"time"
)

// Coherence target parameters and the default processing depth. The
// target is computed once per session as baseline + depth*increment.
const (
	DefaultBaseline  = 0.70
	DefaultIncrement = 0.05
	DefaultDepth     = 3
)

// DefaultNamespace prefixes the producer's well-known paths.
const DefaultNamespace = "consciousness"

// Options configures a Coordinator. Zero values fall back to defaults.
type Options struct {
	// BaseURL of the pipeline producer, e.g. "http://127.0.0.1:8090".
	BaseURL string
	// Namespace of the stream path: /{namespace}/stream/process.
	Namespace string
	// Baseline and Increment of the coherence target formula.
	Baseline  float64
	Increment float64
	// HTTPClient must not carry an overall timeout: the stream is
	// long-lived. Defaults to a fresh client.
	HTTPClient *http.Client
	// Transitioner applied to producer-declared phases. Defaults to
	// PassThrough; Strict is meant for conformance testing.
	Transitioner Transitioner
	// Logf receives decode failures and rejected transitions. Defaults
	// to log.Printf.
	Logf func(format string, args ...any)
}

// Coordinator owns the single live stream connection and the session
// state derived from it. All public operations and connection callbacks
// are serialized on one mutex: the state machine assumes single-writer
// semantics. Stream-level failures never escape as errors or panics;
// callers observe them via the Phase and Err fields of Snapshot.
type Coordinator struct {
	httpc     *http.Client
	baseURL   string
	namespace string
	baseline  float64
	increment float64
	trans     Transitioner
	logf      func(format string, args ...any)

	// dial opens a connection for a session. Overridable in tests to
	// drive the state machine without a network.
	dial func(content string, depth int) *conn

	mu        sync.Mutex
	gen       uint64
	conn      *conn
	connected bool
	streaming bool
	phase     Phase
	coherence float64
	target    float64
	buf       Buffer
	events    []Event
	errMsg    string

	changed chan struct{}
}

// New creates a Coordinator in its initial idle state.
func New(opts Options) *Coordinator {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:8090"
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Baseline == 0 {
		opts.Baseline = DefaultBaseline
	}
	if opts.Increment == 0 {
		opts.Increment = DefaultIncrement
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Transitioner == nil {
		opts.Transitioner = PassThrough{}
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	c := &Coordinator{
		httpc:     opts.HTTPClient,
		baseURL:   opts.BaseURL,
		namespace: opts.Namespace,
		baseline:  opts.Baseline,
		increment: opts.Increment,
		trans:     opts.Transitioner,
		logf:      opts.Logf,
		phase:     PhaseIdle,
		target:    opts.Baseline,
		changed:   make(chan struct{}, 1),
	}
	c.dial = c.open
	return c
}

// Start begins a new session for content at the given depth, superseding
// any active session wholesale: the prior connection is closed first and
// its late events are discarded by generation. Repeated calls are safe;
// the latest call always wins. Invalid depth values are not validated,
// they simply participate in the coherence-target arithmetic.
func (c *Coordinator) Start(content string, depth int) {
	c.mu.Lock()
	c.closeConnLocked()
	c.gen++
	c.resetDerivedLocked()
	c.phase = PhasePrepare
	c.streaming = true
	c.target = c.baseline + float64(depth)*c.increment
	c.conn = c.dial(content, depth)
	c.mu.Unlock()
	c.notify()
}

// Stop closes the active connection, if any, and returns the phase to
// idle. Derived state (coherence, transcript, log) is kept for
// inspection; use Reset to clear it. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.closeConnLocked()
	c.connected = false
	c.streaming = false
	c.phase = PhaseIdle
	c.mu.Unlock()
	c.notify()
}

// Reset is Stop plus a full derived-state clear: every field returns to
// its documented initial value.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.closeConnLocked()
	c.resetDerivedLocked()
	c.mu.Unlock()
	c.notify()
}

// UpdatePhase drives the phase machine without a live connection, for
// replays and local fallback. It obeys the same log-append rules as a
// stream-delivered phase event.
func (c *Coordinator) UpdatePhase(p Phase) {
	c.mu.Lock()
	c.applyLocked(Event{Kind: KindPhase, Phase: p, WireType: "phase", ReceivedAt: time.Now()})
	c.mu.Unlock()
	c.notify()
}

// UpdateCoherence sets the coherence value directly. Values are recorded
// as-is; no clamping is applied.
func (c *Coordinator) UpdateCoherence(v float64) {
	c.mu.Lock()
	c.applyLocked(Event{Kind: KindCoherence, Value: v, WireType: "coherence", ReceivedAt: time.Now()})
	c.mu.Unlock()
	c.notify()
}

// AddToken appends a text fragment to the transcript directly.
func (c *Coordinator) AddToken(t string) {
	c.mu.Lock()
	c.applyLocked(Event{Kind: KindToken, Token: t, WireType: "token", ReceivedAt: time.Now()})
	c.mu.Unlock()
	c.notify()
}

// Snapshot returns a copy of the session state.
func (c *Coordinator) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	fragments, full := c.buf.Snapshot()
	events := make([]Event, len(c.events))
	copy(events, c.events)

	return Session{
		Generation:      c.gen,
		Connected:       c.connected,
		Streaming:       c.streaming,
		Phase:           c.phase,
		Coherence:       c.coherence,
		TargetCoherence: c.target,
		Fragments:       fragments,
		FullText:        full,
		Events:          events,
		Err:             c.errMsg,
	}
}

// Changed signals state mutations. Signals coalesce: consumers re-read
// Snapshot on receipt, so a slow consumer sees the latest state rather
// than a backlog.
func (c *Coordinator) Changed() <-chan struct{} {
	return c.changed
}

func (c *Coordinator) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// closeConnLocked closes and disowns the live connection. Late callbacks
// from its reader goroutine find c.conn nil or a newer generation and
// are discarded.
func (c *Coordinator) closeConnLocked() {
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
	}
}

// resetDerivedLocked returns every derived field to its initial value.
func (c *Coordinator) resetDerivedLocked() {
	c.connected = false
	c.streaming = false
	c.phase = PhaseIdle
	c.coherence = 0
	c.target = c.baseline
	c.buf.Reset()
	c.events = nil
	c.errMsg = ""
}

// ownsLocked reports whether gen identifies the currently active
// connection. Events from superseded or closed connections are stale.
func (c *Coordinator) ownsLocked(gen uint64) bool {
	return c.conn != nil && c.conn.gen == gen
}

// opened marks the connection established.
func (c *Coordinator) opened(gen uint64) {
	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.connected = true
	c.mu.Unlock()
	c.notify()
}

// record decodes and applies one raw stream record. It reports whether
// the record was terminal for the session, letting the reader goroutine
// exit before it observes its own cancelled connection as an error.
func (c *Coordinator) record(gen uint64, raw []byte) (terminal bool) {
	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return true
	}

	ev, err := Decode(raw, time.Now())
	if err != nil {
		// Non-fatal: log and keep listening.
		c.logf("stream: %v", err)
		c.mu.Unlock()
		return false
	}

	terminal = c.applyLocked(ev)
	c.mu.Unlock()
	c.notify()
	return terminal
}

// applyLocked appends ev to the event log and performs the transition it
// implies. Returns true for terminal events, which also close the
// connection.
func (c *Coordinator) applyLocked(ev Event) (terminal bool) {
	c.events = append(c.events, ev)

	switch ev.Kind {
	case KindStart:
		c.phase = PhasePrepare

	case KindPhase:
		next, err := c.trans.Apply(c.phase, ev.Phase)
		if err != nil {
			c.logf("stream: %v", err)
			return false
		}
		c.phase = next

	case KindCoherence:
		c.coherence = ev.Value

	case KindToken:
		c.buf.Append(ev.Token)

	case KindComplete:
		c.phase = PhaseComplete
		c.streaming = false
		c.connected = false
		c.closeConnLocked()
		return true

	case KindError:
		msg := ev.Message
		if msg == "" {
			msg = "pipeline reported an error"
		}
		c.failLocked(msg)
		return true

	case KindUnknown:
		// Forward-compatible: kept in the log, no transition.
		c.logf("stream: ignoring unknown event type %q", ev.WireType)
	}
	return false
}

// transportFailed surfaces a connection-level failure: drop, refusal, or
// close without a terminal record. Handled identically to a producer
// error, with a generic human-readable message.
func (c *Coordinator) transportFailed(gen uint64, err error) {
	c.mu.Lock()
	if !c.ownsLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.failLocked("stream connection failed: " + err.Error())
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) failLocked(msg string) {
	c.phase = PhaseFailed
	c.streaming = false
	c.connected = false
	c.errMsg = msg
	c.closeConnLocked()
}
