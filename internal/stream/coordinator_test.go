package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeCoordinator returns a coordinator whose dial produces inert
// connections, so tests can feed the state machine records directly.
// closed counts how many connections have been closed.
func newFakeCoordinator(opts Options) (*Coordinator, *atomic.Int32) {
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	c := New(opts)
	var closed atomic.Int32
	c.dial = func(content string, depth int) *conn {
		return &conn{gen: c.gen, cancel: func() { closed.Add(1) }}
	}
	return c, &closed
}

func TestTargetCoherenceFormula(t *testing.T) {
	tests := []struct {
		depth int
		want  float64
	}{
		{0, 0.70},
		{2, 0.80},
		{3, 0.85},
		{-2, 0.60}, // out-of-range depths pass through the arithmetic
		{10, 1.20},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth=%d", tt.depth), func(t *testing.T) {
			c, _ := newFakeCoordinator(Options{})
			c.Start("hello", tt.depth)
			assert.InDelta(t, tt.want, c.Snapshot().TargetCoherence, 1e-9)
		})
	}
}

func TestStartForcesPrepareAndClearsState(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.AddToken("leftover")
	c.UpdateCoherence(0.9)
	c.Start("hello", 3)

	s := c.Snapshot()
	assert.Equal(t, PhasePrepare, s.Phase)
	assert.True(t, s.Streaming)
	assert.False(t, s.Connected) // not connected until the opened callback
	assert.Zero(t, s.Coherence)
	assert.Empty(t, s.Fragments)
	assert.Empty(t, s.Events)
	assert.Empty(t, s.Err)
}

func TestStartSupersedesPriorSession(t *testing.T) {
	c, closed := newFakeCoordinator(Options{})

	c.Start("first", 3)
	first := c.Snapshot().Generation
	c.Start("second", 3)
	second := c.Snapshot().Generation

	assert.Equal(t, first+1, second)
	assert.Equal(t, int32(1), closed.Load(), "prior connection must be closed before the new session starts")
}

func TestGenerationDiscardsStaleEvents(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.Start("first", 3)
	stale := c.Snapshot().Generation
	c.Start("second", 3)
	active := c.Snapshot().Generation

	// Events racing in from the superseded connection are ignored.
	c.opened(stale)
	c.record(stale, []byte(`{"type":"token","token":"stale"}`))
	c.record(stale, []byte(`{"type":"error","message":"stale failure"}`))

	s := c.Snapshot()
	assert.False(t, s.Connected)
	assert.Empty(t, s.FullText)
	assert.Empty(t, s.Events)
	assert.Empty(t, s.Err)
	assert.Equal(t, PhasePrepare, s.Phase)

	// The active generation still mutates state.
	c.opened(active)
	c.record(active, []byte(`{"type":"token","token":"live"}`))

	s = c.Snapshot()
	assert.True(t, s.Connected)
	assert.Equal(t, "live", s.FullText)
}

func TestResetCompleteness(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.Start("hello", 5)
	gen := c.Snapshot().Generation
	c.opened(gen)
	c.record(gen, []byte(`{"type":"phase","phase":"broadcast"}`))
	c.record(gen, []byte(`{"type":"coherence","value":0.93}`))
	c.record(gen, []byte(`{"type":"token","token":"partial"}`))
	c.record(gen, []byte(`{"type":"error","message":"boom"}`))

	c.Reset()

	s := c.Snapshot()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Connected)
	assert.False(t, s.Streaming)
	assert.Zero(t, s.Coherence)
	assert.InDelta(t, DefaultBaseline, s.TargetCoherence, 1e-9)
	assert.Empty(t, s.Fragments)
	assert.Equal(t, "", s.FullText)
	assert.Empty(t, s.Events)
	assert.Equal(t, "", s.Err)
}

func TestStopKeepsDerivedState(t *testing.T) {
	c, closed := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.record(gen, []byte(`{"type":"token","token":"kept"}`))

	c.Stop()
	c.Stop() // idempotent

	s := c.Snapshot()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
	assert.Equal(t, "kept", s.FullText, "Stop keeps the transcript; Reset clears it")
	assert.Equal(t, int32(1), closed.Load())
}

func TestCompleteClosesConnection(t *testing.T) {
	c, closed := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.opened(gen)

	terminal := c.record(gen, []byte(`{"type":"complete"}`))
	assert.True(t, terminal)

	s := c.Snapshot()
	assert.Equal(t, PhaseComplete, s.Phase)
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
	assert.Equal(t, int32(1), closed.Load())

	// A transport error racing in after closure is ignored.
	c.transportFailed(gen, fmt.Errorf("read on closed body"))
	assert.Equal(t, PhaseComplete, c.Snapshot().Phase)
	assert.Empty(t, c.Snapshot().Err)
}

func TestErrorEventFailsSession(t *testing.T) {
	c, closed := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.opened(gen)

	terminal := c.record(gen, []byte(`{"type":"error","message":"judgment rejected"}`))
	assert.True(t, terminal)

	s := c.Snapshot()
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, "judgment rejected", s.Err)
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
	assert.Equal(t, int32(1), closed.Load())
}

func TestTransportErrorFailsSession(t *testing.T) {
	c, closed := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.opened(gen)

	c.transportFailed(gen, fmt.Errorf("connection refused"))

	s := c.Snapshot()
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Contains(t, s.Err, "connection refused")
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
	assert.Equal(t, int32(1), closed.Load())
}

func TestDecodeFailureIsNonFatal(t *testing.T) {
	var logged []string
	c, closed := newFakeCoordinator(Options{
		Logf: func(format string, args ...any) {
			logged = append(logged, fmt.Sprintf(format, args...))
		},
	})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.opened(gen)
	c.record(gen, []byte(`{"type":"coherence","value":0.3}`))

	terminal := c.record(gen, []byte("::: not json"))
	assert.False(t, terminal)
	assert.NotEmpty(t, logged)

	s := c.Snapshot()
	assert.True(t, s.Connected, "stream must stay open after a decode failure")
	assert.InDelta(t, 0.3, s.Coherence, 1e-9)
	assert.Len(t, s.Events, 1, "malformed records do not enter the event log")
	assert.Equal(t, int32(0), closed.Load())
}

func TestUnknownKindIsLoggedNoOp(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.opened(gen)
	c.record(gen, []byte(`{"type":"phase","phase":"sustain"}`))

	terminal := c.record(gen, []byte(`{"type":"heartbeat","timestamp":"2026-08-27T10:00:00Z"}`))
	assert.False(t, terminal)

	s := c.Snapshot()
	assert.Equal(t, PhaseSustain, s.Phase)
	assert.Len(t, s.Events, 2, "unknown kinds are accepted into the event log")
	assert.Equal(t, KindUnknown, s.Events[1].Kind)
	assert.Equal(t, "heartbeat", s.Events[1].WireType)
}

func TestStartEventForcesPrepare(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.record(gen, []byte(`{"type":"phase","phase":"dissolve"}`))
	c.record(gen, []byte(`{"type":"start"}`))

	assert.Equal(t, PhasePrepare, c.Snapshot().Phase)
}

func TestDirectMutatorsAppendToLog(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.UpdatePhase(PhaseSynchronize)
	c.UpdateCoherence(0.5)
	c.AddToken("Hi")
	c.AddToken(" there")

	s := c.Snapshot()
	assert.Equal(t, PhaseSynchronize, s.Phase)
	assert.InDelta(t, 0.5, s.Coherence, 1e-9)
	assert.Equal(t, "Hi there", s.FullText)
	assert.Equal(t, []string{"Hi", " there"}, s.Fragments)

	require.Len(t, s.Events, 4)
	assert.Equal(t, KindPhase, s.Events[0].Kind)
	assert.Equal(t, KindCoherence, s.Events[1].Kind)
	assert.Equal(t, KindToken, s.Events[2].Kind)
}

func TestStrictTransitionerRejectionKeepsPhase(t *testing.T) {
	c, _ := newFakeCoordinator(Options{Transitioner: Strict{}})

	c.Start("hello", 3)
	gen := c.Snapshot().Generation
	c.record(gen, []byte(`{"type":"phase","phase":"sustain"}`))
	c.record(gen, []byte(`{"type":"phase","phase":"prepare"}`)) // backwards

	s := c.Snapshot()
	assert.Equal(t, PhaseSustain, s.Phase)
	assert.Len(t, s.Events, 2, "rejected events still enter the log")
}

func TestChangedCoalesces(t *testing.T) {
	c, _ := newFakeCoordinator(Options{})

	c.AddToken("a")
	c.AddToken("b")
	c.AddToken("c")

	<-c.Changed()
	select {
	case <-c.Changed():
		t.Fatal("signals should coalesce into a single pending notification")
	default:
	}
}

// TestStreamScenario runs the documented example end to end against a
// real SSE producer.
func TestStreamScenario(t *testing.T) {
	records := []string{
		`{"type":"start"}`,
		`{"type":"phase","phase":"synchronize"}`,
		`{"type":"coherence","value":0.42}`,
		`{"type":"token","token":"Hi"}`,
		`{"type":"token","token":" there"}`,
		`{"type":"heartbeat"}`,
		`{"type":"complete"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/consciousness/stream/process", r.URL.Path)
		require.Equal(t, "hello", r.URL.Query().Get("content"))
		require.Equal(t, "2", r.URL.Query().Get("depth"))

		w.Header().Set("Content-Type", "text/event-stream")
		fl, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, rec := range records {
			fmt.Fprintf(w, "data: %s\n\n", rec)
			fl.Flush()
		}
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logf: func(string, ...any) {}})
	c.Start("hello", 2)

	require.InDelta(t, 0.80, c.Snapshot().TargetCoherence, 1e-9)

	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == PhaseComplete
	}, 5*time.Second, 10*time.Millisecond)

	s := c.Snapshot()
	assert.Equal(t, "Hi there", s.FullText)
	assert.Equal(t, []string{"Hi", " there"}, s.Fragments)
	assert.InDelta(t, 0.42, s.Coherence, 1e-9)
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
	assert.Empty(t, s.Err)
	assert.Len(t, s.Events, len(records))
}

// TestStreamTransportDrop covers a producer that disappears mid-stream.
func TestStreamTransportDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"start\"}\n\n")
		fl.Flush()
		// Close without a terminal record.
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Logf: func(string, ...any) {}})
	c.Start("hello", 3)

	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == PhaseFailed
	}, 5*time.Second, 10*time.Millisecond)

	s := c.Snapshot()
	assert.NotEmpty(t, s.Err)
	assert.False(t, s.Streaming)
	assert.False(t, s.Connected)
}

// TestStreamRefusedConnection covers the producer being unreachable.
func TestStreamRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: nothing is listening

	c := New(Options{BaseURL: srv.URL, Logf: func(string, ...any) {}})
	c.Start("hello", 3)

	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == PhaseFailed
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, c.Snapshot().Err, "stream connection failed")
}
