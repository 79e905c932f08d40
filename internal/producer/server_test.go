package producer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JuanCS-Dev/Noesis/internal/config"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Producer.PhaseDwell = config.Duration(time.Millisecond)
	cfg.Producer.TokenInterval = config.Duration(time.Millisecond)

	mux := http.NewServeMux()
	NewServer(cfg).SetupRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/consciousness/stream/process?content=hello&depth=2")
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	var records []Record
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(strings.TrimSpace(line[len("data:"):])), &rec); err != nil {
			t.Fatalf("bad record %q: %v", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) == 0 {
		t.Fatal("no records received")
	}
	if records[0].Type != "start" {
		t.Errorf("first record type = %q, want start", records[0].Type)
	}
	if last := records[len(records)-1]; last.Type != "complete" {
		t.Errorf("last record type = %q, want complete", last.Type)
	}
}

func TestJournalEndpoint(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]string{
		"content":       "i always fail, always",
		"timestamp":     time.Now().Format(time.RFC3339),
		"analysis_mode": "deep_shadow_work",
	})
	resp, err := http.Post(srv.URL+"/consciousness/journal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST journal: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out struct {
		Response       string  `json:"response"`
		ReasoningTrace string  `json:"reasoning_trace"`
		IntegrityScore float64 `json:"integrity_score"`
		ShadowAnalysis *struct {
			Archetype  string  `json:"archetype"`
			Confidence float64 `json:"confidence"`
		} `json:"shadow_analysis"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Response == "" {
		t.Error("empty response text")
	}
	if out.ShadowAnalysis == nil || out.ShadowAnalysis.Archetype == "" {
		t.Errorf("shadow analysis missing in deep mode: %+v", out.ShadowAnalysis)
	}
}

func TestJournalRejectsGet(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/consciousness/journal")
	if err != nil {
		t.Fatalf("GET journal: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if h.Status != "online" {
		t.Errorf("Status = %q, want online", h.Status)
	}
	if h.Goroutines <= 0 {
		t.Errorf("Goroutines = %d, want > 0", h.Goroutines)
	}
}
