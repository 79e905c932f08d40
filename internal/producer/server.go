package producer

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/JuanCS-Dev/Noesis/internal/config"
)

// Server exposes the mock pipeline over HTTP: the SSE stream path the
// console consumes, a WebSocket sibling carrying the same records, the
// one-shot journal path, and a health endpoint.
type Server struct {
	cfg      *config.Config
	pipeline *Pipeline
	upgrader websocket.Upgrader
}

// NewServer creates a server for the given config.
func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg: cfg,
		pipeline: NewPipeline(
			cfg.Stream.Baseline,
			cfg.Stream.Increment,
			cfg.Producer.PhaseDwell.Std(),
			cfg.Producer.TokenInterval.Std(),
		),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// SetupRoutes registers all handlers on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	ns := "/" + s.cfg.Stream.Namespace
	mux.HandleFunc(ns+"/stream/process", s.handleStream)
	mux.HandleFunc(ns+"/ws", s.handleWS)
	mux.HandleFunc(ns+"/journal", s.handleJournal)
	mux.HandleFunc("/api/health", s.handleHealth)
}

// streamParams pulls content and depth from the query. A missing or
// unparseable depth falls back to the configured default; content is
// accepted as-is.
func (s *Server) streamParams(r *http.Request) (content string, depth int) {
	content = r.URL.Query().Get("content")
	depth = s.cfg.Stream.Depth
	if d, err := strconv.Atoi(r.URL.Query().Get("depth")); err == nil {
		depth = d
	}
	return content, depth
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	content, depth := s.streamParams(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(rec Record) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		fl.Flush()
		return nil
	}

	err := s.pipeline.Run(r.Context(), content, depth, s.cfg.Producer.Heartbeat.Std(), emit)
	if err != nil {
		log.Printf("stream run ended early: %v", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	content, depth := s.streamParams(r)

	err = s.pipeline.Run(r.Context(), content, depth, s.cfg.Producer.Heartbeat.Std(), func(rec Record) error {
		return conn.WriteJSON(rec)
	})
	if err != nil {
		log.Printf("ws run ended early: %v", err)
	}
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Content      string `json:"content"`
		Timestamp    string `json:"timestamp"`
		AnalysisMode string `json:"analysis_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ref := Reflect(req.Content, s.cfg.Stream.Depth)

	resp := map[string]any{
		"response":        ref.Response,
		"reasoning_trace": ref.ReasoningTrace,
		"integrity_score": ref.IntegrityScore,
	}
	if req.AnalysisMode == "deep_shadow_work" || ref.Archetype != "None" {
		resp["shadow_analysis"] = map[string]any{
			"archetype":  ref.Archetype,
			"confidence": ref.Confidence,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SnapshotHealth())
}

// ListenAndServe binds the configured address and serves mux.
func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Pipeline producer listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
