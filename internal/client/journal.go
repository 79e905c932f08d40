// Package client provides the one-shot HTTP client for the Noesis
// pipeline's journal endpoint. This request/response path is independent
// of the stream coordinator: both are entry points into the same remote
// pipeline.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnalysisMode selects how deeply the pipeline reflects on an entry.
const (
	ModeStandard   = "standard"
	ModeDeepShadow = "deep_shadow_work"
)

// JournalRequest is the POST body for /{namespace}/journal.
type JournalRequest struct {
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	AnalysisMode string `json:"analysis_mode"`
}

// ShadowAnalysis reports the archetype pattern the pipeline detected.
type ShadowAnalysis struct {
	Archetype       string  `json:"archetype"`
	Confidence      float64 `json:"confidence"`
	TriggerDetected string  `json:"trigger_detected,omitempty"`
}

// JournalResponse is the pipeline's one-shot reply.
type JournalResponse struct {
	Response       string          `json:"response"`
	ReasoningTrace string          `json:"reasoning_trace,omitempty"`
	ShadowAnalysis *ShadowAnalysis `json:"shadow_analysis,omitempty"`
	IntegrityScore float64         `json:"integrity_score,omitempty"`
}

// JournalClient makes one-shot calls to the pipeline's journal endpoint.
type JournalClient struct {
	baseURL   string
	namespace string
	client    *http.Client
}

// NewJournalClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8090") and namespace.
func NewJournalClient(baseURL, namespace string) *JournalClient {
	return &JournalClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		namespace: namespace,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Submit posts a journal entry and returns the pipeline's reply.
func (c *JournalClient) Submit(ctx context.Context, content, mode string) (*JournalResponse, error) {
	if mode == "" {
		mode = ModeStandard
	}
	body := JournalRequest{
		Content:      content,
		Timestamp:    time.Now().Format(time.RFC3339),
		AnalysisMode: mode,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/journal", c.baseURL, c.namespace)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("POST journal: %d %s", resp.StatusCode, string(respBody))
	}

	var out JournalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
