package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/notepress/internal/formatter"
)

// formatRequest is the body for POST /api/format: synchronous
// formatting of already-analyzed text, without publishing.
type formatRequest struct {
	Text         string   `json:"text"`
	ContentType  string   `json:"content_type"`
	Title        string   `json:"title"`
	QualityScore *float64 `json:"quality_score"`
	SourceURL    string   `json:"source_url"`
	Policy       string   `json:"policy"` // "compact" (default) or "legacy"
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		jsonError(w, "text is required", http.StatusBadRequest)
		return
	}

	var pol formatter.Policy
	switch req.Policy {
	case "", "compact":
		pol = s.orchestrator.CompactPolicy()
	case "legacy":
		pol = s.orchestrator.LegacyPolicy()
	default:
		jsonError(w, "policy must be \"compact\" or \"legacy\"", http.StatusBadRequest)
		return
	}

	result := formatter.Format(formatter.Input{
		Text:         req.Text,
		ContentType:  req.ContentType,
		Title:        req.Title,
		QualityScore: req.QualityScore,
		SourceURL:    req.SourceURL,
	}, pol)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"blocks": result.Blocks,
		"report": result.Report,
	})
}
