// Package httpapi exposes the assistant as a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"grocerai/internal/domain"
	"grocerai/internal/history"
)

// EmptyQuestionWarning is returned with 400 for blank questions.
const EmptyQuestionWarning = "Please enter a question before submitting."

// Assistant is the subset of service.Assistant the API needs.
type Assistant interface {
	Ask(ctx context.Context, question string) (domain.AnswerResult, error)
	History(n int) []history.Entry
	ClearHistory()
	HasGenerator() bool
	Ready() bool
}

type Server struct {
	assistant Assistant
	mux       *http.ServeMux
}

func NewServer(a Assistant) *Server {
	s := &Server{assistant: a, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/query", s.queryHandler)
	s.mux.HandleFunc("GET /api/history", s.historyHandler)
	s.mux.HandleFunc("DELETE /api/history", s.clearHistoryHandler)
	s.mux.HandleFunc("GET /api/health", s.healthHandler)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer   string   `json:"answer"`
	Passages []string `json:"passages"`
	Mode     string   `json:"mode"`
	Route    string   `json:"route"`
}

type historyEntry struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Mode     string    `json:"mode"`
	Passages []string  `json:"passages"`
	AskedAt  time.Time `json:"asked_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	res, err := s.assistant.Ask(r.Context(), req.Question)
	if errors.Is(err, domain.ErrEmptyQuery) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: EmptyQuestionWarning})
		return
	}
	if err != nil {
		slog.Error("query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:   res.Text,
		Passages: res.PassageTexts(),
		Mode:     res.Mode.String(),
		Route:    res.Route.String(),
	})
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "n must be a non-negative integer"})
			return
		}
		n = v
	}
	entries := s.assistant.History(n)
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		passages := make([]string, len(e.Passages))
		for i, p := range e.Passages {
			passages[i] = p.Content
		}
		out = append(out, historyEntry{
			ID:       e.ID,
			Question: e.Question,
			Answer:   e.Answer,
			Mode:     e.Mode.String(),
			Passages: passages,
			AskedAt:  e.AskedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, _ *http.Request) {
	s.assistant.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.assistant.Ready() {
		status = "indexing"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"generation": s.assistant.HasGenerator(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}
