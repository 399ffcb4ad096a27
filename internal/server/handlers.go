package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pistalab/trainlog/internal/llm"
	"github.com/pistalab/trainlog/internal/parser"
	"github.com/pistalab/trainlog/internal/store"
)

type parseRequest struct {
	Text          string `json:"text"`
	ReferenceDate string `json:"reference_date,omitempty"` // YYYY-MM-DD, defaults to today
	Save          bool   `json:"save,omitempty"`
}

type parseResponse struct {
	*parser.Result
	SavedIDs        []int64 `json:"saved_ids,omitempty"`
	ImportID        string  `json:"import_id,omitempty"`
	SkippedSessions int     `json:"skipped_sessions,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	ref := time.Now()
	if req.ReferenceDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ReferenceDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reference_date must be YYYY-MM-DD"})
			return
		}
		ref = parsed
	}

	result, err := s.parser.Parse(r.Context(), req.Text, ref)
	if err != nil {
		if errors.Is(err, parser.ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}
		s.log.Error("parse failed", zap.Error(err))
		writeJSON(w, oracleStatus(err), map[string]string{"error": llm.UserMessage(err)})
		return
	}

	resp := parseResponse{Result: result}
	if req.Save && s.store != nil {
		// Only sessions with an empty validation report are persisted; the
		// rest come back in Reports for the caller to fix and resubmit.
		clean := result.CleanSessions()
		resp.SkippedSessions = len(result.Sessions) - len(clean)
		importID, err := s.store.RecordImport(r.Context(), store.ImportRecord{
			Source:           "api",
			SessionsInserted: len(clean),
			PersonalBests:    len(result.PersonalBests),
			Injuries:         len(result.Injuries),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		ids, err := s.store.SaveSessions(r.Context(), clean, importID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.SavedIDs = ids
		resp.ImportID = importID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	writeJSON(w, http.StatusOK, s.extractor.Extract(req.Text))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no store configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := s.store.ListSessions(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no store configured"})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	draft, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no store configured"})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	if err := s.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no store configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	imports, err := s.store.ListImports(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if imports == nil {
		imports = []store.ImportRecord{}
	}
	writeJSON(w, http.StatusOK, imports)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// oracleStatus maps a classified oracle failure to an HTTP status.
func oracleStatus(err error) int {
	var oe *llm.OracleError
	if !errors.As(err, &oe) {
		return http.StatusInternalServerError
	}
	switch oe.Kind {
	case llm.KindQuota:
		return http.StatusTooManyRequests
	case llm.KindAuth:
		return http.StatusBadGateway
	case llm.KindOverload, llm.KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
