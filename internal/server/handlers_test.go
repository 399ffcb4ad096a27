package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pistalab/trainlog/internal/facts"
	"github.com/pistalab/trainlog/internal/llm"
	"github.com/pistalab/trainlog/internal/parser"
	"github.com/pistalab/trainlog/internal/store"
)

type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(context.Context, string, llm.CompletionOpts) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const stubResponse = `{"session":{"title":"Pista","type":"pista"},"groups":[{"name":"Sprint","sets":[{"exercise_name":"Sprint 60m","category":"sprint","sets":3,"reps":1}]}]}`

func newTestServer(t *testing.T, provider llm.Provider, apiKey string) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(parser.New(provider), facts.NewExtractor(), st, apiKey, zap.NewNop()), st
}

func postJSON(t *testing.T, srv http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleParse(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{response: stubResponse}, "")

	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{
		"text":           "3x60m rec 3'",
		"reference_date": "2026-01-14",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, "2026-01-14", resp.Sessions[0].Session.Date)
	assert.Empty(t, resp.SavedIDs)
}

func TestHandleParseSaves(t *testing.T) {
	srv, st := newTestServer(t, &stubProvider{response: stubResponse}, "")

	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{
		"text":           "3x60m rec 3'",
		"reference_date": "2026-01-14",
		"save":           true,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SavedIDs, 1)
	assert.NotEmpty(t, resp.ImportID)

	got, err := st.GetSession(context.Background(), resp.SavedIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "pista", got.Session.Type)

	imports, err := st.ListImports(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, 1, imports[0].SessionsInserted)
}

func TestHandleParseSaveSkipsInvalidSessions(t *testing.T) {
	// rpe 14 is out of range, so the session carries a validation report and
	// must not reach the store even with save:true.
	invalid := `{"session":{"title":"Pista","type":"pista","rpe":"14"},"groups":[{"name":"Sprint","sets":[{"exercise_name":"Sprint 60m","category":"sprint"}]}]}`
	srv, st := newTestServer(t, &stubProvider{response: invalid}, "")

	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{
		"text":           "3x60m rec 3'",
		"reference_date": "2026-01-14",
		"save":           true,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 1, "flagged session stays in the response")
	require.NotEmpty(t, resp.Reports)
	assert.Empty(t, resp.SavedIDs)
	assert.Equal(t, 1, resp.SkippedSessions)

	saved, err := st.ListSessions(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, saved, "session with validation errors must not be persisted")

	imports, err := st.ListImports(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, 0, imports[0].SessionsInserted)
}

func TestHandleParseEmptyText(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{response: stubResponse}, "")
	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{"text": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleParseOracleQuota(t *testing.T) {
	provider := &stubProvider{err: &llm.OracleError{Kind: llm.KindQuota, Provider: "stub", Err: assert.AnError}}
	srv, _ := newTestServer(t, provider, "")
	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{"text": "corsa"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota")
}

func TestHandleFacts(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{response: stubResponse}, "")
	rec := postJSON(t, srv, "/api/v1/facts", map[string]any{"text": "gara 60m 7.18 PB"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got facts.Facts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.PersonalBests, 1)
	assert.Equal(t, 7.18, got.PersonalBests[0].TimeS)
}

func TestSessionsCRUD(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{response: stubResponse}, "")

	rec := postJSON(t, srv, "/api/v1/parse", map[string]any{
		"text": "3x60m", "reference_date": "2026-01-14", "save": true,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.SavedIDs, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	list := httptest.NewRecorder()
	srv.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)
	var summaries []store.SessionSummary
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)

	del := httptest.NewRecorder()
	srv.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/1", nil))
	assert.Equal(t, http.StatusOK, del.Code)

	missing := httptest.NewRecorder()
	srv.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/1", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _ := newTestServer(t, &stubProvider{response: stubResponse}, "secret")

	noKey := postJSON(t, srv, "/api/v1/facts", map[string]any{"text": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, noKey.Code)

	wrongKey := postJSON(t, srv, "/api/v1/facts", map[string]any{"text": "x"}, map[string]string{"X-API-Key": "nope"})
	assert.Equal(t, http.StatusForbidden, wrongKey.Code)

	goodKey := postJSON(t, srv, "/api/v1/facts", map[string]any{"text": "gara 60m 7.18 PB"}, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, goodKey.Code)

	health := httptest.NewRecorder()
	srv.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code, "health endpoint stays open")
}
