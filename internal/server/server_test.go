package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aparetext/aparetext/internal/config"
	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newTestServer(t *testing.T, origins ...string) *Server {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	return New(config.ServerConfig{Host: "127.0.0.1", Port: 46321, AllowedOrigins: origins}, dbCtx, nil)
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createGreeting(t *testing.T, srv *Server) snippet.Snippet {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/snippets", map[string]any{
		"name":         "Greeting",
		"abbreviation": ";hi",
		"content_text": "Hi {{n}}{{|}}!",
		"tags":         []string{"work"},
		"variables":    []map[string]any{{"key": "n", "type": "text"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[snippet.Snippet](t, rec)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestSnippetCRUD(t *testing.T) {
	srv := newTestServer(t)
	created := createGreeting(t, srv)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)
	assert.Equal(t, snippet.DefaultCaretMarker, created.CaretMarker)

	rec := do(t, srv, http.MethodGet, "/api/snippets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Greeting", decode[snippet.Snippet](t, rec).Name)

	rec = do(t, srv, http.MethodPut, "/api/snippets/"+created.ID, map[string]any{
		"name":          "Greeting v2",
		"abbreviation":  ";hi",
		"content_text":  "Hello {{n}}",
		"change_reason": "wording",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Greeting v2", decode[snippet.Snippet](t, rec).Name)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	versions := decode[[]snippet.Version](t, rec)
	require.Len(t, versions, 1)
	assert.Equal(t, "wording", versions[0].ChangeReason)
	assert.Equal(t, "Greeting", versions[0].Name)

	rec = do(t, srv, http.MethodGet, "/api/snippets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]snippet.Snippet](t, rec), 1)

	rec = do(t, srv, http.MethodDelete, "/api/snippets/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/api/snippets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsInvalidSnippet(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/snippets", map[string]any{"name": "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode[ErrorResponse](t, rec).Error)

	rec = do(t, srv, http.MethodPost, "/api/snippets", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMissingSnippet(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/snippets/nope", map[string]any{"name": "x", "content_text": "y"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchAndAbbreviation(t *testing.T) {
	srv := newTestServer(t)
	created := createGreeting(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/snippets/search?q=GREET", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[[]snippet.Snippet](t, rec)
	require.Len(t, results, 1)
	assert.Equal(t, created.ID, results[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/snippets/search?q=greet&tags=personal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]snippet.Snippet](t, rec))

	rec = do(t, srv, http.MethodGet, "/api/snippets/abbreviation/;hi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[snippet.Snippet](t, rec).ID)

	rec = do(t, srv, http.MethodGet, "/api/snippets/abbreviation/;none", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/snippets/search?include_disabled=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpandAndStats(t *testing.T) {
	srv := newTestServer(t)
	created := createGreeting(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/expand", map[string]any{
		"abbreviation": ";hi",
		"variables":    map[string]any{"n": "Sam"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[map[string]any](t, rec)
	assert.Equal(t, "Hi Sam!", result["content"])
	assert.EqualValues(t, 6, result["cursor_position"])

	rec = do(t, srv, http.MethodPost, "/api/snippets/"+created.ID+"/expand", map[string]any{
		"variables": map[string]any{"n": "Ana"},
		"source":    "desktop",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi Ana!", decode[map[string]any](t, rec)["content"])

	rec = do(t, srv, http.MethodPost, "/api/expand", map[string]any{"abbreviation": ";missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/expand", map[string]any{"abbreviation": ";hi", "source": "fax"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, stats["total_uses"])
	assert.Equal(t, map[string]any{"web": float64(1), "desktop": float64(1)}, stats["by_source"])

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID, nil)
	assert.EqualValues(t, 2, decode[snippet.Snippet](t, rec).UsageCount)
}

func TestVersionRestoreAndDiff(t *testing.T) {
	srv := newTestServer(t)
	created := createGreeting(t, srv)

	rec := do(t, srv, http.MethodPut, "/api/snippets/"+created.ID, map[string]any{
		"name":         "Greeting",
		"abbreviation": ";hi",
		"content_text": "Changed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/versions", nil)
	versions := decode[[]snippet.Version](t, rec)
	require.Len(t, versions, 1)
	versionID := versions[0].ID

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/versions/"+versionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi {{n}}{{|}}!", decode[snippet.Version](t, rec).ContentText)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/versions/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, versionID, decode[snippet.Version](t, rec).ID)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/versions/2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/diff?from="+versionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/merge-patch+json", rec.Header().Get("Content-Type"))
	patch := decode[map[string]any](t, rec)
	assert.Equal(t, "Changed", patch["content_text"])

	rec = do(t, srv, http.MethodGet, "/api/snippets/"+created.ID+"/diff", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/snippets/"+created.ID+"/versions/"+versionID+"/restore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Hi {{n}}{{|}}!", decode[snippet.Snippet](t, rec).ContentText)

	rec = do(t, srv, http.MethodPost, "/api/snippets/"+created.ID+"/versions/missing/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportImport(t *testing.T) {
	source := newTestServer(t)
	createGreeting(t, source)

	rec := do(t, source, http.MethodGet, "/api/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".yaml")
	exported := rec.Body.String()
	assert.Contains(t, exported, "version: 1.0.0")

	target := newTestServer(t)
	rec = do(t, target, http.MethodPost, "/api/import?format=yaml", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]int{"imported": 1, "skipped": 0}, decode[map[string]int](t, rec))

	rec = do(t, target, http.MethodPost, "/api/import", `{"snippets":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, target, http.MethodGet, "/api/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ctrl+space", decode[map[string]string](t, rec)["global_hotkey"])

	rec = do(t, srv, http.MethodPut, "/api/settings", map[string]string{"theme": "light"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"theme": "light"}, decode[map[string]string](t, rec))
}

func TestTemplateEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/template/validate", map[string]string{"template": "Hi {{name"})
	require.Equal(t, http.StatusOK, rec.Code)
	validation := decode[map[string]any](t, rec)
	assert.Equal(t, false, validation["is_valid"])
	assert.NotEmpty(t, validation["error"])

	rec = do(t, srv, http.MethodPost, "/api/template/info", map[string]string{"template": "{{a}} {{date}} {{|}}"})
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, []any{"a"}, info["variables"])
	assert.Equal(t, true, info["has_cursor"])

	rec = do(t, srv, http.MethodPost, "/api/template/preview", map[string]any{
		"template":  "Hi {{n}}{{|}}",
		"variables": map[string]any{"n": "Bo"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[map[string]any](t, rec)
	assert.Equal(t, "Hi Bo", preview["content"])
	assert.EqualValues(t, 5, preview["cursor_position"])
}

func TestCheckOrigin(t *testing.T) {
	srv := newTestServer(t, "https://app.example")

	cases := map[string]bool{
		"":                          true,
		"https://app.example":       true,
		"chrome-extension://abcdef": true,
		"moz-extension://1234":      true,
		"http://example.com":        true,
		"https://evil.example":      false,
	}
	for origin, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, srv.checkOrigin(req), origin)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, "https://app.example")

	req := httptest.NewRequest(http.MethodOptions, "/api/snippets", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketProtocol(t *testing.T) {
	srv := newTestServer(t)
	created := createGreeting(t, srv)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	roundTrip := func(msg map[string]any) map[string]any {
		t.Helper()
		require.NoError(t, conn.WriteJSON(msg))
		var resp map[string]any
		require.NoError(t, conn.ReadJSON(&resp))
		return resp
	}

	assert.Equal(t, "pong", roundTrip(map[string]any{"type": "ping"})["type"])

	resp := roundTrip(map[string]any{"type": "search", "query": "greet"})
	assert.Equal(t, "search_results", resp["type"])
	assert.Len(t, resp["snippets"], 1)

	resp = roundTrip(map[string]any{
		"type":       "expand",
		"snippet_id": created.ID,
		"variables":  map[string]any{"n": "Kim"},
		"domain":     "mail.example.com",
	})
	assert.Equal(t, "expand_result", resp["type"])
	assert.Equal(t, "Hi Kim!", resp["content"])
	assert.EqualValues(t, 6, resp["cursor_position"])
	assert.Equal(t, false, resp["is_rich"])

	resp = roundTrip(map[string]any{"type": "get_snippet", "snippet_id": created.ID})
	assert.Equal(t, "snippet_data", resp["type"])
	assert.Equal(t, created.ID, resp["snippet"].(map[string]any)["id"])

	resp = roundTrip(map[string]any{"type": "get_snippet", "snippet_id": "missing"})
	assert.Equal(t, "error", resp["type"])
	assert.Equal(t, "snippet not found", resp["error"])

	resp = roundTrip(map[string]any{"type": "bogus"})
	assert.Equal(t, "error", resp["type"])

	rec := do(t, srv, http.MethodGet, "/api/stats?snippet_id="+created.ID, nil)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, map[string]any{"extension": float64(1)}, stats["by_source"])
}
