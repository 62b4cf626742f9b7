package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/build"
	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/ledger"
	"github.com/wpkernel/wpkgen/internal/web/auth"
	"github.com/wpkernel/wpkgen/internal/web/middleware"
	"github.com/wpkernel/wpkgen/internal/web/ratelimit"
	"github.com/wpkernel/wpkgen/internal/web/response"
)

func readPlan(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../compiler/plan/testdata/" + name)
	require.NoError(t, err)
	return data
}

type fakeHistory struct {
	entries []ledger.Entry
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]ledger.Entry, error) {
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeHistory) Get(_ context.Context, id uuid.UUID) (ledger.Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return ledger.Entry{}, ledger.ErrNotFound
}

func (f *fakeHistory) Record(_ context.Context, e *ledger.Entry) error {
	e.ID = uuid.New()
	f.entries = append([]ledger.Entry{*e}, f.entries...)
	return nil
}

type fixture struct {
	server  *httptest.Server
	history *fakeHistory
	auth    *auth.AuthService
}

func newFixture(t *testing.T, withAuth bool) *fixture {
	t.Helper()
	history := &fakeHistory{}
	opts := Options{
		Pipeline: &build.Pipeline{
			Coordinator: cache.NewCoordinator(cache.CoordinatorOptions{Backend: cache.NewMemoryBackend(cache.DefaultConfig())}),
			Recorder:    history,
		},
		History: history,
	}
	f := &fixture{history: history}
	if withAuth {
		f.auth = auth.NewAuthService("secret", time.Hour)
		opts.Auth = f.auth
	}
	f.server = httptest.NewServer(New(opts).Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) token(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := f.auth.GenerateToken("test", scopes)
	require.NoError(t, err)
	return token
}

func post(t *testing.T, url, contentType string, body []byte, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCompile(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		cache       string
	}{
		{"yaml", "application/yaml", readPlan(t, "book.plan.yaml"), "miss"},
		{"yaml again", "application/yaml", readPlan(t, "book.plan.yaml"), "hit"},
		{"json", "application/json; charset=utf-8", readPlan(t, "book.plan.json"), "miss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, f.server.URL+"/v1/compile", tt.contentType, tt.body, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.cache, resp.Header.Get(CacheHeader))
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

			var art cache.Artifact
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&art))
			assert.Len(t, art.Files, 5)
			assert.Len(t, art.Fallbacks, 1)
			assert.Equal(t, `"`+art.Key+`"`, resp.Header.Get("ETag"))
		})
	}

	assert.Len(t, f.history.entries, 3)
}

func TestCompileBaseControllerOverride(t *testing.T) {
	f := newFixture(t, false)

	resp := post(t, f.server.URL+"/v1/compile?includeBaseController=false", "application/yaml", readPlan(t, "book.plan.yaml"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var art cache.Artifact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&art))
	assert.NotContains(t, art.FileNames(), "Rest/BaseController.php")

	resp = post(t, f.server.URL+"/v1/compile?includeBaseController=maybe", "application/yaml", readPlan(t, "book.plan.yaml"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompileRejectsInvalidPlan(t *testing.T) {
	f := newFixture(t, false)

	resp := post(t, f.server.URL+"/v1/compile", "application/yaml", []byte("sanitizedNamespace: demo\nresources: []\n"), "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(errors.ErrMissingField), body.Code)
	assert.Empty(t, f.history.entries)
}

func TestCompileRejectsOversizedPlan(t *testing.T) {
	f := newFixture(t, false)

	resp := post(t, f.server.URL+"/v1/compile", "application/yaml", bytes.Repeat([]byte("#"), MaxPlanBytes+1), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAuthScopes(t *testing.T) {
	f := newFixture(t, true)
	plan := readPlan(t, "book.plan.yaml")

	resp := post(t, f.server.URL+"/v1/compile", "application/yaml", plan, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, f.server.URL+"/v1/compile", "application/yaml", plan, f.token(t, auth.ScopeHistory))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = post(t, f.server.URL+"/v1/compile", "application/yaml", plan, f.token(t, auth.ScopeCompile))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/v1/builds", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token(t, auth.ScopeHistory))
	builds, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer builds.Body.Close()
	assert.Equal(t, http.StatusOK, builds.StatusCode)

	health, err := http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestBuildHistory(t *testing.T) {
	f := newFixture(t, false)
	post(t, f.server.URL+"/v1/compile", "application/yaml", readPlan(t, "book.plan.yaml"), "")
	post(t, f.server.URL+"/v1/compile", "application/yaml", readPlan(t, "book.plan.yaml"), "")

	get := func(path string) *http.Response {
		resp, err := http.Get(f.server.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/v1/builds?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []ledger.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Cached)

	resp = get("/v1/builds/" + entries[0].ID.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tag := resp.Header.Get("ETag")
	assert.Equal(t, `"`+entries[0].ID.String()+`"`, tag)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/v1/builds/"+entries[0].ID.String(), nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", tag)
	revalidated, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer revalidated.Body.Close()
	assert.Equal(t, http.StatusNotModified, revalidated.StatusCode)

	assert.Equal(t, http.StatusNotFound, get("/v1/builds/"+uuid.NewString()).StatusCode)
	assert.Equal(t, http.StatusBadRequest, get("/v1/builds/not-a-uuid").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get("/v1/builds?limit=-1").StatusCode)
}

func TestBuildHistoryDisabled(t *testing.T) {
	srv := httptest.NewServer(New(Options{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/builds")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCompileRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewBucket(ratelimit.BucketConfig{Limit: 1, Window: time.Hour})
	require.NoError(t, err)
	defer limiter.Close()
	srv := httptest.NewServer(New(Options{RateLimiter: limiter}).Handler())
	defer srv.Close()
	plan := readPlan(t, "book.plan.yaml")

	resp := post(t, srv.URL+"/v1/compile", "application/yaml", plan, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(middleware.RateLimitLimitHeader))
	assert.Equal(t, "0", resp.Header.Get(middleware.RateLimitRemainingHeader))

	resp = post(t, srv.URL+"/v1/compile", "application/yaml", plan, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3600", resp.Header.Get("Retry-After"))

	// history is not throttled
	builds, err := http.Get(srv.URL + "/v1/builds")
	require.NoError(t, err)
	defer builds.Body.Close()
	assert.Empty(t, builds.Header.Get(middleware.RateLimitLimitHeader))
}

func TestProfilingEndpoints(t *testing.T) {
	svc := auth.NewAuthService("secret", time.Hour)
	srv := httptest.NewServer(New(Options{Auth: svc, Profiling: true}).Handler())
	defer srv.Close()

	get := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/debug/stats", nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	compile, err := svc.GenerateToken("ci", []string{auth.ScopeCompile})
	require.NoError(t, err)
	debug, err := svc.GenerateToken("ops", []string{auth.ScopeDebug})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(""))
	assert.Equal(t, http.StatusForbidden, get(compile))
	assert.Equal(t, http.StatusOK, get(debug))

	off := httptest.NewServer(New(Options{}).Handler())
	defer off.Close()
	resp, err := http.Get(off.URL + "/debug/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	post(t, f.server.URL+"/v1/compile", "application/yaml", readPlan(t, "book.plan.yaml"), "")
	post(t, f.server.URL+"/v1/compile", "application/yaml", []byte("namespace: ["), "")

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `wpkgen_builds_total{cached="false"} 1`)
	assert.Contains(t, text, `wpkgen_build_failures_total 1`)
	assert.Contains(t, text, `wpkgen_fallback_routes_total 1`)
	assert.Contains(t, text, `wpkgen_warnings_total{kind="capability-map-warning"} 1`)
	assert.Contains(t, text, `wpkgen_build_duration_seconds_count 1`)
}

func dialStream(t *testing.T, f *fixture, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/v1/compile/stream"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessages(t *testing.T, conn *websocket.Conn) []StreamMessage {
	t.Helper()
	var msgs []StreamMessage
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg StreamMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		msgs = append(msgs, msg)
		if msg.Type != MessageWarning {
			return msgs
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, req StreamRequest) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestStream(t *testing.T) {
	f := newFixture(t, true)

	_, resp, err := dialStream(t, f, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := dialStream(t, f, f.token(t, auth.ScopeCompile))
	require.NoError(t, err)
	defer conn.Close()

	req := StreamRequest{Plan: string(readPlan(t, "book.plan.yaml"))}
	for _, cached := range []bool{false, true} {
		send(t, conn, req)
		msgs := readMessages(t, conn)
		require.Len(t, msgs, 2)
		assert.Equal(t, MessageWarning, msgs[0].Type)
		assert.Equal(t, "route.capability.missing", msgs[0].Warning.Code)
		assert.Equal(t, MessageResult, msgs[1].Type)
		assert.Equal(t, cached, msgs[1].Cached)
		require.NotNil(t, msgs[1].Artifact)
		assert.Len(t, msgs[1].Artifact.Files, 5)
	}

	send(t, conn, StreamRequest{Plan: "sanitizedNamespace: demo\nresources: []\n"})
	msgs := readMessages(t, conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageError, msgs[0].Type)
	assert.Equal(t, string(errors.ErrMissingField), msgs[0].Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{broken")))
	msgs = readMessages(t, conn)
	assert.Equal(t, MessageError, msgs[0].Type)
}
