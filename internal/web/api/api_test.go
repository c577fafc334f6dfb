package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/declmeta/internal/cache"
	"github.com/conduit-lang/declmeta/internal/watch"
	"github.com/conduit-lang/declmeta/internal/web/ratelimit"
	"github.com/conduit-lang/declmeta/internal/web/response"
)

type env struct {
	path     string
	snapshot *Snapshot
	cache    *cache.MemoryCache
	reloader *Reloader
	handler  http.Handler
}

func newEnv(t *testing.T, notifier *watch.ReloadServer) *env {
	t.Helper()

	content, err := os.ReadFile(filepath.Join("testdata", "circle.yml"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "circle.yml")
	require.NoError(t, os.WriteFile(path, content, 0644))

	e := &env{
		path:     path,
		snapshot: NewSnapshot(),
		cache:    cache.NewMemoryCache(cache.DefaultConfig()),
	}
	t.Cleanup(func() { _ = e.cache.Close() })

	e.reloader = &Reloader{Snapshot: e.snapshot, Cache: e.cache, Notifier: notifier, Path: path}
	e.handler = NewRouter(Config{Snapshot: e.snapshot, Cache: e.cache, CacheTTL: time.Minute, Reload: notifier})
	return e
}

func (e *env) get(t *testing.T, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_BeforeFirstLoad(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var health Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "starting", health.Status)

	for _, target := range []string{"/definitions", "/definitions/shapes.Base", "/symbols"} {
		assert.Equal(t, http.StatusServiceUnavailable, e.get(t, target).Code, target)
	}
}

func TestHandlers_Health(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))

	var health Health
	require.NoError(t, json.Unmarshal(e.get(t, "/healthz").Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, e.path, health.Fixture)
	assert.Equal(t, 2, health.Definitions)
	assert.False(t, health.UpdatedAt.IsZero())
}

func TestHandlers_Document(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))

	rec := e.get(t, "/definitions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"@fullname": "shapes.Circle"`)
	assert.Contains(t, rec.Body.String(), `"@inherit_type": "override"`)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	_, fingerprint, _ := e.snapshot.Current()
	cached, err := e.cache.Get(context.Background(), fingerprint+":json")
	require.NoError(t, err)
	assert.Equal(t, rec.Body.String(), string(cached))

	rec = e.get(t, "/definitions", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = e.get(t, "/definitions?format=yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))

	rec = e.get(t, "/definitions?format=xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<?xml"), rec.Body.String())
	assert.Contains(t, rec.Body.String(), "\n<Meta>")

	assert.Equal(t, http.StatusBadRequest, e.get(t, "/definitions?format=csv").Code)
}

func TestHandlers_Definition(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))

	rec := e.get(t, "/definitions/SHAPES.CIRCLE")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `{`))
	assert.Contains(t, body, `"name": "Definition"`)
	assert.Contains(t, body, `"@fullname": "shapes.circle.radius"`)
	assert.NotContains(t, body, `"@fullname": "shapes.Base"`)

	rec = e.get(t, "/definitions/shapes.circle.name")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"@inherit_type": "inherited"`)

	rec = e.get(t, "/definitions/shapes.circel")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var errBody response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Contains(t, errBody.Message, "shapes.circel")
	assert.Contains(t, errBody.Suggestions, "shapes.Circle")
}

func TestHandlers_Symbols(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))

	decode := func(rec *httptest.ResponseRecorder) []Symbol {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []Symbol
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	all := decode(e.get(t, "/symbols"))
	require.Len(t, all, 7)
	assert.Equal(t, "shapes.Base", all[0].FullName)
	assert.Empty(t, all[0].Parent)

	overrides := decode(e.get(t, "/symbols?inherit_type=override"))
	require.Len(t, overrides, 1)
	assert.Equal(t, "shapes.circle.area", overrides[0].FullName)
	assert.Equal(t, "shapes.Circle", overrides[0].Parent)
	assert.Equal(t, 11, overrides[0].Line)

	inherited := decode(e.get(t, "/symbols?inherit_type=Inherited&parent=shapes.circle"))
	require.Len(t, inherited, 1)
	assert.Equal(t, "name", inherited[0].Name)

	baseMembers := decode(e.get(t, "/symbols?parent=SHAPES.BASE"))
	require.Len(t, baseMembers, 2)
	assert.True(t, baseMembers[1].Shared)

	none := decode(e.get(t, "/symbols?parent=nothing"))
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.Equal(t, http.StatusBadRequest, e.get(t, "/symbols?inherit_type=virtual").Code)
}

func TestReloader_RefreshFailureKeepsSnapshot(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))
	before, fingerprint, _ := e.snapshot.Current()

	require.NoError(t, os.WriteFile(e.path, []byte("roots:\n  - kind: wizard\n"), 0644))
	err := e.reloader.Refresh(context.Background(), []string{e.path})
	require.Error(t, err)
	assert.Equal(t, "roots[0]", errorPath(err))

	after, fp, _ := e.snapshot.Current()
	assert.Same(t, before, after)
	assert.Equal(t, fingerprint, fp)
}

func TestReloader_ContentChangeClearsCache(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, e.reloader.Refresh(ctx, nil))
	require.Equal(t, http.StatusOK, e.get(t, "/definitions").Code)
	_, oldFingerprint, _ := e.snapshot.Current()

	require.NoError(t, e.reloader.Refresh(ctx, nil))
	_, err := e.cache.Get(ctx, oldFingerprint+":json")
	assert.NoError(t, err, "unchanged content keeps cached documents")

	content, err := os.ReadFile(e.path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.path, append(content, []byte("  - kind: import\n    name: Alias\n    line: 40\n    original: base\n")...), 0644))
	require.NoError(t, e.reloader.Refresh(ctx, nil))

	_, err = e.cache.Get(ctx, oldFingerprint+":json")
	assert.True(t, cache.IsCacheMiss(err))

	res, fingerprint, _ := e.snapshot.Current()
	assert.NotEqual(t, oldFingerprint, fingerprint)
	assert.Equal(t, 3, res.Definitions())
}

func TestReloader_NotifiesWebSocketClients(t *testing.T) {
	notifier := watch.NewReloadServer(nil)
	defer notifier.Close()
	e := newEnv(t, notifier)

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return notifier.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, e.reloader.Refresh(context.Background(), []string{e.path}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg watch.ReloadMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, 2, msg.Definitions)
	assert.Equal(t, []string{e.path}, msg.Files)

	require.NoError(t, os.WriteFile(e.path, []byte("roots: [{kind: wizard}]\n"), 0644))
	require.Error(t, e.reloader.Refresh(context.Background(), nil))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, e.path, msg.Error.File)
}

func TestRouter_RateLimit(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.reloader.Refresh(context.Background(), nil))

	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
	defer limiter.Close()
	e.handler = NewRouter(Config{Snapshot: e.snapshot, Limiter: limiter})

	assert.Equal(t, http.StatusOK, e.get(t, "/symbols").Code)
	rec := e.get(t, "/symbols")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, e.get(t, "/healthz").Code)
}
