package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/cache"
	"github.com/conduit-lang/declmeta/internal/cli/ui"
	"github.com/conduit-lang/declmeta/internal/compiler/metadata"
	"github.com/conduit-lang/declmeta/internal/compiler/pipeline"
	"github.com/conduit-lang/declmeta/internal/compiler/proptree"
	"github.com/conduit-lang/declmeta/internal/store"
	"github.com/conduit-lang/declmeta/internal/watch"
	"github.com/conduit-lang/declmeta/internal/web/middleware"
	"github.com/conduit-lang/declmeta/internal/web/ratelimit"
	"github.com/conduit-lang/declmeta/internal/web/response"
	"github.com/conduit-lang/declmeta/internal/web/router"
)

// Config wires the handlers to their collaborators. Only Snapshot is
// required.
type Config struct {
	Snapshot *Snapshot
	Cache    cache.Cache
	CacheTTL time.Duration
	Reload   *watch.ReloadServer
	Limiter  ratelimit.Limiter
	Logger   *zap.Logger
}

// Handlers serves the metadata API
type Handlers struct {
	snapshot *Snapshot
	cache    cache.Cache
	ttl      time.Duration
	reload   *watch.ReloadServer
	logger   *zap.Logger
}

// Symbol is the JSON shape of one flattened definition
type Symbol struct {
	FullName    string `json:"fullname"`
	Name        string `json:"name"`
	Element     string `json:"element"`
	Type        string `json:"type,omitempty"`
	Line        int    `json:"line"`
	InheritType string `json:"inherit_type,omitempty"`
	Exported    bool   `json:"exported,omitempty"`
	Shared      bool   `json:"shared,omitempty"`
	Parent      string `json:"parent,omitempty"`
}

// Health is the body of GET /healthz
type Health struct {
	Status      string    `json:"status"`
	Fixture     string    `json:"fixture,omitempty"`
	Definitions int       `json:"definitions"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
	Clients     int       `json:"clients"`
}

// NewHandlers creates the API handlers
func NewHandlers(cfg Config) *Handlers {
	h := &Handlers{
		snapshot: cfg.Snapshot,
		cache:    cfg.Cache,
		ttl:      cfg.CacheTTL,
		reload:   cfg.Reload,
		logger:   cfg.Logger,
	}
	if h.snapshot == nil {
		h.snapshot = NewSnapshot()
	}
	if h.cache == nil {
		h.cache, _ = cache.New(cache.Config{Backend: "none"})
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// NewRouter builds the API router with request IDs, logging and panic
// recovery applied to every route, and per-client rate limiting when
// cfg.Limiter is set
func NewRouter(cfg Config) *router.Router {
	h := NewHandlers(cfg)
	r := router.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(h.logger, "/healthz"),
		middleware.Recovery(h.logger),
	)
	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter, h.logger, "/healthz", "/ws"))
	}
	h.Register(r)
	return r
}

// Register adds every API route to r
func (h *Handlers) Register(r *router.Router) {
	r.Get("/healthz", "Liveness and snapshot summary", h.Health)
	r.Get("/definitions", "Full metadata document (?format=json|yaml|xml)", h.Document)
	r.Get("/definitions/{name}", "One definition by qualified name", h.Definition)
	r.Get("/symbols", "Flattened definitions (?inherit_type=&parent=)", h.Symbols)
	if h.reload != nil {
		r.Get("/ws", "Reload notifications over WebSocket", h.reload.HandleWebSocket)
	}
}

// Health reports liveness and the size of the current snapshot
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	res, _, updated := h.snapshot.Current()
	body := Health{Status: "ok"}
	if res != nil {
		body.Fixture = res.Path
		body.Definitions = res.Definitions()
		body.UpdatedAt = updated
	} else {
		body.Status = "starting"
	}
	if h.reload != nil {
		body.Clients = h.reload.ConnectionCount()
	}
	response.RenderJSON(w, http.StatusOK, body)
}

// Document serves the whole metadata tree, cached per fingerprint and
// format
func (h *Handlers) Document(w http.ResponseWriter, r *http.Request) {
	res, fingerprint, ok := h.current(w)
	if !ok {
		return
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}

	key := fingerprint + ":" + string(format)
	body, err := h.cache.Get(r.Context(), key)
	if err != nil {
		if !cache.IsCacheMiss(err) {
			h.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		if body, err = metadata.Serialize(res.Meta, format); err != nil {
			response.RenderInternalError(w, err)
			return
		}
		if err := h.cache.Set(r.Context(), key, body, h.ttl); err != nil {
			h.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	writeDocument(w, r, format, body)
}

// Definition serves one Definition or Import node, matched by qualified
// name ignoring case. Top-level nodes win over nested ones.
func (h *Handlers) Definition(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.current(w)
	if !ok {
		return
	}
	format, ok := requestFormat(w, r)
	if !ok {
		return
	}

	name := router.PathParam(r, "name")
	node := findDefinition(res.Meta, name)
	if node == nil {
		var candidates []string
		for _, d := range store.Flatten(res.Meta) {
			candidates = append(candidates, d.FullName)
		}
		response.RenderNotFound(w, fmt.Sprintf("definition %s not found", name), ui.SuggestNames(name, candidates)...)
		return
	}

	body, err := metadata.Serialize(node, format)
	if err != nil {
		response.RenderInternalError(w, err)
		return
	}
	writeDocument(w, r, format, body)
}

// Symbols lists every definition flattened, optionally filtered by
// inherit_type and by parent qualified name
func (h *Handlers) Symbols(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.current(w)
	if !ok {
		return
	}

	q := r.URL.Query()
	inherit := q.Get("inherit_type")
	if inherit != "" {
		if _, ok := metadata.ParseInheritType(inherit); !ok {
			response.RenderBadRequest(w, fmt.Sprintf("unknown inherit_type %q", inherit))
			return
		}
	}
	parent := q.Get("parent")

	out := []Symbol{}
	for _, d := range store.Flatten(res.Meta) {
		if inherit != "" && !strings.EqualFold(d.InheritType, inherit) {
			continue
		}
		if parent != "" && !strings.EqualFold(d.Parent, parent) {
			continue
		}
		out = append(out, Symbol{
			FullName:    d.FullName,
			Name:        d.Name,
			Element:     d.Element,
			Type:        d.Type,
			Line:        d.Line,
			InheritType: d.InheritType,
			Exported:    d.Exported,
			Shared:      d.Shared,
			Parent:      d.Parent,
		})
	}
	response.RenderJSON(w, http.StatusOK, out)
}

func (h *Handlers) current(w http.ResponseWriter) (*pipeline.Result, string, bool) {
	res, fingerprint, _ := h.snapshot.Current()
	if res == nil {
		response.RenderServiceUnavailable(w, "metadata not loaded yet")
		return nil, "", false
	}
	return res, fingerprint, true
}

func requestFormat(w http.ResponseWriter, r *http.Request) (metadata.Format, bool) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return metadata.FormatJSON, true
	}
	format, err := metadata.ParseFormat(raw)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return "", false
	}
	return format, true
}

func writeDocument(w http.ResponseWriter, r *http.Request, format metadata.Format, body []byte) {
	if cache.NotModified(w, r, cache.GenerateETag(body)) {
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func contentType(format metadata.Format) string {
	switch format {
	case metadata.FormatYAML:
		return "application/yaml; charset=utf-8"
	case metadata.FormatXML:
		return "application/xml; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

func findDefinition(meta *proptree.Node, name string) *proptree.Node {
	isDef := func(n *proptree.Node) bool {
		return n.Name() == metadata.ElemDefinition || n.Name() == metadata.ElemImport
	}
	for _, c := range meta.Children() {
		if isDef(c) && strings.EqualFold(c.String(metadata.AttrFullName), name) {
			return c
		}
	}

	var found *proptree.Node
	meta.Walk(func(n *proptree.Node, _ int) bool {
		if found != nil {
			return false
		}
		if isDef(n) && strings.EqualFold(n.String(metadata.AttrFullName), name) {
			found = n
			return false
		}
		return true
	})
	return found
}
