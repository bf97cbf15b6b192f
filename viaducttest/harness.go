// Package viaducttest is the feature-test harness referenced throughout
// this module's other packages' doc comments: a thin layer over
// transport.Handler that lets a test register an already-built
// RawSelectionSet under a name and replay it through a real HTTP request,
// instead of needing a GraphQL query-text parser (out of scope per
// spec.md §1) to get from source text to a bound selection set.
//
// Grounded on graphql/end_to_end_test.go's own harness shape: that file
// builds a schemabuilder.Schema fixture, calls graphql.MustParse +
// PrepareQuery to get a query plan, then Executor{}.Execute's it and
// compares the JSON-shaped result against internal.ParseJSON(...). This
// package follows the same "build fixture, run one operation end to end,
// assert on the wire response" shape, translated from thunder's
// struct-reflection schema/query-text pipeline to this module's explicit
// schema.Schema/selection.RawSelectionSet data and bootstrap/dispatcher
// registration DSL.
package viaducttest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
	"github.com/airbnb/viaduct/transport"
)

// NewID is the harness's default id generator: tests that need a unique
// node id and don't care about its exact value call this rather than
// picking their own small literal.
func NewID() string {
	return uuid.NewString()
}

// Option configures the transport.Handler a Harness drives requests
// through.
type Option func(*transport.Handler)

// WithHooks attaches an instrumentation chain to every request the
// harness runs.
func WithHooks(hooks engine.Hooks) Option {
	return func(h *transport.Handler) { h.Hooks = hooks }
}

// WithNodeCache attaches a fresh per-request node cache factory, matching
// spec.md §4.3's "destroyed with the request" lifetime.
func WithNodeCache(factory func() engine.NodeCache) Option {
	return func(h *transport.Handler) { h.NewNodeCache = factory }
}

// WithMaxConcurrency bounds resolver fan-out per spec.md §5.
func WithMaxConcurrency(n int) Option {
	return func(h *transport.Handler) { h.MaxConcurrency = n }
}

// WithFlushInterval overrides how often the driving loop ticks the
// executor's batch buffers; tests that want to observe intermediate
// batching behavior tighten this from transport's 1ms default.
func WithFlushInterval(d time.Duration) Option {
	return func(h *transport.Handler) { h.FlushInterval = d }
}

type operation struct {
	rootType string
	sel      *selection.RawSelectionSet
}

// Harness drives one schema/dispatcher pair through transport.Handler's
// real ServeHTTP entrypoint, letting a test exercise the full
// bootstrap/dispatcher/engine/nodecache/transport stack on an operation
// it built directly against this module's own schema/selection types.
type Harness struct {
	t       testing.TB
	handler *transport.Handler

	mu  sync.Mutex
	ops map[string]operation
}

// New builds a Harness for sch/dispatch, applying opts to the underlying
// transport.Handler.
func New(t testing.TB, sch *schema.Schema, dispatch engine.Dispatcher, opts ...Option) *Harness {
	t.Helper()
	h := &Harness{t: t, ops: map[string]operation{}}
	handler := &transport.Handler{Schema: sch, Dispatch: dispatch}
	for _, opt := range opts {
		opt(handler)
	}
	handler.Parse = h.parse
	h.handler = handler
	return h
}

// Register names a pre-built selection set rooted at rootType so Run can
// replay it, standing in for the text a real GraphQL parser would
// otherwise have turned into this same RawSelectionSet.
func (h *Harness) Register(name, rootType string, sel *selection.RawSelectionSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops[name] = operation{rootType: rootType, sel: sel}
}

func (h *Harness) parse(_, operationName string, _ map[string]interface{}) (string, *selection.RawSelectionSet, error) {
	h.mu.Lock()
	op, ok := h.ops[operationName]
	h.mu.Unlock()
	if !ok {
		return "", nil, fmt.Errorf("viaducttest: no operation registered as %q", operationName)
	}
	return op.rootType, op.sel, nil
}

// Response is the decoded `{ data, errors }` wire shape Run hands back.
type Response struct {
	Data   map[string]interface{} `json:"data"`
	Errors []WireError            `json:"errors"`
}

// WireError is one element of Response.Errors.
type WireError struct {
	Message   string        `json:"message"`
	Path      []interface{} `json:"path"`
	ErrorType string        `json:"errorType"`
}

// Run replays the operation registered as name through a real HTTP POST
// against the harness's transport.Handler and decodes the response body.
func (h *Harness) Run(name string) Response {
	h.t.Helper()
	body, err := json.Marshal(map[string]interface{}{"operationName": name})
	if err != nil {
		h.t.Fatalf("viaducttest: marshaling request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		h.t.Fatalf("viaducttest: decoding response body %q: %v", rec.Body.String(), err)
	}
	return resp
}
