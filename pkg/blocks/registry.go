// registry.go — Kind → renderer table with fallback, skeleton and error states.
package blocks

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Renderer writes one fragment's HTML into buf. A renderer that returns an
// error may have written partial output; callers give each fragment its own
// buffer and discard it on failure.
type Renderer func(buf *bytes.Buffer, props Props) error

// Registry maps kinds to renderers. The zero value is not usable; use
// NewRegistry or DefaultRegistry.
type Registry struct {
	mu        sync.RWMutex
	renderers map[Kind]Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[Kind]Renderer)}
}

// DefaultRegistry returns a registry with the built-in renderer for every
// known kind.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, k := range Kinds() {
		r.renderers[k] = templateRenderer(k.String())
	}
	return r
}

// Register associates fn with kind, replacing any existing renderer.
func (r *Registry) Register(kind Kind, fn Renderer) error {
	if kind == KindUnknown {
		return fmt.Errorf("blocks: cannot register a renderer for the unknown kind")
	}
	if _, ok := kindNames[kind]; !ok {
		return fmt.Errorf("blocks: kind %d is not defined", kind)
	}
	if fn == nil {
		return fmt.Errorf("blocks: renderer for %s is nil", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[kind] = fn
	return nil
}

// Lookup returns the renderer for ref. It reports false for unknown refs and
// for known kinds without a registered renderer; both render the fallback.
func (r *Registry) Lookup(ref Ref) (Renderer, bool) {
	if !ref.Known() {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.renderers[ref.Kind]
	return fn, ok
}

// Kinds returns the kinds with a registered renderer, in declaration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Kind
	for _, k := range Kinds() {
		if _, ok := r.renderers[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Clone returns an independent copy for isolated overrides.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for k, fn := range r.renderers {
		c.renderers[k] = fn
	}
	return c
}

func templateRenderer(name string) Renderer {
	return func(buf *bytes.Buffer, props Props) error {
		return templates.ExecuteTemplate(buf, name, props)
	}
}

// ── Fallback and lifecycle states ──

// RenderFallback writes the placeholder for a block that has no renderer.
// Production writes nothing; development writes a visible diagnostic.
func RenderFallback(buf *bytes.Buffer, key string, dev bool) error {
	if !dev {
		return nil
	}
	return templates.ExecuteTemplate(buf, "unknown", struct{ Key string }{key})
}

// RenderFailed writes the placeholder for a block whose renderer failed.
func RenderFailed(buf *bytes.Buffer, key string, err error, dev bool) error {
	if !dev {
		return nil
	}
	return templates.ExecuteTemplate(buf, "failed", struct {
		Key string
		Err string
	}{key, err.Error()})
}

// RenderSkeleton writes the loading placeholder for a context.
func RenderSkeleton(buf *bytes.Buffer, ctx schema.Context) error {
	return templates.ExecuteTemplate(buf, "skeleton", string(ctx))
}

// RenderUnavailable writes the terminal error state.
func RenderUnavailable(buf *bytes.Buffer, message string) error {
	return templates.ExecuteTemplate(buf, "unavailable", message)
}
