package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/compose"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

// hydration is embedded in the page so the client engine can take over
// without fetching the document again.
type hydration struct {
	Slug     string           `json:"slug"`
	Context  schema.Context   `json:"context"`
	Query    string           `json:"query"`
	Document *schema.Document `json:"document"`
}

type pageData struct {
	Lang      string
	Title     string
	Context   schema.Context
	Flashes   []Flash
	CartCount int
	Body      template.HTML
	Hydration *hydration
}

// engine returns a fresh engine bound to one session.
// engine builds a per-request engine on the session cart. A nil notifier
// queues notifications as flash messages.
func (s *Server) engine(c schema.Context, sid string, n compose.Notifier) *compose.Engine {
	if n == nil {
		n = flashNotifier{store: s.sessions, id: sid}
	}
	opts := compose.Options{
		Context:  c,
		Source:   s.opts.Source,
		Cart:     sessionCart{store: s.sessions, id: sid},
		Notifier: n,
		Registry: s.opts.Registry,
		Paths:    s.opts.Paths,
		Locale:   s.opts.Locale,
		Logger:   s.log,
		Dev:      s.opts.Dev,
	}
	if s.opts.Metrics != nil {
		opts.Metrics = s.opts.Metrics
	}
	return compose.New(opts)
}

func (s *Server) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.FetchTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

// handleProduct serves the product page, or the quick-add modal when modal
// is set. The request query seeds the selection.
func (s *Server) handleProduct(modal bool) http.HandlerFunc {
	c := schema.ContextPage
	if modal {
		c = schema.ContextModal
	}
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		if !catalog.ValidSlug(slug) {
			http.NotFound(w, r)
			return
		}
		sid := s.sessions.id(w, r)
		e := s.engine(c, sid, nil)
		defer e.Unmount()

		ctx, cancel := s.fetchContext(r.Context())
		defer cancel()

		status := http.StatusOK
		if err := e.Load(ctx, slug, r.URL.Query()); err != nil {
			status = http.StatusBadGateway
			if errors.Is(err, catalog.ErrNotFound) {
				status = http.StatusNotFound
			}
		}

		var body bytes.Buffer
		if err := e.Render(&body); err != nil {
			s.log.Error("render failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		data := pageData{
			Lang:      s.opts.Locale.String(),
			Title:     "Product unavailable",
			Context:   c,
			Flashes:   s.sessions.popFlashes(sid),
			CartCount: s.sessions.count(sid),
			Body:      template.HTML(body.String()),
		}
		if doc := e.Document(); doc != nil {
			data.Title = doc.Product.Title
			data.Hydration = &hydration{
				Slug:     slug,
				Context:  c,
				Query:    e.Query().Encode(),
				Document: doc,
			}
		}
		s.writePage(w, status, "page.html", data)
	}
}

func (s *Server) writePage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("page template failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
