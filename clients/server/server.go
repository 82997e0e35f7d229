// Package server hosts the storefront over HTTP: server-rendered product
// pages and quick-add modals, the no-script cart flow, generated media and
// the schema API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/xob0t/GoStorefront/internal/metrics"
	"github.com/xob0t/GoStorefront/pkg/blocks"
	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/compose"
)

//go:embed web/*.html web/static/*
var webContent embed.FS

var pages = template.Must(template.ParseFS(webContent, "web/*.html"))

// Options configures a Server. Source is required.
type Options struct {
	Addr            string
	Source          compose.Source
	Registry        *blocks.Registry
	Paths           compose.Paths
	Locale          language.Tag
	FontPath        string // TrueType font for placeholders; empty uses Go Regular
	AssetsDir       string // optional directory served under /static/ after the embedded files
	Logger          *zap.Logger
	Metrics         *metrics.Recorder
	Dev             bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FetchTimeout    time.Duration
}

// Server is the storefront HTTP host.
type Server struct {
	opts     Options
	log      *zap.Logger
	sessions *sessionStore
	handler  http.Handler
}

// New builds the route table.
func New(opts Options) (*Server, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("server: no catalog source configured")
	}
	if opts.Registry == nil {
		opts.Registry = blocks.DefaultRegistry()
	}
	if opts.Paths == (compose.Paths{}) {
		opts.Paths = compose.DefaultPaths()
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		opts:     opts,
		log:      log,
		sessions: newSessionStore(),
	}
	h, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.handler = h
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ── Routes ──

func (s *Server) routes() (http.Handler, error) {
	static, err := fs.Sub(webContent, "web/static")
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}
	var staticFS fs.FS = static
	if s.opts.AssetsDir != "" {
		staticFS = overlayFS{static, os.DirFS(s.opts.AssetsDir)}
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /products/{slug}", "product", s.handleProduct(false))
	s.handle(mux, "GET /products/{slug}/quick-add", "quick_add", s.handleProduct(true))
	s.handle(mux, "POST /cart/items", "cart_add", http.HandlerFunc(s.handleCartAdd))
	s.handle(mux, "GET /cart/items", "cart_lines", http.HandlerFunc(s.handleCartLines))
	s.handle(mux, "GET /cart", "cart_page", http.HandlerFunc(s.handleCartPage))
	s.handle(mux, "GET /media/placeholder/{file}", "placeholder", http.HandlerFunc(s.handlePlaceholder))
	s.handle(mux, "GET /media/swatch/{file}", "swatch", http.HandlerFunc(s.handleSwatch))
	s.handle(mux, "GET /healthz", "healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	s.handle(mux, "/api/products/", "schema_api", catalog.NewHandler(readOnly{s.opts.Source}, s.log))
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	return mux, nil
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.Handler) {
	if s.opts.Metrics != nil {
		h = s.opts.Metrics.Middleware(route, h)
	}
	mux.Handle(pattern, h)
}

// ── Lifecycle ──

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("storefront listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.log.Info("storefront shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// ── Static overlay ──

// overlayFS serves from the first filesystem that has the file.
type overlayFS []fs.FS

func (o overlayFS) Open(name string) (fs.File, error) {
	var firstErr error
	for _, fsys := range o {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// readOnly hides any upload method of the source; the storefront only
// serves documents.
type readOnly struct{ compose.Source }
