// Package catalog provides the schema documents the storefront composes:
// an HTTP client for the catalog API, a directory of JSON files, a SQLite
// store, and the HTTP handler that serves the API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

// ErrNotFound reports an unknown product slug.
var ErrNotFound = errors.New("product not found")

// Fetcher is implemented by every document source in this package.
type Fetcher interface {
	Fetch(ctx context.Context, slug string, c schema.Context) (*schema.Document, error)
}

// ValidSlug reports whether slug is safe to use as a file name and URL
// segment.
func ValidSlug(slug string) bool {
	if slug == "" || len(slug) > 128 {
		return false
	}
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ── HTTP ──

// HTTPSource fetches documents from a catalog API.
type HTTPSource struct {
	base   string
	client *http.Client
	log    *zap.Logger
}

// NewHTTPSource returns a source for the API rooted at base. A nil client
// uses one with a 10s timeout.
func NewHTTPSource(base string, client *http.Client, log *zap.Logger) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{base: strings.TrimRight(base, "/"), client: client, log: log}
}

// Fetch issues GET {base}/api/products/{slug}/schema?context={c}.
func (s *HTTPSource) Fetch(ctx context.Context, slug string, c schema.Context) (*schema.Document, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("fetch %q: %w", slug, ErrNotFound)
	}
	u := fmt.Sprintf("%s/api/products/%s/schema?context=%s", s.base, url.PathEscape(slug), url.QueryEscape(string(c)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", slug, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", slug, resp.Status)
	}

	doc, warnings, err := schema.DecodeReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	logWarnings(s.log, slug, warnings)
	return doc.ForContext(c), nil
}

// ── Directory ──

// DirSource reads {dir}/{slug}.json.
type DirSource struct {
	dir string
	log *zap.Logger
}

// NewDirSource returns a source reading documents from dir.
func NewDirSource(dir string, log *zap.Logger) *DirSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirSource{dir: dir, log: log}
}

// Fetch reads and decodes the document for slug.
func (s *DirSource) Fetch(_ context.Context, slug string, c schema.Context) (*schema.Document, error) {
	if !ValidSlug(slug) {
		return nil, fmt.Errorf("fetch %q: %w", slug, ErrNotFound)
	}
	path := filepath.Join(s.dir, slug+".json")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("fetch %s: %w", slug, ErrNotFound)
	}
	doc, warnings, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	logWarnings(s.log, slug, warnings)
	return doc.ForContext(c), nil
}

// Slugs lists the documents in the directory.
func (s *DirSource) Slugs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		slug := strings.TrimSuffix(filepath.Base(m), ".json")
		if ValidSlug(slug) {
			slugs = append(slugs, slug)
		}
	}
	return slugs, nil
}

func logWarnings(log *zap.Logger, slug string, warnings []string) {
	for _, w := range warnings {
		log.Warn("schema warning", zap.String("slug", slug), zap.String("warning", w))
	}
}
