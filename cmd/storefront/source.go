package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/internal/config"
	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/catalog/sqlstore"
	"github.com/xob0t/GoStorefront/pkg/compose"
)

// openSource returns the configured catalog backend and its closer.
func openSource(c *config.Config, log *zap.Logger) (compose.Source, func() error, error) {
	nop := func() error { return nil }
	switch c.CatalogKind() {
	case "http":
		client := &http.Client{Timeout: c.GetFetchTimeout()}
		return catalog.NewHTTPSource(c.Catalog.URL, client, log), nop, nil
	case "dir":
		return catalog.NewDirSource(c.Catalog.Dir, log), nop, nil
	default:
		store, err := sqlstore.Open(c.Catalog.DB, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open catalog: %w", err)
		}
		return store, store.Close, nil
	}
}
