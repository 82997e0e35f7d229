//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"syscall/js"

	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/compose"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

// await blocks until p settles. Cancelling ctx aborts the request through
// abort; the promise still settles, so callbacks are released only after.
func await(ctx context.Context, p js.Value, abort js.Value) (js.Value, error) {
	type result struct {
		v   js.Value
		err error
	}
	ch := make(chan result, 1)
	then := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- result{v: args[0]}
		return nil
	})
	catch := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ch <- result{err: fmt.Errorf("%s", args[0].Call("toString").String())}
		return nil
	})
	defer then.Release()
	defer catch.Release()

	p.Call("then", then, catch)
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		if abort.Truthy() {
			abort.Call("abort")
		}
		<-ch
		return js.Undefined(), ctx.Err()
	}
}

func fetch(ctx context.Context, method, u string, body []byte) (status int, text string, err error) {
	controller := js.Global().Get("AbortController").New()
	init := map[string]any{
		"method":      method,
		"credentials": "same-origin",
		"signal":      controller.Get("signal"),
		"headers":     map[string]any{"Accept": "application/json"},
	}
	if body != nil {
		init["body"] = string(body)
		init["headers"] = map[string]any{"Accept": "application/json", "Content-Type": "application/json"}
	}

	resp, err := await(ctx, js.Global().Call("fetch", u, init), controller)
	if err != nil {
		return 0, "", fmt.Errorf("%s %s: %w", method, u, err)
	}
	t, err := await(ctx, resp.Call("text"), controller)
	if err != nil {
		return 0, "", fmt.Errorf("read %s: %w", u, err)
	}
	return resp.Get("status").Int(), t.String(), nil
}

// ── Collaborators ──

// fetchSource loads documents from the same-origin schema API.
type fetchSource struct{}

func (fetchSource) Fetch(ctx context.Context, slug string, c schema.Context) (*schema.Document, error) {
	u := "/api/products/" + url.PathEscape(slug) + "/schema?context=" + url.QueryEscape(string(c))
	status, text, err := fetch(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", slug, catalog.ErrNotFound)
	case status < 200 || status > 299:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", slug, status)
	}
	doc, _, err := schema.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", slug, err)
	}
	return doc.ForContext(c), nil
}

// fetchCart posts cart lines as JSON.
type fetchCart struct {
	path string
}

func (c fetchCart) AddToCart(ctx context.Context, line compose.CartLine) error {
	body, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encode cart line: %w", err)
	}
	status, text, err := fetch(ctx, http.MethodPost, c.path, body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("cart: status %d: %s", status, text)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		updateCartCount(resp.Count)
	}
	return nil
}
