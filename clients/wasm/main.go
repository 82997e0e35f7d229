//go:build js && wasm

// Storefront wasm takes over a server-rendered product page: it hydrates
// the composition engine from the embedded document, handles selection
// locally, and opens quick-add modals with their own engine.
// Compiled with: GOOS=js GOARCH=wasm go build -o storefront.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"syscall/js"

	"golang.org/x/text/language"

	"github.com/xob0t/GoStorefront/pkg/compose"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

type hydration struct {
	Slug     string          `json:"slug"`
	Context  schema.Context  `json:"context"`
	Query    string          `json:"query"`
	Document json.RawMessage `json:"document"`
}

type modal struct {
	engine  *compose.Engine
	dialog  js.Value
	detach  func()
	onClose js.Func
}

type client struct {
	paths  compose.Paths
	locale language.Tag
	page   *compose.Engine

	mu    sync.Mutex
	modal *modal
}

func main() {
	fmt.Println("storefront wasm loaded")

	root := document.Call("getElementById", "storefront")
	data := document.Call("getElementById", "storefront-data")
	if root.IsNull() || data.IsNull() {
		return
	}

	var h hydration
	if err := json.Unmarshal([]byte(data.Get("textContent").String()), &h); err != nil {
		fmt.Println("storefront: hydration data:", err)
		return
	}
	doc, _, err := schema.Decode(h.Document)
	if err != nil {
		fmt.Println("storefront: hydration document:", err)
		return
	}
	seed, _ := url.ParseQuery(h.Query)

	locale, err := language.Parse(document.Get("documentElement").Get("lang").String())
	if err != nil {
		locale = language.English
	}
	c := &client{paths: compose.DefaultPaths(), locale: locale}
	c.page = c.newEngine(h.Context)
	if err := c.page.Hydrate(h.Slug, doc, seed); err != nil {
		fmt.Println("storefront: hydrate:", err)
		return
	}
	mount(c.page, root)

	document.Call("addEventListener", "click", js.FuncOf(c.onClick))
	document.Call("addEventListener", "submit", js.FuncOf(c.onSubmit))
	js.Global().Set("goOpenQuickAdd", js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) > 0 {
			go c.openQuickAdd(args[0].String())
		}
		return nil
	}))
	js.Global().Set("goCloseQuickAdd", js.FuncOf(func(js.Value, []js.Value) any {
		c.closeQuickAdd()
		return nil
	}))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func (c *client) newEngine(ctx schema.Context) *compose.Engine {
	opts := compose.Options{
		Context:  ctx,
		Source:   fetchSource{},
		Cart:     fetchCart{path: c.paths.Cart},
		Notifier: toastNotifier{},
		Paths:    c.paths,
		Locale:   c.locale,
	}
	if ctx == schema.ContextPage {
		opts.URL = historyWriter{}
	}
	return compose.New(opts)
}

// engineFor picks the modal engine for events inside the open dialog.
func (c *client) engineFor(ev js.Value) *compose.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal != nil && !closest(ev, "#quick-add").IsNull() {
		return c.modal.engine
	}
	return c.page
}

// ── Events ──

func (c *client) onClick(_ js.Value, args []js.Value) any {
	ev := args[0]
	if el := closest(ev, "a[data-attr-key]"); !el.IsNull() {
		ev.Call("preventDefault")
		c.engineFor(ev).ToggleAttribute(el.Call("getAttribute", "data-attr-key").String(), el.Call("getAttribute", "data-attr-value").String())
		return nil
	}
	if el := closest(ev, "a[data-seller]"); !el.IsNull() {
		id, err := strconv.ParseInt(el.Call("getAttribute", "data-seller").String(), 10, 64)
		if err != nil {
			return nil
		}
		ev.Call("preventDefault")
		e := c.engineFor(ev)
		if st, ok := e.State(); ok && st.HasSeller && st.SellerID == id {
			e.ClearSeller()
		} else {
			e.SelectSeller(id)
		}
		return nil
	}
	if el := closest(ev, "a[data-quick-add]"); !el.IsNull() {
		ev.Call("preventDefault")
		go c.openQuickAdd(el.Call("getAttribute", "data-quick-add").String())
		return nil
	}
	if el := closest(ev, ".quick-add-close"); !el.IsNull() {
		ev.Call("preventDefault")
		c.closeQuickAdd()
	}
	return nil
}

func (c *client) onSubmit(_ js.Value, args []js.Value) any {
	ev := args[0]
	form := closest(ev, "form.block-add-to-cart")
	if form.IsNull() {
		return nil
	}
	ev.Call("preventDefault")
	qty := 1
	if in := form.Call("querySelector", "input[name=qty]"); !in.IsNull() {
		if n, err := strconv.Atoi(in.Get("value").String()); err == nil {
			qty = n
		}
	}
	e := c.engineFor(ev)
	go func() {
		// Gate rejections and cart failures are already shown as toasts.
		_ = e.AddToCart(context.Background(), qty)
	}()
	return nil
}

// ── Quick-add ──

func (c *client) openQuickAdd(slug string) {
	c.closeQuickAdd()

	dlg := document.Call("createElement", "dialog")
	dlg.Set("id", "quick-add")
	dlg.Set("innerHTML", `<button class="quick-add-close" aria-label="Close">&times;</button><div class="quick-add-body"></div>`)
	document.Get("body").Call("appendChild", dlg)
	dlg.Call("showModal")

	e := c.newEngine(schema.ContextModal)
	m := &modal{engine: e, dialog: dlg}
	m.onClose = js.FuncOf(func(js.Value, []js.Value) any {
		c.closeQuickAdd()
		return nil
	})
	dlg.Call("addEventListener", "close", m.onClose)

	m.detach = mount(e, dlg.Call("querySelector", ".quick-add-body"))
	c.mu.Lock()
	c.modal = m
	c.mu.Unlock()

	if err := e.Load(context.Background(), slug, nil); err != nil && !errors.Is(err, compose.ErrStale) {
		fmt.Println("storefront: quick add:", err)
	}
}

// closeQuickAdd tears the modal down; a load still in flight is discarded.
func (c *client) closeQuickAdd() {
	c.mu.Lock()
	m := c.modal
	c.modal = nil
	c.mu.Unlock()
	if m == nil {
		return
	}
	m.detach()
	m.engine.Unmount()
	m.dialog.Call("removeEventListener", "close", m.onClose)
	if m.dialog.Get("open").Truthy() {
		m.dialog.Call("close")
	}
	m.dialog.Call("remove")
	m.onClose.Release()
}
