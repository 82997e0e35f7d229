//go:build js && wasm

package main

import (
	"bytes"
	"fmt"
	"net/url"
	"syscall/js"

	"github.com/xob0t/GoStorefront/pkg/compose"
)

var document = js.Global().Get("document")

// historyWriter keeps the address bar in sync with the page selection.
type historyWriter struct{}

func (historyWriter) Replace(q url.Values) {
	loc := js.Global().Get("location")
	u := loc.Get("pathname").String()
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	u += loc.Get("hash").String()
	js.Global().Get("history").Call("replaceState", js.Null(), "", u)
}

// toastNotifier shows notifications as transient toasts.
type toastNotifier struct{}

func (toastNotifier) Notify(level compose.Level, message string) {
	el := document.Call("createElement", "div")
	el.Set("className", "toast toast-"+level.String())
	el.Set("textContent", message)
	el.Call("setAttribute", "role", "status")
	document.Get("body").Call("appendChild", el)

	var remove js.Func
	remove = js.FuncOf(func(js.Value, []js.Value) any {
		el.Call("remove")
		remove.Release()
		return nil
	})
	js.Global().Call("setTimeout", remove, 3000)
}

func updateCartCount(n int) {
	link := document.Call("querySelector", ".cart-link")
	if link.IsNull() {
		return
	}
	text := "Cart"
	if n > 0 {
		text = fmt.Sprintf("Cart (%d)", n)
	}
	link.Set("textContent", text)
}

// mount renders e into el now and after every committed change. The
// returned func detaches it.
func mount(e *compose.Engine, el js.Value) func() {
	paint := func() {
		var buf bytes.Buffer
		if err := e.Render(&buf); err != nil {
			fmt.Println("storefront: render:", err)
			return
		}
		el.Set("innerHTML", buf.String())
	}
	paint()
	return e.Subscribe(func(compose.Event) { paint() })
}

// closest walks up from the event target to the nearest match of selector.
func closest(ev js.Value, selector string) js.Value {
	t := ev.Get("target")
	if t.IsNull() || t.IsUndefined() || t.Get("closest").IsUndefined() {
		return js.Null()
	}
	return t.Call("closest", selector)
}
