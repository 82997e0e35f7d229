package compose

import (
	"maps"
	"net/url"

	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/selection"
)

// Query parameters of the add-to-cart action.
const (
	SlugParam   = "slug"
	ReturnParam = "return"
)

// Paths are the URL prefixes fragments link to.
type Paths struct {
	Product     string // product page prefix; the slug is appended
	QuickAdd    string // suffix appended to the product path in modal context
	Cart        string
	Vendor      string
	Placeholder string
}

// DefaultPaths matches the routes of the storefront server.
func DefaultPaths() Paths {
	return Paths{
		Product:     "/products/",
		QuickAdd:    "/quick-add",
		Cart:        "/cart/items",
		Vendor:      "/vendors/",
		Placeholder: "/media/placeholder/",
	}
}

// links builds the hrefs of one render. Every control links to the URL of
// the state it would produce, so navigation without scripting reaches the
// same state a local toggle does.
type links struct {
	paths Paths
	ctx   schema.Context
	slug  string
	doc   *schema.Document
	state selection.State
	query url.Values
}

func (l links) self(st selection.State) string {
	path := l.paths.Product + url.PathEscape(l.slug)
	if l.ctx == schema.ContextModal {
		path += l.paths.QuickAdd
	}
	q := MergeQuery(l.query, l.doc, st)
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (l links) Attribute(key, value string) string {
	next := l.state
	next.Selected = maps.Clone(l.state.Selected)
	if next.Selected == nil {
		next.Selected = map[string]string{}
	}
	if next.Selected[key] == value {
		delete(next.Selected, key)
	} else {
		next.Selected[key] = value
	}
	return l.self(next)
}

func (l links) Seller(id int64) string {
	next := l.state
	next.SellerID = id
	next.HasSeller = true
	return l.self(next)
}

// AddToCart posts to the cart with the product and the page to return to;
// the server replays the selection from the return URL before adding.
func (l links) AddToCart() string {
	q := url.Values{}
	q.Set(SlugParam, l.slug)
	q.Set(ReturnParam, l.self(l.state))
	return l.paths.Cart + "?" + q.Encode()
}

func (l links) Product(slug string) string {
	return l.paths.Product + url.PathEscape(slug)
}

func (l links) QuickAdd(slug string) string {
	return l.paths.Product + url.PathEscape(slug) + l.paths.QuickAdd
}

func (l links) Vendor(slug string) string {
	return l.paths.Vendor + url.PathEscape(slug)
}

func (l links) Placeholder(slug string) string {
	return l.paths.Placeholder + url.PathEscape(slug) + ".png"
}
