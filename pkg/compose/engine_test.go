package compose

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xob0t/GoStorefront/pkg/blocks"
	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/rules"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

// ── Fakes ──

type fakeSource struct {
	mu    sync.Mutex
	docs  map[string]*schema.Document
	gates map[string]chan struct{}
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, slug string, c schema.Context) (*schema.Document, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[slug]
	doc, ok := f.docs[slug]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return doc.ForContext(c), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCart struct {
	lines []CartLine
	err   error
}

func (c *fakeCart) AddToCart(_ context.Context, line CartLine) error {
	if c.err != nil {
		return c.err
	}
	c.lines = append(c.lines, line)
	return nil
}

type note struct {
	level Level
	msg   string
}

type fakeNotifier struct{ notes []note }

func (n *fakeNotifier) Notify(level Level, msg string) {
	n.notes = append(n.notes, note{level, msg})
}

type fakeURL struct{ history []url.Values }

func (u *fakeURL) Replace(q url.Values) { u.history = append(u.history, q) }

func (u *fakeURL) last() url.Values {
	if len(u.history) == 0 {
		return nil
	}
	return u.history[len(u.history)-1]
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	unknown  []string
}

func (m *fakeMetrics) Observe(_ context.Context, op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[op+":"+outcome]++
}

func (m *fakeMetrics) UnknownBlock(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unknown = append(m.unknown, key)
}

func exampleDoc(t *testing.T) *schema.Document {
	t.Helper()
	doc, _, err := schema.Decode([]byte(schema.ExampleJSON()))
	require.NoError(t, err)
	return doc
}

func newSource(t *testing.T) *fakeSource {
	doc := exampleDoc(t)
	hoodie := *doc
	hoodie.Product.Slug = "classic-hoodie"
	hoodie.Product.Title = "Classic Hoodie"
	return &fakeSource{
		docs:  map[string]*schema.Document{"classic-tee": doc, "classic-hoodie": &hoodie},
		gates: map[string]chan struct{}{},
	}
}

func render(t *testing.T, e *Engine) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf))
	return buf.String()
}

// ── Lifecycle ──

func TestLoadLifecycle(t *testing.T) {
	src := newSource(t)
	e := New(Options{Context: schema.ContextPage, Source: src})
	assert.Equal(t, StatusIdle, e.Status())
	assert.Contains(t, render(t, e), "skeleton-page")

	var statuses []Status
	unsub := e.Subscribe(func(ev Event) { statuses = append(statuses, ev.Status) })
	defer unsub()

	require.NoError(t, e.Load(context.Background(), "classic-tee", nil))
	assert.Equal(t, []Status{StatusLoading, StatusReady}, statuses)
	assert.Equal(t, StatusReady, e.Status())

	out := render(t, e)
	assert.Contains(t, out, `data-slug="classic-tee"`)
	assert.Less(t, strings.Index(out, "region-main"), strings.Index(out, "region-sidebar"))
	assert.Less(t, strings.Index(out, "region-sidebar"), strings.Index(out, "region-bottom"))
	assert.Contains(t, out, "<h1>Classic Tee</h1>")

	assert.True(t, e.ToggleAttribute("size", "S"))
	assert.True(t, e.ToggleAttribute("color", "blue"))
	assert.True(t, e.SelectSeller(9))
	assert.Equal(t, 1, src.Calls(), "interaction after ready never fetches")

	st, ok := e.State()
	require.True(t, ok)
	assert.Equal(t, int64(3), st.Variant.ID)
}

func TestLoadNotFound(t *testing.T) {
	m := &fakeMetrics{}
	e := New(Options{Context: schema.ContextModal, Source: newSource(t), Metrics: m})

	err := e.Load(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, StatusError, e.Status())
	assert.ErrorIs(t, e.Err(), catalog.ErrNotFound)
	assert.Contains(t, render(t, e), "could not be found")
	assert.Equal(t, 1, m.outcomes["fetch:not_found"])

	assert.False(t, e.ToggleAttribute("size", "S"))
	assert.ErrorIs(t, e.AddToCart(context.Background(), 1), ErrNotReady)
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string, schema.Context) (*schema.Document, error) {
	return nil, errors.New("connection reset")
}

func TestLoadFailure(t *testing.T) {
	e := New(Options{Source: failingSource{}})
	require.Error(t, e.Load(context.Background(), "classic-tee", nil))
	assert.Contains(t, render(t, e), "failed to load")
}

func TestStaleModalResponseDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := newSource(t)
	gate := make(chan struct{})
	src.gates["classic-tee"] = gate
	m := &fakeMetrics{}
	e := New(Options{Context: schema.ContextModal, Source: src, Metrics: m})

	events := make(chan Event, 16)
	unsub := e.Subscribe(func(ev Event) { events <- ev })
	defer unsub()

	first := make(chan error, 1)
	go func() { first <- e.Load(context.Background(), "classic-tee", nil) }()
	require.Equal(t, StatusLoading, (<-events).Status)
	assert.Contains(t, render(t, e), "skeleton-modal")

	// Closed, then reopened for another product before the first answer.
	e.Unmount()
	require.NoError(t, e.Load(context.Background(), "classic-hoodie", nil))
	require.Equal(t, StatusReady, e.Status())

	close(gate)
	assert.ErrorIs(t, <-first, ErrStale)

	assert.Equal(t, "Classic Hoodie", e.Document().Product.Title)
	assert.Contains(t, render(t, e), "Classic Hoodie")
	assert.Equal(t, 1, m.outcomes["fetch:stale"])
}

func TestUnmountDiscardsEverything(t *testing.T) {
	e := New(Options{Source: newSource(t)})
	require.NoError(t, e.Load(context.Background(), "classic-tee", nil))
	e.ToggleAttribute("size", "S")

	e.Unmount()
	assert.Equal(t, StatusIdle, e.Status())
	assert.Nil(t, e.Document())
	_, ok := e.State()
	assert.False(t, ok)
	assert.Empty(t, e.Query())
}

func TestHydrate(t *testing.T) {
	src := newSource(t)
	u := &fakeURL{}
	e := New(Options{Source: src, URL: u})

	seed := url.Values{"size": {"S"}, "seller": {"9"}}
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), seed))
	assert.Zero(t, src.Calls())
	assert.Equal(t, StatusReady, e.Status())

	st, _ := e.State()
	require.NotNil(t, st.Seller)
	assert.Equal(t, int64(9), st.Seller.ID)
	assert.Equal(t, "9", u.last().Get("seller"))

	assert.Error(t, e.Hydrate("classic-tee", nil, nil))
}

// ── Rendering ──

func unknownBlockDoc(t *testing.T) *schema.Document {
	doc := exampleDoc(t).ForContext(schema.ContextModal)
	doc.Layout = []schema.LayoutBlock{
		{Block: "title", Order: 1},
		{Block: "hero_banner", Order: 2},
		{Block: "price", Order: 3},
	}
	return doc
}

func TestUnknownBlockKeepsSiblings(t *testing.T) {
	for _, dev := range []bool{false, true} {
		m := &fakeMetrics{}
		e := New(Options{Context: schema.ContextModal, Metrics: m, Dev: dev})
		require.NoError(t, e.Hydrate("classic-tee", unknownBlockDoc(t), nil))

		out := render(t, e)
		assert.Contains(t, out, "<h1>Classic Tee</h1>")
		assert.Contains(t, out, "block-price")
		assert.Less(t, strings.Index(out, "block-title"), strings.Index(out, "block-price"))
		assert.Equal(t, dev, strings.Contains(out, `Unknown block "hero_banner"`))
		assert.Equal(t, []string{"hero_banner"}, m.unknown)
	}
}

func TestFailingRendererIsContained(t *testing.T) {
	reg := blocks.DefaultRegistry().Clone()
	require.NoError(t, reg.Register(blocks.KindTitle, func(*bytes.Buffer, blocks.Props) error {
		panic("title exploded")
	}))
	require.NoError(t, reg.Register(blocks.KindBadges, func(buf *bytes.Buffer, _ blocks.Props) error {
		buf.WriteString("half-written")
		return errors.New("badges failed")
	}))

	e := New(Options{Registry: reg, Dev: true})
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), nil))

	out := render(t, e)
	assert.Contains(t, out, "block-price")
	assert.Contains(t, out, "title exploded")
	assert.NotContains(t, out, "half-written")
}

func TestFallbackErrorsAreLogged(t *testing.T) {
	oldFallback, oldFailed := renderFallback, renderFailed
	defer func() { renderFallback, renderFailed = oldFallback, oldFailed }()
	renderFallback = func(*bytes.Buffer, string, bool) error { return errors.New("fallback broken") }
	renderFailed = func(*bytes.Buffer, string, error, bool) error { return errors.New("failure broken") }

	reg := blocks.DefaultRegistry().Clone()
	require.NoError(t, reg.Register(blocks.KindPrice, func(*bytes.Buffer, blocks.Props) error {
		return errors.New("price failed")
	}))
	core, logs := observer.New(zap.DebugLevel)
	e := New(Options{Context: schema.ContextModal, Registry: reg, Logger: zap.New(core)})
	require.NoError(t, e.Hydrate("classic-tee", unknownBlockDoc(t), nil))

	out := render(t, e)
	assert.Contains(t, out, "<h1>Classic Tee</h1>")
	assert.Equal(t, 1, logs.FilterMessage("fallback render failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("failure render failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("unknown block").Len())
}

func TestHiddenBlocks(t *testing.T) {
	doc := exampleDoc(t)
	doc.Rules.AllowMultiSeller = false
	doc.Rules.ShowWarrantyInfo = false

	e := New(Options{})
	require.NoError(t, e.Hydrate("classic-tee", doc, nil))
	out := render(t, e)
	assert.NotContains(t, out, "block-seller-selector")
	assert.NotContains(t, out, "block-warranty-info")
	assert.Contains(t, out, "block-add-to-cart")
}

// ── URL sync ──

func TestURLSeedScenario(t *testing.T) {
	u := &fakeURL{}
	e := New(Options{Context: schema.ContextPage, Source: newSource(t), URL: u})

	seed, err := url.ParseQuery("size=M&color=red&utm=x&fit=slim&size=L")
	require.NoError(t, err)
	require.NoError(t, e.Load(context.Background(), "classic-tee", seed))

	st, _ := e.State()
	require.NotNil(t, st.Variant)
	assert.Equal(t, int64(2), st.Variant.ID)
	assert.False(t, st.Gates.CanAddToCart)
	assert.Contains(t, st.Gates.Reasons, rules.ReasonOutOfStock)

	q := u.last()
	assert.Equal(t, "M", q.Get("size"))
	assert.Equal(t, []string{"M"}, q["size"], "one parameter per attribute")
	assert.Equal(t, "x", q.Get("utm"))
	assert.Equal(t, "slim", q.Get("fit"), "unrelated parameters are preserved")

	require.True(t, e.ToggleAttribute("color", "red"))
	q = u.last()
	assert.Empty(t, q.Get("color"))
	assert.Equal(t, "x", q.Get("utm"))
	assert.Len(t, u.history, 2)

	assert.False(t, e.ToggleAttribute("color", "green"))
	assert.Len(t, u.history, 2, "no-op toggles do not touch the URL")
}

func TestModalNeverWritesURL(t *testing.T) {
	u := &fakeURL{}
	e := New(Options{Context: schema.ContextModal, Source: newSource(t), URL: u})
	require.NoError(t, e.Load(context.Background(), "classic-tee", nil))
	e.ToggleAttribute("size", "S")
	assert.Empty(t, u.history)
	assert.Equal(t, "S", e.Query().Get("size"))
}

func TestRenderedLinks(t *testing.T) {
	e := New(Options{Context: schema.ContextModal})
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), url.Values{"utm": {"x"}}))
	out := render(t, e)
	assert.Contains(t, out, `href="/products/classic-tee/quick-add?size=S&amp;utm=x"`)
}

func TestPageLinks(t *testing.T) {
	e := New(Options{Context: schema.ContextPage})
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), url.Values{"size": {"S"}}))
	st, ok := e.State()
	require.True(t, ok)

	l := links{paths: DefaultPaths(), ctx: schema.ContextPage, slug: "classic-tee", doc: e.Document(), state: st, query: e.Query()}

	action, err := url.Parse(l.AddToCart())
	require.NoError(t, err)
	assert.Equal(t, "/cart/items", action.Path)
	assert.Equal(t, "classic-tee", action.Query().Get(SlugParam))
	assert.Equal(t, "/products/classic-tee?size=S", action.Query().Get(ReturnParam))

	assert.Equal(t, "/products/classic-tee?color=blue&size=S", l.Attribute("color", "blue"))
	assert.Equal(t, "/products/classic-tee", l.Attribute("size", "S"), "re-selecting a value clears it")
	assert.Equal(t, "/products/classic-hoodie/quick-add", l.QuickAdd("classic-hoodie"))
	assert.Equal(t, "/vendors/north-co", l.Vendor("north-co"))
	assert.Equal(t, "/media/placeholder/classic-tee.png", l.Placeholder("classic-tee"))
}

// ── Add to cart ──

func TestAddToCartGates(t *testing.T) {
	cart := &fakeCart{}
	n := &fakeNotifier{}
	e := New(Options{Cart: cart, Notifier: n})
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), nil))

	err := e.AddToCart(context.Background(), 1)
	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, []string{rules.ReasonSelectVariant}, gerr.Reasons)
	assert.Empty(t, cart.lines, "blocked requests never reach the cart")
	require.Len(t, n.notes, 1)
	assert.Equal(t, note{LevelWarning, "Select a variant"}, n.notes[0])

	e.ToggleAttribute("size", "S")
	e.ToggleAttribute("color", "blue")
	require.NoError(t, e.AddToCart(context.Background(), 2))
	require.Len(t, cart.lines, 1)
	assert.Equal(t, CartLine{
		Slug:      "classic-tee",
		ProductID: 1001,
		VariantID: 3,
		SKU:       "TEE-S-BLUE",
		Quantity:  2,
		UnitPrice: 26,
		Currency:  "USD",
	}, cart.lines[0])
	assert.Equal(t, LevelInfo, n.notes[len(n.notes)-1].level)

	cart.err = errors.New("cart down")
	err = e.AddToCart(context.Background(), 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlocked)
	assert.Equal(t, LevelError, n.notes[len(n.notes)-1].level)
}

func TestAddToCartOutOfStock(t *testing.T) {
	cart := &fakeCart{}
	e := New(Options{Cart: cart})
	require.NoError(t, e.Hydrate("classic-tee", exampleDoc(t), url.Values{"size": {"M"}, "color": {"red"}}))

	err := e.AddToCart(context.Background(), 1)
	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Out of stock", gerr.Message())
	assert.Empty(t, cart.lines)
}

func TestGateErrorMessage(t *testing.T) {
	assert.Equal(t, "Cannot add to cart", (&GateError{}).Message())
	assert.Equal(t, "Out of stock", (&GateError{Reasons: []string{rules.ReasonOutOfStock}}).Message())
	assert.Equal(t, "Select a variant, out of stock",
		(&GateError{Reasons: []string{rules.ReasonSelectVariant, "", rules.ReasonOutOfStock}}).Message())

	err := error(&GateError{Reasons: []string{rules.ReasonOutOfStock}})
	assert.ErrorIs(t, err, ErrBlocked)
	assert.EqualError(t, err, "compose: action blocked: out of stock")
}
