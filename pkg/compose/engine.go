// Package compose orchestrates one product composition: it loads the layout
// document, owns the selection, and renders the layout through the block
// registry. The same engine serves the full product page and the quick-add
// modal.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xob0t/GoStorefront/pkg/blocks"
	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/rules"
	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/selection"
)

// ── Collaborators ──

// Source fetches the layout document of a product for one context.
type Source interface {
	Fetch(ctx context.Context, slug string, c schema.Context) (*schema.Document, error)
}

// CartLine is what the cart collaborator receives.
type CartLine struct {
	Slug      string  `json:"slug"`
	ProductID int64   `json:"productId"`
	VariantID int64   `json:"variantId,omitempty"`
	SellerID  int64   `json:"sellerId,omitempty"`
	SKU       string  `json:"sku,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Currency  string  `json:"currency"`
}

// Cart accepts add-to-cart requests that passed every gate.
type Cart interface {
	AddToCart(ctx context.Context, line CartLine) error
}

// Level is the severity of a user-facing notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a message to the shopper.
type Notifier interface {
	Notify(level Level, message string)
}

// URLWriter replaces the current URL's query without navigation.
type URLWriter interface {
	Replace(q url.Values)
}

// MetricsRecorder receives engine outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation, outcome string, d time.Duration)
	UnknownBlock(key string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}

type nopMetrics struct{}

func (nopMetrics) Observe(context.Context, string, string, time.Duration) {}
func (nopMetrics) UnknownBlock(string)                                    {}

// ── Status ──

// Status is the lifecycle state of an engine.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Event is published to subscribers after every committed change.
type Event struct {
	Status Status
	Slug   string
	State  selection.State
	Query  url.Values
	Err    error
}

// ── Engine ──

// Options configures an Engine. Source is required for Load; the other
// collaborators default to no-ops.
type Options struct {
	Context   schema.Context
	Source    Source
	Cart      Cart
	Notifier  Notifier
	URL       URLWriter // page context only
	Registry  *blocks.Registry
	Evaluator *rules.Evaluator
	Paths     Paths
	Locale    language.Tag
	Logger    *zap.Logger
	Metrics   MetricsRecorder
	Dev       bool
}

// Engine is safe for concurrent use. Loads block on the source; every other
// operation is synchronous and local.
type Engine struct {
	opts Options
	log  *zap.Logger

	mu       sync.Mutex
	instance uuid.UUID // changes on every mount; uuid.Nil while unmounted
	cancel   context.CancelFunc
	status   Status
	slug     string
	query    url.Values
	doc      *schema.Document
	sel      *selection.Manager
	format   *blocks.Formatter
	err      error

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New returns an idle engine.
func New(opts Options) *Engine {
	if !opts.Context.Valid() {
		opts.Context = schema.ContextPage
	}
	if opts.Registry == nil {
		opts.Registry = blocks.DefaultRegistry()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = rules.NewDefaultEvaluator()
	}
	if opts.Paths == (Paths{}) {
		opts.Paths = DefaultPaths()
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		opts: opts,
		log:  log.With(zap.String("context", string(opts.Context))),
		subs: make(map[int]func(Event)),
	}
}

// Context returns the layout context the engine renders.
func (e *Engine) Context() schema.Context {
	return e.opts.Context
}

// Load mounts the engine for slug and fetches its document. seed carries the
// query of the request URL; declared attributes in it become the initial
// selection and every other parameter is preserved for URL sync.
//
// A load superseded by Unmount or another mount before its response arrives
// returns ErrStale and leaves the engine untouched.
func (e *Engine) Load(ctx context.Context, slug string, seed url.Values) error {
	if e.opts.Source == nil {
		return fmt.Errorf("load %s: no source configured", slug)
	}

	e.mu.Lock()
	instance := e.remountLocked(slug, seed)
	fetchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.status = StatusLoading
	ev := e.eventLocked()
	e.mu.Unlock()
	e.publish(ev)

	start := time.Now()
	doc, err := e.opts.Source.Fetch(fetchCtx, slug, e.opts.Context)
	cancel()

	e.mu.Lock()
	if e.instance != instance {
		e.mu.Unlock()
		e.opts.Metrics.Observe(ctx, "fetch", "stale", time.Since(start))
		e.log.Debug("discarding stale schema response", zap.String("slug", slug))
		return ErrStale
	}
	e.cancel = nil

	if err == nil && doc == nil {
		err = fmt.Errorf("%w: empty document", schema.ErrMalformed)
	}
	if err != nil {
		e.status = StatusError
		e.err = err
		ev := e.eventLocked()
		e.mu.Unlock()

		outcome := "failed"
		if errors.Is(err, catalog.ErrNotFound) {
			outcome = "not_found"
		}
		e.opts.Metrics.Observe(ctx, "fetch", outcome, time.Since(start))
		e.log.Warn("schema load failed", zap.String("slug", slug), zap.Error(err))
		e.publish(ev)
		return fmt.Errorf("load %s: %w", slug, err)
	}

	ev = e.commitLocked(doc)
	blockCount := len(e.doc.Layout)
	e.mu.Unlock()

	e.opts.Metrics.Observe(ctx, "fetch", "ok", time.Since(start))
	e.log.Debug("schema loaded", zap.String("slug", slug), zap.Int("blocks", blockCount))
	e.afterCommit(ev)
	return nil
}

// Hydrate mounts the engine with a document the host already has, such as
// the one embedded in a server-rendered page. No fetch is issued.
func (e *Engine) Hydrate(slug string, doc *schema.Document, seed url.Values) error {
	if doc == nil {
		return fmt.Errorf("hydrate %s: %w: empty document", slug, schema.ErrMalformed)
	}
	e.mu.Lock()
	e.remountLocked(slug, seed)
	ev := e.commitLocked(doc)
	e.mu.Unlock()

	e.afterCommit(ev)
	return nil
}

// Unmount discards the document and selection. An in-flight load is
// cancelled and its response, should it still arrive, is discarded.
func (e *Engine) Unmount() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.instance = uuid.Nil
	e.status = StatusIdle
	e.slug = ""
	e.query = nil
	e.doc = nil
	e.sel = nil
	e.err = nil
	ev := e.eventLocked()
	e.mu.Unlock()
	e.publish(ev)
}

// remountLocked resets the engine for a new instance and returns its token.
func (e *Engine) remountLocked(slug string, seed url.Values) uuid.UUID {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.instance = uuid.New()
	e.slug = slug
	e.query = maps.Clone(seed)
	e.doc = nil
	e.sel = nil
	e.err = nil
	return e.instance
}

// commitLocked installs doc and the seeded selection and marks the engine
// ready.
func (e *Engine) commitLocked(doc *schema.Document) Event {
	if doc.Layouts != nil || doc.Context != e.opts.Context {
		doc = doc.ForContext(e.opts.Context)
	}
	e.doc = doc
	e.sel = selection.NewWithEvaluator(doc, DecodeSelection(doc, e.query), e.opts.Evaluator)
	if id, ok := DecodeSeller(doc, e.query); ok {
		e.sel.SelectSeller(id)
	}
	e.format = blocks.NewFormatter(e.opts.Locale, doc.Product.Currency)
	e.status = StatusReady
	e.err = nil
	e.query = MergeQuery(e.query, doc, e.sel.State())
	return e.eventLocked()
}

func (e *Engine) eventLocked() Event {
	ev := Event{Status: e.status, Slug: e.slug, Query: maps.Clone(e.query), Err: e.err}
	if e.sel != nil {
		ev.State = e.sel.State()
	}
	return ev
}

// afterCommit syncs the URL and notifies subscribers, outside the lock.
func (e *Engine) afterCommit(ev Event) {
	if e.opts.Context == schema.ContextPage && e.opts.URL != nil && ev.Status == StatusReady {
		e.opts.URL.Replace(ev.Query)
	}
	e.publish(ev)
}

// ── Interaction ──

// ToggleAttribute toggles key=value in the selection. It reports whether the
// selection changed; undeclared keys and values, and calls before the
// engine is ready, change nothing.
func (e *Engine) ToggleAttribute(key, value string) bool {
	return e.mutate(func(m *selection.Manager) bool {
		return m.ToggleAttribute(key, value)
	})
}

// SelectSeller selects a seller offer by id.
func (e *Engine) SelectSeller(id int64) bool {
	return e.mutate(func(m *selection.Manager) bool {
		return m.SelectSeller(id)
	})
}

// ClearSeller removes the seller layer from pricing.
func (e *Engine) ClearSeller() bool {
	return e.mutate(func(m *selection.Manager) bool {
		return m.ClearSeller()
	})
}

func (e *Engine) mutate(fn func(*selection.Manager) bool) bool {
	e.mu.Lock()
	if e.status != StatusReady || !fn(e.sel) {
		e.mu.Unlock()
		return false
	}
	e.query = MergeQuery(e.query, e.doc, e.sel.State())
	ev := e.eventLocked()
	e.mu.Unlock()

	e.afterCommit(ev)
	return true
}

// AddToCart submits the current selection to the cart when every gate
// allows it. A blocked attempt returns a *GateError, notifies the shopper and
// never reaches the cart.
func (e *Engine) AddToCart(ctx context.Context, qty int) error {
	e.mu.Lock()
	if e.status != StatusReady {
		e.mu.Unlock()
		return ErrNotReady
	}
	doc, st, slug := e.doc, e.sel.State(), e.slug
	e.mu.Unlock()

	start := time.Now()
	if !st.Gates.CanAddToCart {
		gerr := &GateError{Reasons: st.Gates.Reasons}
		e.opts.Notifier.Notify(LevelWarning, gerr.Message())
		e.opts.Metrics.Observe(ctx, "add_to_cart", "blocked", time.Since(start))
		e.log.Info("add to cart blocked", zap.Int64("product", doc.Product.ID), zap.Strings("reasons", st.Gates.Reasons))
		return gerr
	}
	if e.opts.Cart == nil {
		return fmt.Errorf("add to cart: no cart configured")
	}

	line := CartLine{
		Slug:      slug,
		ProductID: doc.Product.ID,
		Quantity:  max(qty, 1),
		UnitPrice: st.Pricing.EffectivePrice,
		Currency:  doc.Product.Currency,
	}
	if st.Variant != nil {
		line.VariantID = st.Variant.ID
		line.SKU = st.Variant.SKU
	}
	if st.Seller != nil {
		line.SellerID = st.Seller.ID
	}

	if err := e.opts.Cart.AddToCart(ctx, line); err != nil {
		e.opts.Notifier.Notify(LevelError, "Could not add to cart. Please try again.")
		e.opts.Metrics.Observe(ctx, "add_to_cart", "failed", time.Since(start))
		e.log.Warn("add to cart failed", zap.Int64("product", line.ProductID), zap.Error(err))
		return fmt.Errorf("add to cart: %w", err)
	}
	e.opts.Notifier.Notify(LevelInfo, "Added to cart")
	e.opts.Metrics.Observe(ctx, "add_to_cart", "ok", time.Since(start))
	return nil
}

// ── Reading ──

// Status returns the lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the load error of an engine in StatusError.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// State returns the committed selection snapshot. ok is false until ready.
func (e *Engine) State() (st selection.State, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sel == nil {
		return selection.State{}, false
	}
	return e.sel.State(), true
}

// Document returns the loaded document, or nil.
func (e *Engine) Document() *schema.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc
}

// Query returns the URL query reflecting the current selection.
func (e *Engine) Query() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.query)
}

// Subscribe registers fn for events published after each committed change.
// The returned function removes the subscription.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ── Rendering ──

// Render writes the composition for the current status: a skeleton while
// loading, the unavailable state on error, and the grouped layout once ready.
func (e *Engine) Render(w io.Writer) error {
	e.mu.Lock()
	status, slug, doc, loadErr, format := e.status, e.slug, e.doc, e.err, e.format
	var st selection.State
	if e.sel != nil {
		st = e.sel.State()
	}
	query := maps.Clone(e.query)
	e.mu.Unlock()

	var buf bytes.Buffer
	var err error
	switch status {
	case StatusReady:
		start := time.Now()
		l := links{paths: e.opts.Paths, ctx: e.opts.Context, slug: slug, doc: doc, state: st, query: query}
		err = e.renderLayout(&buf, slug, blocks.Context{Doc: doc, State: st, Links: l, Format: format, Dev: e.opts.Dev})
		e.opts.Metrics.Observe(context.Background(), "render", string(e.opts.Context), time.Since(start))
	case StatusError:
		err = blocks.RenderUnavailable(&buf, UnavailableMessage(loadErr))
	default:
		err = blocks.RenderSkeleton(&buf, e.opts.Context)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", slug, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// UnavailableMessage is the text of the terminal error state.
func UnavailableMessage(err error) string {
	if errors.Is(err, catalog.ErrNotFound) {
		return "This product could not be found."
	}
	return "This product failed to load. Please try again later."
}

func (e *Engine) renderLayout(buf *bytes.Buffer, slug string, c blocks.Context) error {
	fmt.Fprintf(buf, `<div class="composition composition-%s" data-slug="%s">`,
		e.opts.Context, template.HTMLEscapeString(slug))
	for _, region := range Group(c.Doc.Layout) {
		fmt.Fprintf(buf, `<div class="region region-%s">`, region.Position)
		for _, b := range region.Blocks {
			c.Block = b
			e.renderBlock(buf, b, c)
		}
		buf.WriteString(`</div>`)
	}
	buf.WriteString(`</div>`)
	return nil
}

// renderBlock renders one fragment into its own buffer and appends it. A
// fragment that has no renderer, fails or panics is replaced by the fallback;
// its siblings are unaffected.
func (e *Engine) renderBlock(buf *bytes.Buffer, b schema.LayoutBlock, c blocks.Context) {
	ref := blocks.Resolve(b.Block)
	if ref.Known() && blocks.Hidden(ref.Kind, c.State) {
		return
	}

	var frag bytes.Buffer
	fn, ok := e.opts.Registry.Lookup(ref)
	if !ok {
		e.opts.Metrics.UnknownBlock(ref.Key)
		e.log.Warn("unknown block", zap.String("block", b.Block))
		if err := renderFallback(&frag, ref.Key, c.Dev); err != nil {
			e.log.Debug("fallback render failed", zap.String("block", b.Block), zap.Error(err))
		}
		frag.WriteTo(buf)
		return
	}

	if err := safeRender(fn, &frag, blocks.PropsFor(ref, c)); err != nil {
		e.log.Error("block render failed", zap.String("block", b.Block), zap.Error(err))
		frag.Reset()
		if ferr := renderFailed(&frag, ref.Key, err, c.Dev); ferr != nil {
			e.log.Debug("failure render failed", zap.String("block", b.Block), zap.Error(ferr))
		}
	}
	frag.WriteTo(buf)
}

// Replaced in tests.
var (
	renderFallback = blocks.RenderFallback
	renderFailed   = blocks.RenderFailed
)

func safeRender(fn blocks.Renderer, buf *bytes.Buffer, p blocks.Props) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(buf, p)
}
