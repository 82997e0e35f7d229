package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/compose"
	"github.com/xob0t/GoStorefront/pkg/schema"
)

const maxCartBody = 64 << 10

type cartResponse struct {
	Lines []compose.CartLine `json:"lines"`
	Count int                `json:"count"`
}

// handleCartAdd accepts either a JSON cart line from the client engine or the
// add-to-cart form of a server-rendered page. Both are replayed through a
// fresh engine so the gates and prices come from the document, never from
// the request. Form posts take the selection from the return URL and
// redirect back.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	sid := s.sessions.id(w, r)
	if isJSON(r) {
		s.addJSONLine(w, r, sid)
		return
	}

	q := r.URL.Query()
	slug := q.Get(compose.SlugParam)
	if !catalog.ValidSlug(slug) {
		http.Error(w, "unknown product", http.StatusBadRequest)
		return
	}
	back := safeReturn(q.Get(compose.ReturnParam), s.opts.Paths.Product+slug)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	qty, _ := strconv.Atoi(r.PostForm.Get("qty"))

	var seed url.Values
	if u, err := url.Parse(back); err == nil {
		seed = u.Query()
	}

	ctx, cancel := s.fetchContext(r.Context())
	defer cancel()

	e := s.engine(schema.ContextPage, sid, nil)
	defer e.Unmount()
	if err := e.Load(ctx, slug, seed); err != nil {
		s.sessions.flash(sid, Flash{Level: compose.LevelError.String(), Message: compose.UnavailableMessage(err)})
	} else if err := e.AddToCart(ctx, qty); err != nil && !errors.Is(err, compose.ErrBlocked) {
		s.log.Warn("cart add failed", zap.String("slug", slug), zap.Error(err))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// addJSONLine rebuilds the requested line from the document: the variant's
// attributes and the seller are selected on a server engine and only its
// AddToCart reaches the cart. Client prices and SKUs are ignored.
func (s *Server) addJSONLine(w http.ResponseWriter, r *http.Request, sid string) {
	var req compose.CartLine
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCartBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decode cart line: " + err.Error()})
		return
	}
	if !catalog.ValidSlug(req.Slug) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "unknown product"})
		return
	}
	if req.Quantity < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "quantity must be at least 1"})
		return
	}

	ctx, cancel := s.fetchContext(r.Context())
	defer cancel()

	notes := &capturedNotes{}
	e := s.engine(schema.ContextPage, sid, notes)
	defer e.Unmount()
	if err := e.Load(ctx, req.Slug, nil); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, catalog.ErrNotFound) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{"error": compose.UnavailableMessage(err)})
		return
	}
	if err := selectLine(e, req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	err := e.AddToCart(ctx, req.Quantity)
	var gerr *compose.GateError
	switch {
	case errors.As(err, &gerr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": gerr.Message(), "reasons": gerr.Reasons})
		return
	case err != nil:
		s.log.Warn("cart add failed", zap.String("slug", req.Slug), zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": notes.last(err)})
		return
	}
	s.log.Debug("cart line added", zap.String("slug", req.Slug), zap.Int("qty", req.Quantity))
	writeJSON(w, http.StatusCreated, s.cart(sid))
}

// selectLine applies the product, variant and seller of req to a loaded
// engine. Ids the document does not declare are rejected.
func selectLine(e *compose.Engine, req compose.CartLine) error {
	doc := e.Document()
	if req.ProductID != 0 && req.ProductID != doc.Product.ID {
		return fmt.Errorf("product %d does not match %s", req.ProductID, req.Slug)
	}
	if req.VariantID != 0 {
		combo, ok := doc.Combination(req.VariantID)
		if !ok {
			return fmt.Errorf("unknown variant %d", req.VariantID)
		}
		for key, value := range combo.Attributes {
			e.ToggleAttribute(key, value)
		}
	}
	if req.SellerID != 0 {
		if _, ok := doc.Seller(req.SellerID); !ok {
			return fmt.Errorf("unknown seller %d", req.SellerID)
		}
		e.SelectSeller(req.SellerID)
	}
	return nil
}

// capturedNotes keeps the engine's notifications for the JSON response.
type capturedNotes struct {
	messages []string
}

func (n *capturedNotes) Notify(_ compose.Level, message string) {
	n.messages = append(n.messages, message)
}

func (n *capturedNotes) last(fallback error) string {
	if len(n.messages) == 0 {
		return fallback.Error()
	}
	return n.messages[len(n.messages)-1]
}

func (s *Server) handleCartLines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cart(s.sessions.id(w, r)))
}

func (s *Server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	sid := s.sessions.id(w, r)
	s.writePage(w, http.StatusOK, "cart.html", struct {
		Lines   []compose.CartLine
		Flashes []Flash
	}{s.sessions.lines(sid), s.sessions.popFlashes(sid)})
}

func (s *Server) cart(sid string) cartResponse {
	lines := s.sessions.lines(sid)
	if lines == nil {
		lines = []compose.CartLine{}
	}
	return cartResponse{Lines: lines, Count: s.sessions.count(sid)}
}

// ── Helpers ──

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// safeReturn accepts only same-origin paths.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
