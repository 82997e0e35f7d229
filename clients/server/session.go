package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/xob0t/GoStorefront/pkg/compose"
)

const sessionCookie = "sf_session"

// Flash is a notification shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

type session struct {
	lines   []compose.CartLine
	flashes []Flash
}

// sessionStore keeps carts and pending flash messages in memory, keyed by
// the session cookie.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

// id returns the session of r, issuing a cookie when it has none.
func (st *sessionStore) id(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (st *sessionStore) getLocked(id string) *session {
	s, ok := st.sessions[id]
	if !ok {
		s = &session{}
		st.sessions[id] = s
	}
	return s
}

func (st *sessionStore) add(id string, line compose.CartLine) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getLocked(id)
	for i, l := range s.lines {
		if l.ProductID == line.ProductID && l.VariantID == line.VariantID && l.SellerID == line.SellerID {
			s.lines[i].Quantity += line.Quantity
			s.lines[i].UnitPrice = line.UnitPrice
			return
		}
	}
	s.lines = append(s.lines, line)
}

func (st *sessionStore) lines(id string) []compose.CartLine {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return slices.Clone(s.lines)
	}
	return nil
}

func (st *sessionStore) count(id string) int {
	n := 0
	for _, l := range st.lines(id) {
		n += l.Quantity
	}
	return n
}

func (st *sessionStore) flash(id string, f Flash) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.getLocked(id)
	s.flashes = append(s.flashes, f)
}

// popFlashes returns and clears the pending messages.
func (st *sessionStore) popFlashes(id string) []Flash {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	return out
}

// ── Engine collaborators ──

// sessionCart adds lines to one session's cart.
type sessionCart struct {
	store *sessionStore
	id    string
}

func (c sessionCart) AddToCart(_ context.Context, line compose.CartLine) error {
	if line.ProductID <= 0 {
		return fmt.Errorf("cart: invalid product id %d", line.ProductID)
	}
	if line.Quantity < 1 {
		return fmt.Errorf("cart: invalid quantity %d", line.Quantity)
	}
	c.store.add(c.id, line)
	return nil
}

// flashNotifier turns engine notifications into flash messages.
type flashNotifier struct {
	store *sessionStore
	id    string
}

func (n flashNotifier) Notify(level compose.Level, message string) {
	n.store.flash(n.id, Flash{Level: level.String(), Message: message})
}
