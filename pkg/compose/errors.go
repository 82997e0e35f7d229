package compose

import (
	"errors"
	"strings"
)

var (
	// ErrNotReady is returned by actions invoked before a document is loaded.
	ErrNotReady = errors.New("compose: not ready")
	// ErrBlocked is matched by every GateError.
	ErrBlocked = errors.New("compose: action blocked")
	// ErrStale is returned by a load whose instance was unmounted or replaced
	// before the response arrived. The response is discarded.
	ErrStale = errors.New("compose: stale load discarded")
)

// GateError is a locally rejected add-to-cart. Reasons are user-facing.
type GateError struct {
	Reasons []string
}

func (e *GateError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrBlocked.Error()
	}
	return ErrBlocked.Error() + ": " + strings.Join(e.Reasons, ", ")
}

func (e *GateError) Is(target error) bool {
	return target == ErrBlocked
}

// Message is the text shown to the shopper: every reason, in gate order,
// capitalized as one sentence.
func (e *GateError) Message() string {
	reasons := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		if r != "" {
			reasons = append(reasons, r)
		}
	}
	if len(reasons) == 0 {
		return "Cannot add to cart"
	}
	msg := strings.Join(reasons, ", ")
	return strings.ToUpper(msg[:1]) + msg[1:]
}
