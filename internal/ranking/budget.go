package ranking

import (
	"context"
	"time"
)

// Budget bounds the wall-clock time a ranking computation may spend on store
// queries. Callers pass it explicitly; it is never inferred from the request
// path. When the budget expires, ranking code degrades to its defined
// fallback instead of returning an error.
type Budget struct {
	Timeout time.Duration
}

// Default budget timeouts.
const (
	DefaultUserTimeout  = 5 * time.Second
	DefaultAdminTimeout = 3 * time.Second
)

// UserBudget returns the budget for viewer-facing queries.
func UserBudget() Budget {
	return Budget{Timeout: DefaultUserTimeout}
}

// AdminBudget returns the budget for admin-triggered queries.
func AdminBudget() Budget {
	return Budget{Timeout: DefaultAdminTimeout}
}

// Apply derives a context bounded by the budget. A zero timeout means
// unbounded; the returned cancel func is always safe to call.
func (b Budget) Apply(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.Timeout)
}

// Expired reports whether the context has been cancelled or timed out.
func Expired(ctx context.Context) bool {
	return ctx.Err() != nil
}
