package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/ctxlog"
	"github.com/lestari-foundation/forestgate/internal/pkg/httputil"
)

// Errors returned by Check.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// ProfileStore resolves the current role of a user.
type ProfileStore interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}

// Evaluator answers capability checks. It keeps no state between calls:
// the role is read from the profile store every time.
type Evaluator struct {
	profiles ProfileStore
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(profiles ProfileStore) *Evaluator {
	return &Evaluator{profiles: profiles}
}

type decision int

const (
	deny decision = iota
	allow
)

type reason string

const (
	reasonGranted         reason = "granted"
	reasonNotGranted      reason = "not_granted"
	reasonUnauthenticated reason = "unauthenticated"
	reasonLookupFailed    reason = "lookup_failed"
	reasonUnknownCap      reason = "unknown_capability"
)

// HasPermission reports whether userID currently holds capability c.
// Every failure to resolve the user yields false.
func (e *Evaluator) HasPermission(ctx context.Context, c Capability, userID string) bool {
	d, r := e.decide(ctx, c, userID)
	recordDecision(c, r)
	return d == allow
}

// Check is HasPermission expressed as an error: ErrUnauthenticated when no
// user is given, ErrForbidden otherwise.
func (e *Evaluator) Check(ctx context.Context, c Capability, userID string) error {
	if userID == "" {
		recordDecision(c, reasonUnauthenticated)
		return ErrUnauthenticated
	}
	if !e.HasPermission(ctx, c, userID) {
		return ErrForbidden
	}
	return nil
}

func (e *Evaluator) decide(ctx context.Context, c Capability, userID string) (decision, reason) {
	if userID == "" {
		return deny, reasonUnauthenticated
	}
	if !c.IsValid() {
		return deny, reasonUnknownCap
	}

	role, err := e.profiles.GetRole(ctx, userID)

	switch {
	case err == nil && Granted(role, c):
		return allow, reasonGranted
	case err == nil:
		return deny, reasonNotGranted
	default:
		ctxlog.FromContext(ctx).Warn("permission denied: role lookup failed",
			"user_id", userID,
			"capability", c,
			"error", err,
		)
		return deny, reasonLookupFailed
	}
}

// Capabilities returns every capability currently held by userID.
// A failed role lookup yields an empty set.
func (e *Evaluator) Capabilities(ctx context.Context, userID string) (domain.Role, []Capability, error) {
	if userID == "" {
		return "", nil, ErrUnauthenticated
	}
	role, err := e.profiles.GetRole(ctx, userID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("capabilities: role lookup failed", "user_id", userID, "error", err)
		return "", []Capability{}, nil
	}
	return role, CapabilitiesOf(role), nil
}

// Guard builds middleware requiring a capability. Evaluator.Require is a Guard.
type Guard func(c Capability) func(http.Handler) http.Handler

// Require returns middleware that rejects requests whose user lacks c.
// A missing user yields 401, a denied check 403.
func (e *Evaluator) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch err := e.Check(r.Context(), c, httputil.GetUserID(r.Context())); {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrUnauthenticated):
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
			default:
				httputil.Error(w, http.StatusForbidden, "insufficient permissions")
			}
		})
	}
}
