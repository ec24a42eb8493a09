package workflow

import (
	"context"
	"time"

	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Snapshot is the workflow view of a resource: its status, audit stamps and
// the values of the fields the completeness rules look at.
type Snapshot struct {
	Kind  domain.ResourceKind `json:"kind"`
	ID    string              `json:"id"`
	Title string              `json:"title"`
	domain.WorkflowAudit
	UpdatedAt time.Time         `json:"updated_at"`
	Fields    map[string]string `json:"-"`
}

// Change is the write applied by a successful compare-and-set.
// Nil pointers leave the column untouched unless SetNotes is true, in which
// case ReviewNotes is written even when nil.
type Change struct {
	To          domain.WorkflowStatus
	SubmittedBy *string
	SubmittedAt *time.Time
	ReviewedBy  *string
	ReviewedAt  *time.Time
	ReviewNotes *string
	SetNotes    bool
	// ExpectUpdatedAt, when set, additionally requires the row to be
	// unmodified since the snapshot with that updated_at was read.
	ExpectUpdatedAt *time.Time
}

// Store is the resource store seen by the tracker.
type Store interface {
	// Snapshot returns ErrNotFound if the resource does not exist.
	Snapshot(ctx context.Context, kind domain.ResourceKind, id string) (*Snapshot, error)
	// CompareAndSet applies change only if the current status is one of
	// from, in a single atomic statement. It returns the updated snapshot
	// and the status it replaced, ErrNotFound, or a *ConflictError.
	CompareAndSet(ctx context.Context, kind domain.ResourceKind, id string, from []domain.WorkflowStatus, change Change) (*Snapshot, domain.WorkflowStatus, error)
}

// Directory lists users by role.
type Directory interface {
	ListUserIDsByRoles(ctx context.Context, roles []domain.Role) ([]string, error)
}

// Notifier writes the notifications of a transition and reports how many
// were written.
type Notifier interface {
	NotifyTransition(ctx context.Context, t domain.Transition, recipients []string) (int, error)
}

// ActivityRecorder appends to the activity log. Implementations swallow
// their own failures.
type ActivityRecorder interface {
	Record(ctx context.Context, entry domain.ActivityEntry)
}

// Permissions checks capabilities.
type Permissions interface {
	Check(ctx context.Context, c access.Capability, userID string) error
}
