package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestari-foundation/forestgate/internal/access"
	"github.com/lestari-foundation/forestgate/internal/domain"
	"github.com/lestari-foundation/forestgate/internal/pkg/ctxlog"
)

// Result is the outcome of a successful workflow action.
type Result struct {
	Resource            *Snapshot `json:"resource"`
	NotificationsSent   int       `json:"notifications_sent"`
	NotificationsFailed int       `json:"notifications_failed"`
}

// Tracker applies workflow actions. It holds no mutable state; the status
// guard is re-checked by the store at write time.
type Tracker struct {
	store       Store
	permissions Permissions
	directory   Directory
	notifier    Notifier
	activity    ActivityRecorder
	now         func() time.Time
}

// NewTracker creates a new tracker.
func NewTracker(store Store, permissions Permissions, directory Directory, notifier Notifier, activity ActivityRecorder) *Tracker {
	return &Tracker{
		store:       store,
		permissions: permissions,
		directory:   directory,
		notifier:    notifier,
		activity:    activity,
		now:         time.Now,
	}
}

// maxSubmitAttempts bounds how often Submit re-reads a resource that was
// edited between its completeness check and the status write.
const maxSubmitAttempts = 3

// Submit moves a draft or needs_revision resource to submitted_for_review
// and notifies every reviewer. Completeness is checked against a snapshot
// and the write only lands if the row is still that snapshot.
func (t *Tracker) Submit(ctx context.Context, kind domain.ResourceKind, id, userID string) (*Result, error) {
	for attempt := 1; ; attempt++ {
		def, snap, err := t.prepare(ctx, kind, id, userID, ActionSubmit, "", func(d Definition) access.Capability {
			return d.SubmitCapability
		})
		if err != nil {
			return nil, err
		}

		if missing := def.Completeness(snap.Fields); len(missing) > 0 {
			recordTransition(kind, ActionSubmit, outcomeIncomplete)
			return nil, &ValidationError{Missing: missing}
		}

		now := t.now().UTC()
		updated, from, err := t.apply(ctx, kind, id, ActionSubmit, "", Change{
			SubmittedBy:     &userID,
			SubmittedAt:     &now,
			ExpectUpdatedAt: &snap.UpdatedAt,
		})
		var conflict *ConflictError
		if errors.As(err, &conflict) && conflict.Modified && attempt < maxSubmitAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		recipients, err := t.directory.ListUserIDsByRoles(ctx, access.RolesWith(def.ReviewCapability))
		if err != nil {
			ctxlog.FromContext(ctx).Error("failed to resolve reviewers",
				"kind", kind,
				"resource_id", id,
				"error", err,
			)
		}

		return t.finish(ctx, from, updated, ActionSubmit, "", userID, nil, recipients), nil
	}
}

// StartReview marks a submitted resource as under review and tells the
// submitter.
func (t *Tracker) StartReview(ctx context.Context, kind domain.ResourceKind, id, userID string) (*Result, error) {
	if _, _, err := t.prepare(ctx, kind, id, userID, ActionStartReview, "", reviewCapability); err != nil {
		return nil, err
	}

	updated, from, err := t.apply(ctx, kind, id, ActionStartReview, "", Change{})
	if err != nil {
		return nil, err
	}

	return t.finish(ctx, from, updated, ActionStartReview, "", userID, nil, submitter(updated)), nil
}

// Review records a reviewer's decision and notifies the original submitter.
func (t *Tracker) Review(ctx context.Context, kind domain.ResourceKind, id, userID string, decision Decision, notes *string) (*Result, error) {
	if !decision.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	if _, _, err := t.prepare(ctx, kind, id, userID, ActionReview, decision, reviewCapability); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	updated, from, err := t.apply(ctx, kind, id, ActionReview, decision, Change{
		ReviewedBy:  &userID,
		ReviewedAt:  &now,
		ReviewNotes: notes,
		SetNotes:    true,
	})
	if err != nil {
		return nil, err
	}

	return t.finish(ctx, from, updated, ActionReview, decision, userID, notes, submitter(updated)), nil
}

// Reopen sends an approved or rejected resource back to draft.
func (t *Tracker) Reopen(ctx context.Context, kind domain.ResourceKind, id, userID string, reason *string) (*Result, error) {
	if _, _, err := t.prepare(ctx, kind, id, userID, ActionReopen, "", reviewCapability); err != nil {
		return nil, err
	}

	updated, from, err := t.apply(ctx, kind, id, ActionReopen, "", Change{})
	if err != nil {
		return nil, err
	}

	return t.finish(ctx, from, updated, ActionReopen, "", userID, reason, submitter(updated)), nil
}

func reviewCapability(d Definition) access.Capability {
	return d.ReviewCapability
}

// prepare runs the checks shared by every action: permission, existence and
// a first status guard against the current snapshot.
func (t *Tracker) prepare(
	ctx context.Context,
	kind domain.ResourceKind,
	id, userID string,
	action Action,
	decision Decision,
	capability func(Definition) access.Capability,
) (Definition, *Snapshot, error) {
	def, ok := DefinitionFor(kind)
	if !ok {
		return Definition{}, nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if err := t.permissions.Check(ctx, capability(def), userID); err != nil {
		recordTransition(kind, action, outcomeDenied)
		return Definition{}, nil, err
	}

	snap, err := t.store.Snapshot(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			recordTransition(kind, action, outcomeNotFound)
			return Definition{}, nil, ErrNotFound
		}
		recordTransition(kind, action, outcomeError)
		return Definition{}, nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}

	if !CanApply(snap.Status, action, decision) {
		recordTransition(kind, action, outcomeInvalid)
		return Definition{}, nil, &TransitionError{
			Action:  action,
			Current: snap.Status,
			Allowed: AllowedFrom(action, decision),
		}
	}

	return def, snap, nil
}

// apply performs the atomic status write and returns the status it
// replaced. A status conflict means another request won the race; it is
// reported against the status that request left behind. A modified-row
// conflict is returned as is.
func (t *Tracker) apply(ctx context.Context, kind domain.ResourceKind, id string, action Action, decision Decision, change Change) (*Snapshot, domain.WorkflowStatus, error) {
	to, _ := Target(action, decision)
	change.To = to
	from := AllowedFrom(action, decision)

	updated, previous, err := t.store.CompareAndSet(ctx, kind, id, from, change)
	if err == nil {
		return updated, previous, nil
	}

	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict) && conflict.Modified:
		recordTransition(kind, action, outcomeModified)
		return nil, "", conflict
	case errors.As(err, &conflict):
		recordTransition(kind, action, outcomeInvalid)
		return nil, "", &TransitionError{Action: action, Current: conflict.Current, Allowed: from}
	case errors.Is(err, ErrNotFound):
		recordTransition(kind, action, outcomeNotFound)
		return nil, "", ErrNotFound
	default:
		recordTransition(kind, action, outcomeError)
		return nil, "", fmt.Errorf("update %s %s status: %w", kind, id, err)
	}
}

// finish runs the best-effort side effects of a committed transition. from
// is the status the write replaced, not the one first read.
func (t *Tracker) finish(
	ctx context.Context,
	from domain.WorkflowStatus,
	after *Snapshot,
	action Action,
	decision Decision,
	actorID string,
	notes *string,
	recipients []string,
) *Result {
	recordTransition(after.Kind, action, outcomeApplied)

	tr := domain.Transition{
		Kind:          after.Kind,
		ResourceID:    after.ID,
		ResourceTitle: after.Title,
		Action:        string(action),
		Decision:      string(decision),
		From:          from,
		To:            after.Status,
		ActorID:       actorID,
		Notes:         notes,
		At:            t.now().UTC(),
	}

	result := &Result{Resource: after}

	recipients = uniqueRecipients(recipients)
	if len(recipients) > 0 {
		sent, err := t.notifier.NotifyTransition(ctx, tr, recipients)
		result.NotificationsSent = sent
		result.NotificationsFailed = len(recipients) - sent
		if err != nil {
			ctxlog.FromContext(ctx).Error("failed to write transition notifications",
				"kind", after.Kind,
				"resource_id", after.ID,
				"action", action,
				"written", sent,
				"recipients", len(recipients),
				"error", err,
			)
		}
	}

	details := map[string]any{
		"from": string(from),
		"to":   string(after.Status),
	}
	if decision != "" {
		details["decision"] = string(decision)
	}
	if notes != nil {
		details["notes"] = *notes
	}
	t.activity.Record(ctx, domain.ActivityEntry{
		ActorID:      actorID,
		Action:       "workflow." + string(action),
		ResourceKind: string(after.Kind),
		ResourceID:   after.ID,
		Details:      details,
	})

	return result
}

// uniqueRecipients drops empty and repeated ids so that sent and failed
// counts add up to the number of distinct users.
func uniqueRecipients(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func submitter(s *Snapshot) []string {
	if s.SubmittedBy == nil || *s.SubmittedBy == "" {
		return nil
	}
	return []string{*s.SubmittedBy}
}
