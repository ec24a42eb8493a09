// Package workflow moves workflow-bearing resources through their review
// lifecycle and fans out notifications for every committed transition.
package workflow

import (
	"slices"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// Action is a workflow operation requested by a user.
type Action string

// Actions.
const (
	ActionSubmit      Action = "submit"
	ActionStartReview Action = "start_review"
	ActionReview      Action = "review"
	ActionReopen      Action = "reopen"
)

// Decision is the outcome chosen by a reviewer.
type Decision string

// Review decisions.
const (
	DecisionApprove       Decision = "approve"
	DecisionReject        Decision = "reject"
	DecisionNeedsRevision Decision = "needs_revision"
)

// IsValid checks if the decision is known.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionNeedsRevision:
		return true
	}
	return false
}

type transition struct {
	action   Action
	decision Decision
	from     []domain.WorkflowStatus
	to       domain.WorkflowStatus
}

var (
	submittable = []domain.WorkflowStatus{domain.StatusDraft, domain.StatusNeedsRevision}
	reviewable  = []domain.WorkflowStatus{domain.StatusSubmittedForReview, domain.StatusUnderReview, domain.StatusNeedsRevision}
	reopenable  = []domain.WorkflowStatus{domain.StatusApproved, domain.StatusRejected}
)

// transitions is the complete set of legal moves. Anything not listed is an
// invalid transition.
var transitions = []transition{
	{action: ActionSubmit, from: submittable, to: domain.StatusSubmittedForReview},
	{action: ActionStartReview, from: []domain.WorkflowStatus{domain.StatusSubmittedForReview}, to: domain.StatusUnderReview},
	{action: ActionReview, decision: DecisionApprove, from: reviewable, to: domain.StatusApproved},
	{action: ActionReview, decision: DecisionReject, from: reviewable, to: domain.StatusRejected},
	{action: ActionReview, decision: DecisionNeedsRevision, from: reviewable, to: domain.StatusNeedsRevision},
	{action: ActionReopen, from: reopenable, to: domain.StatusDraft},
}

func lookup(action Action, decision Decision) (transition, bool) {
	for _, t := range transitions {
		if t.action == action && t.decision == decision {
			return t, true
		}
	}
	return transition{}, false
}

// Target returns the status an action leads to. decision is only meaningful
// for ActionReview and must be empty otherwise.
func Target(action Action, decision Decision) (domain.WorkflowStatus, bool) {
	t, ok := lookup(action, decision)
	return t.to, ok
}

// AllowedFrom returns the statuses from which action may be applied.
func AllowedFrom(action Action, decision Decision) []domain.WorkflowStatus {
	t, ok := lookup(action, decision)
	if !ok {
		return nil
	}
	return slices.Clone(t.from)
}

// CanApply reports whether action is legal from status.
func CanApply(from domain.WorkflowStatus, action Action, decision Decision) bool {
	t, ok := lookup(action, decision)
	return ok && slices.Contains(t.from, from)
}
