package notifications

import (
	"time"

	"github.com/lestari-foundation/forestgate/internal/domain"
)

// TransitionPayload is the structured part of a transition notification.
type TransitionPayload struct {
	ResourceKind  domain.ResourceKind   `json:"resource_kind"`
	ResourceID    string                `json:"resource_id"`
	ResourceTitle string                `json:"resource_title"`
	Action        string                `json:"action"`
	Decision      string                `json:"decision,omitempty"`
	StatusFrom    domain.WorkflowStatus `json:"status_from"`
	StatusTo      domain.WorkflowStatus `json:"status_to"`
	ActorID       string                `json:"actor_id"`
	Notes         string                `json:"notes,omitempty"`
	OccurredAt    time.Time             `json:"occurred_at"`
}

// NewTransitionPayload builds the payload of a transition.
func NewTransitionPayload(t domain.Transition) TransitionPayload {
	p := TransitionPayload{
		ResourceKind:  t.Kind,
		ResourceID:    t.ResourceID,
		ResourceTitle: t.ResourceTitle,
		Action:        t.Action,
		Decision:      t.Decision,
		StatusFrom:    t.From,
		StatusTo:      t.To,
		ActorID:       t.ActorID,
		OccurredAt:    t.At,
	}
	if t.Notes != nil {
		p.Notes = *t.Notes
	}
	return p
}

// Map returns the payload as a JSON object.
func (p TransitionPayload) Map() map[string]any {
	m := map[string]any{
		"resource_kind":  string(p.ResourceKind),
		"resource_id":    p.ResourceID,
		"resource_title": p.ResourceTitle,
		"action":         p.Action,
		"status_from":    string(p.StatusFrom),
		"status_to":      string(p.StatusTo),
		"actor_id":       p.ActorID,
		"occurred_at":    p.OccurredAt.UTC().Format(time.RFC3339),
	}
	if p.Decision != "" {
		m["decision"] = p.Decision
	}
	if p.Notes != "" {
		m["notes"] = p.Notes
	}
	return m
}

// notificationType maps a transition to the type shown to the recipient.
func notificationType(p TransitionPayload) domain.NotificationType {
	switch p.Action {
	case "submit":
		return domain.NotificationReviewRequested
	case "start_review":
		return domain.NotificationReviewStarted
	case "reopen":
		return domain.NotificationReopened
	default:
		return domain.NotificationReviewDecision
	}
}

// templateName selects the message template of a transition.
func templateName(p TransitionPayload) string {
	switch p.Action {
	case "submit":
		return "review_requested"
	case "start_review":
		return "review_started"
	case "reopen":
		return "reopened"
	}
	switch p.Decision {
	case "approve":
		return "review_approved"
	case "reject":
		return "review_rejected"
	default:
		return "review_needs_revision"
	}
}
