package domain

import "time"

// WorkflowStatus is the review state of a workflow-bearing resource.
type WorkflowStatus string

// Workflow statuses.
const (
	StatusDraft              WorkflowStatus = "draft"
	StatusNeedsRevision      WorkflowStatus = "needs_revision"
	StatusSubmittedForReview WorkflowStatus = "submitted_for_review"
	StatusUnderReview        WorkflowStatus = "under_review"
	StatusApproved           WorkflowStatus = "approved"
	StatusRejected           WorkflowStatus = "rejected"
)

// IsValid checks if the status is a known workflow status.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusNeedsRevision, StatusSubmittedForReview,
		StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the status is approved or rejected.
func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsEditable reports whether ordinary CRUD handlers may change the resource.
func (s WorkflowStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusNeedsRevision
}

// ResourceKind identifies a workflow-bearing resource type.
type ResourceKind string

// Resource kinds.
const (
	KindProgram       ResourceKind = "program"
	KindCarbonProject ResourceKind = "carbon_project"
)

// IsValid checks if the kind is known.
func (k ResourceKind) IsValid() bool {
	return k == KindProgram || k == KindCarbonProject
}

// WorkflowAudit holds the review audit attributes shared by workflow resources.
type WorkflowAudit struct {
	Status      WorkflowStatus `json:"status"`
	SubmittedBy *string        `json:"submitted_by"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	ReviewedBy  *string        `json:"reviewed_by"`
	ReviewedAt  *time.Time     `json:"reviewed_at"`
	ReviewNotes *string        `json:"review_notes"`
}

// Transition describes a committed status change. It is what notifications
// and the activity log are built from.
type Transition struct {
	Kind          ResourceKind
	ResourceID    string
	ResourceTitle string
	Action        string
	Decision      string
	From          WorkflowStatus
	To            WorkflowStatus
	ActorID       string
	Notes         *string
	At            time.Time
}
