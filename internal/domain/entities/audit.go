package entities

import "time"

// AuditAction names a logged step in an edit's review history.
type AuditAction string

const (
	AuditSubmitted     AuditAction = "submitted"
	AuditPublished     AuditAction = "published"
	AuditRejected      AuditAction = "rejected"
	AuditPublishFailed AuditAction = "publish_failed"
	AuditInconsistent  AuditAction = "inconsistent"
	AuditNoopTerminal  AuditAction = "noop_terminal"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    AuditAction    `json:"action"`
	EditID    int64          `json:"edit_id,omitempty"`
	Reviewer  string         `json:"reviewer,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditActions lists every action the review pipeline records.
var AuditActions = []AuditAction{
	AuditSubmitted,
	AuditPublished,
	AuditRejected,
	AuditPublishFailed,
	AuditInconsistent,
	AuditNoopTerminal,
}
