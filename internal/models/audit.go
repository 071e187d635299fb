package models

import (
	"encoding/json"
	"time"
)

// AuditAction names an audited operation.
type AuditAction string

const (
	AuditStart             AuditAction = "START"
	AuditComplete          AuditAction = "COMPLETE"
	AuditCancel            AuditAction = "CANCEL"
	AuditAmend             AuditAction = "AMEND"
	AuditVerify            AuditAction = "VERIFY"
	AuditReject            AuditAction = "REJECT"
	AuditRegenerateSummary AuditAction = "REGENERATE_SUMMARY"
	AuditDeleteMeeting     AuditAction = "DELETE_MEETING"
)

// AuditEntry records who changed what and when.
// Audit rows are not owned by the meeting and survive a cascade delete.
type AuditEntry struct {
	ID        string      `json:"id"`
	MeetingID string      `json:"meeting_id"`
	EntityID  string      `json:"entity_id"`
	Action    AuditAction `json:"action"`
	ActorID   string      `json:"actor_id"`

	// OldValue and NewValue are JSON snapshots of the changed entity.
	OldValue json.RawMessage `json:"old_value,omitempty"`
	NewValue json.RawMessage `json:"new_value,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
