package models

import "time"

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled  MeetingStatus = "SCHEDULED"
	MeetingInProgress MeetingStatus = "IN_PROGRESS"
	MeetingCompleted  MeetingStatus = "COMPLETED"
	MeetingCancelled  MeetingStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingScheduled, MeetingInProgress, MeetingCompleted, MeetingCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	switch s {
	case MeetingScheduled:
		return next == MeetingInProgress || next == MeetingCancelled
	case MeetingInProgress:
		return next == MeetingCompleted || next == MeetingCancelled
	}
	return false
}

// MeetingType classifies why a meeting was called.
type MeetingType string

const (
	MeetingRegular   MeetingType = "REGULAR"
	MeetingEmergency MeetingType = "EMERGENCY"
	MeetingSpecial   MeetingType = "SPECIAL"
	MeetingAGM       MeetingType = "AGM"
)

// Valid reports whether t is a known meeting type.
func (t MeetingType) Valid() bool {
	switch t {
	case MeetingRegular, MeetingEmergency, MeetingSpecial, MeetingAGM:
		return true
	}
	return false
}

// Meeting is a single sitting of a savings group.
// Status is only changed by lifecycle operations.
type Meeting struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`

	// MeetingNumber is assigned sequentially per group.
	MeetingNumber int `json:"meeting_number"`

	ScheduledAt time.Time     `json:"scheduled_at"`
	Type        MeetingType   `json:"type"`
	Status      MeetingStatus `json:"status"`

	// Officer roles for this sitting. Optional member IDs.
	ChairpersonID string `json:"chairperson_id,omitempty"`
	SecretaryID   string `json:"secretary_id,omitempty"`
	TreasurerID   string `json:"treasurer_id,omitempty"`

	Location    string `json:"location,omitempty"`
	Agenda      string `json:"agenda,omitempty"`
	Minutes     string `json:"minutes,omitempty"`
	Decisions   string `json:"decisions,omitempty"`
	ActionItems string `json:"action_items,omitempty"`

	// TotalMembers is the active membership count captured when the meeting started.
	TotalMembers int `json:"total_members"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MeetingDraft holds the caller-supplied fields for scheduling a meeting.
type MeetingDraft struct {
	GroupID       string      `json:"group_id"`
	ScheduledAt   time.Time   `json:"scheduled_at"`
	Type          MeetingType `json:"type"`
	ChairpersonID string      `json:"chairperson_id,omitempty"`
	SecretaryID   string      `json:"secretary_id,omitempty"`
	TreasurerID   string      `json:"treasurer_id,omitempty"`
	Location      string      `json:"location,omitempty"`
	Agenda        string      `json:"agenda,omitempty"`
}

// Narrative is a partial update of a meeting's free-text fields.
// Nil fields are left unchanged.
type Narrative struct {
	Agenda      *string `json:"agenda,omitempty"`
	Minutes     *string `json:"minutes,omitempty"`
	Decisions   *string `json:"decisions,omitempty"`
	ActionItems *string `json:"action_items,omitempty"`
}

// Empty reports whether the update changes nothing.
func (n Narrative) Empty() bool {
	return n.Agenda == nil && n.Minutes == nil && n.Decisions == nil && n.ActionItems == nil
}

// Apply copies the non-nil fields onto m.
func (n Narrative) Apply(m *Meeting) {
	if n.Agenda != nil {
		m.Agenda = *n.Agenda
	}
	if n.Minutes != nil {
		m.Minutes = *n.Minutes
	}
	if n.Decisions != nil {
		m.Decisions = *n.Decisions
	}
	if n.ActionItems != nil {
		m.ActionItems = *n.ActionItems
	}
}
