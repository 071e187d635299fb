package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttendanceRecord is a member's presence at a meeting.
// There is at most one record per (MeetingID, MemberID).
type AttendanceRecord struct {
	MeetingID string `json:"meeting_id"`
	MemberID  string `json:"member_id"`
	Present   bool   `json:"present"`

	// ArrivalTime is free text as written in the register, e.g. "09:15".
	ArrivalTime  string    `json:"arrival_time,omitempty"`
	ExcuseReason string    `json:"excuse_reason,omitempty"`
	RecordedBy   string    `json:"recorded_by"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// AttendanceStats is the live attendance picture of a meeting.
type AttendanceStats struct {
	MeetingID      string          `json:"meeting_id"`
	TotalMembers   int             `json:"total_members"`
	MembersPresent int             `json:"members_present"`
	MembersAbsent  int             `json:"members_absent"`
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
	QuorumMet      bool            `json:"quorum_met"`
}
