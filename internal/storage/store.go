// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/savingsgroup/internal/models"
)

// SummarizeFunc turns a consistent meeting snapshot into summary metrics.
// Stores call it inside the transaction that reads the snapshot.
type SummarizeFunc func(models.MeetingSnapshot) models.MeetingSummary

// Store defines the interface for meeting storage operations.
// Implementations must make every method that mutates a meeting's state or
// ledger atomic: either all of its writes persist or none do.
// Errors wrap the sentinels in package models.
type Store interface {
	DirectoryStore
	MeetingStore
	LedgerStore
	AttendanceStore
	SummaryStore
	AuditStore

	// Close releases any resources held by the store.
	Close() error
}

// DirectoryStore holds the groups, members and saving types the meeting
// backend reads from the group directory.
type DirectoryStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error

	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)

	CreateSavingType(ctx context.Context, st *models.SavingType) error
	GetSavingType(ctx context.Context, savingTypeID string) (*models.SavingType, error)
	ListSavingTypes(ctx context.Context, groupID string) ([]models.SavingType, error)
}

// MeetingStore persists meetings and their lifecycle transitions.
// Transitions are compare-and-set on the current status: a transition whose
// source state no longer holds fails with models.ErrInvalidTransition.
type MeetingStore interface {
	// CreateMeeting stores a SCHEDULED meeting and assigns the next meeting number of its group.
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error

	GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error)

	// ListMeetings returns a group's meetings, newest first. An empty status matches all.
	ListMeetings(ctx context.Context, groupID string, status models.MeetingStatus) ([]models.Meeting, error)

	// StartMeeting moves SCHEDULED -> IN_PROGRESS and snapshots the active member count.
	StartMeeting(ctx context.Context, meetingID, actorID string) (*models.Meeting, error)

	// CompleteMeeting moves IN_PROGRESS -> COMPLETED and writes summary version 1
	// in the same transaction.
	CompleteMeeting(ctx context.Context, meetingID, actorID string, summarize SummarizeFunc) (*models.Meeting, *models.MeetingSummary, error)

	// CancelMeeting moves SCHEDULED or IN_PROGRESS -> CANCELLED.
	CancelMeeting(ctx context.Context, meetingID, actorID string) (*models.Meeting, error)

	// UpdateNarrative edits agenda, minutes, decisions and action items.
	UpdateNarrative(ctx context.Context, meetingID string, narrative models.Narrative) (*models.Meeting, error)

	// DeleteMeetingCascade removes the meeting and everything it owns.
	// The audit entry is written in the same transaction and survives the delete.
	DeleteMeetingCascade(ctx context.Context, meetingID string, audit *models.AuditEntry) error
}

// LedgerStore persists ledger entries.
type LedgerStore interface {
	// AppendEntry stores a new entry if the meeting is in one of the open
	// statuses (IN_PROGRESS when none are given). Child rows of a session
	// header are upserted per (ParentID, MemberID).
	AppendEntry(ctx context.Context, entry *models.LedgerEntry, open ...models.MeetingStatus) error

	// AppendEntries is AppendEntry for a batch of entries of one meeting,
	// written in a single transaction.
	AppendEntries(ctx context.Context, entries []*models.LedgerEntry, open ...models.MeetingStatus) error

	GetEntry(ctx context.Context, entryID string) (*models.LedgerEntry, error)

	// ListEntries returns a meeting's entries in creation order.
	ListEntries(ctx context.Context, meetingID string, filter models.EntryFilter) ([]models.LedgerEntry, error)

	// ResolveRemote moves a PENDING remote entry to VERIFIED or REJECTED.
	// Only one caller can win; every other caller gets models.ErrAlreadyResolved.
	ResolveRemote(ctx context.Context, entryID string, status models.VerificationStatus, actorID, notes string) (*models.LedgerEntry, error)

	// AmendEntry replaces the amount and details of a VERIFIED entry, writes the
	// audit entry and marks the meeting's current summary STALE.
	AmendEntry(ctx context.Context, entry *models.LedgerEntry, audit *models.AuditEntry) error

	// AttachDocuments links proof documents to an existing entry.
	AttachDocuments(ctx context.Context, entryID string, documentIDs []string) error

	// ListMemberSavings returns savings balances of a group, or of one member
	// when memberID is set. Appending, verifying and amending VERIFIED savings
	// entries update the balances in the same transaction.
	ListMemberSavings(ctx context.Context, groupID, memberID string) ([]models.MemberSaving, error)
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	// UpsertAttendance writes all records in one transaction while the meeting is IN_PROGRESS.
	UpsertAttendance(ctx context.Context, meetingID string, records []models.AttendanceRecord) error

	ListAttendance(ctx context.Context, meetingID string) ([]models.AttendanceRecord, error)

	// CountActiveMembers returns the number of active members in a group.
	CountActiveMembers(ctx context.Context, groupID string) (int, error)
}

// SummaryStore reads and regenerates meeting summaries.
type SummaryStore interface {
	// GetSummary returns the latest summary version of a meeting.
	GetSummary(ctx context.Context, meetingID string) (*models.MeetingSummary, error)

	ListSummaryVersions(ctx context.Context, meetingID string) ([]models.MeetingSummary, error)

	// RegenerateSummary recomputes a COMPLETED meeting's summary as a new CURRENT
	// version; earlier versions become STALE.
	RegenerateSummary(ctx context.Context, meetingID, actorID string, summarize SummarizeFunc) (*models.MeetingSummary, error)

	// ListGroupSummaries returns the latest summary of each completed meeting of a group.
	ListGroupSummaries(ctx context.Context, groupID string) ([]models.MeetingSummary, error)
}

// AuditStore reads the audit trail.
type AuditStore interface {
	ListAudit(ctx context.Context, meetingID string) ([]models.AuditEntry, error)
}
