package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/savingsgroup/internal/calculator"
	"github.com/mmynk/savingsgroup/internal/events"
	"github.com/mmynk/savingsgroup/internal/models"
)

// Lifecycle drives meetings through SCHEDULED -> IN_PROGRESS -> COMPLETED,
// with CANCELLED reachable from the first two states.
type Lifecycle struct {
	base
}

// NewLifecycle creates a Lifecycle.
func NewLifecycle(d Deps) *Lifecycle {
	return &Lifecycle{base{d}}
}

// Schedule creates a SCHEDULED meeting with the group's next meeting number.
func (l *Lifecycle) Schedule(ctx context.Context, actor models.Actor, draft models.MeetingDraft) (*models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	if draft.GroupID == "" {
		return nil, fmt.Errorf("%w: group_id is required", models.ErrInvalidInput)
	}
	if err := requireGroup(actor, draft.GroupID); err != nil {
		return nil, err
	}
	if draft.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", models.ErrInvalidInput)
	}
	if draft.Type == "" {
		draft.Type = models.MeetingRegular
	}
	if !draft.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown meeting type %q", models.ErrInvalidInput, draft.Type)
	}
	for _, officerID := range []string{draft.ChairpersonID, draft.SecretaryID, draft.TreasurerID} {
		if officerID == "" {
			continue
		}
		if _, err := l.checkMember(ctx, draft.GroupID, officerID); err != nil {
			return nil, err
		}
	}

	m := &models.Meeting{
		GroupID:       draft.GroupID,
		ScheduledAt:   draft.ScheduledAt.UTC(),
		Type:          draft.Type,
		ChairpersonID: draft.ChairpersonID,
		SecretaryID:   draft.SecretaryID,
		TreasurerID:   draft.TreasurerID,
		Location:      draft.Location,
		Agenda:        draft.Agenda,
	}
	if err := l.Store.CreateMeeting(ctx, m); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Meeting scheduled",
		"meeting_id", m.ID,
		"group_id", m.GroupID,
		"meeting_number", m.MeetingNumber,
	)
	return m, nil
}

// Start opens a SCHEDULED meeting. Starting any other state, including one
// already in progress, fails with models.ErrInvalidTransition.
func (l *Lifecycle) Start(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}

	m, err := l.Store.StartMeeting(ctx, meetingID, actor.UserID)
	l.Metrics.Transition(string(models.MeetingInProgress), err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Meeting started",
		"meeting_id", m.ID,
		"total_members", m.TotalMembers,
		"actor", actor.UserID,
	)
	l.publish(ctx, events.Event{
		Type:      events.MeetingStarted,
		GroupID:   m.GroupID,
		MeetingID: m.ID,
		ActorID:   actor.UserID,
		Status:    string(m.Status),
	})
	return m, nil
}

// Complete closes an IN_PROGRESS meeting and writes summary version 1 in the
// same transaction. Of two concurrent calls exactly one succeeds.
func (l *Lifecycle) Complete(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, *models.MeetingSummary, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, nil, err
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, nil, err
	}

	m, sum, err := l.Store.CompleteMeeting(ctx, meetingID, actor.UserID, l.summarize)
	l.Metrics.Transition(string(models.MeetingCompleted), err)
	if err != nil {
		return nil, nil, err
	}

	slog.InfoContext(ctx, "Meeting completed",
		"meeting_id", m.ID,
		"net_cash_flow", sum.NetCashFlow.String(),
		"quorum_met", sum.QuorumMet,
		"pending_remote", sum.PendingRemoteCount,
	)
	l.publish(ctx, events.Event{
		Type:      events.MeetingCompleted,
		GroupID:   m.GroupID,
		MeetingID: m.ID,
		ActorID:   actor.UserID,
		Status:    string(m.Status),
		Amount:    sum.NetCashFlow.String(),
	})
	return m, sum, nil
}

// Cancel abandons a SCHEDULED or IN_PROGRESS meeting without aggregating it.
func (l *Lifecycle) Cancel(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}

	m, err := l.Store.CancelMeeting(ctx, meetingID, actor.UserID)
	l.Metrics.Transition(string(models.MeetingCancelled), err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Meeting cancelled", "meeting_id", m.ID, "actor", actor.UserID)
	l.publish(ctx, events.Event{
		Type:      events.MeetingCancelled,
		GroupID:   m.GroupID,
		MeetingID: m.ID,
		ActorID:   actor.UserID,
		Status:    string(m.Status),
	})
	return m, nil
}

// DeleteMeetingCascade irreversibly removes a meeting and everything it owns.
// Only the audit trail survives.
func (l *Lifecycle) DeleteMeetingCascade(ctx context.Context, actor models.Actor, meetingID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return err
	}

	audit := &models.AuditEntry{ActorID: actor.UserID}
	if err := l.Store.DeleteMeetingCascade(ctx, meetingID, audit); err != nil {
		return err
	}

	slog.WarnContext(ctx, "Meeting deleted", "meeting_id", meetingID, "actor", actor.UserID)
	return nil
}

// UpdateNarrative edits agenda, minutes, decisions and action items of a
// meeting that has not been cancelled.
func (l *Lifecycle) UpdateNarrative(ctx context.Context, actor models.Actor, meetingID string, narrative models.Narrative) (*models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	if narrative.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	return l.Store.UpdateNarrative(ctx, meetingID, narrative)
}

// RegenerateSummary recomputes a completed meeting's summary as a new version.
func (l *Lifecycle) RegenerateSummary(ctx context.Context, actor models.Actor, meetingID string) (*models.MeetingSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}

	sum, err := l.Store.RegenerateSummary(ctx, meetingID, actor.UserID, l.summarize)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Summary regenerated",
		"meeting_id", meetingID,
		"version", sum.Version,
		"actor", actor.UserID,
	)
	return sum, nil
}

// Get returns a meeting.
func (l *Lifecycle) Get(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, error) {
	return l.loadMeeting(ctx, actor, meetingID)
}

// List returns a group's meetings, newest first, optionally filtered by status.
func (l *Lifecycle) List(ctx context.Context, actor models.Actor, groupID string, status models.MeetingStatus) ([]models.Meeting, error) {
	if err := requireGroup(actor, groupID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}
	return l.Store.ListMeetings(ctx, groupID, status)
}

// Summary returns the latest summary of a completed meeting.
// Meetings that have not completed have no summary.
func (l *Lifecycle) Summary(ctx context.Context, actor models.Actor, meetingID string) (*models.MeetingSummary, error) {
	m, err := l.loadMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingCompleted {
		return nil, fmt.Errorf("%w: meeting %s is %s and has no summary", models.ErrNotFound, meetingID, m.Status)
	}
	return l.Store.GetSummary(ctx, meetingID)
}

// SummaryVersions returns every summary version of a meeting, oldest first.
func (l *Lifecycle) SummaryVersions(ctx context.Context, actor models.Actor, meetingID string) ([]models.MeetingSummary, error) {
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	return l.Store.ListSummaryVersions(ctx, meetingID)
}

// Rollup aggregates the latest summaries of a group's completed meetings.
func (l *Lifecycle) Rollup(ctx context.Context, actor models.Actor, groupID string) (*models.GroupRollup, error) {
	if err := requireGroup(actor, groupID); err != nil {
		return nil, err
	}
	if _, err := l.Store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	summaries, err := l.Store.ListGroupSummaries(ctx, groupID)
	if err != nil {
		return nil, err
	}
	rollup := calculator.RollupGroup(groupID, summaries)
	return &rollup, nil
}

// AuditTrail returns the audit entries of a meeting. Once the meeting has
// been deleted its trail is only readable by a platform admin.
func (l *Lifecycle) AuditTrail(ctx context.Context, actor models.Actor, meetingID string) ([]models.AuditEntry, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	_, err := l.loadMeeting(ctx, actor, meetingID)
	if err != nil && !(errors.Is(err, models.ErrNotFound) && actor.IsPlatformAdmin()) {
		return nil, err
	}
	return l.Store.ListAudit(ctx, meetingID)
}
