package meeting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/savingsgroup/internal/calculator"
	"github.com/mmynk/savingsgroup/internal/models"
)

// Attendance keeps the register of an in-progress meeting.
type Attendance struct {
	base
}

// NewAttendance creates an Attendance tracker.
func NewAttendance(d Deps) *Attendance {
	return &Attendance{base{d}}
}

// Record upserts a batch of register lines. A member listed twice keeps the last line.
func (a *Attendance) Record(ctx context.Context, actor models.Actor, meetingID string, in []AttendanceInput) ([]models.AttendanceRecord, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	m, err := a.loadMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, models.MeetingInProgress); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no attendance records given", models.ErrInvalidInput)
	}

	records := make([]models.AttendanceRecord, 0, len(in))
	for _, line := range in {
		member, err := a.checkMember(ctx, m.GroupID, line.MemberID)
		if err != nil {
			return nil, err
		}
		// The register covers the members counted when the meeting started.
		if m.StartedAt != nil && member.CreatedAt.After(*m.StartedAt) {
			return nil, fmt.Errorf("%w: member %s joined after the meeting started", models.ErrInvalidInput, member.ID)
		}
		records = append(records, models.AttendanceRecord{
			MemberID:     line.MemberID,
			Present:      line.Present,
			ArrivalTime:  line.ArrivalTime,
			ExcuseReason: line.ExcuseReason,
			RecordedBy:   actor.UserID,
		})
	}
	if err := a.Store.UpsertAttendance(ctx, meetingID, records); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Attendance recorded", "meeting_id", meetingID, "records", len(records))
	return records, nil
}

// Stats computes the live attendance rate and quorum of a meeting.
// Nothing is stored; the completion summary captures the final figures.
func (a *Attendance) Stats(ctx context.Context, actor models.Actor, meetingID string) (*models.AttendanceStats, error) {
	m, err := a.loadMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}

	total := m.TotalMembers
	if m.StartedAt == nil {
		if total, err = a.Store.CountActiveMembers(ctx, m.GroupID); err != nil {
			return nil, err
		}
	}
	threshold, err := a.quorumThreshold(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	records, err := a.Store.ListAttendance(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	stats := &models.AttendanceStats{MeetingID: meetingID, TotalMembers: total}
	for _, rec := range records {
		if rec.Present {
			stats.MembersPresent++
		}
	}
	total = max(total, stats.MembersPresent)
	stats.TotalMembers = total
	stats.MembersAbsent = total - stats.MembersPresent
	stats.AttendanceRate = calculator.AttendanceRate(stats.MembersPresent, total)
	stats.QuorumMet = calculator.QuorumMet(stats.MembersPresent, total, threshold)
	return stats, nil
}

// Records returns the register of a meeting.
func (a *Attendance) Records(ctx context.Context, actor models.Actor, meetingID string) ([]models.AttendanceRecord, error) {
	if _, err := a.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	return a.Store.ListAttendance(ctx, meetingID)
}
