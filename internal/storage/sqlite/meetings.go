package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage"
)

const meetingColumns = `id, group_id, meeting_number, scheduled_at, type, status,
	chairperson_id, secretary_id, treasurer_id, location, agenda, minutes, decisions, action_items,
	total_members, started_at, ended_at, created_at, updated_at`

func scanMeeting(row interface{ Scan(...any) error }) (*models.Meeting, error) {
	var (
		m                               models.Meeting
		scheduledAt, createdAt, updated int64
		startedAt, endedAt              sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.GroupID, &m.MeetingNumber, &scheduledAt, &m.Type, &m.Status,
		&m.ChairpersonID, &m.SecretaryID, &m.TreasurerID, &m.Location, &m.Agenda, &m.Minutes,
		&m.Decisions, &m.ActionItems, &m.TotalMembers, &startedAt, &endedAt, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	m.ScheduledAt = fromNanos(scheduledAt)
	m.StartedAt = timePtr(startedAt)
	m.EndedAt = timePtr(endedAt)
	m.CreatedAt = fromNanos(createdAt)
	m.UpdatedAt = fromNanos(updated)
	return &m, nil
}

func getMeeting(ctx context.Context, q queryer, meetingID string) (*models.Meeting, error) {
	m, err := scanMeeting(q.QueryRowContext(ctx,
		"SELECT "+meetingColumns+" FROM meetings WHERE id = ?", meetingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("meeting", meetingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// transitionError explains why a status compare-and-set matched no rows.
func transitionError(ctx context.Context, q queryer, meetingID string, to models.MeetingStatus) error {
	status, err := meetingStatus(ctx, q, meetingID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, status, to)
}

// CreateMeeting persists a SCHEDULED meeting with the next meeting number of its group.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	if meeting.Type == "" {
		meeting.Type = models.MeetingRegular
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGroup(ctx, tx, meeting.GroupID); err != nil {
			return err
		}

		var last sql.NullInt64
		err := tx.QueryRowContext(ctx,
			"SELECT MAX(meeting_number) FROM meetings WHERE group_id = ?", meeting.GroupID,
		).Scan(&last)
		if err != nil {
			return fmt.Errorf("failed to get last meeting number: %w", err)
		}

		now := s.now()
		meeting.MeetingNumber = int(last.Int64) + 1
		meeting.Status = models.MeetingScheduled
		meeting.CreatedAt = now
		meeting.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`INSERT INTO meetings (id, group_id, meeting_number, scheduled_at, type, status,
			 chairperson_id, secretary_id, treasurer_id, location, agenda, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meeting.ID, meeting.GroupID, meeting.MeetingNumber, toNanos(meeting.ScheduledAt),
			meeting.Type, meeting.Status, meeting.ChairpersonID, meeting.SecretaryID,
			meeting.TreasurerID, meeting.Location, meeting.Agenda, toNanos(now), toNanos(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert meeting: %w", err)
		}
		return nil
	})
}

// GetMeeting retrieves a meeting by ID.
func (s *SQLiteStore) GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	return getMeeting(ctx, s.db, meetingID)
}

// ListMeetings returns a group's meetings, newest first.
func (s *SQLiteStore) ListMeetings(ctx context.Context, groupID string, status models.MeetingStatus) ([]models.Meeting, error) {
	query := "SELECT " + meetingColumns + " FROM meetings WHERE group_id = ?"
	args := []any{groupID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY meeting_number DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}
	return meetings, nil
}

// StartMeeting moves a SCHEDULED meeting to IN_PROGRESS.
func (s *SQLiteStore) StartMeeting(ctx context.Context, meetingID, actorID string) (*models.Meeting, error) {
	var started *models.Meeting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		total, err := countActiveMembers(ctx, tx, m.GroupID)
		if err != nil {
			return err
		}

		now := s.now()
		result, err := tx.ExecContext(ctx,
			`UPDATE meetings SET status = ?, started_at = ?, total_members = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			models.MeetingInProgress, toNanos(now), total, toNanos(now),
			meetingID, models.MeetingScheduled,
		)
		if err != nil {
			return fmt.Errorf("failed to start meeting: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return transitionError(ctx, tx, meetingID, models.MeetingInProgress)
		}

		m.Status = models.MeetingInProgress
		m.StartedAt = &now
		m.TotalMembers = total
		m.UpdatedAt = now
		started = m

		return insertAudit(ctx, tx, &models.AuditEntry{
			MeetingID: meetingID,
			EntityID:  meetingID,
			Action:    models.AuditStart,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// CompleteMeeting moves an IN_PROGRESS meeting to COMPLETED and stores summary
// version 1 in the same transaction.
func (s *SQLiteStore) CompleteMeeting(ctx context.Context, meetingID, actorID string, summarize storage.SummarizeFunc) (*models.Meeting, *models.MeetingSummary, error) {
	var (
		completed *models.Meeting
		summary   *models.MeetingSummary
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		if m.Status != models.MeetingInProgress {
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, m.Status, models.MeetingCompleted)
		}

		entries, err := listEntries(ctx, tx, meetingID, models.EntryFilter{})
		if err != nil {
			return err
		}

		// ended_at stays after every entry's created_at.
		now := s.now()
		for _, e := range entries {
			if !now.After(e.CreatedAt) {
				now = e.CreatedAt.Add(time.Nanosecond)
			}
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE meetings SET status = ?, ended_at = ?, updated_at = ? WHERE id = ? AND status = ?",
			models.MeetingCompleted, toNanos(now), toNanos(now), meetingID, models.MeetingInProgress,
		)
		if err != nil {
			return fmt.Errorf("failed to complete meeting: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return transitionError(ctx, tx, meetingID, models.MeetingCompleted)
		}
		m.Status = models.MeetingCompleted
		m.EndedAt = &now
		m.UpdatedAt = now

		snap, err := loadSnapshot(ctx, tx, m, entries)
		if err != nil {
			return err
		}
		sum := summarize(snap)
		sum.MeetingID = meetingID
		sum.Version = 1
		sum.State = models.SummaryCurrent
		sum.GeneratedAt = now
		sum.GeneratedBy = actorID
		if err := insertSummary(ctx, tx, &sum); err != nil {
			return err
		}

		completed = m
		summary = &sum

		return insertAudit(ctx, tx, &models.AuditEntry{
			MeetingID: meetingID,
			EntityID:  meetingID,
			Action:    models.AuditComplete,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return completed, summary, nil
}

// CancelMeeting moves a SCHEDULED or IN_PROGRESS meeting to CANCELLED.
func (s *SQLiteStore) CancelMeeting(ctx context.Context, meetingID, actorID string) (*models.Meeting, error) {
	var cancelled *models.Meeting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		result, err := tx.ExecContext(ctx,
			`UPDATE meetings SET status = ?, ended_at = ?, updated_at = ?
			 WHERE id = ? AND status IN (?, ?)`,
			models.MeetingCancelled, toNanos(now), toNanos(now),
			meetingID, models.MeetingScheduled, models.MeetingInProgress,
		)
		if err != nil {
			return fmt.Errorf("failed to cancel meeting: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return transitionError(ctx, tx, meetingID, models.MeetingCancelled)
		}

		cancelled, err = getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}

		return insertAudit(ctx, tx, &models.AuditEntry{
			MeetingID: meetingID,
			EntityID:  meetingID,
			Action:    models.AuditCancel,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// UpdateNarrative edits the free-text fields of a meeting that is not cancelled.
func (s *SQLiteStore) UpdateNarrative(ctx context.Context, meetingID string, narrative models.Narrative) (*models.Meeting, error) {
	var updated *models.Meeting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		if m.Status == models.MeetingCancelled {
			return fmt.Errorf("%w: meeting %s is cancelled", models.ErrInvalidInput, meetingID)
		}

		narrative.Apply(m)
		m.UpdatedAt = s.now()

		_, err = tx.ExecContext(ctx,
			`UPDATE meetings SET agenda = ?, minutes = ?, decisions = ?, action_items = ?, updated_at = ?
			 WHERE id = ?`,
			m.Agenda, m.Minutes, m.Decisions, m.ActionItems, toNanos(m.UpdatedAt), meetingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update meeting narrative: %w", err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMeetingCascade removes a meeting with its attendance, ledger entries,
// documents and summaries, and takes its savings back out of member balances.
// The audit entry is kept.
func (s *SQLiteStore) DeleteMeetingCascade(ctx context.Context, meetingID string, audit *models.AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}

		now := s.now()
		entries, err := listEntries(ctx, tx, meetingID, models.EntryFilter{})
		if err != nil {
			return err
		}
		for i := range entries {
			if err := applySavings(ctx, tx, &entries[i], true, now); err != nil {
				return err
			}
		}

		deletes := []struct {
			what  string
			query string
		}{
			{"entry documents", "DELETE FROM entry_documents WHERE entry_id IN (SELECT id FROM ledger_entries WHERE meeting_id = ?)"},
			{"attendance", "DELETE FROM attendance WHERE meeting_id = ?"},
			{"session rows", "DELETE FROM ledger_entries WHERE meeting_id = ? AND parent_id IS NOT NULL"},
			{"ledger entries", "DELETE FROM ledger_entries WHERE meeting_id = ?"},
			{"summaries", "DELETE FROM meeting_summaries WHERE meeting_id = ?"},
			{"meeting", "DELETE FROM meetings WHERE id = ?"},
		}
		for _, d := range deletes {
			if _, err := tx.ExecContext(ctx, d.query, meetingID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", d.what, err)
			}
		}

		old, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode meeting: %w", err)
		}
		audit.MeetingID = meetingID
		audit.EntityID = meetingID
		audit.Action = models.AuditDeleteMeeting
		audit.OldValue = old
		audit.CreatedAt = now
		return insertAudit(ctx, tx, audit)
	})
}
