package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage"
)

// loadSnapshot gathers what the aggregator reads. entries may be passed in
// when the caller has already loaded them inside the same transaction.
func loadSnapshot(ctx context.Context, q queryer, m *models.Meeting, entries []models.LedgerEntry) (models.MeetingSnapshot, error) {
	var err error
	if entries == nil {
		entries, err = listEntries(ctx, q, m.ID, models.EntryFilter{})
		if err != nil {
			return models.MeetingSnapshot{}, err
		}
	}
	attendance, err := listAttendance(ctx, q, m.ID)
	if err != nil {
		return models.MeetingSnapshot{}, err
	}
	group, err := getGroup(ctx, q, m.GroupID)
	if err != nil {
		return models.MeetingSnapshot{}, err
	}

	return models.MeetingSnapshot{
		Meeting:          *m,
		Entries:          entries,
		Attendance:       attendance,
		QuorumPercentage: group.QuorumPercentage,
	}, nil
}

func insertSummary(ctx context.Context, q queryer, sum *models.MeetingSummary) error {
	metrics, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO meeting_summaries (meeting_id, version, state, metrics, generated_by, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.MeetingID, sum.Version, sum.State, string(metrics), sum.GeneratedBy, toNanos(sum.GeneratedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// scanSummary decodes the metrics blob; the row's state wins over the blob
// because staleness is flagged in place.
func scanSummary(row interface{ Scan(...any) error }) (*models.MeetingSummary, error) {
	var (
		sum     models.MeetingSummary
		state   models.SummaryState
		metrics string
	)
	if err := row.Scan(&state, &metrics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metrics), &sum); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	sum.State = state
	return &sum, nil
}

// GetSummary returns the latest summary version of a meeting.
func (s *SQLiteStore) GetSummary(ctx context.Context, meetingID string) (*models.MeetingSummary, error) {
	sum, err := scanSummary(s.db.QueryRowContext(ctx,
		"SELECT state, metrics FROM meeting_summaries WHERE meeting_id = ? ORDER BY version DESC LIMIT 1",
		meetingID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("summary for meeting", meetingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return sum, nil
}

// ListSummaryVersions returns every summary version of a meeting, oldest first.
func (s *SQLiteStore) ListSummaryVersions(ctx context.Context, meetingID string) ([]models.MeetingSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT state, metrics FROM meeting_summaries WHERE meeting_id = ? ORDER BY version",
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.MeetingSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return summaries, nil
}

// RegenerateSummary recomputes a completed meeting's summary as a new CURRENT version.
func (s *SQLiteStore) RegenerateSummary(ctx context.Context, meetingID, actorID string, summarize storage.SummarizeFunc) (*models.MeetingSummary, error) {
	var regenerated *models.MeetingSummary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMeeting(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		if m.Status != models.MeetingCompleted {
			return fmt.Errorf("%w: meeting %s is %s", models.ErrInvalidTransition, meetingID, m.Status)
		}

		var version int
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(version), 0) FROM meeting_summaries WHERE meeting_id = ?", meetingID,
		).Scan(&version); err != nil {
			return fmt.Errorf("failed to get summary version: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE meeting_summaries SET state = ? WHERE meeting_id = ?",
			models.SummaryStale, meetingID,
		); err != nil {
			return fmt.Errorf("failed to mark summaries stale: %w", err)
		}

		snap, err := loadSnapshot(ctx, tx, m, nil)
		if err != nil {
			return err
		}
		now := s.now()
		sum := summarize(snap)
		sum.MeetingID = meetingID
		sum.Version = version + 1
		sum.State = models.SummaryCurrent
		sum.GeneratedAt = now
		sum.GeneratedBy = actorID
		if err := insertSummary(ctx, tx, &sum); err != nil {
			return err
		}

		newValue, err := json.Marshal(map[string]int{"version": sum.Version})
		if err != nil {
			return fmt.Errorf("failed to encode summary version: %w", err)
		}
		regenerated = &sum
		return insertAudit(ctx, tx, &models.AuditEntry{
			MeetingID: meetingID,
			EntityID:  meetingID,
			Action:    models.AuditRegenerateSummary,
			ActorID:   actorID,
			NewValue:  newValue,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return regenerated, nil
}

// ListGroupSummaries returns the latest summary of each completed meeting in a group,
// ordered by meeting number.
func (s *SQLiteStore) ListGroupSummaries(ctx context.Context, groupID string) ([]models.MeetingSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ms.state, ms.metrics
		 FROM meeting_summaries ms
		 JOIN meetings m ON m.id = ms.meeting_id
		 WHERE m.group_id = ? AND m.status = ?
		   AND ms.version = (SELECT MAX(version) FROM meeting_summaries WHERE meeting_id = ms.meeting_id)
		 ORDER BY m.meeting_number`,
		groupID, models.MeetingCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.MeetingSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group summaries: %w", err)
	}
	return summaries, nil
}
