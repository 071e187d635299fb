package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/savingsgroup/internal/models"
)

// UpsertAttendance writes a batch of attendance records in one transaction.
// A member recorded twice keeps only the latest record.
func (s *SQLiteStore) UpsertAttendance(ctx context.Context, meetingID string, records []models.AttendanceRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, meetingID); err != nil {
			return err
		}

		now := s.now()
		for i := range records {
			rec := &records[i]
			rec.MeetingID = meetingID
			rec.RecordedAt = now

			_, err := tx.ExecContext(ctx,
				`INSERT INTO attendance (meeting_id, member_id, present, arrival_time, excuse_reason, recorded_by, recorded_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (meeting_id, member_id) DO UPDATE SET
				   present = excluded.present,
				   arrival_time = excluded.arrival_time,
				   excuse_reason = excluded.excuse_reason,
				   recorded_by = excluded.recorded_by,
				   recorded_at = excluded.recorded_at`,
				meetingID, rec.MemberID, rec.Present, rec.ArrivalTime, rec.ExcuseReason,
				rec.RecordedBy, toNanos(now),
			)
			if err != nil {
				return fmt.Errorf("failed to upsert attendance for member %s: %w", rec.MemberID, err)
			}
		}
		return nil
	})
}

// ListAttendance returns a meeting's attendance records ordered by member.
func (s *SQLiteStore) ListAttendance(ctx context.Context, meetingID string) ([]models.AttendanceRecord, error) {
	return listAttendance(ctx, s.db, meetingID)
}

func listAttendance(ctx context.Context, q queryer, meetingID string) ([]models.AttendanceRecord, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT meeting_id, member_id, present, arrival_time, excuse_reason, recorded_by, recorded_at
		 FROM attendance WHERE meeting_id = ? ORDER BY member_id`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var (
			rec        models.AttendanceRecord
			recordedAt int64
		)
		if err := rows.Scan(&rec.MeetingID, &rec.MemberID, &rec.Present, &rec.ArrivalTime,
			&rec.ExcuseReason, &rec.RecordedBy, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		rec.RecordedAt = fromNanos(recordedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance: %w", err)
	}
	return records, nil
}
