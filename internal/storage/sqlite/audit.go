package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/savingsgroup/internal/models"
)

func insertAudit(ctx context.Context, q queryer, a *models.AuditEntry) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_log (id, meeting_id, entity_id, action, actor_id, old_value, new_value, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MeetingID, a.EntityID, a.Action, a.ActorID,
		nullString(string(a.OldValue)), nullString(string(a.NewValue)), a.Notes, toNanos(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit trail of a meeting in the order it was written.
// It still works after the meeting has been deleted.
func (s *SQLiteStore) ListAudit(ctx context.Context, meetingID string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meeting_id, entity_id, action, actor_id, old_value, new_value, notes, created_at
		 FROM audit_log WHERE meeting_id = ? ORDER BY created_at, rowid`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			a              models.AuditEntry
			oldVal, newVal sql.NullString
			createdAt      int64
		)
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.EntityID, &a.Action, &a.ActorID,
			&oldVal, &newVal, &a.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if oldVal.Valid {
			a.OldValue = []byte(oldVal.String)
		}
		if newVal.Valid {
			a.NewValue = []byte(newVal.String)
		}
		a.CreatedAt = fromNanos(createdAt)
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}
