package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/savingsgroup/internal/models"
)

// entryDetails is the JSON shape of the details column.
type entryDetails struct {
	Savings  *models.SavingsDetail  `json:"savings,omitempty"`
	Fine     *models.FineDetail     `json:"fine,omitempty"`
	Loan     *models.LoanDetail     `json:"loan,omitempty"`
	Training *models.TrainingDetail `json:"training,omitempty"`
	Vote     *models.VoteDetail     `json:"vote,omitempty"`
}

func encodeDetails(e *models.LedgerEntry) (string, error) {
	b, err := json.Marshal(entryDetails{
		Savings:  e.Savings,
		Fine:     e.Fine,
		Loan:     e.Loan,
		Training: e.Training,
		Vote:     e.Vote,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode entry details: %w", err)
	}
	return string(b), nil
}

const entryColumns = `id, meeting_id, member_id, parent_id, kind, amount, status, source,
	reference, phone, resolved_by, resolved_at, resolution_notes, details, created_by, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (*models.LedgerEntry, error) {
	var (
		e                           models.LedgerEntry
		memberID, parentID          sql.NullString
		reference, phone            sql.NullString
		resolvedBy, resolutionNotes sql.NullString
		resolvedAt                  sql.NullInt64
		details                     string
		createdAt, updatedAt        int64
	)
	err := row.Scan(&e.ID, &e.MeetingID, &memberID, &parentID, &e.Kind, &e.Amount, &e.Status, &e.Source,
		&reference, &phone, &resolvedBy, &resolvedAt, &resolutionNotes, &details, &e.CreatedBy,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var d entryDetails
	if err := json.Unmarshal([]byte(details), &d); err != nil {
		return nil, fmt.Errorf("failed to decode entry details: %w", err)
	}
	e.Savings, e.Fine, e.Loan, e.Training, e.Vote = d.Savings, d.Fine, d.Loan, d.Training, d.Vote

	e.MemberID = memberID.String
	e.ParentID = parentID.String
	if e.Source == models.SourceRemote {
		e.Remote = &models.RemoteDetail{
			Reference:       reference.String,
			Phone:           phone.String,
			ResolvedBy:      resolvedBy.String,
			ResolvedAt:      timePtr(resolvedAt),
			ResolutionNotes: resolutionNotes.String,
		}
	}
	e.CreatedAt = fromNanos(createdAt)
	e.UpdatedAt = fromNanos(updatedAt)
	return &e, nil
}

// AppendEntry stores a new ledger entry while its meeting is open.
func (s *SQLiteStore) AppendEntry(ctx context.Context, entry *models.LedgerEntry, open ...models.MeetingStatus) error {
	return s.AppendEntries(ctx, []*models.LedgerEntry{entry}, open...)
}

// AppendEntries stores entries of a single meeting in one transaction.
// Either every entry is written or none is.
func (s *SQLiteStore) AppendEntries(ctx context.Context, entries []*models.LedgerEntry, open ...models.MeetingStatus) error {
	if len(entries) == 0 {
		return nil
	}
	meetingID := entries[0].MeetingID
	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.Status == "" {
			entry.Status = models.StatusVerified
		}
		if entry.Source == "" {
			entry.Source = models.SourceInPerson
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if entry.MeetingID != meetingID {
			return fmt.Errorf("%w: entries span more than one meeting", models.ErrInvalidInput)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, meetingID, open...); err != nil {
			return err
		}
		now := s.now()
		for _, entry := range entries {
			if err := insertEntry(ctx, tx, entry, now); err != nil {
				return err
			}
			if err := applySavings(ctx, tx, entry, false, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry *models.LedgerEntry, now time.Time) error {
	details, err := encodeDetails(entry)
	if err != nil {
		return err
	}

	var reference, phone sql.NullString
	if entry.Remote != nil {
		reference = nullString(entry.Remote.Reference)
		phone = nullString(entry.Remote.Phone)
	}

	if entry.ParentID != "" {
		parent, err := getEntry(ctx, tx, entry.ParentID)
		if err != nil {
			return err
		}
		if parent.MeetingID != entry.MeetingID || parent.Kind != entry.Kind || !parent.IsHeader() {
			return fmt.Errorf("%w: %s is not a %s session of meeting %s",
				models.ErrInvalidInput, entry.ParentID, entry.Kind, entry.MeetingID)
		}
	}

	if reference.Valid {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM ledger_entries WHERE meeting_id = ? AND reference = ?",
			entry.MeetingID, reference.String,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check payment reference: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", models.ErrDuplicateReference, reference.String)
		}
	}

	entry.CreatedAt = now
	entry.UpdatedAt = now

	if entry.ParentID != "" {
		// One row per member and session; re-recording replaces the details.
		var (
			id        string
			createdAt int64
		)
		err := tx.QueryRowContext(ctx,
			`INSERT INTO ledger_entries (id, meeting_id, member_id, parent_id, kind, amount, status, source,
			 details, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (parent_id, member_id) DO UPDATE SET
			   details = excluded.details,
			   created_by = excluded.created_by,
			   updated_at = excluded.updated_at
			 RETURNING id, created_at`,
			entry.ID, entry.MeetingID, nullString(entry.MemberID), entry.ParentID, entry.Kind,
			entry.Amount, entry.Status, entry.Source, details, entry.CreatedBy, toNanos(now), toNanos(now),
		).Scan(&id, &createdAt)
		if err != nil {
			return fmt.Errorf("failed to upsert session row: %w", err)
		}
		entry.ID = id
		entry.CreatedAt = fromNanos(createdAt)
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, meeting_id, member_id, parent_id, kind, amount, status, source,
		 reference, phone, details, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.MeetingID, nullString(entry.MemberID), entry.Kind, entry.Amount,
		entry.Status, entry.Source, reference, phone, details, entry.CreatedBy, toNanos(now), toNanos(now),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", models.ErrDuplicateReference, reference.String)
	}
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

func getEntry(ctx context.Context, q queryer, entryID string) (*models.LedgerEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE id = ?", entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("ledger entry", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	docs, err := entryDocuments(ctx, q, "entry_id = ?", entryID)
	if err != nil {
		return nil, err
	}
	e.DocumentIDs = docs[e.ID]
	return e, nil
}

// GetEntry retrieves a ledger entry by ID, including its document references.
func (s *SQLiteStore) GetEntry(ctx context.Context, entryID string) (*models.LedgerEntry, error) {
	return getEntry(ctx, s.db, entryID)
}

// ListEntries returns a meeting's entries in creation order.
// A single statement is a consistent snapshot of the ledger.
func (s *SQLiteStore) ListEntries(ctx context.Context, meetingID string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	return listEntries(ctx, s.db, meetingID, filter)
}

func listEntries(ctx context.Context, q queryer, meetingID string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	var (
		conds = []string{"meeting_id = ?"}
		args  = []any{meetingID}
	)
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.ParentID != "" {
		conds = append(conds, "parent_id = ?")
		args = append(args, filter.ParentID)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE "+strings.Join(conds, " AND ")+
			" ORDER BY created_at, rowid",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	rows.Close()

	docs, err := entryDocuments(ctx, q,
		"entry_id IN (SELECT id FROM ledger_entries WHERE meeting_id = ?)", meetingID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].DocumentIDs = docs[entries[i].ID]
	}
	return entries, nil
}

// entryDocuments loads document references keyed by entry ID.
func entryDocuments(ctx context.Context, q queryer, where string, args ...any) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT entry_id, document_id FROM entry_documents WHERE "+where+" ORDER BY attached_at, document_id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[string][]string)
	for rows.Next() {
		var entryID, docID string
		if err := rows.Scan(&entryID, &docID); err != nil {
			return nil, fmt.Errorf("failed to scan entry document: %w", err)
		}
		docs[entryID] = append(docs[entryID], docID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry documents: %w", err)
	}
	return docs, nil
}

// ResolveRemote moves a PENDING remote entry to VERIFIED or REJECTED exactly once.
func (s *SQLiteStore) ResolveRemote(ctx context.Context, entryID string, status models.VerificationStatus, actorID, notes string) (*models.LedgerEntry, error) {
	var resolved *models.LedgerEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := getEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if e.Source != models.SourceRemote {
			return fmt.Errorf("%w: entry %s is not a remote payment", models.ErrInvalidInput, entryID)
		}
		if e.Status != models.StatusPending {
			return fmt.Errorf("%w: entry %s is %s", models.ErrAlreadyResolved, entryID, e.Status)
		}
		if err := requireOpen(ctx, tx, e.MeetingID); err != nil {
			return err
		}

		now := s.now()
		result, err := tx.ExecContext(ctx,
			`UPDATE ledger_entries SET status = ?, resolved_by = ?, resolved_at = ?, resolution_notes = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			status, actorID, toNanos(now), notes, toNanos(now), entryID, models.StatusPending,
		)
		if err != nil {
			return fmt.Errorf("failed to resolve remote payment: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: entry %s", models.ErrAlreadyResolved, entryID)
		}

		action := models.AuditVerify
		if status == models.StatusRejected {
			action = models.AuditReject
		}
		oldValue, _ := json.Marshal(map[string]models.VerificationStatus{"status": e.Status})
		newValue, _ := json.Marshal(map[string]models.VerificationStatus{"status": status})
		if err := insertAudit(ctx, tx, &models.AuditEntry{
			MeetingID: e.MeetingID,
			EntityID:  entryID,
			Action:    action,
			ActorID:   actorID,
			OldValue:  oldValue,
			NewValue:  newValue,
			Notes:     notes,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		e.Status = status
		if err := applySavings(ctx, tx, e, false, now); err != nil {
			return err
		}
		e.Remote.ResolvedBy = actorID
		e.Remote.ResolvedAt = &now
		e.Remote.ResolutionNotes = notes
		e.UpdatedAt = now
		resolved = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// AmendEntry replaces the amount and details of a VERIFIED entry.
// The previous and new values go to the audit log, the member's savings
// balance takes the difference and the meeting's current summary, if any,
// becomes STALE.
func (s *SQLiteStore) AmendEntry(ctx context.Context, entry *models.LedgerEntry, audit *models.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	details, err := encodeDetails(entry)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getEntry(ctx, tx, entry.ID)
		if err != nil {
			return err
		}
		if current.Status != models.StatusVerified {
			return fmt.Errorf("%w: only verified entries can be amended, entry %s is %s",
				models.ErrInvalidInput, entry.ID, current.Status)
		}
		if err := requireOpen(ctx, tx, current.MeetingID, models.MeetingInProgress, models.MeetingCompleted); err != nil {
			return err
		}

		now := s.now()
		result, err := tx.ExecContext(ctx,
			"UPDATE ledger_entries SET amount = ?, details = ?, updated_at = ? WHERE id = ? AND status = ?",
			entry.Amount, details, toNanos(now), entry.ID, models.StatusVerified,
		)
		if err != nil {
			return fmt.Errorf("failed to amend ledger entry: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return notFound("ledger entry", entry.ID)
		}

		entry.UpdatedAt = now
		if err := applySavings(ctx, tx, current, true, now); err != nil {
			return err
		}
		entry.Status = current.Status
		if err := applySavings(ctx, tx, entry, false, now); err != nil {
			return err
		}

		oldValue, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		newValue, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
		audit.MeetingID = current.MeetingID
		audit.EntityID = entry.ID
		audit.Action = models.AuditAmend
		audit.OldValue = oldValue
		audit.NewValue = newValue
		audit.CreatedAt = now
		if err := insertAudit(ctx, tx, audit); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE meeting_summaries SET state = ? WHERE meeting_id = ? AND state = ?",
			models.SummaryStale, current.MeetingID, models.SummaryCurrent,
		); err != nil {
			return fmt.Errorf("failed to mark summary stale: %w", err)
		}
		return nil
	})
}

// AttachDocuments links proof documents to an existing entry.
// Attaching a document twice is a no-op.
func (s *SQLiteStore) AttachDocuments(ctx context.Context, entryID string, documentIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM ledger_entries WHERE id = ?", entryID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check ledger entry: %w", err)
		}
		if exists == 0 {
			return notFound("ledger entry", entryID)
		}

		now := s.now()
		for _, docID := range documentIDs {
			if strings.TrimSpace(docID) == "" {
				return fmt.Errorf("%w: empty document id", models.ErrInvalidInput)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO entry_documents (entry_id, document_id, attached_at) VALUES (?, ?, ?)",
				entryID, docID, toNanos(now),
			); err != nil {
				return fmt.Errorf("failed to attach document: %w", err)
			}
		}
		return nil
	})
}
