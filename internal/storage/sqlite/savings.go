package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
)

// applySavings moves a member's balance by a VERIFIED savings entry.
// With reverse set the entry's effect is undone. Other entries are ignored.
func applySavings(ctx context.Context, tx *sql.Tx, e *models.LedgerEntry, reverse bool, now time.Time) error {
	if e.Status != models.StatusVerified || e.Savings == nil {
		return nil
	}
	if e.Kind != models.KindSavingsDeposit && e.Kind != models.KindSavingsWithdrawal {
		return nil
	}

	amount := e.Amount
	if reverse {
		amount = amount.Neg()
	}

	var groupID string
	if err := tx.QueryRowContext(ctx, "SELECT group_id FROM meetings WHERE id = ?", e.MeetingID).Scan(&groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("meeting", e.MeetingID)
		}
		return fmt.Errorf("failed to get meeting group: %w", err)
	}

	ms := models.MemberSaving{
		CurrentBalance:   decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
	err := tx.QueryRowContext(ctx,
		`SELECT current_balance, total_deposits, total_withdrawals FROM member_savings
		 WHERE member_id = ? AND saving_type_id = ?`,
		e.MemberID, e.Savings.SavingTypeID,
	).Scan(&ms.CurrentBalance, &ms.TotalDeposits, &ms.TotalWithdrawals)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get member saving: %w", err)
	}

	if e.Kind == models.KindSavingsDeposit {
		ms.CurrentBalance = ms.CurrentBalance.Add(amount)
		ms.TotalDeposits = ms.TotalDeposits.Add(amount)
	} else {
		ms.CurrentBalance = ms.CurrentBalance.Sub(amount)
		ms.TotalWithdrawals = ms.TotalWithdrawals.Add(amount)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO member_savings (member_id, saving_type_id, group_id, current_balance,
		 total_deposits, total_withdrawals, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (member_id, saving_type_id) DO UPDATE SET
		   current_balance = excluded.current_balance,
		   total_deposits = excluded.total_deposits,
		   total_withdrawals = excluded.total_withdrawals,
		   updated_at = excluded.updated_at`,
		e.MemberID, e.Savings.SavingTypeID, groupID, ms.CurrentBalance,
		ms.TotalDeposits, ms.TotalWithdrawals, toNanos(now),
	)
	if err != nil {
		return fmt.Errorf("failed to update member saving: %w", err)
	}
	return nil
}

// ListMemberSavings returns the savings balances of a group, or of one
// member when memberID is set.
func (s *SQLiteStore) ListMemberSavings(ctx context.Context, groupID, memberID string) ([]models.MemberSaving, error) {
	var (
		conds = []string{"group_id = ?"}
		args  = []any{groupID}
	)
	if memberID != "" {
		conds = append(conds, "member_id = ?")
		args = append(args, memberID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, saving_type_id, group_id, current_balance, total_deposits, total_withdrawals, updated_at
		 FROM member_savings WHERE `+strings.Join(conds, " AND ")+` ORDER BY member_id, saving_type_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list member savings: %w", err)
	}
	defer rows.Close()

	var savings []models.MemberSaving
	for rows.Next() {
		var (
			ms        models.MemberSaving
			updatedAt int64
		)
		if err := rows.Scan(&ms.MemberID, &ms.SavingTypeID, &ms.GroupID, &ms.CurrentBalance,
			&ms.TotalDeposits, &ms.TotalWithdrawals, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member saving: %w", err)
		}
		ms.UpdatedAt = fromNanos(updatedAt)
		savings = append(savings, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member savings: %w", err)
	}
	return savings, nil
}
