package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemberSaving is a member's running balance in one saving type.
// Only VERIFIED deposits and withdrawals move it.
type MemberSaving struct {
	MemberID         string          `json:"member_id"`
	SavingTypeID     string          `json:"saving_type_id"`
	GroupID          string          `json:"group_id"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
