package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Group is a savings group as seen by the meeting backend.
// Membership and saving types are owned by the group directory; this
// backend only reads them.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	Name string `json:"name"`

	// QuorumPercentage overrides the default majority rule when set.
	// A configured threshold is inclusive (rate >= pct).
	QuorumPercentage decimal.NullDecimal `json:"quorum_percentage"`

	CreatedAt time.Time `json:"created_at"`
}

// Member is a person belonging to a group.
type Member struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`

	// UserID links the member to an auth account. Optional.
	UserID string `json:"user_id,omitempty"`

	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
}

// SavingType is a category of savings with its own limits.
type SavingType struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Code    string `json:"code"`

	// MinimumAmount applies to deposits. Zero means no minimum.
	MinimumAmount decimal.Decimal `json:"minimum_amount"`

	// MaximumAmount applies to deposits and withdrawals when set.
	MaximumAmount decimal.NullDecimal `json:"maximum_amount"`

	AllowsWithdrawal bool `json:"allows_withdrawal"`
	Active           bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
}
