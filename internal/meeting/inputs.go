package meeting

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
)

// SavingsInput records a deposit, or a withdrawal when Withdrawal is set.
type SavingsInput struct {
	MemberID     string          `json:"member_id"`
	SavingTypeID string          `json:"saving_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	Withdrawal   bool            `json:"withdrawal,omitempty"`
	Description  string          `json:"description,omitempty"`
	DocumentIDs  []string        `json:"document_ids,omitempty"`
}

// FineInput records a fine. PaidAmount is the part settled on the spot.
type FineInput struct {
	MemberID    string          `json:"member_id"`
	FineType    string          `json:"fine_type"`
	Reason      string          `json:"reason,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	DocumentIDs []string        `json:"document_ids,omitempty"`
}

// LoanRepaymentInput records a repayment; the entry amount is principal plus interest.
type LoanRepaymentInput struct {
	MemberID      string          `json:"member_id"`
	LoanID        string          `json:"loan_id"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
	DocumentIDs   []string        `json:"document_ids,omitempty"`
}

// LoanDisbursementInput records money lent out of the group fund.
type LoanDisbursementInput struct {
	MemberID    string          `json:"member_id"`
	LoanID      string          `json:"loan_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	DocumentIDs []string        `json:"document_ids,omitempty"`
}

// TrainingInput opens a training session.
type TrainingInput struct {
	Topic           string `json:"topic"`
	Description     string `json:"description,omitempty"`
	TrainerName     string `json:"trainer_name,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// TrainingAttendanceInput marks one member's attendance of a training session.
type TrainingAttendanceInput struct {
	MemberID string `json:"member_id"`
	Attended bool   `json:"attended"`
}

// VotingInput opens a voting session.
type VotingInput struct {
	Topic       string          `json:"topic"`
	Description string          `json:"description,omitempty"`
	VoteType    models.VoteType `json:"vote_type"`
}

// VoteInput is one member's vote.
type VoteInput struct {
	MemberID string            `json:"member_id"`
	Choice   models.VoteChoice `json:"choice"`
}

// AttendanceInput is one line of the attendance register.
type AttendanceInput struct {
	MemberID     string `json:"member_id"`
	Present      bool   `json:"present"`
	ArrivalTime  string `json:"arrival_time,omitempty"`
	ExcuseReason string `json:"excuse_reason,omitempty"`
}

// RemotePaymentInput is a member's own mobile-money savings deposit.
type RemotePaymentInput struct {
	SavingTypeID string          `json:"saving_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reference    string          `json:"reference"`
	Phone        string          `json:"phone"`
	Description  string          `json:"description,omitempty"`
	DocumentIDs  []string        `json:"document_ids,omitempty"`
}

// EntryPatch corrects a verified monetary entry or a training or voting
// session header. Nil fields are left unchanged.
type EntryPatch struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	PaidAmount   *decimal.Decimal `json:"paid_amount,omitempty"`
	Principal    *decimal.Decimal `json:"principal,omitempty"`
	Interest     *decimal.Decimal `json:"interest,omitempty"`
	SavingTypeID *string          `json:"saving_type_id,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Reason       *string          `json:"reason,omitempty"`

	// Session header fields.
	Topic           *string          `json:"topic,omitempty"`
	TrainerName     *string          `json:"trainer_name,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	VoteType        *models.VoteType `json:"vote_type,omitempty"`

	// Notes explain the correction in the audit trail.
	Notes string `json:"notes,omitempty"`
}

func (p EntryPatch) empty() bool {
	return p.Amount == nil && p.PaidAmount == nil && p.Principal == nil && p.Interest == nil &&
		p.SavingTypeID == nil && p.Description == nil && p.Reason == nil &&
		p.Topic == nil && p.TrainerName == nil && p.DurationMinutes == nil && p.VoteType == nil
}

func (p EntryPatch) touchesMoney() bool {
	return p.Amount != nil || p.PaidAmount != nil || p.Principal != nil || p.Interest != nil || p.SavingTypeID != nil
}

func (p EntryPatch) touchesSession() bool {
	return p.Topic != nil || p.TrainerName != nil || p.DurationMinutes != nil || p.VoteType != nil
}

// AppendResult is a recorded entry plus warnings from the document phase.
type AppendResult struct {
	Entry    *models.LedgerEntry `json:"entry"`
	Warnings []string            `json:"warnings,omitempty"`
}

// VoteOutcome is the state of a voting session after votes were cast.
type VoteOutcome struct {
	Votes []models.LedgerEntry `json:"votes"`
	Tally models.VoteTally     `json:"tally"`
}
