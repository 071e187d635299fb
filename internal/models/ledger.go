package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind tags the variant of a LedgerEntry.
type EntryKind string

const (
	KindSavingsDeposit    EntryKind = "SAVINGS_DEPOSIT"
	KindSavingsWithdrawal EntryKind = "SAVINGS_WITHDRAWAL"
	KindFine              EntryKind = "FINE"
	KindLoanRepayment     EntryKind = "LOAN_REPAYMENT"
	KindLoanDisbursement  EntryKind = "LOAN_DISBURSEMENT"
	KindTraining          EntryKind = "TRAINING"
	KindVote              EntryKind = "VOTE"
)

// Valid reports whether k is a known kind.
func (k EntryKind) Valid() bool {
	switch k {
	case KindSavingsDeposit, KindSavingsWithdrawal, KindFine, KindLoanRepayment,
		KindLoanDisbursement, KindTraining, KindVote:
		return true
	}
	return false
}

// Monetary reports whether entries of this kind carry an amount.
func (k EntryKind) Monetary() bool {
	return k != KindTraining && k != KindVote
}

// VerificationStatus tracks whether an entry has financial effect.
// Only VERIFIED entries count toward totals.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "VERIFIED"
	StatusPending  VerificationStatus = "PENDING"
	StatusRejected VerificationStatus = "REJECTED"
)

// EntrySource records how an entry was captured.
type EntrySource string

const (
	SourceInPerson EntrySource = "IN_PERSON"
	SourceRemote   EntrySource = "REMOTE"
)

// VoteType selects how a voting session's result is decided.
type VoteType string

const (
	VoteSimpleMajority    VoteType = "SIMPLE_MAJORITY"
	VoteTwoThirdsMajority VoteType = "TWO_THIRDS_MAJORITY"
)

// Valid reports whether t is a known vote type.
func (t VoteType) Valid() bool {
	return t == VoteSimpleMajority || t == VoteTwoThirdsMajority
}

// VoteChoice is a member's vote.
type VoteChoice string

const (
	ChoiceYes     VoteChoice = "YES"
	ChoiceNo      VoteChoice = "NO"
	ChoiceAbstain VoteChoice = "ABSTAIN"
	ChoiceAbsent  VoteChoice = "ABSENT"
)

// Valid reports whether c is a known choice.
func (c VoteChoice) Valid() bool {
	switch c {
	case ChoiceYes, ChoiceNo, ChoiceAbstain, ChoiceAbsent:
		return true
	}
	return false
}

// SavingsDetail is the payload of deposits and withdrawals.
type SavingsDetail struct {
	SavingTypeID string `json:"saving_type_id"`
	Description  string `json:"description,omitempty"`
}

// FineDetail is the payload of a fine. The entry amount is the fine issued.
type FineDetail struct {
	FineType   string          `json:"fine_type"`
	Reason     string          `json:"reason,omitempty"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// Outstanding returns the unpaid part of a fine of the given amount.
func (f FineDetail) Outstanding(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(f.PaidAmount)
}

// LoanDetail is the payload of loan repayments and disbursements.
// For repayments the entry amount equals Principal + Interest.
type LoanDetail struct {
	LoanID        string          `json:"loan_id"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
}

// TrainingDetail describes a training session header, or a member's attendance row.
type TrainingDetail struct {
	Topic           string `json:"topic,omitempty"`
	Description     string `json:"description,omitempty"`
	TrainerName     string `json:"trainer_name,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Attended        bool   `json:"attended"`
}

// VoteDetail describes a voting session header, or a member's vote row.
type VoteDetail struct {
	Topic       string     `json:"topic,omitempty"`
	Description string     `json:"description,omitempty"`
	VoteType    VoteType   `json:"vote_type,omitempty"`
	Choice      VoteChoice `json:"choice,omitempty"`
}

// RemoteDetail carries the mobile-money side of a remote submission.
type RemoteDetail struct {
	Reference       string     `json:"reference"`
	Phone           string     `json:"phone"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// LedgerEntry is one recorded activity within a meeting.
// Exactly one of the kind-specific detail fields is set, matching Kind.
// Remote is additionally set for entries with Source REMOTE.
type LedgerEntry struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id"`

	// MemberID is empty for training and voting session headers.
	MemberID string `json:"member_id,omitempty"`

	// ParentID links attendance and vote rows to their session header.
	ParentID string `json:"parent_id,omitempty"`

	Kind   EntryKind          `json:"kind"`
	Amount decimal.Decimal    `json:"amount"`
	Status VerificationStatus `json:"status"`
	Source EntrySource        `json:"source"`

	Savings  *SavingsDetail  `json:"savings,omitempty"`
	Fine     *FineDetail     `json:"fine,omitempty"`
	Loan     *LoanDetail     `json:"loan,omitempty"`
	Training *TrainingDetail `json:"training,omitempty"`
	Vote     *VoteDetail     `json:"vote,omitempty"`
	Remote   *RemoteDetail   `json:"remote,omitempty"`

	// DocumentIDs are proof documents owned by the document subsystem.
	DocumentIDs []string `json:"document_ids,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsHeader reports whether e is a training or voting session header.
func (e *LedgerEntry) IsHeader() bool {
	return (e.Kind == KindTraining || e.Kind == KindVote) && e.ParentID == ""
}

// Counts reports whether e has financial effect.
func (e *LedgerEntry) Counts() bool {
	return e.Status == StatusVerified
}

// Validate checks that the detail block matches Kind and that amounts are positive.
func (e *LedgerEntry) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown entry kind %q", ErrInvalidInput, e.Kind)
	}
	if e.MeetingID == "" {
		return fmt.Errorf("%w: meeting_id is required", ErrInvalidInput)
	}
	if e.Kind.Monetary() {
		if e.MemberID == "" {
			return fmt.Errorf("%w: member_id is required", ErrInvalidInput)
		}
		if !e.Amount.IsPositive() {
			return fmt.Errorf("%w: got %s", ErrInvalidAmount, e.Amount.String())
		}
	}

	switch e.Kind {
	case KindSavingsDeposit, KindSavingsWithdrawal:
		if e.Savings == nil || e.Savings.SavingTypeID == "" {
			return fmt.Errorf("%w: saving_type_id is required", ErrInvalidInput)
		}
	case KindFine:
		if e.Fine == nil || e.Fine.FineType == "" {
			return fmt.Errorf("%w: fine_type is required", ErrInvalidInput)
		}
		if e.Fine.PaidAmount.IsNegative() || e.Fine.PaidAmount.GreaterThan(e.Amount) {
			return fmt.Errorf("%w: paid amount %s outside [0, %s]", ErrInvalidAmount, e.Fine.PaidAmount, e.Amount)
		}
	case KindLoanRepayment:
		if e.Loan == nil || e.Loan.LoanID == "" {
			return fmt.Errorf("%w: loan_id is required", ErrInvalidInput)
		}
		if e.Loan.Principal.IsNegative() || e.Loan.Interest.IsNegative() {
			return fmt.Errorf("%w: principal and interest must not be negative", ErrInvalidAmount)
		}
		if !e.Amount.Equal(e.Loan.Principal.Add(e.Loan.Interest)) {
			return fmt.Errorf("%w: amount must equal principal plus interest", ErrInvalidAmount)
		}
	case KindLoanDisbursement:
		if e.Loan == nil || e.Loan.LoanID == "" {
			return fmt.Errorf("%w: loan_id is required", ErrInvalidInput)
		}
	case KindTraining:
		if e.Training == nil {
			return fmt.Errorf("%w: training details are required", ErrInvalidInput)
		}
		if e.ParentID == "" && e.Training.Topic == "" {
			return fmt.Errorf("%w: training topic is required", ErrInvalidInput)
		}
		if e.ParentID != "" && e.MemberID == "" {
			return fmt.Errorf("%w: member_id is required", ErrInvalidInput)
		}
	case KindVote:
		if e.Vote == nil {
			return fmt.Errorf("%w: vote details are required", ErrInvalidInput)
		}
		if e.ParentID == "" && (e.Vote.Topic == "" || !e.Vote.VoteType.Valid()) {
			return fmt.Errorf("%w: voting topic and vote type are required", ErrInvalidInput)
		}
		if e.ParentID != "" && (e.MemberID == "" || !e.Vote.Choice.Valid()) {
			return fmt.Errorf("%w: member_id and a valid choice are required", ErrInvalidInput)
		}
	}

	if e.Source == SourceRemote {
		if e.Kind != KindSavingsDeposit || e.Remote == nil {
			return fmt.Errorf("%w: remote entries must be savings deposits", ErrInvalidInput)
		}
		if e.Remote.Reference == "" || e.Remote.Phone == "" {
			return fmt.Errorf("%w: reference and phone are required", ErrInvalidInput)
		}
	}
	return nil
}

// EntryFilter narrows a ledger listing. Zero values match everything.
type EntryFilter struct {
	Kind   EntryKind   `json:"kind,omitempty"`
	Source EntrySource `json:"source,omitempty"`

	// ParentID selects the rows of one session header.
	ParentID string `json:"parent_id,omitempty"`
}

// VerifyAction is an officer's decision on a pending remote payment.
type VerifyAction string

const (
	ActionVerify VerifyAction = "VERIFY"
	ActionReject VerifyAction = "REJECT"
)

// Status returns the verification status the action resolves to.
func (a VerifyAction) Status() (VerificationStatus, bool) {
	switch a {
	case ActionVerify:
		return StatusVerified, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

// RemotePartition is one bucket of the remote payment listing.
type RemotePartition struct {
	Entries []LedgerEntry   `json:"entries"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
}

// Add appends e and updates the running totals.
func (p *RemotePartition) Add(e LedgerEntry) {
	p.Entries = append(p.Entries, e)
	p.Count++
	p.Total = p.Total.Add(e.Amount)
}

// RemotePaymentListing partitions a meeting's remote submissions by status.
type RemotePaymentListing struct {
	MeetingID string          `json:"meeting_id"`
	Pending   RemotePartition `json:"pending"`
	Verified  RemotePartition `json:"verified"`
	Rejected  RemotePartition `json:"rejected"`
}
