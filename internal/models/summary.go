package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryState marks whether a summary still reflects the ledger.
type SummaryState string

const (
	SummaryCurrent SummaryState = "CURRENT"
	SummaryStale   SummaryState = "STALE"
)

// MeetingSummary holds the derived metrics of a completed meeting.
// Version 1 is written when the meeting completes. Later versions are only
// produced by an explicit regeneration; older versions are kept as STALE.
type MeetingSummary struct {
	MeetingID string       `json:"meeting_id"`
	Version   int          `json:"version"`
	State     SummaryState `json:"state"`

	TotalMembers   int             `json:"total_members"`
	MembersPresent int             `json:"members_present"`
	MembersAbsent  int             `json:"members_absent"`
	AttendanceRate decimal.Decimal `json:"attendance_rate"`
	QuorumMet      bool            `json:"quorum_met"`

	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	NetSavings       decimal.Decimal `json:"net_savings"`

	FinesIssued      decimal.Decimal `json:"fines_issued"`
	FinesPaid        decimal.Decimal `json:"fines_paid"`
	OutstandingFines decimal.Decimal `json:"outstanding_fines"`

	LoanRepayments      decimal.Decimal `json:"loan_repayments"`
	LoanRepaymentsCount int             `json:"loan_repayments_count"`
	LoanDisbursements   decimal.Decimal `json:"loan_disbursements"`

	TrainingsHeld      int `json:"trainings_held"`
	TrainingAttendance int `json:"training_attendance"`
	VotingSessionsHeld int `json:"voting_sessions_held"`
	VotesCast          int `json:"votes_cast"`

	NetCashFlow decimal.Decimal `json:"net_cash_flow"`

	// PendingRemoteCount is informational; pending payments never reach the totals.
	PendingRemoteCount int `json:"pending_remote_count"`

	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy string    `json:"generated_by"`
}

// MeetingSnapshot is everything the aggregator reads, taken in one transaction.
type MeetingSnapshot struct {
	Meeting    Meeting
	Entries    []LedgerEntry
	Attendance []AttendanceRecord

	// QuorumPercentage is the effective configured threshold, if any.
	QuorumPercentage decimal.NullDecimal
}

// VoteResult is the outcome of a voting session.
type VoteResult string

const (
	VotePassed VoteResult = "PASSED"
	VoteFailed VoteResult = "FAILED"
	VoteTie    VoteResult = "TIE"
)

// VoteTally counts the member rows of one voting session.
type VoteTally struct {
	VotingID string          `json:"voting_id"`
	VoteType VoteType        `json:"vote_type"`
	Yes      int             `json:"yes"`
	No       int             `json:"no"`
	Abstain  int             `json:"abstain"`
	Absent   int             `json:"absent"`
	YesShare decimal.Decimal `json:"yes_share"`
	Result   VoteResult      `json:"result"`
}

// GroupRollup aggregates the latest summaries of a group's completed meetings.
type GroupRollup struct {
	GroupID           string          `json:"group_id"`
	MeetingsCompleted int             `json:"meetings_completed"`
	StaleSummaries    int             `json:"stale_summaries"`
	QuorumMetCount    int             `json:"quorum_met_count"`
	AverageAttendance decimal.Decimal `json:"average_attendance"`

	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  decimal.Decimal `json:"total_withdrawals"`
	NetSavings        decimal.Decimal `json:"net_savings"`
	FinesIssued       decimal.Decimal `json:"fines_issued"`
	FinesPaid         decimal.Decimal `json:"fines_paid"`
	OutstandingFines  decimal.Decimal `json:"outstanding_fines"`
	LoanRepayments    decimal.Decimal `json:"loan_repayments"`
	LoanDisbursements decimal.Decimal `json:"loan_disbursements"`
	NetCashFlow       decimal.Decimal `json:"net_cash_flow"`
	TrainingsHeld     int             `json:"trainings_held"`
	VotingSessions    int             `json:"voting_sessions"`
}
