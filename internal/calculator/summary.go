// Package calculator derives meeting and group metrics from ledger snapshots.
// Every function here is pure: the same input always yields the same output.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
)

// Summarize computes the metrics of a meeting from a consistent snapshot.
// Identity fields (Version, State, GeneratedAt, GeneratedBy) are left for the
// caller to fill in.
//
// Algorithm:
// - Only VERIFIED entries contribute; PENDING and REJECTED are skipped
// - net_savings = deposits - withdrawals
// - outstanding_fines = fines_issued - fines_paid
// - net_cash_flow = net_savings + fines_paid + loan_repayments - loan_disbursements
// - Training and voting sessions are counted by header; attendance and votes by member row
// - Attendance rate uses the member count captured when the meeting started,
//   never fewer than the members marked present
func Summarize(snap models.MeetingSnapshot) models.MeetingSummary {
	s := models.MeetingSummary{
		MeetingID:         snap.Meeting.ID,
		TotalMembers:      snap.Meeting.TotalMembers,
		TotalDeposits:     decimal.Zero,
		TotalWithdrawals:  decimal.Zero,
		FinesIssued:       decimal.Zero,
		FinesPaid:         decimal.Zero,
		LoanRepayments:    decimal.Zero,
		LoanDisbursements: decimal.Zero,
	}

	for _, rec := range snap.Attendance {
		if rec.Present {
			s.MembersPresent++
		}
	}
	// A register can never count more people than the meeting had.
	s.TotalMembers = max(s.TotalMembers, s.MembersPresent)
	s.MembersAbsent = s.TotalMembers - s.MembersPresent
	s.AttendanceRate = AttendanceRate(s.MembersPresent, s.TotalMembers)
	s.QuorumMet = QuorumMet(s.MembersPresent, s.TotalMembers, snap.QuorumPercentage)

	for i := range snap.Entries {
		e := &snap.Entries[i]
		if e.Source == models.SourceRemote && e.Status == models.StatusPending {
			s.PendingRemoteCount++
		}
		if !e.Counts() {
			continue
		}

		switch e.Kind {
		case models.KindSavingsDeposit:
			s.TotalDeposits = s.TotalDeposits.Add(e.Amount)
		case models.KindSavingsWithdrawal:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(e.Amount)
		case models.KindFine:
			s.FinesIssued = s.FinesIssued.Add(e.Amount)
			if e.Fine != nil {
				s.FinesPaid = s.FinesPaid.Add(e.Fine.PaidAmount)
			}
		case models.KindLoanRepayment:
			s.LoanRepayments = s.LoanRepayments.Add(e.Amount)
			s.LoanRepaymentsCount++
		case models.KindLoanDisbursement:
			s.LoanDisbursements = s.LoanDisbursements.Add(e.Amount)
		case models.KindTraining:
			if e.IsHeader() {
				s.TrainingsHeld++
			} else if e.Training != nil && e.Training.Attended {
				s.TrainingAttendance++
			}
		case models.KindVote:
			if e.IsHeader() {
				s.VotingSessionsHeld++
			} else if e.Vote != nil && e.Vote.Choice != models.ChoiceAbsent {
				s.VotesCast++
			}
		}
	}

	s.NetSavings = s.TotalDeposits.Sub(s.TotalWithdrawals)
	s.OutstandingFines = s.FinesIssued.Sub(s.FinesPaid)
	s.NetCashFlow = s.NetSavings.
		Add(s.FinesPaid).
		Add(s.LoanRepayments).
		Sub(s.LoanDisbursements)

	return s
}

// RollupGroup aggregates the latest summary of each completed meeting of a group.
// Callers pass one summary per meeting.
func RollupGroup(groupID string, summaries []models.MeetingSummary) models.GroupRollup {
	r := models.GroupRollup{
		GroupID:           groupID,
		AverageAttendance: decimal.Zero,
		TotalDeposits:     decimal.Zero,
		TotalWithdrawals:  decimal.Zero,
		NetSavings:        decimal.Zero,
		FinesIssued:       decimal.Zero,
		FinesPaid:         decimal.Zero,
		OutstandingFines:  decimal.Zero,
		LoanRepayments:    decimal.Zero,
		LoanDisbursements: decimal.Zero,
		NetCashFlow:       decimal.Zero,
	}

	rates := decimal.Zero
	for _, s := range summaries {
		r.MeetingsCompleted++
		if s.State == models.SummaryStale {
			r.StaleSummaries++
		}
		if s.QuorumMet {
			r.QuorumMetCount++
		}
		rates = rates.Add(s.AttendanceRate)

		r.TotalDeposits = r.TotalDeposits.Add(s.TotalDeposits)
		r.TotalWithdrawals = r.TotalWithdrawals.Add(s.TotalWithdrawals)
		r.NetSavings = r.NetSavings.Add(s.NetSavings)
		r.FinesIssued = r.FinesIssued.Add(s.FinesIssued)
		r.FinesPaid = r.FinesPaid.Add(s.FinesPaid)
		r.OutstandingFines = r.OutstandingFines.Add(s.OutstandingFines)
		r.LoanRepayments = r.LoanRepayments.Add(s.LoanRepayments)
		r.LoanDisbursements = r.LoanDisbursements.Add(s.LoanDisbursements)
		r.NetCashFlow = r.NetCashFlow.Add(s.NetCashFlow)
		r.TrainingsHeld += s.TrainingsHeld
		r.VotingSessions += s.VotingSessionsHeld
	}

	if r.MeetingsCompleted > 0 {
		r.AverageAttendance = rates.Div(decimal.NewFromInt(int64(r.MeetingsCompleted))).Round(2)
	}
	return r
}
