package meeting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/savingsgroup/internal/calculator"
	"github.com/mmynk/savingsgroup/internal/models"
)

// Ledger records the financial and non-financial activity of a meeting.
// Every recording funnels into record, which runs all checks before the
// store's single write transaction.
type Ledger struct {
	base
}

// NewLedger creates a Ledger.
func NewLedger(d Deps) *Ledger {
	return &Ledger{base{d}}
}

// openMeeting loads an IN_PROGRESS meeting for an officer.
func (l *Ledger) openMeeting(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	m, err := l.loadMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, models.MeetingInProgress); err != nil {
		return nil, err
	}
	return m, nil
}

// check validates an entry against the meeting's group.
func (l *Ledger) check(ctx context.Context, m *models.Meeting, entry *models.LedgerEntry) error {
	if entry.MemberID != "" || entry.Kind.Monetary() {
		if _, err := l.checkMember(ctx, m.GroupID, entry.MemberID); err != nil {
			return err
		}
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.Kind == models.KindSavingsDeposit || entry.Kind == models.KindSavingsWithdrawal {
		return l.checkSavingType(ctx, m.GroupID, entry.Savings.SavingTypeID, entry.Kind, entry.Amount)
	}
	return nil
}

func (l *Ledger) record(ctx context.Context, actor models.Actor, m *models.Meeting, entry *models.LedgerEntry, documentIDs []string) (*AppendResult, error) {
	entry.MeetingID = m.ID
	entry.CreatedBy = actor.UserID
	if err := l.check(ctx, m, entry); err != nil {
		return nil, err
	}
	if err := l.Store.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}
	l.Metrics.EntryAppended(string(entry.Kind), string(entry.Source))

	slog.InfoContext(ctx, "Ledger entry recorded",
		"entry_id", entry.ID,
		"meeting_id", m.ID,
		"kind", entry.Kind,
		"amount", entry.Amount.String(),
	)
	return &AppendResult{Entry: entry, Warnings: l.attachDocuments(ctx, entry, documentIDs)}, nil
}

// RecordSavings records an in-person deposit or withdrawal.
func (l *Ledger) RecordSavings(ctx context.Context, actor models.Actor, meetingID string, in SavingsInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	kind := models.KindSavingsDeposit
	if in.Withdrawal {
		kind = models.KindSavingsWithdrawal
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		MemberID: in.MemberID,
		Kind:     kind,
		Amount:   in.Amount,
		Savings:  &models.SavingsDetail{SavingTypeID: in.SavingTypeID, Description: in.Description},
	}, in.DocumentIDs)
}

// RecordFine records a fine issued to a member.
func (l *Ledger) RecordFine(ctx context.Context, actor models.Actor, meetingID string, in FineInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		MemberID: in.MemberID,
		Kind:     models.KindFine,
		Amount:   in.Amount,
		Fine:     &models.FineDetail{FineType: in.FineType, Reason: in.Reason, PaidAmount: in.PaidAmount},
	}, in.DocumentIDs)
}

// RecordLoanRepayment records a repayment of principal and interest.
func (l *Ledger) RecordLoanRepayment(ctx context.Context, actor models.Actor, meetingID string, in LoanRepaymentInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		MemberID: in.MemberID,
		Kind:     models.KindLoanRepayment,
		Amount:   in.Principal.Add(in.Interest),
		Loan: &models.LoanDetail{
			LoanID:        in.LoanID,
			Principal:     in.Principal,
			Interest:      in.Interest,
			PaymentMethod: in.PaymentMethod,
			Description:   in.Description,
		},
	}, in.DocumentIDs)
}

// RecordLoanDisbursement records a loan paid out to a member.
func (l *Ledger) RecordLoanDisbursement(ctx context.Context, actor models.Actor, meetingID string, in LoanDisbursementInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		MemberID: in.MemberID,
		Kind:     models.KindLoanDisbursement,
		Amount:   in.Amount,
		Loan: &models.LoanDetail{
			LoanID:      in.LoanID,
			Principal:   in.Amount,
			Description: in.Description,
		},
	}, in.DocumentIDs)
}

// CreateTraining opens a training session within the meeting.
func (l *Ledger) CreateTraining(ctx context.Context, actor models.Actor, meetingID string, in TrainingInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if in.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", models.ErrInvalidInput)
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		Kind: models.KindTraining,
		Training: &models.TrainingDetail{
			Topic:           in.Topic,
			Description:     in.Description,
			TrainerName:     in.TrainerName,
			DurationMinutes: in.DurationMinutes,
		},
	}, nil)
}

// CreateVoting opens a voting session within the meeting.
func (l *Ledger) CreateVoting(ctx context.Context, actor models.Actor, meetingID string, in VotingInput) (*AppendResult, error) {
	m, err := l.openMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if in.VoteType == "" {
		in.VoteType = models.VoteSimpleMajority
	}
	return l.record(ctx, actor, m, &models.LedgerEntry{
		Kind: models.KindVote,
		Vote: &models.VoteDetail{Topic: in.Topic, Description: in.Description, VoteType: in.VoteType},
	}, nil)
}

// session loads a training or voting header together with its open meeting.
func (l *Ledger) session(ctx context.Context, actor models.Actor, headerID string, kind models.EntryKind) (*models.LedgerEntry, *models.Meeting, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, nil, err
	}
	header, err := l.Store.GetEntry(ctx, headerID)
	if err != nil {
		return nil, nil, err
	}
	if header.Kind != kind || !header.IsHeader() {
		return nil, nil, fmt.Errorf("%w: %s session %s", models.ErrNotFound, kind, headerID)
	}
	m, err := l.openMeeting(ctx, actor, header.MeetingID)
	if err != nil {
		return nil, nil, err
	}
	return header, m, nil
}

// appendRows writes member rows under a session header in one transaction.
// Re-recording a member replaces that member's row.
func (l *Ledger) appendRows(ctx context.Context, m *models.Meeting, rows []*models.LedgerEntry) ([]models.LedgerEntry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows given", models.ErrInvalidInput)
	}
	for _, row := range rows {
		if err := l.check(ctx, m, row); err != nil {
			return nil, err
		}
	}
	if err := l.Store.AppendEntries(ctx, rows); err != nil {
		return nil, err
	}

	out := make([]models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		l.Metrics.EntryAppended(string(row.Kind), string(row.Source))
		out = append(out, *row)
	}
	return out, nil
}

// RecordTrainingAttendance records which members attended a training session.
func (l *Ledger) RecordTrainingAttendance(ctx context.Context, actor models.Actor, trainingID string, in []TrainingAttendanceInput) ([]models.LedgerEntry, error) {
	header, m, err := l.session(ctx, actor, trainingID, models.KindTraining)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.LedgerEntry, 0, len(in))
	for _, a := range in {
		rows = append(rows, &models.LedgerEntry{
			MeetingID: m.ID,
			MemberID:  a.MemberID,
			ParentID:  header.ID,
			Kind:      models.KindTraining,
			Training:  &models.TrainingDetail{Attended: a.Attended},
			CreatedBy: actor.UserID,
		})
	}
	out, err := l.appendRows(ctx, m, rows)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Training attendance recorded", "training_id", trainingID, "rows", len(out))
	return out, nil
}

// CastVotes records member votes and returns the updated tally.
func (l *Ledger) CastVotes(ctx context.Context, actor models.Actor, votingID string, in []VoteInput) (*VoteOutcome, error) {
	header, m, err := l.session(ctx, actor, votingID, models.KindVote)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.LedgerEntry, 0, len(in))
	for _, v := range in {
		rows = append(rows, &models.LedgerEntry{
			MeetingID: m.ID,
			MemberID:  v.MemberID,
			ParentID:  header.ID,
			Kind:      models.KindVote,
			Vote:      &models.VoteDetail{Choice: v.Choice},
			CreatedBy: actor.UserID,
		})
	}
	if _, err := l.appendRows(ctx, m, rows); err != nil {
		return nil, err
	}

	votes, err := l.Store.ListEntries(ctx, m.ID, models.EntryFilter{ParentID: header.ID})
	if err != nil {
		return nil, err
	}
	tally := calculator.TallyVotes(header.ID, header.Vote.VoteType, votes)

	slog.InfoContext(ctx, "Votes cast",
		"voting_id", votingID,
		"rows", len(rows),
		"result", tally.Result,
	)
	return &VoteOutcome{Votes: votes, Tally: tally}, nil
}

// VotingResult tallies a voting session. It is readable in any meeting state.
func (l *Ledger) VotingResult(ctx context.Context, actor models.Actor, votingID string) (*models.VoteTally, error) {
	header, err := l.Store.GetEntry(ctx, votingID)
	if err != nil {
		return nil, err
	}
	if header.Kind != models.KindVote || !header.IsHeader() {
		return nil, fmt.Errorf("%w: voting session %s", models.ErrNotFound, votingID)
	}
	if _, err := l.loadMeeting(ctx, actor, header.MeetingID); err != nil {
		return nil, err
	}

	votes, err := l.Store.ListEntries(ctx, header.MeetingID, models.EntryFilter{ParentID: header.ID})
	if err != nil {
		return nil, err
	}
	tally := calculator.TallyVotes(header.ID, header.Vote.VoteType, votes)
	return &tally, nil
}

func cloneEntry(e *models.LedgerEntry) *models.LedgerEntry {
	c := *e
	if e.Savings != nil {
		s := *e.Savings
		c.Savings = &s
	}
	if e.Fine != nil {
		f := *e.Fine
		c.Fine = &f
	}
	if e.Loan != nil {
		l := *e.Loan
		c.Loan = &l
	}
	if e.Training != nil {
		t := *e.Training
		c.Training = &t
	}
	if e.Vote != nil {
		v := *e.Vote
		c.Vote = &v
	}
	return &c
}

// Amend corrects a VERIFIED monetary entry, or edits a training or voting
// session header, of an in-progress or completed meeting. The change is
// audited and any current summary becomes stale.
func (l *Ledger) Amend(ctx context.Context, actor models.Actor, entryID string, patch EntryPatch) (*models.LedgerEntry, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, fmt.Errorf("%w: nothing to amend", models.ErrInvalidInput)
	}
	current, err := l.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	m, err := l.loadMeeting(ctx, actor, current.MeetingID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(m, models.MeetingInProgress, models.MeetingCompleted); err != nil {
		return nil, err
	}
	switch {
	case current.Kind.Monetary():
		if patch.touchesSession() {
			return nil, fmt.Errorf("%w: session fields do not apply to %s entries", models.ErrInvalidInput, current.Kind)
		}
	case current.IsHeader():
		if patch.touchesMoney() || patch.Reason != nil {
			return nil, fmt.Errorf("%w: %s sessions carry no amounts", models.ErrInvalidInput, current.Kind)
		}
	default:
		// Attendance and vote rows are changed by recording them again.
		return nil, fmt.Errorf("%w: %s rows cannot be amended", models.ErrInvalidInput, current.Kind)
	}
	if current.Status != models.StatusVerified {
		return nil, fmt.Errorf("%w: only verified entries can be amended, entry %s is %s",
			models.ErrInvalidInput, entryID, current.Status)
	}

	amended := cloneEntry(current)
	if patch.Amount != nil {
		amended.Amount = *patch.Amount
	}
	switch amended.Kind {
	case models.KindSavingsDeposit, models.KindSavingsWithdrawal:
		if patch.SavingTypeID != nil {
			amended.Savings.SavingTypeID = *patch.SavingTypeID
		}
		if patch.Description != nil {
			amended.Savings.Description = *patch.Description
		}
	case models.KindFine:
		if patch.PaidAmount != nil {
			amended.Fine.PaidAmount = *patch.PaidAmount
		}
		if patch.Reason != nil {
			amended.Fine.Reason = *patch.Reason
		}
	case models.KindLoanRepayment:
		if patch.Principal != nil {
			amended.Loan.Principal = *patch.Principal
		}
		if patch.Interest != nil {
			amended.Loan.Interest = *patch.Interest
		}
		if patch.Amount == nil {
			amended.Amount = amended.Loan.Principal.Add(amended.Loan.Interest)
		}
		if patch.Description != nil {
			amended.Loan.Description = *patch.Description
		}
	case models.KindLoanDisbursement:
		if patch.Amount != nil {
			amended.Loan.Principal = *patch.Amount
		}
		if patch.Description != nil {
			amended.Loan.Description = *patch.Description
		}
	case models.KindTraining:
		if patch.Topic != nil {
			amended.Training.Topic = *patch.Topic
		}
		if patch.Description != nil {
			amended.Training.Description = *patch.Description
		}
		if patch.TrainerName != nil {
			amended.Training.TrainerName = *patch.TrainerName
		}
		if patch.DurationMinutes != nil {
			if *patch.DurationMinutes < 0 {
				return nil, fmt.Errorf("%w: duration must not be negative", models.ErrInvalidInput)
			}
			amended.Training.DurationMinutes = *patch.DurationMinutes
		}
		if patch.VoteType != nil {
			return nil, fmt.Errorf("%w: vote_type does not apply to training", models.ErrInvalidInput)
		}
	case models.KindVote:
		if patch.Topic != nil {
			amended.Vote.Topic = *patch.Topic
		}
		if patch.Description != nil {
			amended.Vote.Description = *patch.Description
		}
		if patch.VoteType != nil {
			if !patch.VoteType.Valid() {
				return nil, fmt.Errorf("%w: unknown vote type %q", models.ErrInvalidInput, *patch.VoteType)
			}
			amended.Vote.VoteType = *patch.VoteType
		}
		if patch.TrainerName != nil || patch.DurationMinutes != nil {
			return nil, fmt.Errorf("%w: trainer fields do not apply to voting", models.ErrInvalidInput)
		}
	}
	if err := l.check(ctx, m, amended); err != nil {
		return nil, err
	}

	audit := &models.AuditEntry{ActorID: actor.UserID, Notes: patch.Notes}
	if err := l.Store.AmendEntry(ctx, amended, audit); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Ledger entry amended",
		"entry_id", entryID,
		"meeting_id", m.ID,
		"old_amount", current.Amount.String(),
		"new_amount", amended.Amount.String(),
		"actor", actor.UserID,
	)
	return amended, nil
}

// AttachDocuments links proof documents to an entry after it was recorded.
// Officers may attach to any entry, members only to their own.
func (l *Ledger) AttachDocuments(ctx context.Context, actor models.Actor, entryID string, documentIDs []string) (*models.LedgerEntry, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: document_ids is required", models.ErrInvalidInput)
	}
	entry, err := l.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := l.loadMeeting(ctx, actor, entry.MeetingID); err != nil {
		return nil, err
	}
	if !actor.IsOfficer() && (actor.MemberID == "" || actor.MemberID != entry.MemberID) {
		return nil, fmt.Errorf("%w: entry %s belongs to another member", models.ErrForbidden, entryID)
	}

	if err := l.Store.AttachDocuments(ctx, entryID, documentIDs); err != nil {
		return nil, err
	}
	return l.Store.GetEntry(ctx, entryID)
}

// List returns a meeting's entries in the order they were recorded.
func (l *Ledger) List(ctx context.Context, actor models.Actor, meetingID string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	if _, err := l.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown entry kind %q", models.ErrInvalidInput, filter.Kind)
	}
	return l.Store.ListEntries(ctx, meetingID, filter)
}

// Savings returns the savings balances of a group. Officers see every member;
// a member sees only their own balances whatever memberID asks for.
func (l *Ledger) Savings(ctx context.Context, actor models.Actor, groupID, memberID string) ([]models.MemberSaving, error) {
	if err := requireGroup(actor, groupID); err != nil {
		return nil, err
	}
	if !actor.IsOfficer() {
		if actor.MemberID == "" {
			return nil, fmt.Errorf("%w: no member profile in group %s", models.ErrForbidden, groupID)
		}
		memberID = actor.MemberID
	}
	if _, err := l.Store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return l.Store.ListMemberSavings(ctx, groupID, memberID)
}
