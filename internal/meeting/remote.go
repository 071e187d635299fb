package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/events"
	"github.com/mmynk/savingsgroup/internal/models"
)

// Verifier handles savings deposits members pay by mobile money. A
// submission stays PENDING, and outside every total, until an officer
// verifies or rejects it.
type Verifier struct {
	base
}

// NewVerifier creates a Verifier.
func NewVerifier(d Deps) *Verifier {
	return &Verifier{base{d}}
}

// submissionWindow lists the meeting states that accept remote payments.
func (v *Verifier) submissionWindow() []models.MeetingStatus {
	if v.Options.RemotePreMeeting {
		return []models.MeetingStatus{models.MeetingScheduled, models.MeetingInProgress}
	}
	return []models.MeetingStatus{models.MeetingInProgress}
}

// Submit records the acting member's own remote deposit as PENDING.
func (v *Verifier) Submit(ctx context.Context, actor models.Actor, meetingID string, in RemotePaymentInput) (*AppendResult, error) {
	if actor.MemberID == "" {
		return nil, fmt.Errorf("%w: only members can submit remote payments", models.ErrForbidden)
	}
	m, err := v.loadMeeting(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	window := v.submissionWindow()
	if err := requireStatus(m, window...); err != nil {
		return nil, err
	}
	if _, err := v.checkMember(ctx, m.GroupID, actor.MemberID); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		MeetingID: m.ID,
		MemberID:  actor.MemberID,
		Kind:      models.KindSavingsDeposit,
		Amount:    in.Amount,
		Status:    models.StatusPending,
		Source:    models.SourceRemote,
		Savings:   &models.SavingsDetail{SavingTypeID: in.SavingTypeID, Description: in.Description},
		Remote: &models.RemoteDetail{
			Reference: strings.TrimSpace(in.Reference),
			Phone:     strings.TrimSpace(in.Phone),
		},
		CreatedBy: actor.UserID,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := v.checkSavingType(ctx, m.GroupID, in.SavingTypeID, entry.Kind, entry.Amount); err != nil {
		return nil, err
	}

	records, err := v.Store.ListAttendance(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.MemberID == actor.MemberID && rec.Present {
			return nil, fmt.Errorf("%w: member is present and must pay in person", models.ErrInvalidInput)
		}
	}

	if err := v.Store.AppendEntry(ctx, entry, window...); err != nil {
		return nil, err
	}
	v.Metrics.EntryAppended(string(entry.Kind), string(entry.Source))

	slog.InfoContext(ctx, "Remote payment submitted",
		"entry_id", entry.ID,
		"meeting_id", m.ID,
		"member_id", entry.MemberID,
		"amount", entry.Amount.String(),
	)
	v.publish(ctx, events.Event{
		Type:      events.RemotePaymentSubmitted,
		GroupID:   m.GroupID,
		MeetingID: m.ID,
		EntryID:   entry.ID,
		MemberID:  entry.MemberID,
		ActorID:   actor.UserID,
		Status:    string(entry.Status),
		Amount:    entry.Amount.String(),
	})
	return &AppendResult{Entry: entry, Warnings: v.attachDocuments(ctx, entry, in.DocumentIDs)}, nil
}

// Verify resolves a PENDING remote payment. Exactly one resolution wins;
// repeated or racing calls fail with models.ErrAlreadyResolved.
func (v *Verifier) Verify(ctx context.Context, actor models.Actor, entryID string, action models.VerifyAction, notes string) (*models.LedgerEntry, error) {
	if err := requireOfficer(actor); err != nil {
		return nil, err
	}
	status, ok := action.Status()
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", models.ErrInvalidInput, action)
	}
	notes = strings.TrimSpace(notes)
	if action == models.ActionReject && notes == "" {
		return nil, fmt.Errorf("%w: a reason is required to reject a payment", models.ErrInvalidInput)
	}

	entry, err := v.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	m, err := v.loadMeeting(ctx, actor, entry.MeetingID)
	if err != nil {
		return nil, err
	}
	if entry.CreatedBy == actor.UserID || (actor.MemberID != "" && entry.MemberID == actor.MemberID) {
		return nil, fmt.Errorf("%w: officers cannot resolve their own payments", models.ErrForbidden)
	}

	resolved, err := v.Store.ResolveRemote(ctx, entryID, status, actor.UserID, notes)
	v.Metrics.Verification(string(status), err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Remote payment resolved",
		"entry_id", entryID,
		"meeting_id", m.ID,
		"status", resolved.Status,
		"actor", actor.UserID,
	)
	v.publish(ctx, events.Event{
		Type:      events.RemotePaymentResolved,
		GroupID:   m.GroupID,
		MeetingID: m.ID,
		EntryID:   resolved.ID,
		MemberID:  resolved.MemberID,
		ActorID:   actor.UserID,
		Status:    string(resolved.Status),
		Amount:    resolved.Amount.String(),
	})
	return resolved, nil
}

// List partitions a meeting's remote payments by status with a total per partition.
func (v *Verifier) List(ctx context.Context, actor models.Actor, meetingID string) (*models.RemotePaymentListing, error) {
	if _, err := v.loadMeeting(ctx, actor, meetingID); err != nil {
		return nil, err
	}
	entries, err := v.Store.ListEntries(ctx, meetingID, models.EntryFilter{Source: models.SourceRemote})
	if err != nil {
		return nil, err
	}

	empty := func() models.RemotePartition {
		return models.RemotePartition{Entries: []models.LedgerEntry{}, Total: decimal.Zero}
	}
	listing := &models.RemotePaymentListing{
		MeetingID: meetingID,
		Pending:   empty(),
		Verified:  empty(),
		Rejected:  empty(),
	}
	for _, e := range entries {
		switch e.Status {
		case models.StatusPending:
			listing.Pending.Add(e)
		case models.StatusVerified:
			listing.Verified.Add(e)
		case models.StatusRejected:
			listing.Rejected.Add(e)
		}
	}
	return listing, nil
}
