// Package meeting implements the meeting workflow of a savings group: the
// lifecycle state machine, the transaction ledger, attendance tracking and
// verification of remote mobile-money payments.
//
// Every mutating operation takes the acting user explicitly as a models.Actor.
// Authorization is checked here; atomicity is delegated to the store.
package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/calculator"
	"github.com/mmynk/savingsgroup/internal/events"
	"github.com/mmynk/savingsgroup/internal/metrics"
	"github.com/mmynk/savingsgroup/internal/models"
	"github.com/mmynk/savingsgroup/internal/storage"
)

// Options are deployment-wide settings.
type Options struct {
	// DefaultQuorumPercent applies to groups without their own threshold.
	// When unset the strict majority rule is used.
	DefaultQuorumPercent decimal.NullDecimal

	// RemotePreMeeting accepts remote submissions while a meeting is still SCHEDULED.
	RemotePreMeeting bool
}

// Deps are the collaborators shared by all components.
// Events and Metrics may be nil.
type Deps struct {
	Store   storage.Store
	Events  events.Publisher
	Metrics *metrics.Metrics
	Options Options
}

// Service bundles the workflow components over one set of dependencies.
type Service struct {
	Lifecycle  *Lifecycle
	Ledger     *Ledger
	Attendance *Attendance
	Verifier   *Verifier
}

// New wires all components.
func New(d Deps) *Service {
	return &Service{
		Lifecycle:  NewLifecycle(d),
		Ledger:     NewLedger(d),
		Attendance: NewAttendance(d),
		Verifier:   NewVerifier(d),
	}
}

// base holds the helpers every component needs.
type base struct {
	Deps
}

func requireOfficer(actor models.Actor) error {
	if !actor.IsOfficer() {
		return fmt.Errorf("%w: officer role required", models.ErrForbidden)
	}
	return nil
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin or chairperson role required", models.ErrForbidden)
	}
	return nil
}

func requireGroup(actor models.Actor, groupID string) error {
	if !actor.CanAccess(groupID) {
		return fmt.Errorf("%w: no access to group %s", models.ErrForbidden, groupID)
	}
	return nil
}

// loadMeeting fetches a meeting the actor is allowed to see.
func (b *base) loadMeeting(ctx context.Context, actor models.Actor, meetingID string) (*models.Meeting, error) {
	if meetingID == "" {
		return nil, fmt.Errorf("%w: meeting_id is required", models.ErrInvalidInput)
	}
	m, err := b.Store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if err := requireGroup(actor, m.GroupID); err != nil {
		return nil, err
	}
	return m, nil
}

// requireStatus fails with ErrMeetingNotActive unless m is in one of the given states.
// The store repeats this check inside its write transaction.
func requireStatus(m *models.Meeting, allowed ...models.MeetingStatus) error {
	if slices.Contains(allowed, m.Status) {
		return nil
	}
	return fmt.Errorf("%w: meeting %s is %s", models.ErrMeetingNotActive, m.ID, m.Status)
}

// checkMember resolves an active member of the group.
func (b *base) checkMember(ctx context.Context, groupID, memberID string) (*models.Member, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: member_id is required", models.ErrInvalidInput)
	}
	member, err := b.Store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.GroupID != groupID || !member.Active {
		return nil, fmt.Errorf("%w: member %s in group %s", models.ErrNotFound, memberID, groupID)
	}
	return member, nil
}

// checkSavingType enforces a saving type's limits on a deposit or withdrawal.
func (b *base) checkSavingType(ctx context.Context, groupID, savingTypeID string, kind models.EntryKind, amount decimal.Decimal) error {
	if savingTypeID == "" {
		return fmt.Errorf("%w: saving_type_id is required", models.ErrInvalidInput)
	}
	st, err := b.Store.GetSavingType(ctx, savingTypeID)
	if err != nil {
		return err
	}
	if st.GroupID != groupID || !st.Active {
		return fmt.Errorf("%w: saving type %s in group %s", models.ErrNotFound, savingTypeID, groupID)
	}

	switch kind {
	case models.KindSavingsWithdrawal:
		if !st.AllowsWithdrawal {
			return fmt.Errorf("%w: %s does not allow withdrawals", models.ErrSavingTypeConstraint, st.Code)
		}
	case models.KindSavingsDeposit:
		if amount.LessThan(st.MinimumAmount) {
			return fmt.Errorf("%w: %s requires at least %s", models.ErrSavingTypeConstraint, st.Code, st.MinimumAmount)
		}
	}
	if st.MaximumAmount.Valid && amount.GreaterThan(st.MaximumAmount.Decimal) {
		return fmt.Errorf("%w: %s allows at most %s", models.ErrSavingTypeConstraint, st.Code, st.MaximumAmount.Decimal)
	}
	return nil
}

// quorumThreshold returns the group's own threshold or the deployment default.
func (b *base) quorumThreshold(ctx context.Context, groupID string) (decimal.NullDecimal, error) {
	group, err := b.Store.GetGroup(ctx, groupID)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if group.QuorumPercentage.Valid {
		return group.QuorumPercentage, nil
	}
	return b.Options.DefaultQuorumPercent, nil
}

// summarize is the storage.SummarizeFunc used for completion and regeneration.
func (b *base) summarize(snap models.MeetingSnapshot) models.MeetingSummary {
	if !snap.QuorumPercentage.Valid {
		snap.QuorumPercentage = b.Options.DefaultQuorumPercent
	}
	return calculator.Summarize(snap)
}

// attachDocuments is the second phase of an append. A failure is returned as
// a warning and never undoes the entry.
func (b *base) attachDocuments(ctx context.Context, entry *models.LedgerEntry, documentIDs []string) []string {
	if len(documentIDs) == 0 {
		return nil
	}
	if err := b.Store.AttachDocuments(ctx, entry.ID, documentIDs); err != nil {
		slog.WarnContext(ctx, "Failed to attach documents",
			"entry_id", entry.ID,
			"documents", len(documentIDs),
			"error", err,
		)
		return []string{fmt.Sprintf("proof documents were not attached: %v", err)}
	}
	for _, id := range documentIDs {
		if !slices.Contains(entry.DocumentIDs, id) {
			entry.DocumentIDs = append(entry.DocumentIDs, id)
		}
	}
	return nil
}

// publish sends an event. Delivery failures are logged and never fail the
// operation that produced the event.
func (b *base) publish(ctx context.Context, e events.Event) {
	if b.Events == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := b.Events.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", e.Type,
			"meeting_id", e.MeetingID,
			"error", err,
		)
	}
}
