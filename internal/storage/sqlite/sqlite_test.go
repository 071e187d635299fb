package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/calculator"
	"github.com/mmynk/savingsgroup/internal/models"
)

type fixture struct {
	store      *SQLiteStore
	group      *models.Group
	members    []*models.Member
	savingType *models.SavingType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	f := &fixture{store: store}

	f.group = &models.Group{Name: "Tumaini Savers"}
	if err := store.CreateGroup(ctx, f.group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	for _, name := range []string{"Amina", "Baraka", "Chausiku", "Dalila"} {
		m := &models.Member{GroupID: f.group.ID, Name: name, Active: true}
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		f.members = append(f.members, m)
	}

	f.savingType = &models.SavingType{
		GroupID:          f.group.ID,
		Name:             "Personal savings",
		Code:             "PERSONAL",
		MinimumAmount:    decimal.NewFromInt(100),
		AllowsWithdrawal: true,
		Active:           true,
	}
	if err := store.CreateSavingType(ctx, f.savingType); err != nil {
		t.Fatalf("CreateSavingType failed: %v", err)
	}
	return f
}

func (f *fixture) startedMeeting(t *testing.T) *models.Meeting {
	t.Helper()
	ctx := context.Background()

	m := &models.Meeting{GroupID: f.group.ID}
	if err := f.store.CreateMeeting(ctx, m); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	started, err := f.store.StartMeeting(ctx, m.ID, "officer")
	if err != nil {
		t.Fatalf("StartMeeting failed: %v", err)
	}
	return started
}

func (f *fixture) deposit(meetingID, memberID, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{
		MeetingID: meetingID,
		MemberID:  memberID,
		Kind:      models.KindSavingsDeposit,
		Amount:    decimal.RequireFromString(amount),
		Savings:   &models.SavingsDetail{SavingTypeID: f.savingType.ID},
		CreatedBy: "officer",
	}
}

func (f *fixture) remote(meetingID, memberID, amount, ref string) *models.LedgerEntry {
	e := f.deposit(meetingID, memberID, amount)
	e.Status = models.StatusPending
	e.Source = models.SourceRemote
	e.Remote = &models.RemoteDetail{Reference: ref, Phone: "+255700000001"}
	e.CreatedBy = memberID
	return e
}

func TestDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("GetGroup round trips quorum setting", func(t *testing.T) {
		f.group.QuorumPercentage = decimal.NewNullDecimal(decimal.RequireFromString("66.67"))
		if err := f.store.UpdateGroup(ctx, f.group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}
		got, err := f.store.GetGroup(ctx, f.group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !got.QuorumPercentage.Valid || !got.QuorumPercentage.Decimal.Equal(decimal.RequireFromString("66.67")) {
			t.Errorf("QuorumPercentage = %+v, want 66.67", got.QuorumPercentage)
		}
	})

	t.Run("unknown group is not found", func(t *testing.T) {
		_, err := f.store.GetGroup(ctx, "missing")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("inactive members are not counted", func(t *testing.T) {
		inactive := &models.Member{GroupID: f.group.ID, Name: "Zawadi", Active: false}
		if err := f.store.CreateMember(ctx, inactive); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
		n, err := f.store.CountActiveMembers(ctx, f.group.ID)
		if err != nil {
			t.Fatalf("CountActiveMembers failed: %v", err)
		}
		if n != 4 {
			t.Errorf("CountActiveMembers = %d, want 4", n)
		}
		members, err := f.store.ListMembers(ctx, f.group.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(members) != 5 {
			t.Errorf("ListMembers returned %d members, want 5", len(members))
		}
	})

	t.Run("saving type codes are unique per group", func(t *testing.T) {
		dup := &models.SavingType{GroupID: f.group.ID, Name: "Again", Code: "PERSONAL", Active: true}
		err := f.store.CreateSavingType(ctx, dup)
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		st, err := f.store.GetSavingType(ctx, f.savingType.ID)
		if err != nil {
			t.Fatalf("GetSavingType failed: %v", err)
		}
		if !st.MinimumAmount.Equal(decimal.NewFromInt(100)) || st.MaximumAmount.Valid {
			t.Errorf("saving type limits = %s/%+v", st.MinimumAmount, st.MaximumAmount)
		}
	})
}

func TestMeetingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("CreateMeeting numbers meetings per group", func(t *testing.T) {
		first := &models.Meeting{GroupID: f.group.ID}
		second := &models.Meeting{GroupID: f.group.ID, Type: models.MeetingEmergency}
		if err := f.store.CreateMeeting(ctx, first); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		if err := f.store.CreateMeeting(ctx, second); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		if second.MeetingNumber != first.MeetingNumber+1 {
			t.Errorf("meeting numbers = %d, %d; want consecutive", first.MeetingNumber, second.MeetingNumber)
		}
		if first.Status != models.MeetingScheduled || first.Type != models.MeetingRegular {
			t.Errorf("new meeting = %s/%s, want SCHEDULED/REGULAR", first.Status, first.Type)
		}
	})

	t.Run("StartMeeting snapshots member count and rejects a second start", func(t *testing.T) {
		m := f.startedMeeting(t)
		if m.Status != models.MeetingInProgress || m.StartedAt == nil {
			t.Fatalf("started meeting = %+v", m)
		}
		if m.TotalMembers != 4 {
			t.Errorf("TotalMembers = %d, want 4", m.TotalMembers)
		}

		_, err := f.store.StartMeeting(ctx, m.ID, "officer")
		if !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("unknown meeting is not found", func(t *testing.T) {
		_, err := f.store.StartMeeting(ctx, "missing", "officer")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CompleteMeeting writes summary version 1", func(t *testing.T) {
		m := f.startedMeeting(t)
		if err := f.store.AppendEntry(ctx, f.deposit(m.ID, f.members[0].ID, "5000")); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}

		completed, sum, err := f.store.CompleteMeeting(ctx, m.ID, "officer", calculator.Summarize)
		if err != nil {
			t.Fatalf("CompleteMeeting failed: %v", err)
		}
		if completed.Status != models.MeetingCompleted || completed.EndedAt == nil {
			t.Errorf("completed meeting = %+v", completed)
		}
		if sum.Version != 1 || sum.State != models.SummaryCurrent {
			t.Errorf("summary = v%d %s, want v1 CURRENT", sum.Version, sum.State)
		}

		stored, err := f.store.GetSummary(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetSummary failed: %v", err)
		}
		if !stored.TotalDeposits.Equal(decimal.NewFromInt(5000)) {
			t.Errorf("TotalDeposits = %s, want 5000", stored.TotalDeposits)
		}

		_, err = f.store.CancelMeeting(ctx, m.ID, "officer")
		if !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("cancel after complete: expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("concurrent completes have exactly one winner", func(t *testing.T) {
		m := f.startedMeeting(t)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := f.store.CompleteMeeting(ctx, m.ID, "officer", calculator.Summarize)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, models.ErrInvalidTransition):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if successes != 1 || conflicts != 1 {
			t.Errorf("successes=%d conflicts=%d, want 1/1", successes, conflicts)
		}
		versions, err := f.store.ListSummaryVersions(ctx, m.ID)
		if err != nil {
			t.Fatalf("ListSummaryVersions failed: %v", err)
		}
		if len(versions) != 1 {
			t.Errorf("got %d summaries, want 1", len(versions))
		}
	})

	t.Run("CancelMeeting from scheduled", func(t *testing.T) {
		m := &models.Meeting{GroupID: f.group.ID}
		if err := f.store.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		cancelled, err := f.store.CancelMeeting(ctx, m.ID, "officer")
		if err != nil {
			t.Fatalf("CancelMeeting failed: %v", err)
		}
		if cancelled.Status != models.MeetingCancelled {
			t.Errorf("status = %s, want CANCELLED", cancelled.Status)
		}
		if _, err := f.store.UpdateNarrative(ctx, m.ID, models.Narrative{}); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("narrative on cancelled meeting: expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListMeetings filters by status", func(t *testing.T) {
		completed, err := f.store.ListMeetings(ctx, f.group.ID, models.MeetingCompleted)
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(completed) != 2 {
			t.Errorf("got %d completed meetings, want 2", len(completed))
		}
		all, err := f.store.ListMeetings(ctx, f.group.ID, "")
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		for i := 1; i < len(all); i++ {
			if all[i-1].MeetingNumber < all[i].MeetingNumber {
				t.Errorf("meetings not newest first: %d before %d", all[i-1].MeetingNumber, all[i].MeetingNumber)
			}
		}
	})
}

func TestLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("append requires an in-progress meeting", func(t *testing.T) {
		m := &models.Meeting{GroupID: f.group.ID}
		if err := f.store.CreateMeeting(ctx, m); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		err := f.store.AppendEntry(ctx, f.deposit(m.ID, f.members[0].ID, "100"))
		if !errors.Is(err, models.ErrMeetingNotActive) {
			t.Errorf("expected ErrMeetingNotActive, got %v", err)
		}

		// Scheduled meetings can be opened explicitly, e.g. for remote submissions.
		err = f.store.AppendEntry(ctx, f.remote(m.ID, f.members[0].ID, "100", "EARLY-1"),
			models.MeetingScheduled, models.MeetingInProgress)
		if err != nil {
			t.Errorf("AppendEntry with open SCHEDULED failed: %v", err)
		}
	})

	t.Run("created_at falls inside the meeting window", func(t *testing.T) {
		m := f.startedMeeting(t)
		entry := f.deposit(m.ID, f.members[1].ID, "250")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		completed, _, err := f.store.CompleteMeeting(ctx, m.ID, "officer", calculator.Summarize)
		if err != nil {
			t.Fatalf("CompleteMeeting failed: %v", err)
		}
		if entry.CreatedAt.Before(*completed.StartedAt) || !entry.CreatedAt.Before(*completed.EndedAt) {
			t.Errorf("created_at %v outside [%v, %v)", entry.CreatedAt, completed.StartedAt, completed.EndedAt)
		}

		err = f.store.AppendEntry(ctx, f.deposit(m.ID, f.members[1].ID, "250"))
		if !errors.Is(err, models.ErrMeetingNotActive) {
			t.Errorf("append after completion: expected ErrMeetingNotActive, got %v", err)
		}
	})

	t.Run("duplicate reference in the same meeting is rejected", func(t *testing.T) {
		m := f.startedMeeting(t)
		if err := f.store.AppendEntry(ctx, f.remote(m.ID, f.members[0].ID, "300", "MP-001")); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		err := f.store.AppendEntry(ctx, f.remote(m.ID, f.members[1].ID, "300", "MP-001"))
		if !errors.Is(err, models.ErrDuplicateReference) {
			t.Errorf("expected ErrDuplicateReference, got %v", err)
		}

		other := f.startedMeeting(t)
		if err := f.store.AppendEntry(ctx, f.remote(other.ID, f.members[0].ID, "300", "MP-001")); err != nil {
			t.Errorf("same reference in another meeting: %v", err)
		}
	})

	t.Run("invalid amount is rejected before any write", func(t *testing.T) {
		m := f.startedMeeting(t)
		fine := &models.LedgerEntry{
			MeetingID: m.ID,
			MemberID:  f.members[0].ID,
			Kind:      models.KindFine,
			Amount:    decimal.Zero,
			Fine:      &models.FineDetail{FineType: "LATE"},
		}
		if err := f.store.AppendEntry(ctx, fine); !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		entries, err := f.store.ListEntries(ctx, m.ID, models.EntryFilter{})
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("got %d entries, want 0", len(entries))
		}
	})

	t.Run("session rows are upserted per member", func(t *testing.T) {
		m := f.startedMeeting(t)
		header := &models.LedgerEntry{
			MeetingID: m.ID,
			Kind:      models.KindVote,
			Vote:      &models.VoteDetail{Topic: "Raise share price", VoteType: models.VoteSimpleMajority},
		}
		if err := f.store.AppendEntry(ctx, header); err != nil {
			t.Fatalf("AppendEntry header failed: %v", err)
		}

		vote := func(choice models.VoteChoice) *models.LedgerEntry {
			return &models.LedgerEntry{
				MeetingID: m.ID,
				MemberID:  f.members[0].ID,
				ParentID:  header.ID,
				Kind:      models.KindVote,
				Vote:      &models.VoteDetail{Choice: choice},
			}
		}
		first := vote(models.ChoiceYes)
		if err := f.store.AppendEntry(ctx, first); err != nil {
			t.Fatalf("AppendEntry vote failed: %v", err)
		}
		second := vote(models.ChoiceNo)
		if err := f.store.AppendEntry(ctx, second); err != nil {
			t.Fatalf("AppendEntry revote failed: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("revote created a new row: %s != %s", second.ID, first.ID)
		}

		rows, err := f.store.ListEntries(ctx, m.ID, models.EntryFilter{ParentID: header.ID})
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(rows) != 1 || rows[0].Vote.Choice != models.ChoiceNo {
			t.Errorf("vote rows = %+v, want one NO", rows)
		}

		stray := vote(models.ChoiceYes)
		stray.Kind = models.KindTraining
		stray.Vote = nil
		stray.Training = &models.TrainingDetail{Attended: true}
		if err := f.store.AppendEntry(ctx, stray); !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("training row under a vote: expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("batch append is all or nothing", func(t *testing.T) {
		m := f.startedMeeting(t)
		header := &models.LedgerEntry{
			MeetingID: m.ID,
			Kind:      models.KindTraining,
			Training:  &models.TrainingDetail{Topic: "Loan appraisal"},
		}
		if err := f.store.AppendEntry(ctx, header); err != nil {
			t.Fatalf("AppendEntry header failed: %v", err)
		}

		row := func(memberID string) *models.LedgerEntry {
			return &models.LedgerEntry{
				MeetingID: m.ID,
				MemberID:  memberID,
				ParentID:  header.ID,
				Kind:      models.KindTraining,
				Training:  &models.TrainingDetail{Attended: true},
			}
		}
		err := f.store.AppendEntries(ctx, []*models.LedgerEntry{row(f.members[0].ID), row("no-such-member")})
		if err == nil {
			t.Fatal("expected foreign key failure for unknown member")
		}
		rows, err := f.store.ListEntries(ctx, m.ID, models.EntryFilter{ParentID: header.ID})
		if err != nil {
			t.Fatalf("ListEntries failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("got %d rows after failed batch, want 0", len(rows))
		}
	})

	t.Run("documents attach idempotently", func(t *testing.T) {
		m := f.startedMeeting(t)
		entry := f.deposit(m.ID, f.members[2].ID, "150")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		if err := f.store.AttachDocuments(ctx, entry.ID, []string{"doc-1", "doc-2"}); err != nil {
			t.Fatalf("AttachDocuments failed: %v", err)
		}
		if err := f.store.AttachDocuments(ctx, entry.ID, []string{"doc-1"}); err != nil {
			t.Fatalf("AttachDocuments again failed: %v", err)
		}
		got, err := f.store.GetEntry(ctx, entry.ID)
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if len(got.DocumentIDs) != 2 {
			t.Errorf("DocumentIDs = %v, want 2", got.DocumentIDs)
		}
		if err := f.store.AttachDocuments(ctx, "missing", []string{"doc-3"}); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestResolveRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("second resolution fails", func(t *testing.T) {
		m := f.startedMeeting(t)
		entry := f.remote(m.ID, f.members[0].ID, "3000", "MP-100")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}

		resolved, err := f.store.ResolveRemote(ctx, entry.ID, models.StatusVerified, "treasurer", "")
		if err != nil {
			t.Fatalf("ResolveRemote failed: %v", err)
		}
		if resolved.Status != models.StatusVerified || resolved.Remote.ResolvedBy != "treasurer" {
			t.Errorf("resolved = %+v", resolved)
		}

		_, err = f.store.ResolveRemote(ctx, entry.ID, models.StatusRejected, "treasurer", "late")
		if !errors.Is(err, models.ErrAlreadyResolved) {
			t.Errorf("expected ErrAlreadyResolved, got %v", err)
		}

		audit, err := f.store.ListAudit(ctx, m.ID)
		if err != nil {
			t.Fatalf("ListAudit failed: %v", err)
		}
		var verifies int
		for _, a := range audit {
			if a.Action == models.AuditVerify {
				verifies++
			}
		}
		if verifies != 1 {
			t.Errorf("got %d VERIFY audit rows, want 1", verifies)
		}
	})

	t.Run("concurrent resolutions have exactly one winner", func(t *testing.T) {
		m := f.startedMeeting(t)
		entry := f.remote(m.ID, f.members[1].ID, "1200", "MP-200")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}

		const workers = 5
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.store.ResolveRemote(ctx, entry.ID, models.StatusVerified, "treasurer", "")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok, resolved int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrAlreadyResolved):
				resolved++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		if ok != 1 || resolved != workers-1 {
			t.Errorf("ok=%d already_resolved=%d", ok, resolved)
		}
	})

	t.Run("in-person entries cannot be resolved", func(t *testing.T) {
		m := f.startedMeeting(t)
		entry := f.deposit(m.ID, f.members[0].ID, "100")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		_, err := f.store.ResolveRemote(ctx, entry.ID, models.StatusVerified, "treasurer", "")
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestAmendAndRegenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.startedMeeting(t)
	entry := f.deposit(m.ID, f.members[0].ID, "1000")
	if err := f.store.AppendEntry(ctx, entry); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	pending := f.remote(m.ID, f.members[1].ID, "500", "MP-300")
	if err := f.store.AppendEntry(ctx, pending); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	if _, _, err := f.store.CompleteMeeting(ctx, m.ID, "officer", calculator.Summarize); err != nil {
		t.Fatalf("CompleteMeeting failed: %v", err)
	}

	t.Run("pending entries cannot be amended", func(t *testing.T) {
		pending.Amount = decimal.NewFromInt(600)
		err := f.store.AmendEntry(ctx, pending, &models.AuditEntry{ActorID: "officer"})
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("amend marks the summary stale and is audited", func(t *testing.T) {
		entry.Amount = decimal.NewFromInt(1200)
		if err := f.store.AmendEntry(ctx, entry, &models.AuditEntry{ActorID: "officer", Notes: "miscounted"}); err != nil {
			t.Fatalf("AmendEntry failed: %v", err)
		}

		sum, err := f.store.GetSummary(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetSummary failed: %v", err)
		}
		if sum.State != models.SummaryStale {
			t.Errorf("summary state = %s, want STALE", sum.State)
		}
		if !sum.TotalDeposits.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("stale summary changed: TotalDeposits = %s", sum.TotalDeposits)
		}

		audit, err := f.store.ListAudit(ctx, m.ID)
		if err != nil {
			t.Fatalf("ListAudit failed: %v", err)
		}
		last := audit[len(audit)-1]
		if last.Action != models.AuditAmend || last.ActorID != "officer" || len(last.OldValue) == 0 || len(last.NewValue) == 0 {
			t.Errorf("last audit entry = %+v", last)
		}
	})

	t.Run("regenerate adds a current version", func(t *testing.T) {
		sum, err := f.store.RegenerateSummary(ctx, m.ID, "admin", calculator.Summarize)
		if err != nil {
			t.Fatalf("RegenerateSummary failed: %v", err)
		}
		if sum.Version != 2 || sum.State != models.SummaryCurrent {
			t.Errorf("regenerated = v%d %s, want v2 CURRENT", sum.Version, sum.State)
		}
		if !sum.TotalDeposits.Equal(decimal.NewFromInt(1200)) {
			t.Errorf("TotalDeposits = %s, want 1200", sum.TotalDeposits)
		}

		versions, err := f.store.ListSummaryVersions(ctx, m.ID)
		if err != nil {
			t.Fatalf("ListSummaryVersions failed: %v", err)
		}
		if len(versions) != 2 || versions[0].State != models.SummaryStale {
			t.Errorf("versions = %+v", versions)
		}

		group, err := f.store.ListGroupSummaries(ctx, f.group.ID)
		if err != nil {
			t.Fatalf("ListGroupSummaries failed: %v", err)
		}
		if len(group) != 1 || group[0].Version != 2 {
			t.Errorf("group summaries = %+v", group)
		}
	})

	t.Run("regenerate requires a completed meeting", func(t *testing.T) {
		open := f.startedMeeting(t)
		_, err := f.store.RegenerateSummary(ctx, open.ID, "admin", calculator.Summarize)
		if !errors.Is(err, models.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestDeleteMeetingCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.startedMeeting(t)
	if err := f.store.UpsertAttendance(ctx, m.ID, []models.AttendanceRecord{
		{MemberID: f.members[0].ID, Present: true, RecordedBy: "officer"},
	}); err != nil {
		t.Fatalf("UpsertAttendance failed: %v", err)
	}
	training := &models.LedgerEntry{
		MeetingID: m.ID,
		Kind:      models.KindTraining,
		Training:  &models.TrainingDetail{Topic: "Record keeping"},
	}
	if err := f.store.AppendEntry(ctx, training); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	if err := f.store.AppendEntry(ctx, &models.LedgerEntry{
		MeetingID: m.ID,
		MemberID:  f.members[0].ID,
		ParentID:  training.ID,
		Kind:      models.KindTraining,
		Training:  &models.TrainingDetail{Attended: true},
	}); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	entry := f.deposit(m.ID, f.members[0].ID, "700")
	if err := f.store.AppendEntry(ctx, entry); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	if err := f.store.AttachDocuments(ctx, entry.ID, []string{"receipt"}); err != nil {
		t.Fatalf("AttachDocuments failed: %v", err)
	}
	if _, _, err := f.store.CompleteMeeting(ctx, m.ID, "officer", calculator.Summarize); err != nil {
		t.Fatalf("CompleteMeeting failed: %v", err)
	}

	if err := f.store.DeleteMeetingCascade(ctx, m.ID, &models.AuditEntry{ActorID: "admin"}); err != nil {
		t.Fatalf("DeleteMeetingCascade failed: %v", err)
	}

	if _, err := f.store.GetMeeting(ctx, m.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("meeting still present: %v", err)
	}
	if _, err := f.store.GetSummary(ctx, m.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("summary still present: %v", err)
	}
	if entries, _ := f.store.ListEntries(ctx, m.ID, models.EntryFilter{}); len(entries) != 0 {
		t.Errorf("%d entries still present", len(entries))
	}
	if records, _ := f.store.ListAttendance(ctx, m.ID); len(records) != 0 {
		t.Errorf("%d attendance records still present", len(records))
	}

	audit, err := f.store.ListAudit(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(audit) == 0 || audit[len(audit)-1].Action != models.AuditDeleteMeeting {
		t.Errorf("audit trail = %+v, want trailing DELETE_MEETING", audit)
	}

	if err := f.store.DeleteMeetingCascade(ctx, m.ID, &models.AuditEntry{ActorID: "admin"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
