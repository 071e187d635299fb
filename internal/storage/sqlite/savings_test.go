package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
)

func (f *fixture) balance(t *testing.T, memberID string) models.MemberSaving {
	t.Helper()
	savings, err := f.store.ListMemberSavings(context.Background(), f.group.ID, memberID)
	if err != nil {
		t.Fatalf("ListMemberSavings failed: %v", err)
	}
	if len(savings) == 0 {
		return models.MemberSaving{CurrentBalance: decimal.Zero, TotalDeposits: decimal.Zero, TotalWithdrawals: decimal.Zero}
	}
	if len(savings) != 1 {
		t.Fatalf("expected one balance for %s, got %d", memberID, len(savings))
	}
	return savings[0]
}

func expectBalance(t *testing.T, got models.MemberSaving, balance, deposits, withdrawals string) {
	t.Helper()
	if !got.CurrentBalance.Equal(decimal.RequireFromString(balance)) ||
		!got.TotalDeposits.Equal(decimal.RequireFromString(deposits)) ||
		!got.TotalWithdrawals.Equal(decimal.RequireFromString(withdrawals)) {
		t.Errorf("balance = %s (in %s, out %s), want %s (in %s, out %s)",
			got.CurrentBalance, got.TotalDeposits, got.TotalWithdrawals, balance, deposits, withdrawals)
	}
}

func TestMemberSavings(t *testing.T) {
	ctx := context.Background()

	t.Run("verified deposits and withdrawals move the balance", func(t *testing.T) {
		f := newFixture(t)
		m := f.startedMeeting(t)
		member := f.members[0].ID

		withdrawal := f.deposit(m.ID, member, "300")
		withdrawal.Kind = models.KindSavingsWithdrawal
		if err := f.store.AppendEntries(ctx, []*models.LedgerEntry{f.deposit(m.ID, member, "1000"), withdrawal}); err != nil {
			t.Fatalf("AppendEntries failed: %v", err)
		}

		expectBalance(t, f.balance(t, member), "700", "1000", "300")
		if got := f.balance(t, f.members[1].ID); !got.CurrentBalance.IsZero() {
			t.Errorf("untouched member has balance %s", got.CurrentBalance)
		}
	})

	t.Run("pending and rejected remote payments leave the balance alone", func(t *testing.T) {
		f := newFixture(t)
		m := f.startedMeeting(t)
		member := f.members[1].ID

		if err := f.store.AppendEntry(ctx, f.deposit(m.ID, member, "500")); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		rejected := f.remote(m.ID, member, "800", "MP-REJ")
		verified := f.remote(m.ID, member, "250", "MP-OK")
		if err := f.store.AppendEntries(ctx, []*models.LedgerEntry{rejected, verified}); err != nil {
			t.Fatalf("AppendEntries failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "500", "500", "0")

		if _, err := f.store.ResolveRemote(ctx, rejected.ID, models.StatusRejected, "officer", "no such transfer"); err != nil {
			t.Fatalf("ResolveRemote reject failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "500", "500", "0")

		if _, err := f.store.ResolveRemote(ctx, verified.ID, models.StatusVerified, "officer", ""); err != nil {
			t.Fatalf("ResolveRemote verify failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "750", "750", "0")
	})

	t.Run("amend applies the difference", func(t *testing.T) {
		f := newFixture(t)
		m := f.startedMeeting(t)
		member := f.members[2].ID

		entry := f.deposit(m.ID, member, "1000")
		if err := f.store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		amended := *entry
		amended.Amount = decimal.NewFromInt(600)
		if err := f.store.AmendEntry(ctx, &amended, &models.AuditEntry{ActorID: "officer"}); err != nil {
			t.Fatalf("AmendEntry failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "600", "600", "0")
	})

	t.Run("deleting a meeting takes its savings back out", func(t *testing.T) {
		f := newFixture(t)
		member := f.members[3].ID

		kept := f.startedMeeting(t)
		if err := f.store.AppendEntry(ctx, f.deposit(kept.ID, member, "400")); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		if _, err := f.store.CancelMeeting(ctx, kept.ID, "officer"); err != nil {
			t.Fatalf("CancelMeeting failed: %v", err)
		}

		deleted := f.startedMeeting(t)
		if err := f.store.AppendEntry(ctx, f.deposit(deleted.ID, member, "900")); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "1300", "1300", "0")

		if err := f.store.DeleteMeetingCascade(ctx, deleted.ID, &models.AuditEntry{ActorID: "admin"}); err != nil {
			t.Fatalf("DeleteMeetingCascade failed: %v", err)
		}
		expectBalance(t, f.balance(t, member), "400", "400", "0")
	})
}
