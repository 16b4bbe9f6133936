package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func TestEnsureCurrentPeriodRollsOverOnce(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 37, 1)
	ledger.ledger.UsageResetDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	svc := NewUsageService(ledger, zerolog.Nop()).(*usageService)
	svc.now = func() time.Time { return time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC) }

	got, err := svc.EnsureCurrentPeriod(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.EntriesThisMonth != 0 || got.ExportsThisMonth != 0 {
		t.Fatalf("counters after rollover = %d/%d, want 0/0", got.EntriesThisMonth, got.ExportsThisMonth)
	}
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !got.UsageResetDate.Equal(want) {
		t.Fatalf("reset date = %v, want %v", got.UsageResetDate, want)
	}

	// A second call in the same month must not zero fresh activity.
	if ok, err := ledger.IncrementEntries(context.Background(), "user-1", 0); err != nil || !ok {
		t.Fatalf("increment: ok=%v err=%v", ok, err)
	}
	got, err = svc.EnsureCurrentPeriod(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.EntriesThisMonth != 1 {
		t.Fatalf("second call in same month reset the counter: %d", got.EntriesThisMonth)
	}
}

func TestEnsureCurrentPeriodCreatesMissingLedger(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := NewUsageService(repo, zerolog.Nop())

	got, err := svc.EnsureCurrentPeriod(context.Background(), "new-user")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("no ledger returned for new user")
	}
	if got.Tier != model.TierFree || got.Status != model.StatusActive {
		t.Fatalf("new ledger = %s/%s, want free/active", got.Tier, got.Status)
	}
}

func TestFirstOfMonth(t *testing.T) {
	in := time.Date(2026, 8, 31, 23, 59, 59, 0, time.FixedZone("UTC+5", 5*3600))
	got := firstOfMonth(in)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("firstOfMonth = %v, want %v", got, want)
	}
}
