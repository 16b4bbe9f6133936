package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/entitlement"
	"app/internal/model"

	"github.com/rs/zerolog"
)

func validBillable() *model.Billable {
	return &model.Billable{
		Date:        time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		Client:      "Acme Corp",
		Matter:      "Contract review",
		Hours:       1.5,
		Description: "Reviewed the supply agreement",
	}
}

func newBillableServiceForTest(ledger *fakeLedgerRepo) (BillableService, *fakeBillableRepo, *fakePublisher) {
	repo := &fakeBillableRepo{}
	pub := &fakePublisher{}
	usage := NewUsageService(ledger, zerolog.Nop())
	svc := NewBillableService(repo, ledger, usage, pub, zerolog.Nop())
	return svc, repo, pub
}

func TestCreateBillableHoursValidation(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		ok    bool
	}{
		{"zero rejected", 0, false},
		{"minimum accepted", 0.1, true},
		{"full day accepted", 24, true},
		{"over a day rejected", 24.1, false},
		{"negative rejected", -1, false},
		{"off-grid rejected", 1.25, false},
		{"tenth accepted", 7.3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newBillableServiceForTest(newFakeLedgerRepo(model.TierPro, model.StatusActive, 0, 0))
			b := validBillable()
			b.Hours = tt.hours
			_, err := svc.CreateBillable(context.Background(), "user-1", b)
			if tt.ok && err != nil {
				t.Fatalf("hours %v rejected: %v", tt.hours, err)
			}
			if !tt.ok {
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.Field != "hours" {
					t.Fatalf("hours %v: got %v, want hours validation error", tt.hours, err)
				}
			}
		})
	}
}

func TestCreateBillableRequiresClientAndMatter(t *testing.T) {
	svc, _, _ := newBillableServiceForTest(newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0))

	b := validBillable()
	b.Client = "   "
	if _, err := svc.CreateBillable(context.Background(), "user-1", b); err == nil {
		t.Fatal("blank client accepted")
	}

	b = validBillable()
	b.Matter = ""
	if _, err := svc.CreateBillable(context.Background(), "user-1", b); err == nil {
		t.Fatal("blank matter accepted")
	}
}

func TestFreeTierEntryLimitBoundary(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, entitlement.FreeEntryLimit-1, 0)
	svc, repo, pub := newBillableServiceForTest(ledger)

	// Entry 50 goes through.
	if _, err := svc.CreateBillable(context.Background(), "user-1", validBillable()); err != nil {
		t.Fatalf("entry at 49 rejected: %v", err)
	}
	if got := ledger.entries(); got != entitlement.FreeEntryLimit {
		t.Fatalf("counter = %d, want %d", got, entitlement.FreeEntryLimit)
	}

	// Entry 51 is denied with the upgrade flag, and nothing is written.
	_, err := svc.CreateBillable(context.Background(), "user-1", validBillable())
	var lErr *LimitError
	if !errors.As(err, &lErr) {
		t.Fatalf("got %v, want limit error", err)
	}
	if !lErr.Upgrade {
		t.Fatal("limit denial missing upgrade flag")
	}
	if lErr.Limit != entitlement.FreeEntryLimit {
		t.Fatalf("limit in error = %d, want %d", lErr.Limit, entitlement.FreeEntryLimit)
	}
	if len(repo.items) != 1 {
		t.Fatalf("repo has %d rows, want 1", len(repo.items))
	}
	if events := pub.published(); len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
}

func TestProTierIgnoresCounter(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierPro, model.StatusActive, 100000, 0)
	svc, _, _ := newBillableServiceForTest(ledger)
	if _, err := svc.CreateBillable(context.Background(), "user-1", validBillable()); err != nil {
		t.Fatalf("pro entry rejected: %v", err)
	}
}

func TestProPastDueDenied(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierPro, model.StatusPastDue, 0, 0)
	svc, _, _ := newBillableServiceForTest(ledger)
	_, err := svc.CreateBillable(context.Background(), "user-1", validBillable())
	var lErr *LimitError
	if !errors.As(err, &lErr) {
		t.Fatalf("got %v, want limit error", err)
	}
	if lErr.Upgrade {
		t.Fatal("past-due denial should not suggest an upgrade")
	}
}

func TestCreateFailureReleasesCounter(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 10, 0)
	repo := &fakeBillableRepo{createErr: errors.New("insert failed")}
	pub := &fakePublisher{}
	usage := NewUsageService(ledger, zerolog.Nop())
	svc := NewBillableService(repo, ledger, usage, pub, zerolog.Nop())

	if _, err := svc.CreateBillable(context.Background(), "user-1", validBillable()); err == nil {
		t.Fatal("expected insert error")
	}
	if got := ledger.entries(); got != 10 {
		t.Fatalf("counter = %d after failed insert, want 10", got)
	}
	if events := pub.published(); len(events) != 0 {
		t.Fatalf("published %d events for failed insert", len(events))
	}
}

func TestUpdateAndDeletePublishEvents(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, _, pub := newBillableServiceForTest(ledger)

	created, err := svc.CreateBillable(context.Background(), "user-1", validBillable())
	if err != nil {
		t.Fatal(err)
	}

	created.Hours = 2.0
	if _, err := svc.UpdateBillable(context.Background(), "user-1", created); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	// Edits never consume quota.
	if got := ledger.entries(); got != 1 {
		t.Fatalf("counter = %d after update, want 1", got)
	}

	if err := svc.DeleteBillable(context.Background(), created.ID, "user-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	// Deletion does not refund quota.
	if got := ledger.entries(); got != 1 {
		t.Fatalf("counter = %d after delete, want 1", got)
	}

	events := pub.published()
	if len(events) != 3 {
		t.Fatalf("published %d events, want 3", len(events))
	}
	if events[0].Type != model.ChangeInsert || events[1].Type != model.ChangeUpdate || events[2].Type != model.ChangeDelete {
		t.Fatalf("event types = %v %v %v", events[0].Type, events[1].Type, events[2].Type)
	}
}

func TestDeleteMissingBillable(t *testing.T) {
	svc, _, _ := newBillableServiceForTest(newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0))
	err := svc.DeleteBillable(context.Background(), "no-such-id", "user-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateAnotherUsersBillable(t *testing.T) {
	ledger := newFakeLedgerRepo(model.TierFree, model.StatusActive, 0, 0)
	svc, _, _ := newBillableServiceForTest(ledger)

	b := validBillable()
	b.ID = "not-yours"
	if _, err := svc.UpdateBillable(context.Background(), "user-1", b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
