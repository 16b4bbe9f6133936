package entitlement

import (
	"testing"

	"app/internal/model"
)

func TestCanAddEntryFreeTier(t *testing.T) {
	tests := []struct {
		name    string
		entries int
		want    bool
	}{
		{"zero entries", 0, true},
		{"one below limit", FreeEntryLimit - 1, true},
		{"at limit", FreeEntryLimit, false},
		{"above limit", FreeEntryLimit + 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAddEntry(model.TierFree, model.StatusActive, tt.entries); got != tt.want {
				t.Fatalf("CanAddEntry(free, active, %d) = %v, want %v", tt.entries, got, tt.want)
			}
		})
	}
}

func TestCanAddEntryProIgnoresCounter(t *testing.T) {
	for _, status := range []model.Status{model.StatusActive, model.StatusTrialing} {
		for _, entries := range []int{0, FreeEntryLimit, 100000} {
			if !CanAddEntry(model.TierPro, status, entries) {
				t.Fatalf("CanAddEntry(pro, %s, %d) = false, want true", status, entries)
			}
		}
	}
}

func TestCanAddEntryProBadStatusFallsThrough(t *testing.T) {
	badStatuses := []model.Status{
		model.StatusPastDue,
		model.StatusCanceled,
		model.StatusIncomplete,
		model.StatusIncompleteExpired,
		model.StatusUnpaid,
	}
	for _, status := range badStatuses {
		if CanAddEntry(model.TierPro, status, 0) {
			t.Fatalf("CanAddEntry(pro, %s, 0) = true, want false", status)
		}
	}
}

func TestUnknownTierOrStatusDenies(t *testing.T) {
	if CanAddEntry(model.Tier("enterprise"), model.StatusActive, 0) {
		t.Fatal("unknown tier must deny")
	}
	if CanExport(model.Tier(""), model.Status("weird"), 0) {
		t.Fatal("unknown tier/status must deny")
	}
	if CanCreateTemplate(model.Tier("gold"), model.StatusActive, 0) {
		t.Fatal("unknown tier must deny")
	}
}

func TestCanExportFreeThreshold(t *testing.T) {
	if !CanExport(model.TierFree, model.StatusActive, 0) {
		t.Fatal("free tier must allow the first export of the month")
	}
	if CanExport(model.TierFree, model.StatusActive, FreeExportLimit) {
		t.Fatal("free tier must deny past the export limit")
	}
}

func TestCanCreateTemplateFreeThreshold(t *testing.T) {
	for count := 0; count < FreeTemplateLimit; count++ {
		if !CanCreateTemplate(model.TierFree, model.StatusCanceled, count) {
			t.Fatalf("free tier with %d templates must be allowed", count)
		}
	}
	if CanCreateTemplate(model.TierFree, model.StatusActive, FreeTemplateLimit) {
		t.Fatal("free tier at the template cap must be denied")
	}
}

func TestEntryLimit(t *testing.T) {
	if got := EntryLimit(model.TierPro, model.StatusActive); got != 0 {
		t.Fatalf("EntryLimit(pro, active) = %d, want 0", got)
	}
	if got := EntryLimit(model.TierPro, model.StatusPastDue); got != -1 {
		t.Fatalf("EntryLimit(pro, past_due) = %d, want -1", got)
	}
	if got := EntryLimit(model.TierFree, model.StatusActive); got != FreeEntryLimit {
		t.Fatalf("EntryLimit(free, active) = %d, want %d", got, FreeEntryLimit)
	}
	if got := EntryLimit(model.Tier("bogus"), model.StatusActive); got != -1 {
		t.Fatalf("EntryLimit(bogus, active) = %d, want -1", got)
	}
}
