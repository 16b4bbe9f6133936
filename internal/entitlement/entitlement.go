// Package entitlement holds the pure allow/deny decisions for gated actions.
// Usage limits are a monetization boundary, so every unrecognized tier or
// status combination denies.
package entitlement

import "app/internal/model"

// Free-tier monthly limits.
const (
	FreeEntryLimit    = 50
	FreeExportLimit   = 1
	FreeTemplateLimit = 3
)

func statusAllowsPro(status model.Status) bool {
	return status == model.StatusActive || status == model.StatusTrialing
}

// CanAddEntry reports whether a user may log another billable this month.
func CanAddEntry(tier model.Tier, status model.Status, entriesThisMonth int) bool {
	if tier == model.TierPro && statusAllowsPro(status) {
		return true
	}
	return tier == model.TierFree && entriesThisMonth < FreeEntryLimit
}

// CanExport reports whether a user may run another export this month.
func CanExport(tier model.Tier, status model.Status, exportsThisMonth int) bool {
	if tier == model.TierPro && statusAllowsPro(status) {
		return true
	}
	return tier == model.TierFree && exportsThisMonth < FreeExportLimit
}

// CanCreateTemplate reports whether a user may create another template.
// Unlike the monthly counters, the template cap applies to the live count.
func CanCreateTemplate(tier model.Tier, status model.Status, templateCount int) bool {
	if tier == model.TierPro && statusAllowsPro(status) {
		return true
	}
	return tier == model.TierFree && templateCount < FreeTemplateLimit
}

// EntryLimit returns the conditional-increment limit for logging an entry:
// 0 means unconditional, -1 means denied outright.
func EntryLimit(tier model.Tier, status model.Status) int {
	if tier == model.TierPro && statusAllowsPro(status) {
		return 0
	}
	if tier == model.TierFree {
		return FreeEntryLimit
	}
	return -1
}

// ExportLimit returns the conditional-increment limit for running an export:
// 0 means unconditional, -1 means denied outright.
func ExportLimit(tier model.Tier, status model.Status) int {
	if tier == model.TierPro && statusAllowsPro(status) {
		return 0
	}
	if tier == model.TierFree {
		return FreeExportLimit
	}
	return -1
}
