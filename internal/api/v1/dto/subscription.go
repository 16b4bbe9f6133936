package dto

import "time"

// SubscriptionCheckoutRequest selects the paid plan to check out.
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

// UsageResponseDTO summarizes the caller's plan and month-to-date usage.
type UsageResponseDTO struct {
	Tier              string     `json:"tier"`
	Status            string     `json:"status"`
	EntriesThisMonth  int        `json:"entries_this_month"`
	ExportsThisMonth  int        `json:"exports_this_month"`
	EntryLimit        int        `json:"entry_limit"`
	ExportLimit       int        `json:"export_limit"`
	UsageResetDate    time.Time  `json:"usage_reset_date"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	TrialEnd          *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}
