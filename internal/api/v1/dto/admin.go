package dto

import "time"

// AdminResetUsageDTO zeroes a user's monthly counters.
type AdminResetUsageDTO struct {
	Notes *string `json:"notes,omitempty"`
}

// AdminChangeTierDTO overrides a user's plan tier.
type AdminChangeTierDTO struct {
	Tier  string  `json:"tier" validate:"required,oneof=free pro"`
	Notes *string `json:"notes,omitempty"`
}

// AdminChangeStatusDTO overrides a user's subscription status.
type AdminChangeStatusDTO struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// AdminExtendTrialDTO moves a user's trial end into the future.
type AdminExtendTrialDTO struct {
	TrialEnd time.Time `json:"trial_end" validate:"required"`
	Notes    *string   `json:"notes,omitempty"`
}
