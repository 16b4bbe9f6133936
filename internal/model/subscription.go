package model

import "time"

// Tier is the subscription plan level governing feature limits.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Status mirrors the billing provider's subscription state vocabulary.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
)

// UsageLedger is the single per-user row tracking subscription metadata and
// monthly usage counters. Counters are only trusted for limit checks after
// UsageResetDate has been advanced to the first of the current month.
type UsageLedger struct {
	UserID               string     `db:"user_id" json:"user_id"`
	Tier                 Tier       `db:"tier" json:"tier"`
	Status               Status     `db:"status" json:"status"`
	StripeCustomerID     *string    `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string    `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	BillingInterval      *string    `db:"billing_interval" json:"billing_interval,omitempty"`
	CurrentPeriodStart   *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	TrialStart           *time.Time `db:"trial_start" json:"trial_start,omitempty"`
	TrialEnd             *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	EntriesThisMonth     int        `db:"entries_count_current_month" json:"entries_count_current_month"`
	ExportsThisMonth     int        `db:"exports_count_current_month" json:"exports_count_current_month"`
	UsageResetDate       time.Time  `db:"usage_reset_date" json:"usage_reset_date"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
