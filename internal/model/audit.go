package model

import (
	"encoding/json"
	"time"
)

// AuditAction is the kind of admin-initiated mutation being recorded.
type AuditAction string

const (
	AuditResetUsage   AuditAction = "reset_usage"
	AuditChangeTier   AuditAction = "change_tier"
	AuditChangeStatus AuditAction = "change_status"
	AuditExtendTrial  AuditAction = "extend_trial"
)

// AuditEntry is one immutable record of an admin mutation. Rows are created
// once and never updated or deleted through the application.
type AuditEntry struct {
	ID           string          `db:"id" json:"id"`
	AdminID      string          `db:"admin_id" json:"admin_id"`
	Action       AuditAction     `db:"action" json:"action"`
	TargetUserID *string         `db:"target_user_id" json:"target_user_id,omitempty"`
	Details      json.RawMessage `db:"details" json:"details,omitempty"`
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	IPAddress    *string         `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
