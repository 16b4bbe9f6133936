package model

import "time"

// Billable represents one logged unit of time-tracked work.
type Billable struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Date        time.Time `db:"date" json:"date"`
	Client      string    `db:"client" json:"client"`
	ClientRef   *string   `db:"client_ref" json:"client_ref,omitempty"`
	Matter      string    `db:"matter" json:"matter"`
	CaseNumber  *string   `db:"case_number" json:"case_number,omitempty"`
	Hours       float64   `db:"hours" json:"hours"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Change types delivered on the per-user live feed.
const (
	ChangeInsert = "insert"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// BillableChange is a row-change event scoped to one user's billables.
// For deletes only ID is set.
type BillableChange struct {
	Type     string    `json:"type"`
	ID       string    `json:"id"`
	Billable *Billable `json:"billable,omitempty"`
}
