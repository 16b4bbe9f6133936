package model

import "time"

// Template is a reusable pre-fill pattern for new billables.
type Template struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Client      *string   `db:"client" json:"client,omitempty"`
	Matter      *string   `db:"matter" json:"matter,omitempty"`
	Hours       *float64  `db:"hours" json:"hours,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Tags        []string  `db:"tags" json:"tags"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
