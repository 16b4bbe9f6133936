package dto

import "time"

// BillableCreateDTO is the payload for logging a new time entry.
type BillableCreateDTO struct {
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Client      string   `json:"client" validate:"required"`
	ClientRef   *string  `json:"client_ref,omitempty"`
	Matter      string   `json:"matter" validate:"required"`
	CaseNumber  *string  `json:"case_number,omitempty"`
	Hours       float64  `json:"hours" validate:"required"`
	Description string   `json:"description"`
}

// BillableUpdateDTO carries a full replacement of an entry's fields.
type BillableUpdateDTO struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Client      string  `json:"client" validate:"required"`
	ClientRef   *string `json:"client_ref,omitempty"`
	Matter      string  `json:"matter" validate:"required"`
	CaseNumber  *string `json:"case_number,omitempty"`
	Hours       float64 `json:"hours" validate:"required"`
	Description string  `json:"description"`
}

// BillableResponseDTO is returned for a single time entry.
type BillableResponseDTO struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Client      string    `json:"client"`
	ClientRef   *string   `json:"client_ref,omitempty"`
	Matter      string    `json:"matter"`
	CaseNumber  *string   `json:"case_number,omitempty"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BillableListResponseDTO is one page of entries plus pagination hints.
type BillableListResponseDTO struct {
	Items      []BillableResponseDTO `json:"items"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	HasMore    bool                  `json:"has_more"`
}
