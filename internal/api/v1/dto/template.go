package dto

import "time"

// TemplateCreateDTO is the payload for saving a reusable entry template.
type TemplateCreateDTO struct {
	Name        string   `json:"name" validate:"required"`
	Client      *string  `json:"client,omitempty"`
	Matter      *string  `json:"matter,omitempty"`
	Hours       *float64 `json:"hours,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TemplateUpdateDTO carries a full replacement of a template's fields.
type TemplateUpdateDTO struct {
	Name        string   `json:"name" validate:"required"`
	Client      *string  `json:"client,omitempty"`
	Matter      *string  `json:"matter,omitempty"`
	Hours       *float64 `json:"hours,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TemplateResponseDTO is returned for a single template.
type TemplateResponseDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Client      *string   `json:"client,omitempty"`
	Matter      *string   `json:"matter,omitempty"`
	Hours       *float64  `json:"hours,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
