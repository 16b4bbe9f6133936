package dto

// EstimateRequestDTO carries the free-text narrative to estimate from.
type EstimateRequestDTO struct {
	Narrative string `json:"narrative" validate:"required"`
}

// EstimateResponseDTO is the model's suggestion.
type EstimateResponseDTO struct {
	BillableHours float64 `json:"billable_hours"`
	Description   string  `json:"description"`
}
