package dto

// ExportRequestDTO selects the date range to export.
type ExportRequestDTO struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
}

// ExportResponseDTO points at an archived CSV export.
type ExportResponseDTO struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	RowCount int    `json:"row_count"`
}
