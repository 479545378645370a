package dto

// CreateJobRequest posts a vacancy.
type CreateJobRequest struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Company     string `json:"company" form:"company" validate:"required"`
	Description string `json:"description" form:"description"`
	Link        string `json:"link" form:"link" validate:"omitempty,url"`
}

// JobFilter pages through postings.
type JobFilter struct {
	Search string
	Page   int
	Limit  int
}

// ExportRequest selects the application register format.
type ExportRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
