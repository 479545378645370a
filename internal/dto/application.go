package dto

// CreateApplicationRequest is the student's submission payload; media files
// arrive alongside it as multipart parts.
type CreateApplicationRequest struct {
	Subject string `json:"subject" form:"subject" validate:"required"`
	Body    string `json:"body" form:"body" validate:"required"`
}

// UpdateApplicationRequest edits a pending or sent-back application.
type UpdateApplicationRequest struct {
	Subject string `json:"subject" form:"subject"`
	Body    string `json:"body" form:"body"`
}

// AdvisorActionRequest records the advisor's decision. Status accepts the
// "Transit" shorthand for forwarding.
type AdvisorActionRequest struct {
	Status   string `json:"status" validate:"required"`
	Comments string `json:"comments"`
}

// CoordinatorActionRequest records the coordinator's decision. Status accepts
// the "Forwarded" shorthand for approval.
type CoordinatorActionRequest struct {
	Status   string `json:"status" validate:"required"`
	Comments string `json:"comments"`
}

// ApplicationFilter pages through role-scoped listings.
type ApplicationFilter struct {
	Status string
	Page   int
	Limit  int
}
