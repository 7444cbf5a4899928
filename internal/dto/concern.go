package dto

import "github.com/noah-isme/concern-verifier-api/internal/models"

// SubmitConcernRequest captures POST /concerns payload.
type SubmitConcernRequest struct {
	Text       string `json:"text" validate:"required,max=5000"`
	ResidentID string `json:"residentId" validate:"required"`
}

// OverrideConcernRequest captures PUT /concerns/:id payload.
type OverrideConcernRequest struct {
	Status models.VerificationStatus `json:"status" validate:"required,oneof=pending approved rejected"`
}

// ConcernListQuery holds the list filters accepted on GET /concerns.
type ConcernListQuery struct {
	Status     string `form:"status" validate:"omitempty,oneof=pending approved rejected"`
	ResidentID string `form:"residentId"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// ProcessResult reports the outcome of one concern in a batch run.
type ProcessResult struct {
	Success   bool            `json:"success"`
	ConcernID string          `json:"concernId"`
	Concern   *models.Concern `json:"concern"`
	Error     string          `json:"error,omitempty"`
}

// ProcessAllResponse is returned by POST /concerns/process-all.
type ProcessAllResponse struct {
	Processed  int             `json:"processed"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Results    []ProcessResult `json:"results"`
}

// NewProcessAllResponse tallies batch results.
func NewProcessAllResponse(results []ProcessResult) ProcessAllResponse {
	resp := ProcessAllResponse{Processed: len(results), Results: results}
	if resp.Results == nil {
		resp.Results = []ProcessResult{}
	}
	for _, result := range results {
		if result.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
	}
	return resp
}
