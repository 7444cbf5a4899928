package dto

// CreateResidentRequest captures POST /residents payload.
type CreateResidentRequest struct {
	Name   string `json:"name" validate:"required,max=120"`
	Email  string `json:"email" validate:"required,email"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}
