package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concern-verifier-api/internal/dto"
	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
	"github.com/noah-isme/concern-verifier-api/pkg/response"
)

type residentService interface {
	Create(ctx context.Context, req dto.CreateResidentRequest) (*models.Resident, error)
	CreateTest(ctx context.Context) (*models.Resident, error)
	List(ctx context.Context) ([]models.Resident, error)
	Get(ctx context.Context, id string) (*models.Resident, error)
}

// ResidentHandler exposes resident endpoints.
type ResidentHandler struct {
	residents residentService
}

// NewResidentHandler constructs the handler.
func NewResidentHandler(residents residentService) *ResidentHandler {
	return &ResidentHandler{residents: residents}
}

// Create godoc
// @Summary Create resident
// @Tags Residents
// @Accept json
// @Produce json
// @Param payload body dto.CreateResidentRequest true "Resident payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /residents [post]
func (h *ResidentHandler) Create(c *gin.Context) {
	var req dto.CreateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	resident, err := h.residents.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resident)
}

// CreateTest godoc
// @Summary Create sample resident
// @Tags Residents
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /residents/test [post]
func (h *ResidentHandler) CreateTest(c *gin.Context) {
	resident, err := h.residents.CreateTest(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resident)
}

// List godoc
// @Summary List residents
// @Tags Residents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /residents [get]
func (h *ResidentHandler) List(c *gin.Context) {
	residents, err := h.residents.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, residents, nil)
}

// Get godoc
// @Summary Resident detail
// @Tags Residents
// @Produce json
// @Param id path string true "Resident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /residents/{id} [get]
func (h *ResidentHandler) Get(c *gin.Context) {
	resident, err := h.residents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resident, nil)
}
