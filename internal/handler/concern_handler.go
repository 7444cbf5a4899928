package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concern-verifier-api/internal/dto"
	"github.com/noah-isme/concern-verifier-api/internal/models"
	"github.com/noah-isme/concern-verifier-api/internal/service"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
	"github.com/noah-isme/concern-verifier-api/pkg/export"
	"github.com/noah-isme/concern-verifier-api/pkg/response"
)

type concernService interface {
	Submit(ctx context.Context, req dto.SubmitConcernRequest) (*models.Concern, error)
	List(ctx context.Context, query dto.ConcernListQuery) ([]models.Concern, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Concern, error)
	Override(ctx context.Context, id string, req dto.OverrideConcernRequest) (*models.Concern, error)
	Stats(ctx context.Context) (*models.ConcernStats, error)
	Export(ctx context.Context, query dto.ConcernListQuery, format export.Format) (*service.ExportFile, error)
}

type batchProcessor interface {
	ProcessAllPending(ctx context.Context) ([]dto.ProcessResult, error)
}

// ConcernHandler exposes concern endpoints.
type ConcernHandler struct {
	concerns concernService
	batch    batchProcessor
}

// NewConcernHandler constructs the handler.
func NewConcernHandler(concerns concernService, batch batchProcessor) *ConcernHandler {
	return &ConcernHandler{concerns: concerns, batch: batch}
}

// Submit godoc
// @Summary Submit a concern
// @Description Stores the concern as pending and queues it for automatic verification.
// @Tags Concerns
// @Accept json
// @Produce json
// @Param payload body dto.SubmitConcernRequest true "Concern payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /concerns [post]
func (h *ConcernHandler) Submit(c *gin.Context) {
	var req dto.SubmitConcernRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	concern, err := h.concerns.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, concern, map[string]interface{}{"message": "concern submitted and queued for verification"})
}

// List godoc
// @Summary List concerns
// @Tags Concerns
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param residentId query string false "Resident ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /concerns [get]
func (h *ConcernHandler) List(c *gin.Context) {
	var query dto.ConcernListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	concerns, pagination, err := h.concerns.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concerns, pagination)
}

// Get godoc
// @Summary Concern detail
// @Tags Concerns
// @Produce json
// @Param id path string true "Concern ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /concerns/{id} [get]
func (h *ConcernHandler) Get(c *gin.Context) {
	concern, err := h.concerns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concern, nil)
}

// Override godoc
// @Summary Override verification status
// @Description Sets the status chosen by an administrator. Other verification fields are kept.
// @Tags Concerns
// @Accept json
// @Produce json
// @Param id path string true "Concern ID"
// @Param payload body dto.OverrideConcernRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /concerns/{id} [put]
func (h *ConcernHandler) Override(c *gin.Context) {
	var req dto.OverrideConcernRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	concern, err := h.concerns.Override(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, concern, nil)
}

// Stats godoc
// @Summary Verification statistics
// @Tags Concerns
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /concerns/stats [get]
func (h *ConcernHandler) Stats(c *gin.Context) {
	stats, err := h.concerns.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export concerns
// @Tags Concerns
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "pending, approved or rejected"
// @Param residentId query string false "Resident ID"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /concerns/export [get]
func (h *ConcernHandler) Export(c *gin.Context) {
	var query dto.ConcernListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	file, err := h.concerns.Export(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// ProcessAll godoc
// @Summary Verify every pending concern
// @Description Queues all pending concerns and waits for each to finish.
// @Tags Concerns
// @Produce json
// @Success 200 {object} dto.ProcessAllResponse
// @Router /concerns/process-all [post]
func (h *ConcernHandler) ProcessAll(c *gin.Context) {
	results, err := h.batch.ProcessAllPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewProcessAllResponse(results), nil)
}
