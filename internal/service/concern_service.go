package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/dto"
	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
	"github.com/noah-isme/concern-verifier-api/pkg/export"
)

type concernRepository interface {
	Create(ctx context.Context, concern *models.Concern) error
	FindByID(ctx context.Context, id string) (*models.Concern, error)
	List(ctx context.Context, filter models.ConcernFilter) ([]models.Concern, int, error)
	Stats(ctx context.Context) (*models.ConcernStats, error)
}

type residentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Resident, error)
}

type concernOverrider interface {
	Override(ctx context.Context, id string, status models.VerificationStatus) (*models.Concern, error)
}

type verificationSubmitter interface {
	Submit(concern *models.Concern) (*VerificationTicket, error)
}

// exportRowLimit caps how many concerns one export renders.
const exportRowLimit = 100

// ConcernConfig tunes concern use-cases.
type ConcernConfig struct {
	StatsTTL time.Duration
}

// ExportFile is a rendered concern export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ConcernService implements submission, listing, override and reporting of concerns.
type ConcernService struct {
	repo       concernRepository
	residents  residentFinder
	reconciler concernOverrider
	verifier   verificationSubmitter
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ConcernConfig
}

// NewConcernService constructs the service.
func NewConcernService(repo concernRepository, residents residentFinder, reconciler concernOverrider, verifier verificationSubmitter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg ConcernConfig) *ConcernService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConcernService{
		repo:       repo,
		residents:  residents,
		reconciler: reconciler,
		verifier:   verifier,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Submit stores a pending concern and queues it for classification. Invalid input never reaches the queue.
func (s *ConcernService) Submit(ctx context.Context, req dto.SubmitConcernRequest) (*models.Concern, error) {
	req.Text = strings.TrimSpace(req.Text)
	req.ResidentID = strings.TrimSpace(req.ResidentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "text and residentId are required")
	}

	resident, err := s.residents.FindByID(ctx, req.ResidentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident")
	}

	pending := models.PendingVerification()
	concern := &models.Concern{
		Text:         req.Text,
		ResidentID:   resident.ID,
		ResidentName: &resident.Name,
		Verification: &pending,
	}
	if err := s.repo.Create(ctx, concern); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit concern")
	}
	s.cache.Invalidate(ctx, StatsCacheKey)

	// The concern stays pending if the queue refuses it; a batch run picks it up later.
	if _, err := s.verifier.Submit(concern); err != nil {
		s.logger.Warn("concern stored but not queued", zap.String("concern_id", concern.ID), zap.Error(err))
	}
	return concern, nil
}

// List returns concerns newest first with pagination metadata.
func (s *ConcernService) List(ctx context.Context, query dto.ConcernListQuery) ([]models.Concern, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid concern filter")
	}
	filter := models.ConcernFilter{
		Status:     models.VerificationStatus(query.Status),
		ResidentID: query.ResidentID,
		Page:       query.Page,
		PageSize:   query.Limit,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	concerns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list concerns")
	}
	if concerns == nil {
		concerns = []models.Concern{}
	}
	return concerns, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one concern.
func (s *ConcernService) Get(ctx context.Context, id string) (*models.Concern, error) {
	concern, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "concern not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load concern")
	}
	return concern, nil
}

// Override applies an administrator's status decision.
func (s *ConcernService) Override(ctx context.Context, id string, req dto.OverrideConcernRequest) (*models.Concern, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification status, must be pending, approved or rejected")
	}
	updated, err := s.reconciler.Override(ctx, id, req.Status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("verification overridden", zap.String("concern_id", id), zap.String("status", string(req.Status)))
	// Re-read to include the resident name.
	if concern, err := s.repo.FindByID(ctx, id); err == nil {
		return concern, nil
	}
	return updated, nil
}

// Stats returns verification counts, served from cache when enabled.
func (s *ConcernService) Stats(ctx context.Context) (*models.ConcernStats, error) {
	var cached models.ConcernStats
	if s.cache.Get(ctx, StatsCacheKey, &cached) {
		return &cached, nil
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute concern stats")
	}
	s.cache.Set(ctx, StatsCacheKey, stats, s.cfg.StatsTTL)
	return stats, nil
}

// Export renders the filtered concern list as CSV or PDF.
func (s *ConcernService) Export(ctx context.Context, query dto.ConcernListQuery, format export.Format) (*ExportFile, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q, use csv or pdf", format))
	}
	query.Page = 1
	query.Limit = exportRowLimit
	concerns, _, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(concernDataset(concerns))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("concerns_%s.%s", time.Now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func concernDataset(concerns []models.Concern) export.Dataset {
	data := export.Dataset{
		Title:   "Waste Management Concerns",
		Headers: []string{"ID", "Submitted", "Resident", "Concern", "Status", "Suggestion", "Category", "Confidence", "Reason"},
		Rows:    make([][]string, 0, len(concerns)),
	}
	for _, concern := range concerns {
		row := []string{concern.ID, concern.SubmittedAt.UTC().Format(time.RFC3339), deref(concern.ResidentName), concern.Text, string(models.VerificationPending), "", "", "", ""}
		if v := concern.Verification; v != nil {
			row[4] = string(v.Status)
			row[5] = deref(v.AISuggestion)
			if v.Category != nil {
				row[6] = string(*v.Category)
			}
			if v.Confidence != nil {
				row[7] = fmt.Sprintf("%.2f", *v.Confidence)
			}
			row[8] = deref(v.AIReason)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
