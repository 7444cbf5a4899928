package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
)

type verificationWriter interface {
	ReplaceVerification(ctx context.Context, id string, verification models.Verification) (*models.Concern, error)
	SetVerificationStatus(ctx context.Context, id string, status models.VerificationStatus, processedAt time.Time) (*models.Concern, error)
}

// Reconciler writes verification decisions onto stored concerns. Each write touches only the
// verification document and is a single statement, so concurrent automatic and manual writes on
// one concern resolve as last write wins.
type Reconciler struct {
	repo    verificationWriter
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewReconciler constructs a Reconciler.
func NewReconciler(repo verificationWriter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{repo: repo, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// ApplyVerification replaces the verification of concern id with result.
func (r *Reconciler) ApplyVerification(ctx context.Context, id string, result models.VerificationResult) (*models.Concern, error) {
	return r.apply(ctx, id, result, SourceAutomatic)
}

// ApplyRecovery records a failed classification as a rejected concern carrying the failure detail.
func (r *Reconciler) ApplyRecovery(ctx context.Context, id string, cause error) (*models.Concern, error) {
	result := models.VerificationResult{
		Status:       models.VerificationRejected,
		AISuggestion: models.SuggestionError,
		AIReason:     "Error during processing: " + cause.Error(),
		ProcessedAt:  r.now().UTC(),
	}
	return r.apply(ctx, id, result, SourceRecovery)
}

// Override sets an administrator-chosen status. Suggestion, reason, confidence and category keep
// their previous values; processedAt is refreshed.
func (r *Reconciler) Override(ctx context.Context, id string, status models.VerificationStatus) (*models.Concern, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	concern, err := r.repo.SetVerificationStatus(ctx, id, status, r.now().UTC())
	if err != nil {
		return nil, r.mapError(err, "failed to override verification")
	}
	r.written(ctx, id, string(status), SourceOverride)
	return concern, nil
}

func (r *Reconciler) apply(ctx context.Context, id string, result models.VerificationResult, source string) (*models.Concern, error) {
	concern, err := r.repo.ReplaceVerification(ctx, id, result.Verification())
	if err != nil {
		return nil, r.mapError(err, "failed to store verification")
	}
	r.written(ctx, id, string(result.Status), source)
	return concern, nil
}

func (r *Reconciler) written(ctx context.Context, id, status, source string) {
	r.cache.Invalidate(ctx, StatsCacheKey)
	r.metrics.RecordVerification(status, source)
	r.logger.Debug("verification stored", zap.String("concern_id", id), zap.String("status", status), zap.String("source", source))
}

func (r *Reconciler) mapError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "concern not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
