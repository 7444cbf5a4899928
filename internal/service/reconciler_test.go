package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
)

type recordingCache struct {
	deleted [][]string
}

func (c *recordingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys)
	return nil
}

func sampleResult() models.VerificationResult {
	confidence := 0.92
	category := models.CategoryWasteCollection
	return models.VerificationResult{
		Status:       models.VerificationApproved,
		AISuggestion: models.SuggestionLegitimate,
		AIReason:     "Missed collection",
		Confidence:   &confidence,
		Category:     &category,
		ProcessedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReconcilerApplyIsIdempotent(t *testing.T) {
	store := newMemoryConcernStore(pendingConcern("c-1", "bin"))
	cache := &recordingCache{}
	reconciler := NewReconciler(store, NewCacheService(cache, nil, time.Minute, nil, true), nil, zap.NewNop())

	first, err := reconciler.ApplyVerification(context.Background(), "c-1", sampleResult())
	require.NoError(t, err)
	second, err := reconciler.ApplyVerification(context.Background(), "c-1", sampleResult())
	require.NoError(t, err)

	assert.Equal(t, first.Verification, second.Verification)
	assert.Equal(t, *first.Verification, *store.Verification("c-1"))
	assert.Len(t, cache.deleted, 2)
	assert.Equal(t, []string{StatsCacheKey}, cache.deleted[0])
}

func TestReconcilerOverrideKeepsClassifierFields(t *testing.T) {
	store := newMemoryConcernStore(pendingConcern("c-1", "bin"))
	reconciler := NewReconciler(store, nil, nil, nil)
	overrideAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	reconciler.now = func() time.Time { return overrideAt }

	_, err := reconciler.ApplyVerification(context.Background(), "c-1", sampleResult())
	require.NoError(t, err)

	updated, err := reconciler.Override(context.Background(), "c-1", models.VerificationRejected)
	require.NoError(t, err)
	v := updated.Verification
	assert.Equal(t, models.VerificationRejected, v.Status)
	assert.Equal(t, models.SuggestionLegitimate, *v.AISuggestion)
	assert.Equal(t, "Missed collection", *v.AIReason)
	assert.Equal(t, 0.92, *v.Confidence)
	assert.True(t, overrideAt.Equal(*v.ProcessedAt))

	_, err = reconciler.Override(context.Background(), "c-1", models.VerificationPending)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, store.Verification("c-1").Status)
}

func TestReconcilerErrors(t *testing.T) {
	store := newMemoryConcernStore(pendingConcern("c-1", "bin"))
	store.failWrite["c-1"] = errors.New("deadlock detected")
	reconciler := NewReconciler(store, nil, nil, nil)

	_, err := reconciler.ApplyVerification(context.Background(), "missing", sampleResult())
	assert.True(t, appErrors.IsNotFound(err))

	_, err = reconciler.ApplyVerification(context.Background(), "c-1", sampleResult())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, err = reconciler.Override(context.Background(), "missing", models.VerificationApproved)
	assert.True(t, appErrors.IsNotFound(err))

	_, err = reconciler.Override(context.Background(), "c-1", "maybe")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReconcilerRecoveryWrite(t *testing.T) {
	store := newMemoryConcernStore(pendingConcern("c-1", "bin"))
	reconciler := NewReconciler(store, nil, nil, nil)

	updated, err := reconciler.ApplyRecovery(context.Background(), "c-1", errors.New("API request failed: 503 - busy"))
	require.NoError(t, err)
	v := updated.Verification
	assert.Equal(t, models.VerificationRejected, v.Status)
	assert.Equal(t, models.SuggestionError, *v.AISuggestion)
	assert.Equal(t, "Error during processing: API request failed: 503 - busy", *v.AIReason)
	assert.Nil(t, v.Confidence)
	assert.NotNil(t, v.ProcessedAt)
}
