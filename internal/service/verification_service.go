package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/classifier"
	"github.com/noah-isme/concern-verifier-api/internal/dto"
	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
	"github.com/noah-isme/concern-verifier-api/pkg/jobs"
)

// VerificationJobType tags queue jobs that classify one concern.
const VerificationJobType = "verify_concern"

type concernClassifier interface {
	Classify(ctx context.Context, concernText string) (classifier.RawOutput, error)
}

type verificationApplier interface {
	ApplyVerification(ctx context.Context, id string, result models.VerificationResult) (*models.Concern, error)
	ApplyRecovery(ctx context.Context, id string, cause error) (*models.Concern, error)
}

type pendingConcernSource interface {
	ListPending(ctx context.Context) ([]models.Concern, error)
	FindByID(ctx context.Context, id string) (*models.Concern, error)
}

type verificationPayload struct {
	ConcernID string
	Text      string
}

// VerificationConfig tunes the verification pipeline.
type VerificationConfig struct {
	// Delay is the rate-limit interval between consecutive classification calls.
	Delay time.Duration
}

// VerificationTicket tracks one enqueued classification.
type VerificationTicket struct {
	ConcernID string
	handle    *jobs.Handle
}

// Done closes once the job has completed or failed.
func (t *VerificationTicket) Done() <-chan struct{} {
	return t.handle.Done()
}

// State reports the job's lifecycle state.
func (t *VerificationTicket) State() jobs.State {
	return t.handle.State()
}

// Wait blocks until the job settles or ctx ends. The job keeps running if ctx ends first.
func (t *VerificationTicket) Wait(ctx context.Context) (*models.Concern, error) {
	value, err := t.handle.Wait(ctx)
	if err != nil {
		return nil, err
	}
	concern, ok := value.(*models.Concern)
	if !ok || concern == nil {
		return nil, fmt.Errorf("verification of concern %s returned %T, want *models.Concern", t.ConcernID, value)
	}
	return concern, nil
}

// VerificationService drives concerns through classify, interpret and reconcile on a single
// rate-limited worker.
type VerificationService struct {
	classifier concernClassifier
	reconciler verificationApplier
	concerns   pendingConcernSource
	queue      *jobs.Queue
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewVerificationService builds the service and its queue. Call Start before submitting.
func NewVerificationService(classify concernClassifier, reconciler verificationApplier, concerns pendingConcernSource, cfg VerificationConfig, metrics *MetricsService, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &VerificationService{
		classifier: classify,
		reconciler: reconciler,
		concerns:   concerns,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	svc.queue = jobs.NewQueue("verification", svc.Handle, jobs.QueueConfig{Delay: cfg.Delay, Logger: logger})
	return svc
}

// Start launches the worker and exports the queue depth gauge.
func (s *VerificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.metrics.RegisterQueueDepth(s.queue.Len)
}

// Stop waits for the running job. Jobs still waiting fail and their concerns stay pending.
func (s *VerificationService) Stop() {
	s.queue.Stop()
}

// QueueDepth reports how many jobs wait to start.
func (s *VerificationService) QueueDepth() int {
	return s.queue.Len()
}

// Submit enqueues concern for classification and returns immediately. Submitting a concern that
// is already queued classifies it twice.
func (s *VerificationService) Submit(concern *models.Concern) (*VerificationTicket, error) {
	if concern == nil || concern.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "concern id is required")
	}
	handle, err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    VerificationJobType,
		Payload: verificationPayload{ConcernID: concern.ID, Text: concern.Text},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, appErrors.ErrQueueUnavailable.Message)
	}
	return &VerificationTicket{ConcernID: concern.ID, handle: handle}, nil
}

// Handle is the queue handler. Any classification, interpretation or storage failure triggers a
// recovery write marking the concern rejected, and the original error is returned.
func (s *VerificationService) Handle(ctx context.Context, job jobs.Job) (value interface{}, err error) {
	payload, ok := job.Payload.(verificationPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	log := s.logger.With(zap.String("job_id", job.ID), zap.String("concern_id", payload.ConcernID))

	defer func() {
		if rec := recover(); rec != nil {
			value = nil
			err = s.fail(ctx, log, payload.ConcernID, fmt.Errorf("panic: %v", rec))
		}
	}()

	start := time.Now()
	raw, err := s.classifier.Classify(ctx, payload.Text)
	if err != nil {
		s.metrics.ObserveClassification(failureOutcome(err), time.Since(start))
		return nil, s.fail(ctx, log, payload.ConcernID, err)
	}

	decoded := classifier.Decode(raw)
	result, err := decoded.Result(s.now())
	if err != nil {
		s.metrics.ObserveClassification(OutcomeMalformed, time.Since(start))
		return nil, s.fail(ctx, log, payload.ConcernID, err)
	}
	s.metrics.ObserveClassification(decoded.Kind.String(), time.Since(start))
	if decoded.Kind == classifier.KindText {
		fields := []zap.Field{zap.String("status", string(result.Status))}
		if decoded.Text.Rejected != nil {
			fields = append(fields, zap.NamedError("tool_call", decoded.Text.Rejected))
		}
		log.Info("classifier answered without structured call, using text fallback", fields...)
	}

	concern, err := s.reconciler.ApplyVerification(ctx, payload.ConcernID, result)
	if err != nil {
		if appErrors.IsNotFound(err) {
			log.Warn("concern disappeared before verification was stored")
			return nil, err
		}
		return nil, s.fail(ctx, log, payload.ConcernID, err)
	}
	log.Info("concern verified", zap.String("status", string(result.Status)), zap.String("interpretation", decoded.Kind.String()))
	return concern, nil
}

func (s *VerificationService) fail(ctx context.Context, log *zap.Logger, concernID string, cause error) error {
	if _, err := s.reconciler.ApplyRecovery(ctx, concernID, cause); err != nil {
		log.Error("recovery write failed", zap.NamedError("cause", cause), zap.Error(err))
		return cause
	}
	log.Warn("concern verification failed, marked rejected", zap.Error(cause))
	return cause
}

// ProcessAllPending enqueues every concern awaiting verification and waits for all of them.
// One failure never aborts the batch. Failed entries carry the concern as stored after the failure.
func (s *VerificationService) ProcessAllPending(ctx context.Context) ([]dto.ProcessResult, error) {
	concerns, err := s.concerns.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending concerns")
	}

	results := make([]dto.ProcessResult, len(concerns))
	tickets := make([]*VerificationTicket, len(concerns))
	for i := range concerns {
		results[i].ConcernID = concerns[i].ID
		ticket, err := s.Submit(&concerns[i])
		if err != nil {
			results[i].Error = err.Error()
			results[i].Concern = &concerns[i]
			continue
		}
		tickets[i] = ticket
	}

	for i, ticket := range tickets {
		if ticket == nil {
			continue
		}
		concern, err := ticket.Wait(ctx)
		if err != nil {
			results[i].Error = err.Error()
			results[i].Concern = s.reload(ctx, &concerns[i])
			continue
		}
		results[i].Success = true
		results[i].Concern = concern
	}
	s.logger.Info("batch verification finished", zap.Int("processed", len(results)))
	return results, nil
}

// reload re-reads concern so a failed entry shows its recovery write. The listed copy is the fallback.
func (s *VerificationService) reload(ctx context.Context, concern *models.Concern) *models.Concern {
	current, err := s.concerns.FindByID(ctx, concern.ID)
	if err != nil {
		s.logger.Debug("failed to reload concern after failed verification", zap.String("concern_id", concern.ID), zap.Error(err))
		return concern
	}
	return current
}

// RecoverPending enqueues every pending concern without waiting and returns how many were queued.
func (s *VerificationService) RecoverPending(ctx context.Context) (int, error) {
	concerns, err := s.concerns.ListPending(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending concerns")
	}
	queued := 0
	for i := range concerns {
		if _, err := s.Submit(&concerns[i]); err != nil {
			return queued, err
		}
		queued++
	}
	if queued > 0 {
		s.logger.Info("re-queued pending concerns", zap.Int("count", queued))
	}
	return queued, nil
}

func failureOutcome(err error) string {
	var transport *classifier.TransportError
	var upstream *classifier.UpstreamError
	switch {
	case errors.As(err, &transport):
		return OutcomeTransport
	case errors.As(err, &upstream):
		return OutcomeUpstream
	default:
		return OutcomeMalformed
	}
}
