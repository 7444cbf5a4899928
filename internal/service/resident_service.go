package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/concern-verifier-api/internal/dto"
	"github.com/noah-isme/concern-verifier-api/internal/models"
	appErrors "github.com/noah-isme/concern-verifier-api/pkg/errors"
)

type residentRepository interface {
	Create(ctx context.Context, resident *models.Resident) error
	FindByID(ctx context.Context, id string) (*models.Resident, error)
	List(ctx context.Context) ([]models.Resident, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

var sampleResidentNames = []string{
	"Maria Santos", "Juan Dela Cruz", "Ana Reyes", "Pedro Mendoza",
	"Elena Bautista", "Miguel Gonzales", "Sofia Dizon", "Rafael Cruz",
}

// ResidentService manages residents.
type ResidentService struct {
	repo      residentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	intn      func(n int) int
}

// NewResidentService constructs a ResidentService.
func NewResidentService(repo residentRepository, validate *validator.Validate, logger *zap.Logger) *ResidentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResidentService{repo: repo, validator: validate, logger: logger, now: time.Now, intn: rand.Intn}
}

// Create registers a resident. Emails are trimmed, lower-cased and unique.
func (s *ResidentService) Create(ctx context.Context, req dto.CreateResidentRequest) (*models.Resident, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Avatar = strings.TrimSpace(req.Avatar)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and a valid email are required")
	}
	return s.create(ctx, req)
}

// CreateTest registers a resident with a sample name and a random example.com address.
func (s *ResidentService) CreateTest(ctx context.Context) (*models.Resident, error) {
	name := sampleResidentNames[s.intn(len(sampleResidentNames))]
	email := fmt.Sprintf("%s%d@example.com", strings.ToLower(strings.Join(strings.Fields(name), "")), s.intn(1000))
	return s.create(ctx, dto.CreateResidentRequest{Name: name, Email: email})
}

func (s *ResidentService) create(ctx context.Context, req dto.CreateResidentRequest) (*models.Resident, error) {
	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a resident with this email already exists")
	}

	avatar := req.Avatar
	if avatar == "" {
		avatar = fmt.Sprintf("https://api.dicebear.com/7.x/notionists/svg?seed=%d", s.now().UnixMilli())
	}
	resident := &models.Resident{Name: req.Name, Email: req.Email, Avatar: avatar}
	if err := s.repo.Create(ctx, resident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resident")
	}
	s.logger.Info("resident created", zap.String("resident_id", resident.ID))
	return resident, nil
}

// List returns residents ordered by name.
func (s *ResidentService) List(ctx context.Context) ([]models.Resident, error) {
	residents, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list residents")
	}
	if residents == nil {
		residents = []models.Resident{}
	}
	return residents, nil
}

// Get returns one resident.
func (s *ResidentService) Get(ctx context.Context, id string) (*models.Resident, error) {
	resident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resident")
	}
	return resident, nil
}
