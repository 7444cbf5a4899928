package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

// ResidentRepository manages persistence for residents.
type ResidentRepository struct {
	db *sqlx.DB
}

// NewResidentRepository constructs a ResidentRepository.
func NewResidentRepository(db *sqlx.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// Create inserts a new resident.
func (r *ResidentRepository) Create(ctx context.Context, resident *models.Resident) error {
	if resident.ID == "" {
		resident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if resident.CreatedAt.IsZero() {
		resident.CreatedAt = now
	}
	resident.UpdatedAt = now
	const query = `INSERT INTO residents (id, name, email, avatar, created_at, updated_at)
VALUES (:id, :name, :email, :avatar, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resident); err != nil {
		return fmt.Errorf("create resident: %w", err)
	}
	return nil
}

// FindByID fetches a resident by ID.
func (r *ResidentRepository) FindByID(ctx context.Context, id string) (*models.Resident, error) {
	const query = `SELECT id, name, email, avatar, created_at, updated_at FROM residents WHERE id = $1`
	var resident models.Resident
	if err := r.db.GetContext(ctx, &resident, query, id); err != nil {
		return nil, fmt.Errorf("get resident: %w", err)
	}
	return &resident, nil
}

// List returns every resident ordered by name.
func (r *ResidentRepository) List(ctx context.Context) ([]models.Resident, error) {
	const query = `SELECT id, name, email, avatar, created_at, updated_at FROM residents ORDER BY name ASC`
	var residents []models.Resident
	if err := r.db.SelectContext(ctx, &residents, query); err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	return residents, nil
}

// ExistsByEmail checks if a resident already uses the email.
func (r *ResidentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM residents WHERE email = $1 LIMIT 1", email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}
