package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

const concernColumns = `c.id, c.text, c.resident_id, r.name AS resident_name, c.submitted_at, c.verification, c.created_at, c.updated_at`

const concernReturning = `RETURNING id, text, resident_id, submitted_at, verification, created_at, updated_at`

// ConcernRepository persists concerns and their embedded verification document.
type ConcernRepository struct {
	db *sqlx.DB
}

// NewConcernRepository constructs the repository.
func NewConcernRepository(db *sqlx.DB) *ConcernRepository {
	return &ConcernRepository{db: db}
}

// Create inserts a new concern with generated defaults.
func (r *ConcernRepository) Create(ctx context.Context, concern *models.Concern) error {
	if concern.ID == "" {
		concern.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if concern.SubmittedAt.IsZero() {
		concern.SubmittedAt = now
	}
	if concern.CreatedAt.IsZero() {
		concern.CreatedAt = now
	}
	concern.UpdatedAt = now
	if concern.Verification == nil {
		pending := models.PendingVerification()
		concern.Verification = &pending
	}
	const query = `INSERT INTO concerns (id, text, resident_id, submitted_at, verification, created_at, updated_at)
VALUES (:id, :text, :resident_id, :submitted_at, :verification, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, concern); err != nil {
		return fmt.Errorf("create concern: %w", err)
	}
	return nil
}

// FindByID returns a concern with its resident name.
func (r *ConcernRepository) FindByID(ctx context.Context, id string) (*models.Concern, error) {
	query := `SELECT ` + concernColumns + `
FROM concerns c LEFT JOIN residents r ON r.id = c.resident_id WHERE c.id = $1`
	var concern models.Concern
	if err := r.db.GetContext(ctx, &concern, query, id); err != nil {
		return nil, fmt.Errorf("get concern: %w", err)
	}
	return &concern, nil
}

// List returns concerns matching the filter, newest first.
func (r *ConcernRepository) List(ctx context.Context, filter models.ConcernFilter) ([]models.Concern, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Status != "" {
		if filter.Status == models.VerificationPending {
			conditions = append(conditions, fmt.Sprintf("(c.verification IS NULL OR c.verification->>'status' = $%d)", len(args)+1))
		} else {
			conditions = append(conditions, fmt.Sprintf("c.verification->>'status' = $%d", len(args)+1))
		}
		args = append(args, string(filter.Status))
	}
	if filter.ResidentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.resident_id = $%d", len(args)+1))
		args = append(args, filter.ResidentID)
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM concerns c LEFT JOIN residents r ON r.id = c.resident_id WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, concernColumns, where, size, offset)
	var concerns []models.Concern
	if err := r.db.SelectContext(ctx, &concerns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list concerns: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM concerns c WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count concerns: %w", err)
	}
	return concerns, total, nil
}

// ListPending returns concerns still awaiting verification, oldest first.
func (r *ConcernRepository) ListPending(ctx context.Context) ([]models.Concern, error) {
	query := `SELECT ` + concernColumns + `
FROM concerns c LEFT JOIN residents r ON r.id = c.resident_id
WHERE c.verification IS NULL OR c.verification->>'status' = 'pending'
ORDER BY c.submitted_at ASC`
	var concerns []models.Concern
	if err := r.db.SelectContext(ctx, &concerns, query); err != nil {
		return nil, fmt.Errorf("list pending concerns: %w", err)
	}
	return concerns, nil
}

// ReplaceVerification swaps the whole verification document in one statement.
func (r *ConcernRepository) ReplaceVerification(ctx context.Context, id string, verification models.Verification) (*models.Concern, error) {
	query := `UPDATE concerns SET verification = $1, updated_at = $2 WHERE id = $3 ` + concernReturning
	var concern models.Concern
	if err := r.db.GetContext(ctx, &concern, query, verification, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("replace verification: %w", err)
	}
	return &concern, nil
}

// SetVerificationStatus changes only status and processedAt inside the verification document.
func (r *ConcernRepository) SetVerificationStatus(ctx context.Context, id string, status models.VerificationStatus, processedAt time.Time) (*models.Concern, error) {
	query := `UPDATE concerns SET verification = jsonb_set(jsonb_set(COALESCE(verification, '{}'::jsonb), '{status}', to_jsonb($1::text)), '{processedAt}', to_jsonb($2::timestamptz)), updated_at = $3 WHERE id = $4 ` + concernReturning
	var concern models.Concern
	if err := r.db.GetContext(ctx, &concern, query, string(status), processedAt.UTC(), time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("set verification status: %w", err)
	}
	return &concern, nil
}

type concernStatsRow struct {
	Status   string `db:"status"`
	Category string `db:"category"`
	Total    int    `db:"total"`
}

// Stats aggregates concerns by verification status and category.
func (r *ConcernRepository) Stats(ctx context.Context) (*models.ConcernStats, error) {
	const query = `SELECT COALESCE(verification->>'status', 'pending') AS status, COALESCE(verification->>'category', '') AS category, COUNT(*) AS total
FROM concerns GROUP BY 1, 2`
	var rows []concernStatsRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("concern stats: %w", err)
	}
	stats := &models.ConcernStats{ByCategory: map[models.ConcernCategory]int{}, GeneratedAt: time.Now().UTC()}
	for _, row := range rows {
		stats.Total += row.Total
		switch models.VerificationStatus(row.Status) {
		case models.VerificationApproved:
			stats.Approved += row.Total
		case models.VerificationRejected:
			stats.Rejected += row.Total
		default:
			stats.Pending += row.Total
		}
		if row.Category != "" {
			stats.ByCategory[models.ConcernCategory(row.Category)] += row.Total
		}
	}
	return stats, nil
}
