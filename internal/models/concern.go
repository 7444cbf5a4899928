package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VerificationStatus captures the legitimacy decision lifecycle.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether the status is one of the known values.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	default:
		return false
	}
}

// Suggestion labels summarising the automatic judgement.
const (
	SuggestionLegitimate = "legitimate"
	SuggestionNonsense   = "nonsense"
	SuggestionError      = "error"
)

// ConcernCategory classifies a concern or the reason it was rejected.
type ConcernCategory string

const (
	CategoryWasteCollection     ConcernCategory = "waste_collection"
	CategoryRecycling           ConcernCategory = "recycling"
	CategoryContainers          ConcernCategory = "containers"
	CategoryIllegalDumping      ConcernCategory = "illegal_dumping"
	CategoryPublicCleanliness   ConcernCategory = "public_cleanliness"
	CategoryDeadAnimal          ConcernCategory = "dead_animal"
	CategoryHazardousWaste      ConcernCategory = "hazardous_waste"
	CategoryDrainage            ConcernCategory = "drainage"
	CategoryOdorPests           ConcernCategory = "odor_pests"
	CategoryScheduling          ConcernCategory = "scheduling"
	CategoryServiceAccess       ConcernCategory = "service_access"
	CategoryCommercialPromotion ConcernCategory = "commercial_promotion"
	CategoryPersonalDispute     ConcernCategory = "personal_dispute"
	CategoryOutOfScope          ConcernCategory = "out_of_scope"
	CategoryNonsensical         ConcernCategory = "nonsensical"
	CategoryInappropriate       ConcernCategory = "inappropriate"
	CategoryUnrelated           ConcernCategory = "unrelated"
	CategoryVague               ConcernCategory = "vague"
	CategoryImpossible          ConcernCategory = "impossible"
	CategoryOther               ConcernCategory = "other"
)

// ConcernCategories lists the closed category set in declaration order.
var ConcernCategories = []ConcernCategory{
	CategoryWasteCollection,
	CategoryRecycling,
	CategoryContainers,
	CategoryIllegalDumping,
	CategoryPublicCleanliness,
	CategoryDeadAnimal,
	CategoryHazardousWaste,
	CategoryDrainage,
	CategoryOdorPests,
	CategoryScheduling,
	CategoryServiceAccess,
	CategoryCommercialPromotion,
	CategoryPersonalDispute,
	CategoryOutOfScope,
	CategoryNonsensical,
	CategoryInappropriate,
	CategoryUnrelated,
	CategoryVague,
	CategoryImpossible,
	CategoryOther,
}

// Valid reports whether the category belongs to the closed set.
func (c ConcernCategory) Valid() bool {
	for _, known := range ConcernCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Verification is the classification outcome embedded in a concern. Persisted as JSONB.
type Verification struct {
	Status       VerificationStatus `json:"status"`
	AISuggestion *string            `json:"aiSuggestion"`
	AIReason     *string            `json:"aiReason"`
	Confidence   *float64           `json:"confidence,omitempty"`
	Category     *ConcernCategory   `json:"category,omitempty"`
	ProcessedAt  *time.Time         `json:"processedAt"`
}

// PendingVerification is the value every concern starts with.
func PendingVerification() Verification {
	return Verification{Status: VerificationPending}
}

// Value marshals the verification to JSON for persistence.
func (v Verification) Value() (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal verification: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the verification.
func (v *Verification) Scan(value interface{}) error {
	if value == nil {
		*v = Verification{}
		return nil
	}
	var data []byte
	switch raw := value.(type) {
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return fmt.Errorf("unsupported type %T for Verification", value)
	}
	if len(data) == 0 {
		*v = Verification{}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal verification: %w", err)
	}
	return nil
}

// VerificationResult is a decision ready to be written onto a concern.
type VerificationResult struct {
	Status       VerificationStatus
	AISuggestion string
	AIReason     string
	Confidence   *float64
	Category     *ConcernCategory
	ProcessedAt  time.Time
}

// Verification converts the result into the stored representation.
func (r VerificationResult) Verification() Verification {
	suggestion := r.AISuggestion
	reason := r.AIReason
	processedAt := r.ProcessedAt.UTC()
	return Verification{
		Status:       r.Status,
		AISuggestion: &suggestion,
		AIReason:     &reason,
		Confidence:   r.Confidence,
		Category:     r.Category,
		ProcessedAt:  &processedAt,
	}
}

// Concern is a resident-submitted waste management report.
type Concern struct {
	ID           string        `db:"id" json:"id"`
	Text         string        `db:"text" json:"text"`
	ResidentID   string        `db:"resident_id" json:"residentId"`
	ResidentName *string       `db:"resident_name" json:"residentName,omitempty"`
	SubmittedAt  time.Time     `db:"submitted_at" json:"submittedAt"`
	Verification *Verification `db:"verification" json:"verification,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
}

// NeedsVerification reports whether the concern is eligible for automatic processing.
func (c *Concern) NeedsVerification() bool {
	return c.Verification == nil || c.Verification.Status == VerificationPending
}

// ConcernFilter encapsulates allowed search parameters for listing concerns.
type ConcernFilter struct {
	Status     VerificationStatus
	ResidentID string
	Page       int
	PageSize   int
}

// ConcernStats aggregates verification outcomes for dashboards.
type ConcernStats struct {
	Total       int                     `json:"total"`
	Pending     int                     `json:"pending"`
	Approved    int                     `json:"approved"`
	Rejected    int                     `json:"rejected"`
	ByCategory  map[ConcernCategory]int `json:"byCategory"`
	GeneratedAt time.Time               `json:"generatedAt"`
}
