package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

// Fallback scores for replies that did not use the structured contract.
const (
	fallbackApprovedConfidence = 0.6
	fallbackRejectedConfidence = 0.7
)

// Kind tags which shape a response decoded into.
type Kind int

const (
	KindUnparseable Kind = iota
	KindStructured
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindText:
		return "text"
	default:
		return "unparseable"
	}
}

// StructuredResult holds validated verify_waste_concern arguments.
type StructuredResult struct {
	IsLegitimate bool
	Status       models.VerificationStatus
	Reason       string
	Confidence   float64
	Category     models.ConcernCategory
}

// TextResult holds a free-text reply. Rejected explains why a tool call, if any, was ignored.
type TextResult struct {
	Content  string
	Rejected error
}

// Decoded is exactly one of Structured, Text or Unparseable (Err set).
type Decoded struct {
	Kind       Kind
	Structured *StructuredResult
	Text       *TextResult
	Err        error
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content   json.RawMessage `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type verifyArguments struct {
	IsLegitimate *bool    `json:"is_legitimate" validate:"required"`
	Status       *string  `json:"status" validate:"required,oneof=approved rejected"`
	Reason       *string  `json:"reason" validate:"required"`
	Confidence   *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Category     *string  `json:"category" validate:"required,concern_category"`
}

var argumentValidator = newArgumentValidator()

func newArgumentValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("concern_category", validConcernCategory); err != nil {
		panic(fmt.Sprintf("register concern_category validation: %v", err))
	}
	return v
}

func validConcernCategory(fl validator.FieldLevel) bool {
	return models.ConcernCategory(fl.Field().String()).Valid()
}

// Interpret turns a raw completion into a verification decision. It fails only for unparseable bodies.
func Interpret(raw RawOutput, now time.Time) (models.VerificationResult, error) {
	return Decode(raw).Result(now)
}

// Decode classifies raw output as a structured call, a text reply or unparseable. Bodies that are
// not JSON or hold no choices, including 2xx error objects, are unparseable.
func Decode(raw RawOutput) Decoded {
	var resp completionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Decoded{Kind: KindUnparseable, Err: err}
	}
	if len(resp.Choices) == 0 {
		return Decoded{Kind: KindUnparseable, Err: errors.New("response carries no choices")}
	}

	message := resp.Choices[0].Message
	content := messageText(message.Content)
	if len(message.ToolCalls) == 0 {
		return Decoded{Kind: KindText, Text: &TextResult{Content: content}}
	}

	call := message.ToolCalls[0].Function
	structured, err := decodeArguments(call.Name, call.Arguments)
	if err != nil {
		return Decoded{Kind: KindText, Text: &TextResult{Content: content, Rejected: err}}
	}
	return Decoded{Kind: KindStructured, Structured: structured}
}

// Result maps the decoded variant onto a VerificationResult stamped with now.
func (d Decoded) Result(now time.Time) (models.VerificationResult, error) {
	switch d.Kind {
	case KindStructured:
		return d.Structured.result(now), nil
	case KindText:
		return d.Text.result(now), nil
	default:
		return models.VerificationResult{}, &MalformedResponseError{Err: d.Err}
	}
}

func (s *StructuredResult) result(now time.Time) models.VerificationResult {
	suggestion := models.SuggestionNonsense
	if s.IsLegitimate {
		suggestion = models.SuggestionLegitimate
	}
	confidence := s.Confidence
	category := s.Category
	return models.VerificationResult{
		Status:       s.Status,
		AISuggestion: suggestion,
		AIReason:     s.Reason,
		Confidence:   &confidence,
		Category:     &category,
		ProcessedAt:  now,
	}
}

func (t *TextResult) result(now time.Time) models.VerificationResult {
	reply := t.Content
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
	}
	result := models.VerificationResult{AIReason: reply, ProcessedAt: now}
	if strings.Contains(strings.ToLower(reply), models.SuggestionLegitimate) {
		confidence := fallbackApprovedConfidence
		category := models.CategoryOther
		result.Status = models.VerificationApproved
		result.AISuggestion = models.SuggestionLegitimate
		result.Confidence = &confidence
		result.Category = &category
		return result
	}
	confidence := fallbackRejectedConfidence
	category := models.CategoryVague
	result.Status = models.VerificationRejected
	result.AISuggestion = models.SuggestionNonsense
	result.Confidence = &confidence
	result.Category = &category
	return result
}

func decodeArguments(name string, raw json.RawMessage) (*StructuredResult, error) {
	if name != VerifyFunctionName {
		return nil, fmt.Errorf("unexpected function %q", name)
	}
	payload := []byte(raw)
	// Arguments normally arrive as a JSON-encoded string; some providers send the object itself.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		payload = []byte(encoded)
	}
	if len(payload) == 0 {
		return nil, errors.New("missing arguments")
	}

	var args verifyArguments
	if err := json.Unmarshal(payload, &args); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if err := argumentValidator.Struct(args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return &StructuredResult{
		IsLegitimate: *args.IsLegitimate,
		Status:       models.VerificationStatus(*args.Status),
		Reason:       *args.Reason,
		Confidence:   *args.Confidence,
		Category:     models.ConcernCategory(*args.Category),
	}, nil
}

// messageText accepts either a plain string or an array of {type, text} parts.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		if part.Type == "text" || part.Type == "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
