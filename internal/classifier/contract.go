package classifier

import (
	"fmt"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

// VerifyFunctionName is the structured-output function offered to the model.
const VerifyFunctionName = "verify_waste_concern"

// FallbackReply is recorded as the reason when the model returned no usable content.
const FallbackReply = "Fallback: Unable to determine legitimacy"

// DefaultSystemPrompt describes the legitimacy taxonomy. CLASSIFIER_SYSTEM_PROMPT overrides it.
const DefaultSystemPrompt = `You are an advanced AI assistant specializing in waste management concern verification, with expertise in municipal waste policies, environmental regulations, and community health standards. Your task is to analyze resident-submitted concerns and determine their legitimacy with high accuracy, considering public health and safety implications.

ASSESSMENT FRAMEWORK:
1. LEGITIMATE CONCERNS (APPROVE):
   - Waste collection issues (missed pickups, irregular service, overflowing bins)
   - Recycling problems (contamination, improper sorting, collection issues)
   - Waste containers (damaged, insufficient, inaccessible)
   - Illegal dumping (unauthorized disposal in public/private areas)
   - Public space cleanliness (streets, parks, waterways with waste; includes litter, debris, and minor hazards)
   - Dead animals in public spaces (requires removal for sanitation)
   - Hazardous waste (improper disposal of chemicals, medical waste, batteries)
   - Drainage issues (waste-blocked drainage systems causing problems)
   - Odor/pest issues (clearly related to waste management or sanitation)
   - Collection schedule confusion or complaints
   - Service access problems in underserved areas

2. ILLEGITIMATE CONCERNS (REJECT):
   - Commercial promotions or advertisements
   - Personal disputes unrelated to waste (neighbor conflicts, non-waste related)
   - Consultation requests outside waste management scope
   - Nonsensical, clearly fabricated, or hallucinated problems
   - Hate speech, harassment, or threatening content
   - Completely unrelated topics (traffic, utilities not connected to waste, noise complaints)
   - Vague complaints without specific waste management or public sanitation connection
   - Physically impossible scenarios
   - Content primarily selling products/services

YOUR TASK:
You will analyze waste management concerns using the verify_waste_concern function. For each concern:
1. Determine if it's legitimate based on the assessment framework, considering public health and sanitation implications.
2. Assign the appropriate status ('approved' or 'rejected').
3. Provide a brief, clear explanation for your decision.
4. Assign a confidence score (0.0-1.0) representing how certain you are.
5. Categorize the concern using the most specific category from the options.

Your analysis must be objective, focusing on waste management relevance and actionability.
For ambiguous cases, lean towards approving if there is a plausible public health, safety, or sanitation concern that municipal services might address. Consider:
- Whether municipal waste/sanitation services could realistically address the issue.
- If the concern affects public spaces or infrastructure.
- The potential impact on community health/safety.
- If there is sufficient specific detail to act upon.

The tool output will directly impact municipal resource allocation, so accuracy is critical.`

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool is a function the model may call instead of answering in prose.
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec declares a callable function and its JSON schema.
type FunctionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Tools       []Tool    `json:"tools"`
	ToolChoice  string    `json:"tool_choice"`
}

// VerifyConcernTool builds the verify_waste_concern contract.
func VerifyConcernTool() Tool {
	categories := make([]string, 0, len(models.ConcernCategories))
	for _, category := range models.ConcernCategories {
		categories = append(categories, string(category))
	}
	return Tool{
		Type: "function",
		Function: FunctionSpec{
			Name:        VerifyFunctionName,
			Description: "Verify if a waste management concern is legitimate and requires attention from municipal services, considering public health and sanitation.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"is_legitimate": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the concern is a legitimate waste management or public sanitation issue",
					},
					"status": map[string]interface{}{
						"type":        "string",
						"enum":        []string{string(models.VerificationApproved), string(models.VerificationRejected)},
						"description": "The verification status",
					},
					"reason": map[string]interface{}{
						"type":        "string",
						"description": "A brief one-sentence explanation for the decision",
					},
					"confidence": map[string]interface{}{
						"type":        "number",
						"description": "Confidence score between 0 and 1",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"enum":        categories,
						"description": "Category of the waste concern or reason for rejection",
					},
				},
				"required": []string{"is_legitimate", "status", "reason", "confidence", "category"},
			},
		},
	}
}

func userPrompt(concernText string) string {
	return fmt.Sprintf(`I need you to verify if this waste management concern is legitimate or nonsense.

Concern: "%s"

Analyze this concern and use the %s function to provide a structured determination.`, concernText, VerifyFunctionName)
}
