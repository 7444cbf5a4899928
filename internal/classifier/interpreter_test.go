package classifier

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concern-verifier-api/internal/models"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func toolResponse(arguments string) RawOutput {
	return RawOutput(fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"verify_waste_concern","arguments":%q}}]}}]}`, arguments))
}

func textResponse(content string) RawOutput {
	return RawOutput(fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content))
}

func TestInterpretStructuredLegitimate(t *testing.T) {
	raw := toolResponse(`{"is_legitimate":true,"status":"approved","reason":"Missed collection","confidence":0.92,"category":"waste_collection"}`)

	result, err := Interpret(raw, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, result.Status)
	assert.Equal(t, "legitimate", result.AISuggestion)
	assert.Equal(t, "Missed collection", result.AIReason)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.92, *result.Confidence)
	require.NotNil(t, result.Category)
	assert.Equal(t, models.CategoryWasteCollection, *result.Category)
	assert.Equal(t, fixedNow, result.ProcessedAt)
}

func TestInterpretStructuredCommercial(t *testing.T) {
	raw := toolResponse(`{"is_legitimate":false,"status":"rejected","reason":"Commercial ad, unrelated to waste","confidence":0.95,"category":"commercial_promotion"}`)

	result, err := Interpret(raw, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationRejected, result.Status)
	assert.Equal(t, "nonsense", result.AISuggestion)
	assert.Equal(t, "Commercial ad, unrelated to waste", result.AIReason)
	assert.Equal(t, 0.95, *result.Confidence)
	assert.Equal(t, models.CategoryCommercialPromotion, *result.Category)
}

func TestInterpretStructuredIsDeterministic(t *testing.T) {
	raw := toolResponse(`{"is_legitimate":true,"status":"approved","reason":"Dumped tyres","confidence":0.8123456789,"category":"illegal_dumping"}`)
	first, err := Interpret(raw, fixedNow)
	require.NoError(t, err)
	second, err := Interpret(raw, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 0.8123456789, *first.Confidence)
}

func TestInterpretAcceptsObjectArguments(t *testing.T) {
	raw := RawOutput(`{"choices":[{"message":{"tool_calls":[{"function":{"name":"verify_waste_concern","arguments":{"is_legitimate":false,"status":"rejected","reason":"Noise","confidence":0,"category":"unrelated"}}}]}}]}`)
	decoded := Decode(raw)
	require.Equal(t, KindStructured, decoded.Kind)
	assert.False(t, decoded.Structured.IsLegitimate)
	assert.Equal(t, 0.0, decoded.Structured.Confidence)
}

func TestInterpretFallsBackOnBadToolCall(t *testing.T) {
	cases := map[string]RawOutput{
		"missing field":       toolResponse(`{"is_legitimate":true,"status":"approved","reason":"x","category":"other"}`),
		"bad json":            toolResponse(`{"is_legitimate":true,`),
		"unknown status":      toolResponse(`{"is_legitimate":true,"status":"maybe","reason":"x","confidence":0.5,"category":"other"}`),
		"unknown category":    toolResponse(`{"is_legitimate":true,"status":"approved","reason":"x","confidence":0.5,"category":"potholes"}`),
		"confidence too big":  toolResponse(`{"is_legitimate":true,"status":"approved","reason":"x","confidence":1.5,"category":"other"}`),
		"negative confidence": toolResponse(`{"is_legitimate":true,"status":"approved","reason":"x","confidence":-0.1,"category":"other"}`),
		"wrong function":      RawOutput(`{"choices":[{"message":{"content":"","tool_calls":[{"function":{"name":"other_fn","arguments":"{}"}}]}}]}`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			decoded := Decode(raw)
			require.Equal(t, KindText, decoded.Kind)
			assert.Error(t, decoded.Text.Rejected)

			result, err := decoded.Result(fixedNow)
			require.NoError(t, err)
			assert.Equal(t, models.VerificationRejected, result.Status)
			assert.Equal(t, FallbackReply, result.AIReason)
		})
	}
}

func TestInterpretTextFallback(t *testing.T) {
	cases := []struct {
		reply      string
		status     models.VerificationStatus
		suggestion string
		confidence float64
		category   models.ConcernCategory
	}{
		{"This concern is LEGITIMATE and needs action.", models.VerificationApproved, "legitimate", 0.6, models.CategoryOther},
		{"Seems like a legitimate sanitation issue", models.VerificationApproved, "legitimate", 0.6, models.CategoryOther},
		{"Not legitimate.", models.VerificationApproved, "legitimate", 0.6, models.CategoryOther},
		{"This is spam.", models.VerificationRejected, "nonsense", 0.7, models.CategoryVague},
		{"Legitimacy unclear", models.VerificationRejected, "nonsense", 0.7, models.CategoryVague},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			result, err := Interpret(textResponse(tc.reply), fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tc.status, result.Status)
			assert.Equal(t, tc.suggestion, result.AISuggestion)
			assert.Equal(t, tc.reply, result.AIReason)
			assert.Equal(t, tc.confidence, *result.Confidence)
			assert.Equal(t, tc.category, *result.Category)
		})
	}
}

func TestInterpretContentParts(t *testing.T) {
	raw := RawOutput(`{"choices":[{"message":{"content":[{"type":"text","text":"A legitimate "},{"type":"text","text":"complaint"}]}}]}`)
	result, err := Interpret(raw, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "A legitimate complaint", result.AIReason)
	assert.Equal(t, models.VerificationApproved, result.Status)
}

func TestInterpretPlaceholderWithoutContent(t *testing.T) {
	for _, raw := range []RawOutput{
		RawOutput(`{"choices":[{"message":{"content":null}}]}`),
		RawOutput(`{"choices":[{"message":{"content":""}}]}`),
	} {
		result, err := Interpret(raw, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, FallbackReply, result.AIReason)
		assert.Equal(t, models.VerificationRejected, result.Status)
		assert.Equal(t, "nonsense", result.AISuggestion)
	}
}

func TestInterpretUnparseable(t *testing.T) {
	for _, raw := range []RawOutput{
		RawOutput(`<html>gateway</html>`),
		RawOutput(`[1,2]`),
		RawOutput(``),
		RawOutput(`{}`),
		RawOutput(`null`),
		RawOutput(`{"choices":[]}`),
		RawOutput(`{"error":{"message":"overloaded","type":"server_error"}}`),
	} {
		decoded := Decode(raw)
		assert.Equal(t, KindUnparseable, decoded.Kind)
		_, err := decoded.Result(fixedNow)
		var malformed *MalformedResponseError
		assert.True(t, errors.As(err, &malformed), "body %q", raw)

		_, err = Interpret(raw, fixedNow)
		assert.Error(t, err, "body %q", raw)
	}
}

func TestArgumentValidatorKnowsCategories(t *testing.T) {
	category := "drainage"
	unknown := "weather"
	legit, status, reason, confidence := true, "approved", "ok", 0.5

	valid := verifyArguments{IsLegitimate: &legit, Status: &status, Reason: &reason, Confidence: &confidence, Category: &category}
	assert.NoError(t, argumentValidator.Struct(valid))

	valid.Category = &unknown
	assert.Error(t, argumentValidator.Struct(valid))
}
