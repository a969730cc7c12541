package tutoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chatling/v2/pkg/errors"
)

func TestExtractJSONDirect(t *testing.T) {
	raw := `{"original_sentence": "hi", "corrected_sentence": "Hi"}`
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(result))
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"key\": \"value\"}\n```\nHope that helps!"
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, string(result))
}

func TestExtractJSONFencedBlockWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"key\": \"value\"}\n```"
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, string(result))
}

func TestExtractJSONBalancedSpan(t *testing.T) {
	raw := `Sure! The result is {"key": "value"} as requested.`
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, string(result))
}

func TestExtractJSONBalancedSpanWithNesting(t *testing.T) {
	raw := `prefix {"outer": {"inner": [1, 2, 3]}} suffix`
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outer": {"inner": [1, 2, 3]}}`, string(result))
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := `note: {"text": "a } inside a string", "n": 1} end`
	result, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": "a } inside a string", "n": 1}`, string(result))
}

func TestExtractJSONArray(t *testing.T) {
	raw := "```json\n[{\"id\": \"ex-1\"}, {\"id\": \"ex-2\"}]\n```"
	result, err := ExtractArray(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": "ex-1"}, {"id": "ex-2"}]`, string(result))
}

func TestExtractJSONProseFails(t *testing.T) {
	_, err := ExtractJSON("The sentence looks great, no changes needed!")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnparseableOutput, apperrors.GetCode(err))
}

func TestExtractJSONEmptyFails(t *testing.T) {
	_, err := ExtractJSON("   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnparseableOutput, apperrors.GetCode(err))
}

func TestExtractJSONUnbalancedFails(t *testing.T) {
	_, err := ExtractJSON(`{"key": "value"`)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnparseableOutput, apperrors.GetCode(err))
}

func TestExtractJSONDeterministic(t *testing.T) {
	raw := "text ```json\n{\"a\": 1}\n``` more {\"b\": 2}"
	first, err := ExtractJSON(raw)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ExtractJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestExtractObjectMissingKeys(t *testing.T) {
	_, err := ExtractObject(`{"original_sentence": "hi"}`, "original_sentence", "corrected_sentence")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSchemaMismatch, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "corrected_sentence")
}

func TestExtractObjectRejectsArray(t *testing.T) {
	_, err := ExtractObject(`[1, 2, 3]`, "key")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSchemaMismatch, apperrors.GetCode(err))
}

func TestExtractCorrection(t *testing.T) {
	raw := "```json\n" + `{
		"original_sentence": "i has a apple",
		"corrected_sentence": "I have an apple",
		"overall_comment": "加油！",
		"corrections": [
			{"type": "grammar", "original": "i has", "corrected": "I have", "explanation": "主谓一致"}
		]
	}` + "\n```"

	c, err := ExtractCorrection(raw)
	require.NoError(t, err)
	assert.Equal(t, "i has a apple", c.OriginalSentence)
	assert.Equal(t, "I have an apple", c.CorrectedSentence)
	require.Len(t, c.Corrections, 1)
	assert.False(t, c.IsNoOp())
}

func TestExtractCorrectionNoOp(t *testing.T) {
	raw := `{
		"original_sentence": "I like apples.",
		"corrected_sentence": "I like apples.",
		"overall_comment": "很棒！",
		"corrections": []
	}`
	c, err := ExtractCorrection(raw)
	require.NoError(t, err)
	assert.True(t, c.IsNoOp())
}

func TestExtractCorrectionInconsistentEmptyList(t *testing.T) {
	// An empty corrections list with a changed sentence violates the
	// structural contract and must be rejected, not silently accepted.
	raw := `{
		"original_sentence": "i has a apple",
		"corrected_sentence": "I have an apple",
		"corrections": []
	}`
	_, err := ExtractCorrection(raw)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSchemaMismatch, apperrors.GetCode(err))
}

func TestExtractCorrectionMissingRequiredKey(t *testing.T) {
	raw := `{"original_sentence": "hi", "corrections": []}`
	_, err := ExtractCorrection(raw)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSchemaMismatch, apperrors.GetCode(err))
}

func TestExtractOptimization(t *testing.T) {
	raw := "```json\n" + `{
		"original_sentence": "I want to improve my English very much.",
		"optimized_sentence": "I am eager to improve my English.",
		"optimization_type": "cet4_writing"
	}` + "\n```"

	o, err := ExtractOptimization(raw)
	require.NoError(t, err)
	assert.Equal(t, "I am eager to improve my English.", o.OptimizedSentence)
	assert.False(t, o.IsNoOp())
}

func TestExtractOptimizationNoOpIgnoresCase(t *testing.T) {
	raw := `{
		"original_sentence": "i am eager to improve my english.",
		"optimized_sentence": "I am eager to improve my English.",
		"optimization_type": "cet4_writing"
	}`
	o, err := ExtractOptimization(raw)
	require.NoError(t, err)
	assert.True(t, o.IsNoOp())
}

func TestExtractOptimizationProseFails(t *testing.T) {
	_, err := ExtractOptimization("Your sentence is already excellent, keep it up!")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnparseableOutput, apperrors.GetCode(err))
}
