package tutoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/inbound"
)

func TestBuildTaskPromptKinds(t *testing.T) {
	for _, kind := range []tutoring.TaskKind{
		tutoring.TaskTranslate,
		tutoring.TaskGrammarCorrect,
		tutoring.TaskOptimize,
	} {
		prompt, err := BuildTaskPrompt(kind, PromptParams{})
		require.NoError(t, err, string(kind))
		assert.NotEmpty(t, prompt)
	}
}

func TestBuildTaskPromptAppendsContextBlock(t *testing.T) {
	without, err := BuildTaskPrompt(tutoring.TaskGrammarCorrect, PromptParams{})
	require.NoError(t, err)
	with, err := BuildTaskPrompt(tutoring.TaskGrammarCorrect, PromptParams{ContextBlock: "Main topic: travel"})
	require.NoError(t, err)

	assert.NotContains(t, without, "Main topic: travel")
	assert.Contains(t, with, "Main topic: travel")
}

func TestBuildTaskPromptUnknownKind(t *testing.T) {
	_, err := BuildTaskPrompt(tutoring.TaskKind("poetry"), PromptParams{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.GetCode(err))
}

func TestBuildTaskPromptSentenceAnalysisRequiresSentence(t *testing.T) {
	_, err := BuildTaskPrompt(tutoring.TaskSentenceAnalysis, PromptParams{Sentence: "  "})
	require.Error(t, err)

	prompt, err := BuildTaskPrompt(tutoring.TaskSentenceAnalysis, PromptParams{
		Sentence:   "The cat sat on the mat.",
		Vocabulary: []string{"mat"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "The cat sat on the mat.")
	assert.Contains(t, prompt, "mat")
}

func TestBuildWordQueryPrompt(t *testing.T) {
	_, err := BuildWordQueryPrompt("", "some context")
	require.Error(t, err)

	prompt, err := BuildWordQueryPrompt("resilient", "a resilient system")
	require.NoError(t, err)
	assert.Contains(t, prompt, "resilient")
}

func TestBuildExercisePrompt(t *testing.T) {
	_, err := BuildExercisePrompt(inbound.GrammarPoint{}, 5, "beginner")
	require.Error(t, err)

	_, err = BuildExercisePrompt(inbound.GrammarPoint{Name: "present simple"}, 0, "beginner")
	require.Error(t, err)

	prompt, err := BuildExercisePrompt(inbound.GrammarPoint{Name: "present simple"}, 5, "beginner")
	require.NoError(t, err)
	assert.Contains(t, prompt, "present simple")
	assert.Contains(t, prompt, "5")
}

func TestBuildChatSystemPrompt(t *testing.T) {
	assert.Contains(t, BuildChatSystemPrompt("bilingual"), "|||")
	assert.NotContains(t, BuildChatSystemPrompt("english"), "|||")
	assert.NotEmpty(t, BuildChatSystemPrompt("chinese"))

	// Unknown preferences fall back to bilingual
	assert.Equal(t, BuildChatSystemPrompt("bilingual"), BuildChatSystemPrompt("klingon"))
	assert.Equal(t, BuildChatSystemPrompt("bilingual"), BuildChatSystemPrompt(""))
}

func TestPromptsAreStable(t *testing.T) {
	a, err := BuildTaskPrompt(tutoring.TaskOptimize, PromptParams{})
	require.NoError(t, err)
	b, err := BuildTaskPrompt(tutoring.TaskOptimize, PromptParams{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
