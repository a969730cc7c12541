// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use cases the HTTP layer calls into
package inbound

import (
	"context"
	"encoding/json"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/google/uuid"
)

// ChatTurnResult is the outcome of one processed chat turn
type ChatTurnResult struct {
	ConversationID uuid.UUID              `json:"conversation_id"`
	Reply          string                 `json:"response"`
	Translation    string                 `json:"translation,omitempty"`
	Corrections    *tutoring.Correction   `json:"corrections,omitempty"`
	Optimization   *tutoring.Optimization `json:"optimization,omitempty"`
}

// TutorService is the application-facing surface of the tutoring core
type TutorService interface {
	// ProcessChatTurn runs the full turn: annotation fan-out, merge, main
	// completion, and the two store appends. Annotation failures degrade
	// silently; only a failed main completion is returned as an error.
	ProcessChatTurn(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID, text, languagePreference string) (*ChatTurnResult, error)

	// AnalyzeSentence explains a sentence and its selected vocabulary.
	// Structured output is mandatory for this task.
	AnalyzeSentence(ctx context.Context, sentence, contextText string, vocabulary []string) (json.RawMessage, error)

	// QueryWord looks up one word in context. Structured output is mandatory.
	QueryWord(ctx context.Context, word, contextText string) (json.RawMessage, error)

	// AnalyzeWriting scores a sentence against the proficiency rubric and
	// returns the structured analysis. Structured output is mandatory.
	AnalyzeWriting(ctx context.Context, text string) (json.RawMessage, error)
}

// ExerciseService generates and verifies grammar exercises
type ExerciseService interface {
	GenerateExercises(ctx context.Context, point GrammarPoint, count int, difficulty string) ([]Exercise, error)
	VerifyAnswer(userAnswer, correctAnswer string) bool
}

// GrammarPoint names the grammar topic exercises are generated for
type GrammarPoint struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Exercise is one generated practice item. Answer is a string for fill-blank
// and correction items and a 0-based option index for multiple choice.
type Exercise struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Question        string      `json:"question"`
	Options         []string    `json:"options,omitempty"`
	Answer          interface{} `json:"answer"`
	Sentence        string      `json:"sentence,omitempty"`
	CorrectSentence string      `json:"correctSentence,omitempty"`
	Explanation     string      `json:"explanation"`
	Difficulty      string      `json:"difficulty"`
}
