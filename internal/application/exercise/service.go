// Package exercise generates and verifies grammar practice items
package exercise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/chatling/v2/pkg/errors"

	apptutoring "github.com/chatling/v2/internal/application/tutoring"
	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/chatling/v2/internal/ports/outbound"
)

const (
	defaultCount      = 5
	maxCount          = 10
	defaultDifficulty = "beginner"
	cacheTTL          = 24 * time.Hour
)

var validTypes = map[string]bool{
	"fill-blank":      true,
	"multiple-choice": true,
	"correction":      true,
}

// Service implements inbound.ExerciseService
type Service struct {
	completer outbound.ChatCompleter
	cache     outbound.CacheRepository // optional
	logger    *zap.Logger
}

// NewService creates the exercise service
func NewService(completer outbound.ChatCompleter, cache outbound.CacheRepository, logger *zap.Logger) *Service {
	return &Service{completer: completer, cache: cache, logger: logger}
}

// GenerateExercises asks the model for a batch of practice items for one
// grammar point and validates each item before returning it. A batch where
// no item survives validation is a schema mismatch.
func (s *Service) GenerateExercises(ctx context.Context, point inbound.GrammarPoint, count int, difficulty string) ([]inbound.Exercise, error) {
	if count <= 0 {
		count = defaultCount
	}
	if count > maxCount {
		count = maxCount
	}
	if difficulty == "" {
		difficulty = defaultDifficulty
	}

	key := fmt.Sprintf("exercises:%s:%d:%s", strings.ToLower(point.Name), count, difficulty)
	if cached, ok := s.cachedBatch(ctx, key); ok {
		return cached, nil
	}

	prompt, err := apptutoring.BuildExercisePrompt(point, count, difficulty)
	if err != nil {
		return nil, err
	}
	raw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: prompt,
		Messages: []tutoring.Turn{{
			Role:    tutoring.RoleUser,
			Content: fmt.Sprintf("Generate %d exercises for %q at %s difficulty.", count, point.Name, difficulty),
		}},
		MaxTokens:   3000,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	extracted, err := apptutoring.ExtractArray(raw)
	if err != nil {
		return nil, err
	}
	var items []inbound.Exercise
	if err := json.Unmarshal(extracted, &items); err != nil {
		return nil, apperrors.NewSchemaMismatchError("exercise items have wrong types")
	}

	valid := make([]inbound.Exercise, 0, len(items))
	for i, item := range items {
		if !validExercise(item) {
			s.logger.Warn("dropping malformed generated exercise",
				zap.Int("index", i),
				zap.String("type", item.Type))
			continue
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("ai-ex-%d", i+1)
		}
		if item.Difficulty == "" {
			item.Difficulty = difficulty
		}
		valid = append(valid, item)
	}
	if len(valid) == 0 {
		return nil, apperrors.NewSchemaMismatchError("no valid exercises in generated batch")
	}

	s.storeBatch(ctx, key, valid)
	return valid, nil
}

func validExercise(e inbound.Exercise) bool {
	if !validTypes[e.Type] || e.Question == "" || e.Explanation == "" {
		return false
	}
	switch e.Type {
	case "multiple-choice":
		idx, ok := answerIndex(e.Answer)
		return len(e.Options) >= 2 && ok && idx >= 0 && idx < len(e.Options)
	case "correction":
		return e.Sentence != "" && e.CorrectSentence != ""
	default:
		answer, ok := e.Answer.(string)
		return ok && answer != ""
	}
}

// answerIndex tolerates the float64 that encoding/json produces for numbers
func answerIndex(answer interface{}) (int, bool) {
	switch v := answer.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// VerifyAnswer compares a learner's answer with the expected one, ignoring
// case, surrounding whitespace and trailing sentence punctuation.
func (s *Service) VerifyAnswer(userAnswer, correctAnswer string) bool {
	return normalizeAnswer(userAnswer) == normalizeAnswer(correctAnswer) && normalizeAnswer(userAnswer) != ""
}

func normalizeAnswer(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return strings.TrimRight(answer, ".!?")
}

func (s *Service) cachedBatch(ctx context.Context, key string) ([]inbound.Exercise, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil, false
	}
	var items []inbound.Exercise
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *Service) storeBatch(ctx context.Context, key string, items []inbound.Exercise) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		s.logger.Debug("exercise cache write failed", zap.Error(err))
	}
}
