// Package tutoring implements the chat-turn orchestration core: language
// classification, the annotation fan-out, structured extraction, and the
// main completion that produces the tutor's reply.
package tutoring

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/chatling/v2/internal/ports/outbound"
)

// Options tunes the orchestrator. AnnotationBudget bounds the whole fan-out:
// when it expires, unfinished annotation tasks are abandoned and the turn
// proceeds with whatever arrived in time.
type Options struct {
	AnnotationBudget time.Duration
	TaskMaxTokens    int
	TaskTemperature  float64
	ChatMaxTokens    int
	ChatTemperature  float64
	CacheTTL         time.Duration
}

func (o Options) withDefaults() Options {
	if o.AnnotationBudget <= 0 {
		o.AnnotationBudget = 30 * time.Second
	}
	if o.TaskMaxTokens <= 0 {
		o.TaskMaxTokens = 1000
	}
	if o.TaskTemperature <= 0 {
		o.TaskTemperature = 0.1
	}
	if o.ChatMaxTokens <= 0 {
		o.ChatMaxTokens = 1000
	}
	if o.ChatTemperature <= 0 {
		o.ChatTemperature = 0.7
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	return o
}

// Service implements inbound.TutorService
type Service struct {
	completer outbound.ChatCompleter
	store     outbound.ConversationRepository
	cache     outbound.CacheRepository // optional; nil disables caching
	opts      Options
	logger    *zap.Logger
}

// NewService creates the tutoring service
func NewService(
	completer outbound.ChatCompleter,
	store outbound.ConversationRepository,
	cache outbound.CacheRepository,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		completer: completer,
		store:     store,
		cache:     cache,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// ProcessChatTurn runs one full turn. Annotation failures never fail the
// turn: each degraded task is logged and skipped, and the reply falls back
// to less-processed text. Only a failed main completion is fatal.
func (s *Service) ProcessChatTurn(
	ctx context.Context,
	userID uuid.UUID,
	conversationID *uuid.UUID,
	text, languagePreference string,
) (*inbound.ChatTurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("message text is required")
	}

	conv, err := s.resolveConversation(ctx, userID, conversationID, text)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}
	history := make([]tutoring.Turn, 0, len(stored))
	for _, m := range stored {
		history = append(history, tutoring.Turn{Role: m.Role, Content: m.Content})
	}

	messageForAI, correction, optimization := s.annotate(ctx, text, history)

	turns := append(history, tutoring.Turn{Role: tutoring.RoleUser, Content: messageForAI})
	replyRaw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: BuildChatSystemPrompt(languagePreference),
		Messages:     turns,
		MaxTokens:    s.opts.ChatMaxTokens,
		Temperature:  s.opts.ChatTemperature,
	})
	if err != nil {
		return nil, apperrors.NewCompletionFailedError(err)
	}

	userMsg := tutoring.NewMessage(conv.ID, tutoring.RoleUser, text)
	userMsg.Corrections = correction
	userMsg.Optimization = optimization
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, apperrors.NewDatabaseError("append user message", err)
	}
	assistantMsg := tutoring.NewMessage(conv.ID, tutoring.RoleAssistant, replyRaw)
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, apperrors.NewDatabaseError("append assistant message", err)
	}

	reply, translation := tutoring.ReplyParts(replyRaw)
	return &inbound.ChatTurnResult{
		ConversationID: conv.ID,
		Reply:          reply,
		Translation:    translation,
		Corrections:    correction,
		Optimization:   optimization,
	}, nil
}

func (s *Service) resolveConversation(
	ctx context.Context,
	userID uuid.UUID,
	conversationID *uuid.UUID,
	firstMessage string,
) (*tutoring.Conversation, error) {
	if conversationID == nil {
		conv := tutoring.NewConversation(userID, firstMessage)
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			return nil, apperrors.NewDatabaseError("create conversation", err)
		}
		return conv, nil
	}
	conv, err := s.store.FindConversation(ctx, *conversationID, userID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// annotate runs the per-turn task fan-out. The task pair is decided by the
// classifier: translate when the input is Chinese-dominant, grammar-correct
// otherwise, plus the rewrite task in either case. Tasks run concurrently
// and independently; the merge applies precedence after collection, so
// arrival order never changes the outcome.
func (s *Service) annotate(
	ctx context.Context,
	text string,
	history []tutoring.Turn,
) (string, *tutoring.Correction, *tutoring.Optimization) {
	contextBlock := SummarizeContext(history)

	first := tutoring.TaskGrammarCorrect
	if Classify(text) == tutoring.LanguageChineseDominant {
		first = tutoring.TaskTranslate
	}
	kinds := []tutoring.TaskKind{first, tutoring.TaskOptimize}

	taskCtx, cancel := context.WithTimeout(ctx, s.opts.AnnotationBudget)
	defer cancel()

	// Buffered to task count so an abandoned task's send never blocks.
	results := make(chan tutoring.TaskResult, len(kinds))
	for _, kind := range kinds {
		go func(k tutoring.TaskKind) {
			results <- s.runTask(taskCtx, k, text, contextBlock)
		}(kind)
	}

	var correction *tutoring.Correction
	var optimization *tutoring.Optimization
collect:
	for range kinds {
		select {
		case res := <-results:
			if res.Err != nil {
				s.logger.Warn("annotation task degraded",
					zap.String("task", string(res.Kind)),
					zap.Error(res.Err))
				continue
			}
			if res.Correction != nil && !res.Correction.IsNoOp() {
				correction = res.Correction
			}
			if res.Optimization != nil && !res.Optimization.IsNoOp() {
				optimization = res.Optimization
			}
		case <-taskCtx.Done():
			s.logger.Warn("annotation budget exhausted, proceeding without remaining tasks",
				zap.Duration("budget", s.opts.AnnotationBudget))
			break collect
		}
	}

	messageForAI := text
	if correction != nil {
		messageForAI = correction.CorrectedSentence
	}
	if optimization != nil {
		messageForAI = optimization.OptimizedSentence
	}
	return messageForAI, correction, optimization
}

// runTask executes one annotation task end to end: cache lookup, prompt
// build, completion call, extraction. All failures are reported through
// TaskResult.Err and stay confined to this task.
func (s *Service) runTask(ctx context.Context, kind tutoring.TaskKind, text, contextBlock string) tutoring.TaskResult {
	res := tutoring.TaskResult{Kind: kind}

	if cached, ok := s.cachedAnnotation(ctx, kind, text); ok {
		return cached
	}

	prompt, err := BuildTaskPrompt(kind, PromptParams{ContextBlock: contextBlock})
	if err != nil {
		res.Err = err
		return res
	}

	raw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     []tutoring.Turn{{Role: tutoring.RoleUser, Content: text}},
		MaxTokens:    s.opts.TaskMaxTokens,
		Temperature:  s.opts.TaskTemperature,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Raw = raw

	switch kind {
	case tutoring.TaskTranslate:
		// The translate prompt asks for the bare sentence, so the result is
		// wrapped into a single-item correction here rather than parsed.
		translated := strings.TrimSpace(raw)
		if translated == "" {
			res.Err = apperrors.NewUnparseableOutputError(raw)
			return res
		}
		if translated != text {
			res.Correction = &tutoring.Correction{
				OriginalSentence:  text,
				CorrectedSentence: translated,
				Corrections: []tutoring.CorrectionItem{{
					Type:        tutoring.CorrectionTranslation,
					Original:    text,
					Corrected:   translated,
					Explanation: "已将中文内容翻译为对应的英文表达。",
				}},
			}
		}
	case tutoring.TaskGrammarCorrect:
		c, err := ExtractCorrection(raw)
		if err != nil {
			res.Err = err
			return res
		}
		res.Correction = c
	case tutoring.TaskOptimize:
		o, err := ExtractOptimization(raw)
		if err != nil {
			res.Err = err
			return res
		}
		res.Optimization = o
	default:
		res.Err = apperrors.NewInternalError(fmt.Sprintf("unexpected annotation task %q", kind))
	}

	s.storeAnnotation(ctx, kind, text, res)
	return res
}

// cachedAnnotation is the fast path for repeated utterances
type cachedAnnotation struct {
	Correction   *tutoring.Correction   `json:"correction,omitempty"`
	Optimization *tutoring.Optimization `json:"optimization,omitempty"`
}

func annotationKey(kind tutoring.TaskKind, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("annotation:%s:%x", kind, sum[:16])
}

func (s *Service) cachedAnnotation(ctx context.Context, kind tutoring.TaskKind, text string) (tutoring.TaskResult, bool) {
	res := tutoring.TaskResult{Kind: kind}
	if s.cache == nil {
		return res, false
	}
	data, err := s.cache.Get(ctx, annotationKey(kind, text))
	if err != nil || data == nil {
		return res, false
	}
	var entry cachedAnnotation
	if err := json.Unmarshal(data, &entry); err != nil {
		return res, false
	}
	res.Correction = entry.Correction
	res.Optimization = entry.Optimization
	return res, true
}

func (s *Service) storeAnnotation(ctx context.Context, kind tutoring.TaskKind, text string, res tutoring.TaskResult) {
	if s.cache == nil || res.Err != nil {
		return
	}
	if res.Correction == nil && res.Optimization == nil {
		return
	}
	data, err := json.Marshal(cachedAnnotation{
		Correction:   res.Correction,
		Optimization: res.Optimization,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, annotationKey(kind, text), data, s.opts.CacheTTL); err != nil {
		s.logger.Debug("annotation cache write failed", zap.Error(err))
	}
}

// AnalyzeSentence explains one sentence and its unfamiliar vocabulary.
// Unlike turn annotations, structured output is mandatory here, so
// extraction failures propagate to the caller.
func (s *Service) AnalyzeSentence(ctx context.Context, sentence, contextText string, vocabulary []string) (json.RawMessage, error) {
	prompt, err := BuildTaskPrompt(tutoring.TaskSentenceAnalysis, PromptParams{
		Sentence:   sentence,
		Context:    contextText,
		Vocabulary: vocabulary,
	})
	if err != nil {
		return nil, err
	}
	raw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     []tutoring.Turn{{Role: tutoring.RoleUser, Content: sentence}},
		MaxTokens:    2000,
		Temperature:  s.opts.TaskTemperature,
	})
	if err != nil {
		return nil, err
	}
	return ExtractObject(raw, "translation", "grammar", "vocabulary")
}

// QueryWord looks up one word in context. Lookups are pure functions of
// word and context, so hits are served from the cache.
func (s *Service) QueryWord(ctx context.Context, word, contextText string) (json.RawMessage, error) {
	word = strings.TrimSpace(word)
	prompt, err := BuildWordQueryPrompt(word, contextText)
	if err != nil {
		return nil, err
	}

	key := annotationKey("word_query", strings.ToLower(word)+"\x00"+contextText)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && json.Valid(data) {
			return json.RawMessage(data), nil
		}
	}

	raw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     []tutoring.Turn{{Role: tutoring.RoleUser, Content: word}},
		MaxTokens:    1500,
		Temperature:  s.opts.TaskTemperature,
	})
	if err != nil {
		return nil, err
	}
	result, err := ExtractObject(raw, "word", "basic_definition")
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.opts.CacheTTL); err != nil {
			s.logger.Debug("word query cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// AnalyzeWriting scores one sentence against the writing rubric
func (s *Service) AnalyzeWriting(ctx context.Context, text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required")
	}
	raw, err := s.completer.Complete(ctx, outbound.CompletionRequest{
		SystemPrompt: BuildWritingAnalysisPrompt(),
		Messages:     []tutoring.Turn{{Role: tutoring.RoleUser, Content: text}},
		MaxTokens:    2000,
		Temperature:  s.opts.TaskTemperature,
	})
	if err != nil {
		return nil, err
	}
	return ExtractObject(raw, "original_sentence", "optimized_sentence", "score_band")
}
