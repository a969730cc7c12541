// Package tutoring defines the domain entities of the language-tutoring core.
// Everything here is transient: entities live for one chat turn and only the
// chosen reply and its annotations cross the boundary into the store.
package tutoring

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies a unit of language-model work with its own prompt
// template
type TaskKind string

const (
	TaskTranslate        TaskKind = "translate"
	TaskGrammarCorrect   TaskKind = "grammar_correct"
	TaskOptimize         TaskKind = "optimize"
	TaskSentenceAnalysis TaskKind = "sentence_analysis"
)

// LanguageClass is the classifier's verdict on an utterance
type LanguageClass string

const (
	// LanguageEnglish means Latin letters dominate the input
	LanguageEnglish LanguageClass = "english"
	// LanguageChineseDominant means CJK characters strictly outnumber Latin ones
	LanguageChineseDominant LanguageClass = "chinese_dominant"
	// LanguageAmbiguous means the input had no countable characters at all
	LanguageAmbiguous LanguageClass = "ambiguous"
)

// Utterance is a single incoming user text with its classification
type Utterance struct {
	Text     string
	Language LanguageClass
}

// Message roles as stored and as sent to the chat-completions endpoint
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one prior conversation entry used for context building
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CorrectionKind classifies a single correction item
type CorrectionKind string

const (
	CorrectionTranslation CorrectionKind = "translation"
	CorrectionGrammar     CorrectionKind = "grammar"
	CorrectionSpelling    CorrectionKind = "spelling"
	CorrectionContext     CorrectionKind = "context"
)

// CorrectionItem is one fix inside a Correction
type CorrectionItem struct {
	Type        CorrectionKind `json:"type"`
	Original    string         `json:"original"`
	Corrected   string         `json:"corrected"`
	Explanation string         `json:"explanation"`
}

// Correction is the structured result of a translation or grammar task
type Correction struct {
	OriginalSentence  string           `json:"original_sentence"`
	CorrectedSentence string           `json:"corrected_sentence"`
	OverallComment    string           `json:"overall_comment,omitempty"`
	Corrections       []CorrectionItem `json:"corrections"`
}

// IsNoOp reports whether the model found nothing to fix. An empty corrections
// list is only a valid no-op when the sentence is unchanged; the mismatched
// combination is rejected upstream by extraction validation.
func (c *Correction) IsNoOp() bool {
	return len(c.Corrections) == 0 && c.OriginalSentence == c.CorrectedSentence
}

// Consistent reports whether the empty-corrections invariant holds: an empty
// list requires the corrected sentence to equal the original.
func (c *Correction) Consistent() bool {
	if len(c.Corrections) > 0 {
		return true
	}
	return c.OriginalSentence == c.CorrectedSentence
}

// Optimization is the structured result of a proficiency-level rewrite
type Optimization struct {
	OriginalSentence  string `json:"original_sentence"`
	OptimizedSentence string `json:"optimized_sentence"`
	OptimizationType  string `json:"optimization_type"`
	Explanation       string `json:"explanation,omitempty"`
}

// IsNoOp reports whether the rewrite carries no actionable change. The
// comparison ignores case, matching how the upstream model tends to re-case
// otherwise identical sentences.
func (o *Optimization) IsNoOp() bool {
	return strings.EqualFold(strings.TrimSpace(o.OptimizedSentence), strings.TrimSpace(o.OriginalSentence))
}

// TaskResult carries one task's outcome through the merge step
type TaskResult struct {
	Kind         TaskKind
	Raw          string
	Correction   *Correction
	Optimization *Optimization
	Err          error
}

// Conversation groups the messages of one tutoring session
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a conversation titled from the first message
func NewConversation(userID uuid.UUID, firstMessage string) *Conversation {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		title = "New conversation"
	}
	runes := []rune(title)
	if len(runes) > 50 {
		title = string(runes[:50])
	}
	now := time.Now()
	return &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Message is one stored conversation entry with optional annotations
type Message struct {
	ID             uuid.UUID     `json:"id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	Role           string        `json:"role"`
	Content        string        `json:"content"`
	Corrections    *Correction   `json:"corrections,omitempty"`
	Optimization   *Optimization `json:"optimization,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewMessage creates a message for a conversation
func NewMessage(conversationID uuid.UUID, role, content string) *Message {
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// ReplyParts splits a bilingual assistant reply on the "|||" separator into
// the English reply and its translation. The second value is empty when the
// reply carries no translation.
func ReplyParts(content string) (reply, translation string) {
	if !strings.Contains(content, "|||") {
		return content, ""
	}
	parts := strings.SplitN(content, "|||", 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
