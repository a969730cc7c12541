// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/google/uuid"
)

// ConversationRepository defines the interface for the conversation store.
// The tutoring core only reads history and appends two messages per turn; it
// never rewrites past entries. The two appends are deliberately separate
// writes, so a crash between them leaves at most the assistant reply
// unwritten.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *tutoring.Conversation) error
	FindConversation(ctx context.Context, id, userID uuid.UUID) (*tutoring.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]*tutoring.Conversation, error)
	DeleteConversation(ctx context.Context, id, userID uuid.UUID) error

	// AppendMessage appends one message in creation order
	AppendMessage(ctx context.Context, message *tutoring.Message) error
	// ListMessages returns a conversation's messages ordered oldest first
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*tutoring.Message, error)
}

// ChatCompleter is the language-model endpoint contract: one chat completion
// per call, returning the first choice's message content verbatim.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest describes a single chat-completion call
type CompletionRequest struct {
	SystemPrompt string
	Messages     []tutoring.Turn
	MaxTokens    int
	Temperature  float64
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
