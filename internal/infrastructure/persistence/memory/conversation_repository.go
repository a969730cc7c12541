package memory

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/outbound"
	"github.com/google/uuid"
)

// ConversationRepository implements outbound.ConversationRepository in memory
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*tutoring.Conversation
	messages      map[uuid.UUID][]*tutoring.Message
}

// NewConversationRepository creates an in-memory conversation repository
func NewConversationRepository() outbound.ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[uuid.UUID]*tutoring.Conversation),
		messages:      make(map[uuid.UUID][]*tutoring.Message),
	}
}

// CreateConversation stores a new conversation
func (r *ConversationRepository) CreateConversation(_ context.Context, conversation *tutoring.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *conversation
	r.conversations[conversation.ID] = &copied
	return nil
}

// FindConversation loads one conversation scoped to its owner
func (r *ConversationRepository) FindConversation(_ context.Context, id, userID uuid.UUID) (*tutoring.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, apperrors.NewConversationNotFoundError(id.String())
	}
	copied := *conv
	return &copied, nil
}

// ListConversations returns a user's conversations, most recently updated first
func (r *ConversationRepository) ListConversations(_ context.Context, userID uuid.UUID) ([]*tutoring.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*tutoring.Conversation
	for _, conv := range r.conversations {
		if conv.UserID == userID {
			copied := *conv
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// DeleteConversation removes a conversation and its messages
func (r *ConversationRepository) DeleteConversation(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return apperrors.NewConversationNotFoundError(id.String())
	}
	delete(r.conversations, id)
	delete(r.messages, id)
	return nil
}

// AppendMessage stores one message in arrival order
func (r *ConversationRepository) AppendMessage(_ context.Context, message *tutoring.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[message.ConversationID]; !ok {
		return apperrors.NewConversationNotFoundError(message.ConversationID.String())
	}
	copied := *message
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &copied)
	if conv := r.conversations[message.ConversationID]; conv != nil {
		conv.UpdatedAt = message.CreatedAt
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first
func (r *ConversationRepository) ListMessages(_ context.Context, conversationID uuid.UUID) ([]*tutoring.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.messages[conversationID]
	result := make([]*tutoring.Message, len(stored))
	for i, msg := range stored {
		copied := *msg
		result[i] = &copied
	}
	return result, nil
}
