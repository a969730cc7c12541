package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/ports/outbound"
	"github.com/google/uuid"
)

// ConversationRepository implements outbound.ConversationRepository using GORM
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) outbound.ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateConversation persists a new conversation
func (r *ConversationRepository) CreateConversation(ctx context.Context, conversation *tutoring.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conversationToModel(conversation)).Error; err != nil {
		return apperrors.NewDatabaseError("create conversation", err)
	}
	return nil
}

// FindConversation loads one conversation scoped to its owner
func (r *ConversationRepository) FindConversation(ctx context.Context, id, userID uuid.UUID) (*tutoring.Conversation, error) {
	var model ConversationModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewConversationNotFoundError(id.String())
		}
		return nil, apperrors.NewDatabaseError("find conversation", err)
	}
	return conversationToDomain(&model), nil
}

// ListConversations returns a user's conversations, most recently updated first
func (r *ConversationRepository) ListConversations(ctx context.Context, userID uuid.UUID) ([]*tutoring.Conversation, error) {
	var models []ConversationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list conversations", err)
	}
	conversations := make([]*tutoring.Conversation, len(models))
	for i := range models {
		conversations[i] = conversationToDomain(&models[i])
	}
	return conversations, nil
}

// DeleteConversation removes a conversation and, via the cascade, its messages
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&ConversationModel{})
	if result.Error != nil {
		return apperrors.NewDatabaseError("delete conversation", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewConversationNotFoundError(id.String())
	}
	// SQLite does not always enforce the cascade, so clear messages explicitly
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Delete(&MessageModel{}).Error; err != nil {
		return apperrors.NewDatabaseError("delete conversation messages", err)
	}
	return nil
}

// AppendMessage stores one message and touches the parent's updated_at
func (r *ConversationRepository) AppendMessage(ctx context.Context, message *tutoring.Message) error {
	model, err := messageToModel(message)
	if err != nil {
		return apperrors.NewDatabaseError("serialize message annotations", err)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return apperrors.NewDatabaseError("append message", err)
		}
		if err := tx.Model(&ConversationModel{}).
			Where("id = ?", message.ConversationID).
			Update("updated_at", message.CreatedAt).Error; err != nil {
			return apperrors.NewDatabaseError("touch conversation", err)
		}
		return nil
	})
}

// ListMessages returns a conversation's messages ordered oldest first
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*tutoring.Message, error) {
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}
	messages := make([]*tutoring.Message, len(models))
	for i := range models {
		messages[i] = messageToDomain(&models[i])
	}
	return messages, nil
}
