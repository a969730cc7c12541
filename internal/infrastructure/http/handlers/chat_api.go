package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/chatling/v2/internal/ports/outbound"
	"github.com/google/uuid"
)

// ChatHandlers handles the conversation endpoints
type ChatHandlers struct {
	tutorService inbound.TutorService
	store        outbound.ConversationRepository
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewChatHandlers creates a new chat handlers instance
func NewChatHandlers(
	tutorService inbound.TutorService,
	store outbound.ConversationRepository,
	logger *zap.Logger,
) *ChatHandlers {
	return &ChatHandlers{
		tutorService: tutorService,
		store:        store,
		validate:     validator.New(),
		logger:       logger,
	}
}

type chatRequest struct {
	ConversationID     *uuid.UUID `json:"conversation_id"`
	Message            string     `json:"message" validate:"required,max=2000"`
	LanguagePreference string     `json:"language_preference" validate:"omitempty,oneof=bilingual chinese english"`
}

// HandleChat handles POST /api/v1/chat
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.tutorService.ProcessChatTurn(r.Context(), userID, req.ConversationID, req.Message, req.LanguagePreference)
	if err != nil {
		h.logger.Error("Chat turn failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: result})
}

// HandleListConversations handles GET /api/v1/conversations
func (h *ChatHandlers) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	conversations, err := h.store.ListConversations(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: conversations})
}

// HandleListMessages handles GET /api/v1/conversations/{id}/messages
func (h *ChatHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, apperrors.NewBadRequestError("invalid conversation id"))
		return
	}

	// Ownership check before exposing messages
	if _, err := h.store.FindConversation(r.Context(), conversationID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	messages, err := h.store.ListMessages(r.Context(), conversationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Data: messages})
}

// HandleDeleteConversation handles DELETE /api/v1/conversations/{id}
func (h *ChatHandlers) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, apperrors.NewBadRequestError("invalid conversation id"))
		return
	}

	if err := h.store.DeleteConversation(r.Context(), conversationID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, APIResponse{Success: true, Message: "Conversation deleted"})
}

// HandleHealth handles GET /health
func (h *ChatHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		},
	})
}
