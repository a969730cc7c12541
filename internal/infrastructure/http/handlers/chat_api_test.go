package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/chatling/v2/pkg/errors"

	"github.com/chatling/v2/internal/domain/tutoring"
	"github.com/chatling/v2/internal/infrastructure/persistence/memory"
	"github.com/chatling/v2/internal/ports/inbound"
	"github.com/google/uuid"
)

type stubTutorService struct {
	result *inbound.ChatTurnResult
	err    error
}

func (s *stubTutorService) ProcessChatTurn(context.Context, uuid.UUID, *uuid.UUID, string, string) (*inbound.ChatTurnResult, error) {
	return s.result, s.err
}

func (s *stubTutorService) AnalyzeSentence(context.Context, string, string, []string) (json.RawMessage, error) {
	return nil, s.err
}

func (s *stubTutorService) QueryWord(context.Context, string, string) (json.RawMessage, error) {
	return nil, s.err
}

func (s *stubTutorService) AnalyzeWriting(context.Context, string) (json.RawMessage, error) {
	return nil, s.err
}

func newChatRequest(t *testing.T, body interface{}, userID string) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(data))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	return req
}

func TestHandleChat(t *testing.T) {
	convID := uuid.New()
	svc := &stubTutorService{result: &inbound.ChatTurnResult{
		ConversationID: convID,
		Reply:          "Nice to meet you!",
		Translation:    "很高兴认识你！",
	}}
	h := NewChatHandlers(svc, memory.NewConversationRepository(), zaptest.NewLogger(t))

	req := newChatRequest(t, map[string]string{"message": "hello"}, uuid.New().String())
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, convID.String(), data["conversation_id"])
	assert.Equal(t, "Nice to meet you!", data["response"])
	assert.Equal(t, "很高兴认识你！", data["translation"])
}

func TestHandleChatMissingUserID(t *testing.T) {
	h := NewChatHandlers(&stubTutorService{}, memory.NewConversationRepository(), zaptest.NewLogger(t))

	req := newChatRequest(t, map[string]string{"message": "hello"}, "")
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatEmptyMessage(t *testing.T) {
	h := NewChatHandlers(&stubTutorService{}, memory.NewConversationRepository(), zaptest.NewLogger(t))

	req := newChatRequest(t, map[string]string{"message": ""}, uuid.New().String())
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatInvalidLanguagePreference(t *testing.T) {
	h := NewChatHandlers(&stubTutorService{}, memory.NewConversationRepository(), zaptest.NewLogger(t))

	req := newChatRequest(t, map[string]string{
		"message":             "hello",
		"language_preference": "french",
	}, uuid.New().String())
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatUpstreamFailure(t *testing.T) {
	svc := &stubTutorService{err: apperrors.NewCompletionFailedError(fmt.Errorf("down"))}
	h := NewChatHandlers(svc, memory.NewConversationRepository(), zaptest.NewLogger(t))

	req := newChatRequest(t, map[string]string{"message": "hello"}, uuid.New().String())
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestConversationEndpoints(t *testing.T) {
	store := memory.NewConversationRepository()
	userID := uuid.New()
	conv := tutoring.NewConversation(userID, "first message")
	require.NoError(t, store.CreateConversation(context.Background(), conv))
	require.NoError(t, store.AppendMessage(context.Background(), tutoring.NewMessage(conv.ID, tutoring.RoleUser, "first message")))

	h := NewChatHandlers(&stubTutorService{}, store, zaptest.NewLogger(t))
	r := chi.NewRouter()
	r.Get("/api/v1/conversations", h.HandleListConversations)
	r.Get("/api/v1/conversations/{id}/messages", h.HandleListMessages)
	r.Delete("/api/v1/conversations/{id}", h.HandleDeleteConversation)

	// List
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set(userIDHeader, userID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Messages
	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+conv.ID.String()+"/messages", nil)
	req.Header.Set(userIDHeader, userID.String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Messages of someone else's conversation are not reachable
	req = httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+conv.ID.String()+"/messages", nil)
	req.Header.Set(userIDHeader, uuid.New().String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/"+conv.ID.String(), nil)
	req.Header.Set(userIDHeader, userID.String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Gone after delete
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/"+conv.ID.String(), nil)
	req.Header.Set(userIDHeader, userID.String())
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
