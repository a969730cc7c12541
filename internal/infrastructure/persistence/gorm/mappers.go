package gorm

import (
	"encoding/json"

	"github.com/chatling/v2/internal/domain/tutoring"
)

func conversationToModel(c *tutoring.Conversation) *ConversationModel {
	return &ConversationModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func conversationToDomain(m *ConversationModel) *tutoring.Conversation {
	return &tutoring.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(msg *tutoring.Message) (*MessageModel, error) {
	model := &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Corrections != nil {
		data, err := json.Marshal(msg.Corrections)
		if err != nil {
			return nil, err
		}
		s := string(data)
		model.Corrections = &s
	}
	if msg.Optimization != nil {
		data, err := json.Marshal(msg.Optimization)
		if err != nil {
			return nil, err
		}
		s := string(data)
		model.Optimization = &s
	}
	return model, nil
}

// messageToDomain tolerates malformed stored annotations: a row that no
// longer unmarshals still yields its text content.
func messageToDomain(m *MessageModel) *tutoring.Message {
	msg := &tutoring.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.Corrections != nil {
		var c tutoring.Correction
		if err := json.Unmarshal([]byte(*m.Corrections), &c); err == nil {
			msg.Corrections = &c
		}
	}
	if m.Optimization != nil {
		var o tutoring.Optimization
		if err := json.Unmarshal([]byte(*m.Optimization), &o); err == nil {
			msg.Optimization = &o
		}
	}
	return msg
}
