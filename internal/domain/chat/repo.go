package chat

import (
	"context"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	// Touch bumps updated_at so the list orders by recent activity.
	Touch(ctx context.Context, id uuid.UUID) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *ChatMessage) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*ChatMessage, error)
	DeleteByConversation(ctx context.Context, conversationID uuid.UUID) error
}
