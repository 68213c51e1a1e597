package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("conversation not found")
	ErrForbidden = errors.New("not allowed")
)

// titleLimit is how much of the opening message becomes the conversation title.
const titleLimit = 50

// Conversation is a message thread. Patient AI chats have no doctor; threads
// with a doctor may be anonymous, in which case the doctor sees the attached
// obfuscated snapshot instead of the patient.
type Conversation struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Title            string     `db:"title" json:"title"`
	PatientID        string     `db:"patient_id" json:"patient_id"`
	DoctorID         *string    `db:"doctor_id" json:"doctor_id,omitempty"`
	IsAnonymous      bool       `db:"is_anonymous" json:"is_anonymous"`
	IsArchived       bool       `db:"is_archived" json:"is_archived"`
	ObfuscatedUserID *uuid.UUID `db:"obfuscated_user_id" json:"obfuscated_user_id,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one turn in a conversation. AI turns have FromAI set and no
// sender.
type ChatMessage struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"conversation_id"`
	Content        string    `db:"content" json:"content"`
	FromAI         bool      `db:"from_ai" json:"from_ai"`
	SenderID       *string   `db:"sender_id" json:"sender_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Detail is a conversation with its messages, oldest first.
type Detail struct {
	Conversation
	Messages []*ChatMessage `json:"messages"`
}

// titleFor derives a conversation title from its opening message.
func titleFor(message string) string {
	runes := []rune(message)
	if len(runes) <= titleLimit {
		return message
	}
	return string(runes[:titleLimit]) + "..."
}
