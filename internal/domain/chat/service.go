package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/domain/consult"
	"github.com/medlink/medlink/internal/domain/identity"
)

// PipelineRunner is the consult pipeline as the chat service sees it.
type PipelineRunner interface {
	Run(ctx context.Context, messages []consult.Message, patientContext string) string
}

// PatientSource is the slice of the identity service this package needs.
type PatientSource interface {
	GetPatient(ctx context.Context, id string) (*identity.Patient, error)
}

// SnapshotSource provides the obfuscated snapshot for anonymous threads.
type SnapshotSource interface {
	EnsureSnapshot(ctx context.Context, patientID string) (*consent.ObfuscatedUser, error)
}

type Service struct {
	conversations ConversationRepository
	messages      MessageRepository
	pipeline      PipelineRunner
	patients      PatientSource
	snapshots     SnapshotSource
}

func NewService(
	conversations ConversationRepository,
	messages MessageRepository,
	pipeline PipelineRunner,
	patients PatientSource,
	snapshots SnapshotSource,
) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		pipeline:      pipeline,
		patients:      patients,
		snapshots:     snapshots,
	}
}

// CreateConversation opens a thread for a patient, titled from the opening
// message. Anonymous threads get the patient's obfuscated snapshot attached.
func (s *Service) CreateConversation(ctx context.Context, patientID string, doctorID *string, isAnonymous bool, initialMessage string) (*Conversation, error) {
	if initialMessage == "" {
		return nil, fmt.Errorf("an initial message is required")
	}

	conv := &Conversation{
		Title:       titleFor(initialMessage),
		PatientID:   patientID,
		DoctorID:    doctorID,
		IsAnonymous: isAnonymous,
	}

	if isAnonymous {
		snap, err := s.snapshots.EnsureSnapshot(ctx, patientID)
		if err != nil {
			return nil, err
		}
		conv.ObfuscatedUserID = &snap.ID
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	sender := patientID
	msg := &ChatMessage{
		ConversationID: conv.ID,
		Content:        initialMessage,
		SenderID:       &sender,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error) {
	return s.conversations.ListByUser(ctx, userID, limit, offset)
}

// GetConversation returns the thread with messages for a participant.
func (s *Service) GetConversation(ctx context.Context, id uuid.UUID, callerID string) (*Detail, error) {
	conv, err := s.participantConversation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Conversation: *conv, Messages: msgs}, nil
}

// SendMessage appends a participant's message and bumps the thread.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, senderID, content string) (*ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	if _, err := s.participantConversation(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	msg := &ChatMessage{
		ConversationID: conversationID,
		Content:        content,
		SenderID:       &senderID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

// PostMessage appends a turn for the caller. Threads with a doctor
// participant are plain patient/doctor messaging; threads without one are AI
// consultations, so a patient turn there runs the consult pipeline.
func (s *Service) PostMessage(ctx context.Context, conversationID uuid.UUID, callerID, content string) (*ChatMessage, error) {
	conv, err := s.participantConversation(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if conv.DoctorID != nil {
		return s.SendMessage(ctx, conversationID, callerID, content)
	}
	return s.SendAIMessage(ctx, conversationID, callerID, content)
}

// SendAIMessage appends the patient's message, runs the consult pipeline over
// the full history with the patient's profile as context, and persists the
// assistant's reply.
func (s *Service) SendAIMessage(ctx context.Context, conversationID uuid.UUID, patientID, content string) (*ChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	conv, err := s.participantConversation(ctx, conversationID, patientID)
	if err != nil {
		return nil, err
	}
	if conv.PatientID != patientID {
		return nil, ErrForbidden
	}

	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &ChatMessage{
		ConversationID: conversationID,
		Content:        content,
		SenderID:       &patientID,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	turns := make([]consult.Message, 0, len(history)+1)
	for _, m := range history {
		role := consult.RoleUser
		if m.FromAI {
			role = consult.RoleAssistant
		}
		turns = append(turns, consult.Message{Role: role, Content: m.Content})
	}
	turns = append(turns, consult.Message{Role: consult.RoleUser, Content: content})

	patientContext := ""
	if p, err := s.patients.GetPatient(ctx, patientID); err == nil {
		patientContext = buildPatientContext(p)
	}

	reply := s.pipeline.Run(ctx, turns, patientContext)

	aiMsg := &ChatMessage{
		ConversationID: conversationID,
		Content:        reply,
		FromAI:         true,
	}
	if err := s.messages.Create(ctx, aiMsg); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return nil, err
	}
	return aiMsg, nil
}

func (s *Service) ArchiveConversation(ctx context.Context, id uuid.UUID, callerID string) error {
	if _, err := s.participantConversation(ctx, id, callerID); err != nil {
		return err
	}
	return s.conversations.SetArchived(ctx, id, true)
}

// DeleteConversation removes the thread and its messages. Only the owning
// patient may delete.
func (s *Service) DeleteConversation(ctx context.Context, id uuid.UUID, callerID string) error {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conv.PatientID != callerID {
		return ErrForbidden
	}
	if err := s.messages.DeleteByConversation(ctx, id); err != nil {
		return err
	}
	return s.conversations.Delete(ctx, id)
}

func (s *Service) participantConversation(ctx context.Context, id uuid.UUID, callerID string) (*Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.PatientID != callerID && (conv.DoctorID == nil || *conv.DoctorID != callerID) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// buildPatientContext renders the profile block the consult pipeline receives.
func buildPatientContext(p *identity.Patient) string {
	diet := "None"
	if p.Diet != nil && *p.Diet != "" {
		diet = *p.Diet
	}
	return fmt.Sprintf(`Patient Information:
- Age: %d
- Sex: %s
- Height: %.0fcm
- Weight: %.0fkg
- Activity Level: %s
- Allergies: %s
- Medications: %s
- Health Issues: %s
- Diet: %s`,
		p.Age, p.Sex, p.Height, p.Weight, p.ActivityLevel,
		listOrNone(p.Allergies), listOrNone(p.Medications),
		listOrNone(p.HealthIssues), diet)
}
