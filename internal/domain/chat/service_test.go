package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medlink/medlink/internal/domain/consent"
	"github.com/medlink/medlink/internal/domain/consult"
	"github.com/medlink/medlink/internal/domain/identity"
)

// -- Mock Repositories --

type mockConversationRepo struct {
	items map[uuid.UUID]*Conversation
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{items: make(map[uuid.UUID]*Conversation)}
}

func (m *mockConversationRepo) Create(_ context.Context, c *Conversation) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.items[c.ID] = c
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*Conversation, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *mockConversationRepo) Touch(_ context.Context, id uuid.UUID) error {
	if c, ok := m.items[id]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (m *mockConversationRepo) SetArchived(_ context.Context, id uuid.UUID, archived bool) error {
	c, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	c.IsArchived = archived
	return nil
}

func (m *mockConversationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *mockConversationRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*Conversation, int, error) {
	var result []*Conversation
	for _, c := range m.items {
		if c.PatientID == userID || (c.DoctorID != nil && *c.DoctorID == userID) {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

type mockMessageRepo struct {
	items map[uuid.UUID]*ChatMessage
	order []uuid.UUID
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{items: make(map[uuid.UUID]*ChatMessage)}
}

func (m *mockMessageRepo) Create(_ context.Context, msg *ChatMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	m.items[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *mockMessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]*ChatMessage, error) {
	var result []*ChatMessage
	for _, id := range m.order {
		if msg := m.items[id]; msg != nil && msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *mockMessageRepo) DeleteByConversation(_ context.Context, conversationID uuid.UUID) error {
	for id, msg := range m.items {
		if msg.ConversationID == conversationID {
			delete(m.items, id)
		}
	}
	return nil
}

// fakePipeline records what it was called with and echoes a canned reply.
type fakePipeline struct {
	reply    string
	messages []consult.Message
	context  string
}

func (f *fakePipeline) Run(_ context.Context, messages []consult.Message, patientContext string) string {
	f.messages = messages
	f.context = patientContext
	return f.reply
}

type mockPatientSource struct {
	items map[string]*identity.Patient
}

func (m *mockPatientSource) GetPatient(_ context.Context, id string) (*identity.Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return p, nil
}

type mockSnapshotSource struct {
	snaps map[string]*consent.ObfuscatedUser
}

func (m *mockSnapshotSource) EnsureSnapshot(_ context.Context, patientID string) (*consent.ObfuscatedUser, error) {
	if s, ok := m.snaps[patientID]; ok {
		return s, nil
	}
	s := &consent.ObfuscatedUser{ID: uuid.New(), UserID: patientID}
	m.snaps[patientID] = s
	return s, nil
}

func newTestService(pipeline *fakePipeline) (*Service, *mockMessageRepo) {
	patients := &mockPatientSource{items: map[string]*identity.Patient{
		"pat-1": {
			ID: "pat-1", Sex: "female", Age: 34, Height: 168, Weight: 61,
			ActivityLevel: identity.ActivityMedium, Allergies: []string{"penicillin"},
		},
	}}
	msgs := newMockMessageRepo()
	svc := NewService(newMockConversationRepo(), msgs, pipeline,
		patients, &mockSnapshotSource{snaps: make(map[string]*consent.ObfuscatedUser)})
	return svc, msgs
}

// -- Tests --

func TestTitleFor(t *testing.T) {
	if got := titleFor("short message"); got != "short message" {
		t.Errorf("short title = %q", got)
	}
	long := strings.Repeat("a", 60)
	got := titleFor(long)
	if got != strings.Repeat("a", 50)+"..." {
		t.Errorf("long title = %q", got)
	}
}

func TestCreateConversation(t *testing.T) {
	svc, msgs := newTestService(&fakePipeline{})
	conv, err := svc.CreateConversation(context.Background(), "pat-1", nil, false, "I have a headache")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.Title != "I have a headache" {
		t.Errorf("title = %q", conv.Title)
	}
	history, _ := msgs.ListByConversation(context.Background(), conv.ID)
	if len(history) != 1 || history[0].Content != "I have a headache" {
		t.Errorf("initial message not stored: %+v", history)
	}
}

func TestCreateConversation_AnonymousAttachesSnapshot(t *testing.T) {
	svc, _ := newTestService(&fakePipeline{})
	doc := "doc-1"
	conv, err := svc.CreateConversation(context.Background(), "pat-1", &doc, true, "hello")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ObfuscatedUserID == nil {
		t.Error("anonymous conversation missing snapshot")
	}
}

func TestSendAIMessage(t *testing.T) {
	pipeline := &fakePipeline{reply: "## Assessment\n\nRest and hydrate."}
	svc, msgs := newTestService(pipeline)

	conv, err := svc.CreateConversation(context.Background(), "pat-1", nil, false, "I have a headache")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	aiMsg, err := svc.SendAIMessage(context.Background(), conv.ID, "pat-1", "It started yesterday")
	if err != nil {
		t.Fatalf("SendAIMessage: %v", err)
	}
	if !aiMsg.FromAI || aiMsg.Content != pipeline.reply {
		t.Errorf("ai message = %+v", aiMsg)
	}

	// Pipeline saw the full history ending with the new user turn.
	if len(pipeline.messages) != 2 {
		t.Fatalf("pipeline got %d turns, want 2", len(pipeline.messages))
	}
	last := pipeline.messages[len(pipeline.messages)-1]
	if last.Role != consult.RoleUser || last.Content != "It started yesterday" {
		t.Errorf("last turn = %+v", last)
	}
	if !strings.Contains(pipeline.context, "Age: 34") {
		t.Errorf("patient context missing profile data: %q", pipeline.context)
	}
	if !strings.Contains(pipeline.context, "Allergies: penicillin") {
		t.Errorf("patient context missing allergies: %q", pipeline.context)
	}

	// Both sides of the turn were persisted.
	history, _ := msgs.ListByConversation(context.Background(), conv.ID)
	if len(history) != 3 {
		t.Fatalf("history has %d messages, want 3", len(history))
	}
	if !history[2].FromAI {
		t.Error("assistant reply not persisted last")
	}
}

func TestPostMessage_DoctorThreadIsPlainMessaging(t *testing.T) {
	pipeline := &fakePipeline{reply: "should not be used"}
	svc, msgs := newTestService(pipeline)

	doc := "doc-1"
	conv, err := svc.CreateConversation(context.Background(), "pat-1", &doc, false, "I need a second opinion")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	reply, err := svc.PostMessage(context.Background(), conv.ID, "doc-1", "Happy to take a look.")
	if err != nil {
		t.Fatalf("PostMessage (doctor): %v", err)
	}
	if reply.FromAI {
		t.Error("doctor message flagged as AI")
	}
	if reply.SenderID == nil || *reply.SenderID != "doc-1" {
		t.Errorf("sender = %v, want doc-1", reply.SenderID)
	}

	// The patient's turn in a doctor thread is also a plain append.
	if _, err := svc.PostMessage(context.Background(), conv.ID, "pat-1", "Thank you"); err != nil {
		t.Fatalf("PostMessage (patient): %v", err)
	}
	if pipeline.messages != nil {
		t.Error("pipeline ran in a doctor thread")
	}

	history, _ := msgs.ListByConversation(context.Background(), conv.ID)
	if len(history) != 3 {
		t.Fatalf("history has %d messages, want 3", len(history))
	}
	for _, m := range history {
		if m.FromAI {
			t.Errorf("unexpected AI message in doctor thread: %+v", m)
		}
	}
}

func TestPostMessage_AIThreadRunsPipeline(t *testing.T) {
	pipeline := &fakePipeline{reply: "## Assessment\n\nRest and hydrate."}
	svc, _ := newTestService(pipeline)

	conv, err := svc.CreateConversation(context.Background(), "pat-1", nil, false, "I have a headache")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	msg, err := svc.PostMessage(context.Background(), conv.ID, "pat-1", "It started yesterday")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if !msg.FromAI || msg.Content != pipeline.reply {
		t.Errorf("ai message = %+v", msg)
	}
	if pipeline.messages == nil {
		t.Error("pipeline did not run in an AI thread")
	}
}

func TestPostMessage_StrangerForbidden(t *testing.T) {
	svc, _ := newTestService(&fakePipeline{})
	doc := "doc-1"
	conv, _ := svc.CreateConversation(context.Background(), "pat-1", &doc, false, "hello")

	if _, err := svc.PostMessage(context.Background(), conv.ID, "doc-2", "hi"); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestSendAIMessage_OnlyOwningPatient(t *testing.T) {
	svc, _ := newTestService(&fakePipeline{reply: "ok"})
	conv, _ := svc.CreateConversation(context.Background(), "pat-1", nil, false, "hello")

	if _, err := svc.SendAIMessage(context.Background(), conv.ID, "pat-2", "hi"); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestDeleteConversation_RemovesMessages(t *testing.T) {
	svc, msgs := newTestService(&fakePipeline{})
	conv, _ := svc.CreateConversation(context.Background(), "pat-1", nil, false, "hello")

	if err := svc.DeleteConversation(context.Background(), conv.ID, "pat-1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	history, _ := msgs.ListByConversation(context.Background(), conv.ID)
	if len(history) != 0 {
		t.Errorf("messages survived deletion: %d", len(history))
	}
}

func TestDeleteConversation_DoctorForbidden(t *testing.T) {
	svc, _ := newTestService(&fakePipeline{})
	doc := "doc-1"
	conv, _ := svc.CreateConversation(context.Background(), "pat-1", &doc, false, "hello")

	if err := svc.DeleteConversation(context.Background(), conv.ID, "doc-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
