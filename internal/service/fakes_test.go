package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/repository"
)

func nowStub() time.Time { return time.Now() }

// fakeMessageRepo is an in-memory MessageRepository recording every call.
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.Message

	createCalls   int
	markReadCalls []markReadCall
	failSoftDel   error
	failDeleteAll error
}

type markReadCall struct {
	conversationID uuid.UUID
	senders        []domain.SenderType
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	cp := *msg
	cp.SenderName = "Test Sender"
	f.messages[msg.ID] = &cp
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) UpdateContent(_ context.Context, id uuid.UUID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.messages[id]; ok {
		msg.Content = &content
		now := nowStub()
		msg.EditedAt = &now
	}
	return nil
}

func (f *fakeMessageRepo) SoftDelete(_ context.Context, id, deletedBy uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSoftDel != nil {
		return f.failSoftDel
	}
	if msg, ok := f.messages[id]; ok {
		now := nowStub()
		msg.DeletedAt = &now
		msg.DeletedBy = &deletedBy
	}
	return nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, conversationID uuid.UUID, senders []domain.SenderType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, markReadCall{conversationID, senders})
	return nil
}

func (f *fakeMessageRepo) DeleteByConversation(_ context.Context, conversationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteAll != nil {
		return f.failDeleteAll
	}
	for id, msg := range f.messages {
		if msg.ConversationID == conversationID {
			delete(f.messages, id)
		}
	}
	return nil
}

// fakeConvRepo is an in-memory ConversationRepository.
type fakeConvRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*domain.Conversation
	failDelete    error
	deleteCalls   int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{conversations: make(map[uuid.UUID]*domain.Conversation)}
}

func (f *fakeConvRepo) add(conv domain.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[conv.ID] = &conv
}

func (f *fakeConvRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeConvRepo) ListBySession(_ context.Context, sessionID uuid.UUID, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range f.conversations {
		if conv.SessionID != sessionID {
			continue
		}
		if filter.Type != nil && conv.Type != *filter.Type {
			continue
		}
		if filter.ParticipantID != nil {
			if conv.ParticipantID == nil || *conv.ParticipantID != *filter.ParticipantID {
				continue
			}
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (f *fakeConvRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.conversations, id)
	return nil
}

func (f *fakeConvRepo) CountUnread(_ context.Context, _ uuid.UUID, _ []domain.SenderType) (int, error) {
	return 0, nil
}

func (f *fakeConvRepo) LastMessage(_ context.Context, _ uuid.UUID) (*domain.Message, error) {
	return nil, nil
}
