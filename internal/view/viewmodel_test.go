package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/realtime"
)

type editCall struct {
	id      uuid.UUID
	content string
}

type fakeStore struct {
	mu        sync.Mutex
	lists     map[uuid.UUID][]domain.Message
	gates     map[uuid.UUID]chan struct{}
	started   chan uuid.UUID
	sendCalls int
	editCalls []editCall
	failDel   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists: make(map[uuid.UUID][]domain.Message),
		gates: make(map[uuid.UUID]chan struct{}),
	}
}

func (f *fakeStore) List(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	f.mu.Lock()
	gate := f.gates[conversationID]
	started := f.started
	f.mu.Unlock()
	if started != nil {
		started <- conversationID
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.lists[conversationID]))
	copy(out, f.lists[conversationID])
	return out, nil
}

func (f *fakeStore) Send(_ context.Context, conversationID uuid.UUID, viewer domain.Viewer, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	senderID := viewer.ID
	return &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderType:     viewer.Mode.SenderFor(),
		SenderID:       &senderID,
		Content:        &content,
		CreatedAt:      time.Now(),
	}, nil
}

func (f *fakeStore) Edit(_ context.Context, messageID uuid.UUID, _ domain.Viewer, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editCalls = append(f.editCalls, editCall{messageID, content})
	now := time.Now()
	return &domain.Message{ID: messageID, Content: &content, EditedAt: &now}, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, messageID uuid.UUID, viewer domain.Viewer) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel != nil {
		return nil, f.failDel
	}
	now := time.Now()
	deleter := viewer.ID
	return &domain.Message{ID: messageID, DeletedAt: &now, DeletedBy: &deleter}, nil
}

type fakeRoles struct {
	mu    sync.Mutex
	roles map[uuid.UUID]domain.AdminRole
	calls map[uuid.UUID]int
}

func (f *fakeRoles) HighestRole(_ context.Context, userID uuid.UUID) (*domain.AdminRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[uuid.UUID]int)
	}
	f.calls[userID]++
	if role, ok := f.roles[userID]; ok {
		return &role, nil
	}
	return nil, nil
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (f *fakeTracker) MarkRead(_ context.Context, conversationID uuid.UUID, _ domain.ViewMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversationID)
	return nil
}

func testMessage(convID uuid.UUID, sender uuid.UUID, senderType domain.SenderType, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderType:     senderType,
		SenderID:       &sender,
		Content:        &content,
		CreatedAt:      at,
	}
}

func newTestViewModel(t *testing.T, store *fakeStore, roles *fakeRoles, viewer domain.Viewer) (*ViewModel, *fakeTracker) {
	t.Helper()
	broker := realtime.NewBroker(zap.NewNop())
	go broker.Run()
	tracker := &fakeTracker{}
	vm := NewViewModel(store, roles, tracker, broker, viewer, zap.NewNop())
	return vm, tracker
}

func TestSelectLoadsMessagesAndMarksRead(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	base := time.Now()
	store.lists[convID] = []domain.Message{
		testMessage(convID, uuid.New(), domain.SenderAdmin, "un", base),
		testMessage(convID, uuid.New(), domain.SenderFormateur, "deux", base.Add(time.Minute)),
	}
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewFormateur}
	vm, tracker := newTestViewModel(t, store, &fakeRoles{}, viewer)

	require.NoError(t, vm.Select(context.Background(), convID))

	assert.Equal(t, PhaseReady, vm.Phase())
	assert.Len(t, vm.Messages(), 2)
	assert.Equal(t, []uuid.UUID{convID}, tracker.calls, "read sweep after fetch")
	assert.Equal(t, ScrollInstant, vm.Scroll(), "first render jumps instantly")
}

func TestRealtimeInsertDedupedByID(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	require.NoError(t, vm.Send(context.Background(), "hello"))
	msgs := vm.Messages()
	require.Len(t, msgs, 1)

	// The server-confirmed echo arrives with the same id.
	vm.Apply(realtime.Event{Type: realtime.EventInsert, Message: msgs[0]})
	assert.Len(t, vm.Messages(), 1, "optimistic echo must not duplicate")
}

func TestRealtimeInsertAppendsWithoutResort(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	base := time.Now()
	first := testMessage(convID, uuid.New(), domain.SenderAdmin, "un", base)
	second := testMessage(convID, uuid.New(), domain.SenderAdmin, "deux", base.Add(time.Minute))
	store.lists[convID] = []domain.Message{first, second}

	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewApprenant}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	newer := testMessage(convID, uuid.New(), domain.SenderAdmin, "trois", base.Add(2*time.Minute))
	vm.Apply(realtime.Event{Type: realtime.EventInsert, Message: newer})

	msgs := vm.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, newer.ID, msgs[2].ID, "realtime inserts go to the end")
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "ascending order preserved")
	}

	// Synthetic out-of-order insert: still appended, never re-sorted.
	older := testMessage(convID, uuid.New(), domain.SenderAdmin, "zéro", base.Add(-time.Hour))
	vm.Apply(realtime.Event{Type: realtime.EventInsert, Message: older})
	msgs = vm.Messages()
	assert.Equal(t, older.ID, msgs[len(msgs)-1].ID, "append-only, no re-sort")
}

func TestRealtimeUpdateReplacesInPlace(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	base := time.Now()
	msg := testMessage(convID, uuid.New(), domain.SenderAdmin, "avant", base)
	other := testMessage(convID, uuid.New(), domain.SenderAdmin, "autre", base.Add(time.Second))
	store.lists[convID] = []domain.Message{msg, other}

	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewApprenant}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	edited := msg
	newContent := "après"
	now := time.Now()
	edited.Content = &newContent
	edited.EditedAt = &now
	vm.Apply(realtime.Event{Type: realtime.EventUpdate, Message: edited})

	msgs := vm.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "après", *msgs[0].Content)
	assert.Equal(t, "autre", *msgs[1].Content, "non-matching ids untouched")
}

func TestEventsForOtherConversationsIgnored(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewApprenant}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	stray := testMessage(uuid.New(), uuid.New(), domain.SenderAdmin, "ailleurs", time.Now())
	vm.Apply(realtime.Event{Type: realtime.EventInsert, Message: stray})
	assert.Empty(t, vm.Messages())
}

func TestConversationSwitchRaceKeepsLatestSelection(t *testing.T) {
	convA, convB := uuid.New(), uuid.New()
	store := newFakeStore()
	base := time.Now()
	store.lists[convA] = []domain.Message{testMessage(convA, uuid.New(), domain.SenderAdmin, "de A", base)}
	store.lists[convB] = []domain.Message{testMessage(convB, uuid.New(), domain.SenderAdmin, "de B", base)}
	gateA := make(chan struct{})
	store.gates[convA] = gateA
	store.started = make(chan uuid.UUID, 4)

	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewApprenant}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)

	done := make(chan error, 1)
	go func() { done <- vm.Select(context.Background(), convA) }()
	require.Equal(t, convA, <-store.started, "A's fetch is in flight")

	// B is selected while A's fetch is still pending and resolves first.
	require.NoError(t, vm.Select(context.Background(), convB))
	<-store.started

	close(gateA)
	require.NoError(t, <-done)

	assert.Equal(t, convB, vm.Active())
	msgs := vm.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "de B", *msgs[0].Content, "stale response for A must be discarded")
}

func TestSelectResolvesRolesOncePerSender(t *testing.T) {
	convID := uuid.New()
	adminID := uuid.New()
	store := newFakeStore()
	base := time.Now()
	store.lists[convID] = []domain.Message{
		testMessage(convID, adminID, domain.SenderAdmin, "un", base),
		testMessage(convID, adminID, domain.SenderAdmin, "deux", base.Add(time.Second)),
		testMessage(convID, adminID, domain.SenderAdmin, "trois", base.Add(2*time.Second)),
	}
	roles := &fakeRoles{roles: map[uuid.UUID]domain.AdminRole{adminID: domain.RoleSuperadmin}}

	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, roles, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	assert.Equal(t, 1, roles.calls[adminID], "one lookup per distinct sender, not per message")
	assert.Equal(t, domain.RoleSuperadmin, vm.SenderRoles()[adminID])
}

func TestSubscriptionFollowsActiveConversation(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	broker := realtime.NewBroker(zap.NewNop())
	go broker.Run()
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewApprenant}
	vm := NewViewModel(store, &fakeRoles{}, &fakeTracker{}, broker, viewer, zap.NewNop())

	require.NoError(t, vm.Select(context.Background(), convID))

	incoming := testMessage(convID, uuid.New(), domain.SenderAdmin, "push", time.Now())
	broker.NotifyNewMessage(&incoming)

	require.Eventually(t, func() bool {
		return len(vm.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond, "feed events reach the view model")
}

func TestSendWhitespaceNeverTouchesStore(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	require.NoError(t, vm.Send(context.Background(), "   "))
	assert.Zero(t, store.sendCalls)
	assert.Empty(t, vm.Messages())
}

func TestOptimisticDeleteAndRollback(t *testing.T) {
	convID := uuid.New()
	viewerID := uuid.New()
	store := newFakeStore()
	msg := testMessage(convID, viewerID, domain.SenderFormateur, "secret", time.Now())
	store.lists[convID] = []domain.Message{msg}

	viewer := domain.Viewer{ID: viewerID, Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	// Failure path: local mark must roll back.
	store.failDel = errors.New("network down")
	require.Error(t, vm.Delete(context.Background(), msg.ID))
	assert.Nil(t, vm.Messages()[0].DeletedAt, "rolled back after store failure")

	// Success path: placeholder state applies before any realtime echo.
	store.failDel = nil
	require.NoError(t, vm.Delete(context.Background(), msg.ID))
	assert.NotNil(t, vm.Messages()[0].DeletedAt)
}

func TestEditFlow(t *testing.T) {
	convID := uuid.New()
	viewerID := uuid.New()
	store := newFakeStore()
	msg := testMessage(convID, viewerID, domain.SenderFormateur, "old", time.Now())
	store.lists[convID] = []domain.Message{msg}

	viewer := domain.Viewer{ID: viewerID, Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	require.True(t, vm.BeginEdit(msg.ID))
	assert.Equal(t, "old", vm.EditDraft())

	vm.SetEditDraft("")
	assert.False(t, vm.CanConfirmEdit(), "empty buffer disables confirm")
	require.NoError(t, vm.ConfirmEdit(context.Background()))
	assert.Empty(t, store.editCalls, "confirm with empty buffer is a no-op")

	vm.SetEditDraft("new")
	require.True(t, vm.CanConfirmEdit())
	require.NoError(t, vm.ConfirmEdit(context.Background()))
	require.Len(t, store.editCalls, 1)
	assert.Equal(t, editCall{msg.ID, "new"}, store.editCalls[0])

	updated := vm.Messages()[0]
	assert.Equal(t, "new", *updated.Content)
	assert.NotNil(t, updated.EditedAt)
	assert.Nil(t, vm.Editing(), "edit mode left after confirm")
}

func TestCancelEditDiscardsBuffer(t *testing.T) {
	convID := uuid.New()
	viewerID := uuid.New()
	store := newFakeStore()
	msg := testMessage(convID, viewerID, domain.SenderFormateur, "old", time.Now())
	store.lists[convID] = []domain.Message{msg}

	viewer := domain.Viewer{ID: viewerID, Mode: domain.ViewFormateur}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	require.True(t, vm.BeginEdit(msg.ID))
	vm.SetEditDraft("changed")
	vm.CancelEdit()

	assert.Empty(t, store.editCalls, "cancel never mutates")
	assert.Equal(t, "old", *vm.Messages()[0].Content)
}

func TestBeginEditDeniedOnOthersMessage(t *testing.T) {
	convID := uuid.New()
	store := newFakeStore()
	msg := testMessage(convID, uuid.New(), domain.SenderFormateur, "old", time.Now())
	store.lists[convID] = []domain.Message{msg}

	superadmin := domain.RoleSuperadmin
	viewer := domain.Viewer{ID: uuid.New(), Mode: domain.ViewAdmin, Role: &superadmin}
	vm, _ := newTestViewModel(t, store, &fakeRoles{}, viewer)
	require.NoError(t, vm.Select(context.Background(), convID))

	assert.False(t, vm.BeginEdit(msg.ID), "even superadmins cannot edit others' messages")
}
