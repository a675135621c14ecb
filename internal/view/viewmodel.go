package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/formalis/backoffice/internal/domain"
	"github.com/formalis/backoffice/internal/realtime"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// Phase is the per-conversation loading state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
)

// ScrollBehavior tells the renderer how to scroll after a state change. The
// first render of a conversation jumps instantly; later appends scroll
// smoothly.
type ScrollBehavior int

const (
	ScrollNone ScrollBehavior = iota
	ScrollInstant
	ScrollSmooth
)

// MessageStore is the slice of the store client the view model consumes.
type MessageStore interface {
	List(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	Send(ctx context.Context, conversationID uuid.UUID, viewer domain.Viewer, content string) (*domain.Message, error)
	Edit(ctx context.Context, messageID uuid.UUID, viewer domain.Viewer, content string) (*domain.Message, error)
	SoftDelete(ctx context.Context, messageID uuid.UUID, viewer domain.Viewer) (*domain.Message, error)
}

// RoleResolver resolves an admin user's highest role, nil when none.
type RoleResolver interface {
	HighestRole(ctx context.Context, userID uuid.UUID) (*domain.AdminRole, error)
}

// ReadMarker sweeps the other side's unread messages after a conversation
// becomes active.
type ReadMarker interface {
	MarkRead(ctx context.Context, conversationID uuid.UUID, mode domain.ViewMode) error
}

// Feed opens per-conversation change-feed subscriptions.
type Feed interface {
	Subscribe(conversationID uuid.UUID) *realtime.Subscription
}

// ViewModel holds the authoritative in-memory snapshot of the open
// conversation: fetched history merged with realtime events and local
// optimistic mutations. One instance per mounted messaging view.
type ViewModel struct {
	store   MessageStore
	roles   RoleResolver
	tracker ReadMarker
	feed    Feed
	viewer  domain.Viewer
	log     *zap.Logger

	sf singleflight.Group

	mu          sync.Mutex
	phase       Phase
	activeID    uuid.UUID
	generation  uint64
	messages    []domain.Message
	senderRoles domain.SenderRoleMap
	sub         *realtime.Subscription
	sending     bool
	scroll      ScrollBehavior

	// pendingDeletes tracks optimistic soft deletes awaiting their realtime
	// confirmation, keyed by message id, holding the pre-delete row for
	// rollback.
	pendingDeletes map[uuid.UUID]domain.Message

	editing   *uuid.UUID
	editDraft string
}

func NewViewModel(store MessageStore, roles RoleResolver, tracker ReadMarker, feed Feed, viewer domain.Viewer, log *zap.Logger) *ViewModel {
	return &ViewModel{
		store:          store,
		roles:          roles,
		tracker:        tracker,
		feed:           feed,
		viewer:         viewer,
		log:            log,
		senderRoles:    make(domain.SenderRoleMap),
		pendingDeletes: make(map[uuid.UUID]domain.Message),
	}
}

func (vm *ViewModel) Viewer() domain.Viewer { return vm.viewer }

func (vm *ViewModel) Phase() Phase {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.phase
}

func (vm *ViewModel) Active() uuid.UUID {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.activeID
}

func (vm *ViewModel) Sending() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.sending
}

// Messages returns a snapshot of the open conversation's history.
func (vm *ViewModel) Messages() []domain.Message {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]domain.Message, len(vm.messages))
	copy(out, vm.messages)
	return out
}

// SenderRoles returns the role map resolved for the current load.
func (vm *ViewModel) SenderRoles() domain.SenderRoleMap {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make(domain.SenderRoleMap, len(vm.senderRoles))
	for k, v := range vm.senderRoles {
		out[k] = v
	}
	return out
}

// Scroll returns the scroll behavior for the renderer and resets it.
func (vm *ViewModel) Scroll() ScrollBehavior {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	s := vm.scroll
	vm.scroll = ScrollNone
	return s
}

// Select makes a conversation active: Loading, fetch, role resolution, Ready,
// read sweep, feed swap. A response that comes back after another Select has
// superseded it is discarded, so rapid switching always keeps the latest
// selection's messages.
func (vm *ViewModel) Select(ctx context.Context, conversationID uuid.UUID) error {
	vm.mu.Lock()
	vm.generation++
	gen := vm.generation
	vm.activeID = conversationID
	vm.phase = PhaseLoading
	vm.messages = nil
	vm.senderRoles = make(domain.SenderRoleMap)
	vm.pendingDeletes = make(map[uuid.UUID]domain.Message)
	vm.editing = nil
	vm.mu.Unlock()

	msgs, err := vm.store.List(ctx, conversationID)
	if err != nil {
		vm.log.Error("loading messages failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
		msgs = nil
	}
	roles := vm.resolveRoles(ctx, msgs)

	vm.mu.Lock()
	if gen != vm.generation {
		// A newer selection won the race; drop this response.
		vm.mu.Unlock()
		return nil
	}
	vm.messages = msgs
	vm.senderRoles = roles
	vm.phase = PhaseReady
	vm.scroll = ScrollInstant
	old := vm.sub
	vm.sub = vm.feed.Subscribe(conversationID)
	sub := vm.sub
	vm.mu.Unlock()

	if old != nil {
		old.Close()
	}
	go vm.pump(sub)

	if err != nil {
		return err
	}

	// Read-marking happens after the fetch resolves so only loaded messages
	// are swept.
	if err := vm.tracker.MarkRead(ctx, conversationID, vm.viewer.Mode); err != nil {
		vm.log.Warn("read sweep failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
	}
	return nil
}

// Close releases the active subscription, e.g. when the view unmounts.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	sub := vm.sub
	vm.sub = nil
	vm.phase = PhaseIdle
	vm.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

func (vm *ViewModel) pump(sub *realtime.Subscription) {
	for ev := range sub.C {
		vm.Apply(ev)
	}
}

// Apply merges one change-feed event into local state. Inserts append only
// when the id is not already present (the sender's optimistic echo arrives
// first); updates replace the matching row in place.
func (vm *ViewModel) Apply(ev realtime.Event) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.phase != PhaseReady || ev.Message.ConversationID != vm.activeID {
		return
	}

	switch ev.Type {
	case realtime.EventInsert:
		for i := range vm.messages {
			if vm.messages[i].ID == ev.Message.ID {
				return
			}
		}
		// Appends are trusted to be newer; no re-sort.
		vm.messages = append(vm.messages, ev.Message)
		vm.scroll = ScrollSmooth

	case realtime.EventUpdate:
		for i := range vm.messages {
			if vm.messages[i].ID == ev.Message.ID {
				vm.messages[i] = ev.Message
				delete(vm.pendingDeletes, ev.Message.ID)
				return
			}
		}
	}
}

// Send pushes a new message and appends the confirmed row optimistically.
// The later realtime echo is deduplicated by id in Apply.
func (vm *ViewModel) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		// Rejected locally; the store is never involved.
		return nil
	}
	vm.mu.Lock()
	if vm.sending || vm.phase != PhaseReady {
		vm.mu.Unlock()
		return nil
	}
	vm.sending = true
	convID := vm.activeID
	gen := vm.generation
	vm.mu.Unlock()

	msg, err := vm.store.Send(ctx, convID, vm.viewer, content)

	vm.mu.Lock()
	vm.sending = false
	if err != nil || gen != vm.generation {
		// Switching conversations cancels interest in this send's feedback;
		// the message still arrives via the feed or the next fetch.
		vm.mu.Unlock()
		return err
	}
	present := false
	for i := range vm.messages {
		if vm.messages[i].ID == msg.ID {
			present = true
			break
		}
	}
	if !present {
		vm.messages = append(vm.messages, *msg)
		vm.scroll = ScrollSmooth
	}
	vm.mu.Unlock()
	return nil
}

// Delete soft-deletes a message in two phases: the placeholder renders
// immediately from the local pending mark, then the realtime update
// reconciles it. A store failure rolls the local mark back.
func (vm *ViewModel) Delete(ctx context.Context, messageID uuid.UUID) error {
	vm.mu.Lock()
	var target *domain.Message
	for i := range vm.messages {
		if vm.messages[i].ID == messageID {
			target = &vm.messages[i]
			break
		}
	}
	if target == nil {
		vm.mu.Unlock()
		return nil
	}
	if _, canDelete := domain.Permissions(vm.viewer, target); !canDelete {
		vm.mu.Unlock()
		return nil
	}
	original := *target
	now := nowFunc()
	deleter := vm.viewer.ID
	target.DeletedAt = &now
	target.DeletedBy = &deleter
	vm.pendingDeletes[messageID] = original
	vm.mu.Unlock()

	if _, err := vm.store.SoftDelete(ctx, messageID, vm.viewer); err != nil {
		vm.mu.Lock()
		if _, pending := vm.pendingDeletes[messageID]; pending {
			for i := range vm.messages {
				if vm.messages[i].ID == messageID {
					vm.messages[i] = original
					break
				}
			}
			delete(vm.pendingDeletes, messageID)
		}
		vm.mu.Unlock()
		return err
	}
	return nil
}

// BeginEdit enters edit mode for a message the viewer may edit.
func (vm *ViewModel) BeginEdit(messageID uuid.UUID) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for i := range vm.messages {
		if vm.messages[i].ID != messageID {
			continue
		}
		canEdit, _ := domain.Permissions(vm.viewer, &vm.messages[i])
		if !canEdit {
			return false
		}
		id := messageID
		vm.editing = &id
		if vm.messages[i].Content != nil {
			vm.editDraft = *vm.messages[i].Content
		} else {
			vm.editDraft = ""
		}
		return true
	}
	return false
}

func (vm *ViewModel) Editing() *uuid.UUID {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.editing
}

func (vm *ViewModel) EditDraft() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.editDraft
}

func (vm *ViewModel) SetEditDraft(s string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.editDraft = s
}

// CanConfirmEdit is false while the buffer is blank.
func (vm *ViewModel) CanConfirmEdit() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.editing != nil && strings.TrimSpace(vm.editDraft) != ""
}

// ConfirmEdit commits the buffered content and leaves edit mode. A blank
// buffer is a no-op.
func (vm *ViewModel) ConfirmEdit(ctx context.Context) error {
	vm.mu.Lock()
	if vm.editing == nil || strings.TrimSpace(vm.editDraft) == "" {
		vm.mu.Unlock()
		return nil
	}
	id := *vm.editing
	content := vm.editDraft
	vm.mu.Unlock()

	updated, err := vm.store.Edit(ctx, id, vm.viewer, content)
	if err != nil {
		return err
	}

	vm.mu.Lock()
	for i := range vm.messages {
		if vm.messages[i].ID == id {
			vm.messages[i] = *updated
			break
		}
	}
	vm.editing = nil
	vm.editDraft = ""
	vm.mu.Unlock()
	return nil
}

// CancelEdit discards the buffer without any mutation.
func (vm *ViewModel) CancelEdit() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.editing = nil
	vm.editDraft = ""
}

// resolveRoles looks up the highest role of every distinct admin sender in
// the loaded set, once per conversation load. Lookups are deduplicated
// across concurrent loads via singleflight. Failures fall back to the plain
// Admin badge.
func (vm *ViewModel) resolveRoles(ctx context.Context, msgs []domain.Message) domain.SenderRoleMap {
	ids := make(map[uuid.UUID]struct{})
	for i := range msgs {
		if msgs[i].SenderType == domain.SenderAdmin && msgs[i].SenderID != nil {
			ids[*msgs[i].SenderID] = struct{}{}
		}
	}

	roles := make(domain.SenderRoleMap, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for id := range ids {
		g.Go(func() error {
			v, err, _ := vm.sf.Do(id.String(), func() (any, error) {
				return vm.roles.HighestRole(gctx, id)
			})
			if err != nil {
				vm.log.Warn("role resolution failed",
					zap.String("user_id", id.String()), zap.Error(err))
				return nil
			}
			if role, ok := v.(*domain.AdminRole); ok && role != nil {
				mu.Lock()
				roles[id] = *role
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return roles
}
