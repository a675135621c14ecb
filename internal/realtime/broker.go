package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
)

const subscriptionBufSize = 64

// Subscription is one open change-feed channel, scoped to a single
// conversation. Close it before opening another one for a different
// conversation so events never leak across views.
type Subscription struct {
	ConversationID uuid.UUID
	C              <-chan Event

	broker *Broker
	ch     chan Event
	once   sync.Once
}

// Close detaches the subscription from the broker and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe <- s
	})
}

// Broker fans change events out to per-conversation subscribers. It is the
// in-process change feed; the ws transport bridges it to remote clients.
type Broker struct {
	subs map[uuid.UUID]map[*Subscription]struct{}

	subscribe   chan *Subscription
	unsubscribe chan *Subscription
	publish     chan Event

	log *zap.Logger
}

func NewBroker(log *zap.Logger) *Broker {
	return &Broker{
		subs:        make(map[uuid.UUID]map[*Subscription]struct{}),
		subscribe:   make(chan *Subscription),
		unsubscribe: make(chan *Subscription),
		publish:     make(chan Event, 256),
		log:         log,
	}
}

// Run starts the broker's main event loop. Call this in a goroutine.
func (b *Broker) Run() {
	for {
		select {
		case sub := <-b.subscribe:
			set, ok := b.subs[sub.ConversationID]
			if !ok {
				set = make(map[*Subscription]struct{})
				b.subs[sub.ConversationID] = set
			}
			set[sub] = struct{}{}

		case sub := <-b.unsubscribe:
			if set, ok := b.subs[sub.ConversationID]; ok {
				if _, ok := set[sub]; ok {
					delete(set, sub)
					close(sub.ch)
					if len(set) == 0 {
						delete(b.subs, sub.ConversationID)
					}
				}
			}

		case ev := <-b.publish:
			for sub := range b.subs[ev.Message.ConversationID] {
				select {
				case sub.ch <- ev:
				default:
					// Subscriber buffer full - drop it
					delete(b.subs[ev.Message.ConversationID], sub)
					close(sub.ch)
					b.log.Warn("realtime: dropped slow subscriber",
						zap.String("conversation_id", sub.ConversationID.String()))
				}
			}
		}
	}
}

// Subscribe opens a change feed for one conversation.
func (b *Broker) Subscribe(conversationID uuid.UUID) *Subscription {
	ch := make(chan Event, subscriptionBufSize)
	sub := &Subscription{
		ConversationID: conversationID,
		C:              ch,
		broker:         b,
		ch:             ch,
	}
	b.subscribe <- sub
	return sub
}

// Publish delivers an event to every subscriber of its conversation.
func (b *Broker) Publish(ev Event) {
	b.publish <- ev
}

// NotifyNewMessage implements service.Notifier.
func (b *Broker) NotifyNewMessage(msg *domain.Message) {
	b.Publish(Event{Type: EventInsert, Message: *msg})
}

// NotifyUpdatedMessage implements service.Notifier for edits and soft deletes.
func (b *Broker) NotifyUpdatedMessage(msg *domain.Message) {
	b.Publish(Event{Type: EventUpdate, Message: *msg})
}
