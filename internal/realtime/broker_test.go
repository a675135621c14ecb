package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formalis/backoffice/internal/domain"
)

func newTestBroker() *Broker {
	b := NewBroker(zap.NewNop())
	go b.Run()
	return b
}

func event(convID uuid.UUID, typ EventType) Event {
	content := "bonjour"
	return Event{Type: typ, Message: domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderType:     domain.SenderAdmin,
		Content:        &content,
		CreatedAt:      time.Now(),
	}}
}

func TestPublishReachesSubscriber(t *testing.T) {
	b := newTestBroker()
	convID := uuid.New()
	sub := b.Subscribe(convID)
	defer sub.Close()

	sent := event(convID, EventInsert)
	b.Publish(sent)

	select {
	case got := <-sub.C:
		assert.Equal(t, sent.Message.ID, got.Message.ID)
		assert.Equal(t, EventInsert, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestEventsStayInTheirConversation(t *testing.T) {
	b := newTestBroker()
	convA, convB := uuid.New(), uuid.New()
	subA := b.Subscribe(convA)
	defer subA.Close()
	subB := b.Subscribe(convB)
	defer subB.Close()

	b.Publish(event(convA, EventInsert))

	select {
	case got := <-subA.C:
		assert.Equal(t, convA, got.Message.ConversationID)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber of A never got the event")
	}

	select {
	case ev, ok := <-subB.C:
		if ok {
			t.Fatalf("subscriber of B got an event for %s", ev.Message.ConversationID)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := newTestBroker()
	convID := uuid.New()
	sub := b.Subscribe(convID)
	sub.Close()

	// The channel is closed once the broker processed the unsubscribe.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() { sub.Close() }, "closing twice is safe")
}

func TestNotifierBridgesToEvents(t *testing.T) {
	b := newTestBroker()
	convID := uuid.New()
	sub := b.Subscribe(convID)
	defer sub.Close()

	content := "modifié"
	msg := &domain.Message{ID: uuid.New(), ConversationID: convID, Content: &content}
	b.NotifyUpdatedMessage(msg)

	select {
	case got := <-sub.C:
		assert.Equal(t, EventUpdate, got.Type)
		assert.Equal(t, msg.ID, got.Message.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("update never delivered")
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	b := newTestBroker()
	convID := uuid.New()
	sub := b.Subscribe(convID)

	// Never drained; overflow the buffer plus one.
	for i := 0; i < subscriptionBufSize+1; i++ {
		b.Publish(event(convID, EventInsert))
	}

	// The broker closes the channel when it drops the subscriber, so draining
	// terminates.
	require.Eventually(t, func() bool {
		n := 0
		for {
			select {
			case _, ok := <-sub.C:
				if !ok {
					return true
				}
				n++
				if n > subscriptionBufSize {
					return false
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}
