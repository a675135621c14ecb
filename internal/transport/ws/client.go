package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/formalis/backoffice/internal/realtime"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBufSize  = 256
)

// Client bridges one WebSocket connection to the in-process change feed. The
// frontend subscribes to the conversation it has open and unsubscribes when
// switching, so at most one feed per view is live.
type Client struct {
	broker *realtime.Broker
	conn   *websocket.Conn
	userID uuid.UUID

	// subs maps conversationID → open feed subscription.
	subs map[uuid.UUID]*realtime.Subscription
	mu   sync.Mutex

	send chan []byte
	done chan struct{}
}

func NewClient(broker *realtime.Broker, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		broker: broker,
		conn:   conn,
		userID: userID,
		subs:   make(map[uuid.UUID]*realtime.Subscription),
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe opens a change feed for a conversation and forwards its events.
func (c *Client) Subscribe(conversationID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[conversationID]; ok {
		return
	}
	sub := c.broker.Subscribe(conversationID)
	c.subs[conversationID] = sub
	go c.forward(sub)
}

// Unsubscribe closes the conversation's feed.
func (c *Client) Unsubscribe(conversationID uuid.UUID) {
	c.mu.Lock()
	sub, ok := c.subs[conversationID]
	if ok {
		delete(c.subs, conversationID)
	}
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// forward pumps feed events into the send channel until the feed closes.
func (c *Client) forward(sub *realtime.Subscription) {
	for ev := range sub.C {
		eventType := EventTypeMessageInsert
		if ev.Type == realtime.EventUpdate {
			eventType = EventTypeMessageUpdate
		}
		convID := ev.Message.ConversationID
		evt, err := NewEvent(eventType, &convID, ev.Message)
		if err != nil {
			log.Printf("ws: marshal error: %v", err)
			continue
		}
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

// closeSubs releases every open feed on disconnect.
func (c *Client) closeSubs() {
	c.mu.Lock()
	subs := make([]*realtime.Subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subs = make(map[uuid.UUID]*realtime.Subscription)
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// ReadPump reads client events until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		close(c.done)
		c.closeSubs()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		err := wsjson.Read(context.Background(), c.conn, &event)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("ws: client %s disconnected", c.userID)
			} else {
				log.Printf("ws: read error from %s: %v", c.userID, err)
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump writes messages from the send channel to the WebSocket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				log.Printf("ws: write error to %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				log.Printf("ws: ping error to %s: %v", c.userID, err)
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleEvent routes an incoming client event.
func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypeSubscribe:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid subscribe payload")
			return
		}
		c.Subscribe(p.ConversationID)

	case EventTypeUnsubscribe:
		var p ConversationPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			c.sendError("INVALID_PAYLOAD", "invalid unsubscribe payload")
			return
		}
		c.Unsubscribe(p.ConversationID)

	case EventTypePing:
		c.sendPong()

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Event{Type: EventTypePong})
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	evt, err := NewEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
