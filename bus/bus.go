// Package bus implements the in-process message bus routing direct,
// broadcast, topic and proximity messages between registered agent
// mailboxes. The bus is single-process and in-memory; it offers no wire
// format or durability.
package bus

import (
	"sync"

	"github.com/hupe1980/citymesh/logging"
)

// Statistics is a point-in-time view of bus activity.
type Statistics struct {
	RegisteredAgents  int   `json:"registered_agents"`
	MessagesSent      int64 `json:"messages_sent"`
	MessagesDelivered int64 `json:"messages_delivered"`
	MessagesDropped   int64 `json:"messages_dropped"`
	Topics            int   `json:"topics"`
	HistorySize       int   `json:"history_size"`
}

// Options holds configuration overrides passed to New().
type Options struct {
	// MailboxSize sets the per-agent channel buffer. A full mailbox drops
	// further messages for that agent rather than blocking the sender.
	MailboxSize int
	// MaxHistory bounds the retained message history; oldest entries are
	// evicted first.
	MaxHistory int
	// Logger receives warnings for undeliverable messages.
	Logger logging.Logger
}

// Bus routes messages between agent mailboxes. All registry and
// subscription state is owned by the Bus and mutated only under its lock;
// raw maps are never exposed to callers.
//
// Delivery guarantees: messages from one sender to one receiver arrive in
// send order (each mailbox is a FIFO channel and Send enqueues under the
// bus lock); there is no ordering guarantee across senders. A broadcast
// reaches every agent registered at send time except the sender.
type Bus struct {
	mu            sync.RWMutex
	mailboxes     map[string]chan Message
	subscriptions map[string]map[string]struct{} // topic -> set of agent ids
	history       []Message

	mailboxSize int
	maxHistory  int
	logger      logging.Logger

	sent      int64
	delivered int64
	dropped   int64
}

// NewBus constructs an empty bus.
func NewBus(optFns ...func(o *Options)) *Bus {
	opts := Options{
		MailboxSize: 128,
		MaxHistory:  1000,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		mailboxes:     make(map[string]chan Message),
		subscriptions: make(map[string]map[string]struct{}),
		mailboxSize:   opts.MailboxSize,
		maxHistory:    opts.MaxHistory,
		logger:        opts.Logger,
	}
}

// Register adds an agent and returns its mailbox. Registering an already
// registered agent is idempotent and returns the existing mailbox.
func (b *Bus) Register(agentID string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mb, ok := b.mailboxes[agentID]; ok {
		return mb
	}
	mb := make(chan Message, b.mailboxSize)
	b.mailboxes[agentID] = mb
	b.logger.Debug("agent registered with message bus", "agent_id", agentID)
	return mb
}

// Unregister removes an agent's mailbox and purges its topic subscriptions.
// No further messages route to the agent after Unregister returns.
func (b *Bus) Unregister(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mailboxes, agentID)
	for _, subscribers := range b.subscriptions {
		delete(subscribers, agentID)
	}
}

// Send routes a message to its receiver, or to every other registered agent
// when the message is a broadcast. It returns true if the message reached at
// least one mailbox. Expired messages and unknown receivers are non-fatal:
// Send returns false and never panics or errors.
func (b *Bus) Send(msg Message) bool {
	if msg.Expired() {
		b.logger.Debug("message expired before delivery", "message_id", msg.ID)
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent++
	b.appendHistoryLocked(msg)

	if msg.IsBroadcast() {
		return b.broadcastLocked(msg) > 0
	}
	return b.directLocked(msg)
}

func (b *Bus) directLocked(msg Message) bool {
	mb, ok := b.mailboxes[msg.ReceiverID]
	if !ok {
		b.logger.Warn("receiver not registered", "receiver_id", msg.ReceiverID, "kind", msg.Kind.String())
		return false
	}
	return b.deliverLocked(mb, msg)
}

func (b *Bus) broadcastLocked(msg Message) int {
	delivered := 0
	for agentID, mb := range b.mailboxes {
		if agentID == msg.SenderID {
			continue
		}
		if b.deliverLocked(mb, msg) {
			delivered++
		}
	}
	return delivered
}

// deliverLocked enqueues without blocking: a full mailbox means the message
// is dropped and counted, keeping a slow agent from stalling its peers.
func (b *Bus) deliverLocked(mb chan Message, msg Message) bool {
	select {
	case mb <- msg:
		b.delivered++
		return true
	default:
		b.dropped++
		b.logger.Warn("mailbox full, message dropped", "receiver_id", msg.ReceiverID, "kind", msg.Kind.String())
		return false
	}
}

// SendToNearby delivers the message to every registered agent (other than
// the sender) whose entry in agentLocations matches location. It returns the
// number of agents reached.
func (b *Bus) SendToNearby(msg Message, location string, agentLocations map[string]string) int {
	if msg.Expired() {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent++
	b.appendHistoryLocked(msg)

	delivered := 0
	for agentID, agentLocation := range agentLocations {
		if agentID == msg.SenderID || agentLocation != location {
			continue
		}
		mb, ok := b.mailboxes[agentID]
		if !ok {
			continue
		}
		if b.deliverLocked(mb, msg) {
			delivered++
		}
	}
	return delivered
}

// Subscribe adds the agent to a topic.
func (b *Bus) Subscribe(agentID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subscribers, ok := b.subscriptions[topic]
	if !ok {
		subscribers = make(map[string]struct{})
		b.subscriptions[topic] = subscribers
	}
	subscribers[agentID] = struct{}{}
}

// Unsubscribe removes the agent from a topic.
func (b *Bus) Unsubscribe(agentID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subscribers, ok := b.subscriptions[topic]; ok {
		delete(subscribers, agentID)
	}
}

// Publish delivers the message to every subscriber of the topic except the
// sender, returning the number of subscribers reached.
func (b *Bus) Publish(topic string, msg Message) int {
	if msg.Expired() {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent++
	b.appendHistoryLocked(msg)

	delivered := 0
	for agentID := range b.subscriptions[topic] {
		if agentID == msg.SenderID {
			continue
		}
		mb, ok := b.mailboxes[agentID]
		if !ok {
			continue
		}
		if b.deliverLocked(mb, msg) {
			delivered++
		}
	}
	return delivered
}

// RegisteredAgents returns a copy of the set of registered agent ids.
func (b *Bus) RegisteredAgents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	agents := make([]string, 0, len(b.mailboxes))
	for agentID := range b.mailboxes {
		agents = append(agents, agentID)
	}
	return agents
}

// Statistics returns current bus counters.
func (b *Bus) Statistics() Statistics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Statistics{
		RegisteredAgents:  len(b.mailboxes),
		MessagesSent:      b.sent,
		MessagesDelivered: b.delivered,
		MessagesDropped:   b.dropped,
		Topics:            len(b.subscriptions),
		HistorySize:       len(b.history),
	}
}

// History returns up to limit most recent messages (all when limit <= 0).
func (b *Bus) History(limit int) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Message, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

func (b *Bus) appendHistoryLocked(msg Message) {
	b.history = append(b.history, msg)
	if len(b.history) > b.maxHistory {
		b.history = b.history[len(b.history)-b.maxHistory:]
	}
}
