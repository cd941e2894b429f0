package bus

import (
	"time"

	"github.com/hupe1980/citymesh/core"
)

// Kind is the closed set of message categories agents exchange. Dispatch
// sites switch over Kind exhaustively (see runner's handler table); adding a
// kind here forces every table to name it or default it explicitly.
type Kind int

const (
	// KindGreet is a simple social greeting.
	KindGreet Kind = iota
	// KindChat continues a casual conversation.
	KindChat
	// KindInvite proposes a joint activity.
	KindInvite
	// KindAccept accepts a prior invite or request.
	KindAccept
	// KindDecline declines a prior invite or request.
	KindDecline
	// KindTradeOffer proposes an exchange of goods or money.
	KindTradeOffer
	// KindTradeAccept accepts a trade offer.
	KindTradeAccept
	// KindTradeReject rejects a trade offer.
	KindTradeReject
	// KindHireOffer proposes employment.
	KindHireOffer
	// KindServiceRequest asks another agent to perform a service.
	KindServiceRequest
	// KindShareInfo shares a piece of information.
	KindShareInfo
	// KindAskInfo requests a piece of information.
	KindAskInfo
	// KindGossip spreads a rumor.
	KindGossip
	// KindMeetRequest asks another agent to meet.
	KindMeetRequest
	// KindLocationUpdate announces the sender's new location.
	KindLocationUpdate
	// KindAck acknowledges receipt of a prior message.
	KindAck

	// kindCount is the number of kinds; used to build exhaustive tables.
	kindCount
)

// String returns the wire-ish name of the kind.
func (k Kind) String() string {
	switch k {
	case KindGreet:
		return "greet"
	case KindChat:
		return "chat"
	case KindInvite:
		return "invite"
	case KindAccept:
		return "accept"
	case KindDecline:
		return "decline"
	case KindTradeOffer:
		return "trade_offer"
	case KindTradeAccept:
		return "trade_accept"
	case KindTradeReject:
		return "trade_reject"
	case KindHireOffer:
		return "hire_offer"
	case KindServiceRequest:
		return "service_request"
	case KindShareInfo:
		return "share_info"
	case KindAskInfo:
		return "ask_info"
	case KindGossip:
		return "gossip"
	case KindMeetRequest:
		return "meet_request"
	case KindLocationUpdate:
		return "location_update"
	case KindAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Kinds returns every defined message kind in declaration order. Handler
// tables iterate this to prove they cover the closed set.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Message is a single unit of agent communication. A message is immutable
// once sent: senders construct it, the bus enqueues it, receivers only read.
type Message struct {
	ID               string         `json:"id"`
	SenderID         string         `json:"sender_id"`
	ReceiverID       string         `json:"receiver_id,omitempty"` // empty = broadcast
	Kind             Kind           `json:"kind"`
	Content          map[string]any `json:"content,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	ExpiresAt        time.Time      `json:"expires_at,omitempty"` // zero = never expires
	RequiresResponse bool           `json:"requires_response,omitempty"`
}

// New constructs a direct message. Pass an empty receiverID for a broadcast.
func New(senderID, receiverID string, kind Kind, content map[string]any) Message {
	return Message{
		ID:         core.NewID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Kind:       kind,
		Content:    content,
		Timestamp:  time.Now().UTC(),
	}
}

// NewBroadcast constructs a broadcast message reaching every other
// registered agent.
func NewBroadcast(senderID string, kind Kind, content map[string]any) Message {
	return New(senderID, "", kind, content)
}

// IsBroadcast reports whether the message targets all agents.
func (m Message) IsBroadcast() bool { return m.ReceiverID == "" }

// Expired reports whether the message's expiry has passed.
func (m Message) Expired() bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(m.ExpiresAt)
}
