package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("chat not found")
	ErrNotAParticipant     = errors.New("caller is not a chat participant")
	ErrSameParticipant     = errors.New("caller and participant are the same account")
	ErrParticipantNotFound = errors.New("participant not found")
)

// ID identifies a conversation. The id is a pure function of the two
// participant aliases so the same pair always maps to the same chat no
// matter which side initiates.
type ID = string

// DeriveID builds the chat id for an unordered alias pair: the greater
// alias first, joined with '/'. Two equal aliases are a programming defect,
// not a recoverable input error.
func DeriveID(aliasA, aliasB string) ID {
	if aliasA > aliasB {
		return aliasA + "/" + aliasB
	}
	if aliasB > aliasA {
		return aliasB + "/" + aliasA
	}
	panic(fmt.Sprintf("chat: both aliases are %q", aliasA))
}

// Chat is a two-party conversation interleaving messages, transfers and
// payment requests.
type Chat struct {
	ID           ID       `json:"id"`
	Participants []string `json:"participants"`
	Timeline     []Event  `json:"timeline"`
	LastActivity uint64   `json:"lastActivity"`
}

// New creates an empty chat between two distinct aliases.
func New(aliasA, aliasB string, now uint64) *Chat {
	return &Chat{
		ID:           DeriveID(aliasA, aliasB),
		Participants: []string{aliasA, aliasB},
		LastActivity: now,
	}
}

// HasParticipant reports whether the alias belongs to the chat.
func (c *Chat) HasParticipant(alias string) bool {
	for _, p := range c.Participants {
		if p == alias {
			return true
		}
	}
	return false
}

// Append adds an event and advances the recency stamp.
func (c *Chat) Append(ev Event, timestamp uint64) {
	c.Timeline = append(c.Timeline, ev)
	c.LastActivity = timestamp
}

// MarkRead walks the timeline newest-backwards adding the alias to each
// event's read set, stopping at the first event the alias already read.
func (c *Chat) MarkRead(alias string) {
	for i := len(c.Timeline) - 1; i >= 0; i-- {
		readers := c.Timeline[i].readers()
		if containsAlias(*readers, alias) {
			return
		}
		*readers = append(*readers, alias)
	}
}

func containsAlias(readers []string, alias string) bool {
	for _, r := range readers {
		if r == alias {
			return true
		}
	}
	return false
}

// Event is one timeline entry: a message, a transfer or a payment request.
// The set of variants is closed.
type Event interface {
	Kind() EventKind
	readers() *[]string
}

// EventKind tags a timeline event variant.
type EventKind string

const (
	EventMessage        EventKind = "message"
	EventTransfer       EventKind = "transfer"
	EventPaymentRequest EventKind = "payment_request"
)

// Message is a free-text chat message.
type Message struct {
	SenderAlias string   `json:"senderAlias"`
	Content     string   `json:"content"`
	Timestamp   uint64   `json:"timestamp"`
	ReadBy      []string `json:"readBy"`
}

func (m *Message) Kind() EventKind    { return EventMessage }
func (m *Message) readers() *[]string { return &m.ReadBy }

// Transfer mirrors a settled ledger transfer into the conversation.
type Transfer struct {
	SenderAlias string   `json:"senderAlias"`
	Timestamp   uint64   `json:"timestamp"`
	Note        *string  `json:"note,omitempty"`
	Amount      uint64   `json:"amount"`
	TxID        uint64   `json:"txId"`
	ReadBy      []string `json:"readBy"`
}

func (t *Transfer) Kind() EventKind    { return EventTransfer }
func (t *Transfer) readers() *[]string { return &t.ReadBy }

// PaymentRequest asks the other participant to pay the requester. The
// fulfillment fields are set at most once.
type PaymentRequest struct {
	RequesterAlias string   `json:"requesterAlias"`
	Amount         uint64   `json:"amount"`
	Note           *string  `json:"note,omitempty"`
	RequestedAt    uint64   `json:"requestedAt"`
	ExpiresAt      uint64   `json:"expiresAt"`
	PaidAt         *uint64  `json:"paidAt,omitempty"`
	TxID           *uint64  `json:"txId,omitempty"`
	ReadBy         []string `json:"readBy"`
}

func (p *PaymentRequest) Kind() EventKind    { return EventPaymentRequest }
func (p *PaymentRequest) readers() *[]string { return &p.ReadBy }

// Fulfilled reports whether the request has been paid.
func (p *PaymentRequest) Fulfilled() bool { return p.PaidAt != nil }

// Fulfill records the paying transaction.
func (p *PaymentRequest) Fulfill(paidAt, txID uint64) {
	p.PaidAt = &paidAt
	p.TxID = &txID
}

const nanosPerSecond = 1_000_000_000

// FulfillGrace is the slack past a request's nominal expiry within which a
// payment is still accepted, in nanoseconds.
const FulfillGrace uint64 = 1_800_000_000_000

// ExpiryAfter computes a request's expiry from its creation time: the
// creation second truncated to the minute plus 24 hours, back in
// nanoseconds. Not a calendar-day boundary.
func ExpiryAfter(timestamp uint64) uint64 {
	sec := timestamp / nanosPerSecond
	sec = sec - sec%60 + 86_400
	return sec * nanosPerSecond
}

type taggedEvent struct {
	Type EventKind `json:"type"`
}

// MarshalJSON tags each variant with its kind.
func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return json.Marshal(struct {
		taggedEvent
		*alias
	}{taggedEvent{m.Kind()}, (*alias)(m)})
}

func (t *Transfer) MarshalJSON() ([]byte, error) {
	type alias Transfer
	return json.Marshal(struct {
		taggedEvent
		*alias
	}{taggedEvent{t.Kind()}, (*alias)(t)})
}

func (p *PaymentRequest) MarshalJSON() ([]byte, error) {
	type alias PaymentRequest
	return json.Marshal(struct {
		taggedEvent
		*alias
	}{taggedEvent{p.Kind()}, (*alias)(p)})
}
