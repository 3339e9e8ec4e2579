// Package chat implements the conversation operations: opening chats,
// messaging, read receipts, payment requests and business pairings.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/recency"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/infrastructure/memstore"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

// Service owns the chat and relationship write paths.
type Service struct {
	store  *memstore.Store
	hub    *sse.Hub
	logger zerolog.Logger
	now    func() uint64
}

// NewService creates the chat service.
func NewService(store *memstore.Store, hub *sse.Hub, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		hub:    hub,
		logger: logger.With().Str("service", "chat").Logger(),
		now:    func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// ParticipantRef addresses a counterparty either by alias or by raw
// identity. Alias wins when both are set.
type ParticipantRef struct {
	Alias    string
	Identity account.Identity
}

// CreateChat opens a conversation between the caller and another user.
// Opening an already existing chat returns it unchanged.
func (s *Service) CreateChat(ctx context.Context, caller account.Identity, ref ParticipantRef) (*chat.Chat, error) {
	s.store.Lock()
	defer s.store.Unlock()

	me, err := s.callerUser(caller)
	if err != nil {
		return nil, err
	}
	other, err := s.resolveUser(ref)
	if err != nil {
		return nil, err
	}
	if other.Identity == me.Identity {
		return nil, chat.ErrSameParticipant
	}

	id := chat.DeriveID(me.Alias, other.Alias)
	if existing, ok := s.store.Chats.Get(id); ok {
		return existing, nil
	}

	c := chat.New(me.Alias, other.Alias, s.now())
	s.store.Chats.Insert(id, c)
	me.Chats.Insert(newKey(c.LastActivity, id))
	other.Chats.Insert(newKey(c.LastActivity, id))

	s.logger.Info().Str("chat_id", id).Msg("chat created")
	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "chat_created", ChatID: id})
	return c, nil
}

// GetChat returns a conversation to one of its participants.
func (s *Service) GetChat(ctx context.Context, caller account.Identity, chatID string) (*chat.Chat, error) {
	s.store.Lock()
	defer s.store.Unlock()

	me, err := s.callerUser(caller)
	if err != nil {
		return nil, err
	}
	c, ok := s.store.Chats.Get(chatID)
	if !ok {
		return nil, chat.ErrNotFound
	}
	if !c.HasParticipant(me.Alias) {
		return nil, chat.ErrNotAParticipant
	}
	return c, nil
}

// AddMessage appends a text message to the chat. The sender has read
// their own message from the start.
func (s *Service) AddMessage(ctx context.Context, caller account.Identity, chatID, content string) (*chat.Message, error) {
	s.store.Lock()
	defer s.store.Unlock()

	me, c, err := s.participantChat(caller, chatID)
	if err != nil {
		return nil, err
	}

	msg := &chat.Message{
		SenderAlias: me.Alias,
		Content:     content,
		Timestamp:   s.now(),
		ReadBy:      []string{me.Alias},
	}
	pre := c.LastActivity
	c.Append(msg, msg.Timestamp)
	s.repositionChats(c, pre)

	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "message", ChatID: c.ID, Payload: msg})
	return msg, nil
}

// MarkRead records that the caller has seen the chat up to its newest
// event.
func (s *Service) MarkRead(ctx context.Context, caller account.Identity, chatID string) error {
	s.store.Lock()
	defer s.store.Unlock()

	me, c, err := s.participantChat(caller, chatID)
	if err != nil {
		return err
	}
	c.MarkRead(me.Alias)
	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "chat_read", ChatID: c.ID})
	return nil
}

// RequestPayment places a payment request on the chat's timeline. The
// request expires 24 hours after its creation minute.
func (s *Service) RequestPayment(ctx context.Context, caller account.Identity, chatID string, amount uint64, note *string) (*chat.PaymentRequest, error) {
	s.store.Lock()
	defer s.store.Unlock()

	me, c, err := s.participantChat(caller, chatID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &chat.PaymentRequest{
		RequesterAlias: me.Alias,
		Amount:         amount,
		Note:           note,
		RequestedAt:    now,
		ExpiresAt:      chat.ExpiryAfter(now),
		ReadBy:         []string{me.Alias},
	}
	pre := c.LastActivity
	c.Append(req, now)
	s.repositionChats(c, pre)

	s.logger.Info().Str("chat_id", c.ID).Uint64("amount", amount).Msg("payment requested")
	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "payment_request", ChatID: c.ID, Payload: req})
	return req, nil
}

// AddBusinessRelationship pairs the caller with a business. Pairing twice
// returns the existing record.
func (s *Service) AddBusinessRelationship(ctx context.Context, caller account.Identity, ref ParticipantRef) (*relationship.Relationship, error) {
	s.store.Lock()
	defer s.store.Unlock()

	me, err := s.callerUser(caller)
	if err != nil {
		return nil, err
	}
	biz, err := s.resolveBusiness(ref)
	if err != nil {
		return nil, err
	}

	id := relationship.DeriveID(me.Alias, biz.Alias)
	if existing, ok := s.store.Relationships.Get(id); ok {
		return existing, nil
	}

	rel := relationship.New(me.Alias, relationship.BusinessSnapshot{
		Identity: biz.Identity,
		Name:     biz.Name,
		Alias:    biz.Alias,
		Logo:     biz.Logo,
		Category: biz.Category,
	}, s.now())
	s.store.Relationships.Insert(id, rel)
	me.Relationships.Insert(newKey(rel.LastActivity, id))

	s.logger.Info().Str("relationship_id", id).Msg("relationship added")
	return rel, nil
}

func newKey(activity uint64, targetID string) recency.Key {
	return recency.Key{LastActivity: activity, TargetID: targetID}
}

func (s *Service) callerUser(caller account.Identity) (*account.User, error) {
	if caller.IsAnonymous() {
		return nil, account.ErrAnonymousCaller
	}
	u, ok := s.store.Users.Get(caller)
	if !ok {
		return nil, account.ErrNotFound
	}
	return u, nil
}

func (s *Service) resolveUser(ref ParticipantRef) (*account.User, error) {
	id := ref.Identity
	if ref.Alias != "" {
		resolved, ok := s.store.Aliases.Get(ref.Alias)
		if !ok {
			return nil, chat.ErrParticipantNotFound
		}
		id = resolved
	}
	u, ok := s.store.Users.Get(id)
	if !ok {
		return nil, chat.ErrParticipantNotFound
	}
	return u, nil
}

func (s *Service) resolveBusiness(ref ParticipantRef) (*account.Business, error) {
	id := ref.Identity
	if ref.Alias != "" {
		resolved, ok := s.store.Aliases.Get(ref.Alias)
		if !ok {
			return nil, relationship.ErrBusinessNotFound
		}
		id = resolved
	}
	b, ok := s.store.Businesses.Get(id)
	if !ok {
		return nil, relationship.ErrBusinessNotFound
	}
	return b, nil
}

func (s *Service) participantChat(caller account.Identity, chatID string) (*account.User, *chat.Chat, error) {
	me, err := s.callerUser(caller)
	if err != nil {
		return nil, nil, err
	}
	c, ok := s.store.Chats.Get(chatID)
	if !ok {
		return nil, nil, chat.ErrNotFound
	}
	if !c.HasParticipant(me.Alias) {
		return nil, nil, chat.ErrNotAParticipant
	}
	return me, c, nil
}

// repositionChats moves the chat's recency key in every participant's
// index after its last activity advanced.
func (s *Service) repositionChats(c *chat.Chat, oldActivity uint64) {
	for _, alias := range c.Participants {
		id, ok := s.store.Aliases.Get(alias)
		if !ok {
			continue
		}
		if u, ok := s.store.Users.Get(id); ok {
			u.Chats.Reposition(c.ID, oldActivity, c.LastActivity)
		}
	}
}
