package chat

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/infrastructure/memstore"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

func newTestService() (*Service, *memstore.Store) {
	store := memstore.New()
	svc := NewService(store, sse.NewHub(), zerolog.Nop())
	clock := uint64(1000)
	svc.now = func() uint64 {
		clock += 1000
		return clock
	}
	return svc, store
}

func seedUser(store *memstore.Store, id account.Identity, name, alias string) *account.User {
	u := &account.User{Identity: id, Name: name, Alias: alias}
	store.Users.Insert(id, u)
	store.Aliases.Insert(alias, id)
	return u
}

func seedBusiness(store *memstore.Store, id account.Identity, name, alias string) *account.Business {
	b := &account.Business{Identity: id, Name: name, Alias: alias, Category: account.CategoryFood}
	store.Businesses.Insert(id, b)
	store.Aliases.Insert(alias, id)
	return b
}

func TestCreateChat(t *testing.T) {
	svc, store := newTestService()
	alice := seedUser(store, "alice-id", "Alice", "alice")
	bob := seedUser(store, "bob-id", "Bob", "bob")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)
	require.Equal(t, chat.DeriveID("alice", "bob"), c.ID)
	require.ElementsMatch(t, []string{"alice", "bob"}, c.Participants)

	// Both sides index the new chat.
	require.Equal(t, []string{c.ID}, alice.Chats.NewestFirst(0))
	require.Equal(t, []string{c.ID}, bob.Chats.NewestFirst(0))

	// Creating the same pair again returns the existing chat.
	again, err := svc.CreateChat(ctx, "bob-id", ParticipantRef{Identity: "alice-id"})
	require.NoError(t, err)
	require.Same(t, c, again)
	require.Equal(t, 1, alice.Chats.Len())
}

func TestCreateChatRejections(t *testing.T) {
	svc, store := newTestService()
	seedUser(store, "alice-id", "Alice", "alice")
	seedBusiness(store, "acme-id", "Acme", "acme")
	ctx := context.Background()

	_, err := svc.CreateChat(ctx, account.Anonymous, ParticipantRef{Alias: "alice"})
	require.ErrorIs(t, err, account.ErrAnonymousCaller)

	_, err = svc.CreateChat(ctx, "stranger", ParticipantRef{Alias: "alice"})
	require.ErrorIs(t, err, account.ErrNotFound)

	_, err = svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "alice"})
	require.ErrorIs(t, err, chat.ErrSameParticipant)

	_, err = svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "ghost"})
	require.ErrorIs(t, err, chat.ErrParticipantNotFound)

	// A business alias is not a chat participant.
	_, err = svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "acme"})
	require.ErrorIs(t, err, chat.ErrParticipantNotFound)
}

func TestAddMessage(t *testing.T) {
	svc, store := newTestService()
	alice := seedUser(store, "alice-id", "Alice", "alice")
	bob := seedUser(store, "bob-id", "Bob", "bob")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)
	created := c.LastActivity

	msg, err := svc.AddMessage(ctx, "alice-id", c.ID, "hello")
	require.NoError(t, err)
	require.Equal(t, "alice", msg.SenderAlias)
	require.Equal(t, []string{"alice"}, msg.ReadBy)
	require.Len(t, c.Timeline, 1)
	require.Greater(t, c.LastActivity, created)

	// The recency keys moved with the chat for both participants.
	require.True(t, alice.Chats.Contains(newKey(c.LastActivity, c.ID)))
	require.True(t, bob.Chats.Contains(newKey(c.LastActivity, c.ID)))
	require.Equal(t, 1, alice.Chats.Len())
	require.Equal(t, 1, bob.Chats.Len())
}

func TestAddMessageRejections(t *testing.T) {
	svc, store := newTestService()
	seedUser(store, "alice-id", "Alice", "alice")
	seedUser(store, "bob-id", "Bob", "bob")
	seedUser(store, "carol-id", "Carol", "carol")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)

	_, err = svc.AddMessage(ctx, "alice-id", "missing/chat", "hi")
	require.ErrorIs(t, err, chat.ErrNotFound)

	_, err = svc.AddMessage(ctx, "carol-id", c.ID, "hi")
	require.ErrorIs(t, err, chat.ErrNotAParticipant)
}

func TestMarkRead(t *testing.T) {
	svc, store := newTestService()
	seedUser(store, "alice-id", "Alice", "alice")
	seedUser(store, "bob-id", "Bob", "bob")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)
	_, err = svc.AddMessage(ctx, "alice-id", c.ID, "one")
	require.NoError(t, err)
	_, err = svc.AddMessage(ctx, "alice-id", c.ID, "two")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "bob-id", c.ID))
	for i, ev := range c.Timeline {
		require.ElementsMatch(t, []string{"alice", "bob"}, ev.(*chat.Message).ReadBy, "event %d", i)
	}
}

func TestRequestPayment(t *testing.T) {
	svc, store := newTestService()
	seedUser(store, "alice-id", "Alice", "alice")
	seedUser(store, "bob-id", "Bob", "bob")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)

	note := "split the bill"
	req, err := svc.RequestPayment(ctx, "bob-id", c.ID, 120, &note)
	require.NoError(t, err)
	require.Equal(t, "bob", req.RequesterAlias)
	require.Equal(t, uint64(120), req.Amount)
	require.Equal(t, []string{"bob"}, req.ReadBy)
	require.False(t, req.Fulfilled())
	require.Equal(t, chat.ExpiryAfter(req.RequestedAt), req.ExpiresAt)
	require.Len(t, c.Timeline, 1)
}

func TestGetChatParticipantOnly(t *testing.T) {
	svc, store := newTestService()
	seedUser(store, "alice-id", "Alice", "alice")
	seedUser(store, "bob-id", "Bob", "bob")
	seedUser(store, "carol-id", "Carol", "carol")
	ctx := context.Background()

	c, err := svc.CreateChat(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.NoError(t, err)

	got, err := svc.GetChat(ctx, "bob-id", c.ID)
	require.NoError(t, err)
	require.Same(t, c, got)

	_, err = svc.GetChat(ctx, "carol-id", c.ID)
	require.ErrorIs(t, err, chat.ErrNotAParticipant)
}

func TestAddBusinessRelationship(t *testing.T) {
	svc, store := newTestService()
	alice := seedUser(store, "alice-id", "Alice", "alice")
	seedBusiness(store, "acme-id", "Acme", "acme")
	ctx := context.Background()

	rel, err := svc.AddBusinessRelationship(ctx, "alice-id", ParticipantRef{Alias: "acme"})
	require.NoError(t, err)
	require.Equal(t, relationship.DeriveID("alice", "acme"), rel.ID)
	require.Equal(t, account.Identity("acme-id"), rel.Business.Identity)
	require.Equal(t, account.CategoryFood, rel.Business.Category)
	require.Empty(t, rel.SubLedger)
	require.Equal(t, []string{rel.ID}, alice.Relationships.NewestFirst(0))

	// Pairing twice is a no-op.
	again, err := svc.AddBusinessRelationship(ctx, "alice-id", ParticipantRef{Alias: "acme"})
	require.NoError(t, err)
	require.Same(t, rel, again)
	require.Equal(t, 1, alice.Relationships.Len())

	_, err = svc.AddBusinessRelationship(ctx, "alice-id", ParticipantRef{Alias: "bob"})
	require.ErrorIs(t, err, relationship.ErrBusinessNotFound)
}
