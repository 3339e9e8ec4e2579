package memstore

import (
	"sync"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/history"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/domain/settlement"
)

// Store owns every map of the engine's state. One lock serializes all
// mutating operations: whoever holds it is the single cooperative writer,
// and only a settle/fulfill releases it across the ledger verification
// call. Services acquire the lock for the whole read-modify-write span of
// an operation, never per map access.
type Store struct {
	mu sync.Mutex

	Users         *OrderedMap[account.Identity, *account.User]
	Businesses    *OrderedMap[account.Identity, *account.Business]
	Aliases       *OrderedMap[string, account.Identity]
	Histories     *OrderedMap[account.Identity, *history.Log]
	Chats         *OrderedMap[string, *chat.Chat]
	Relationships *OrderedMap[string, *relationship.Relationship]
	Settlements   *OrderedMap[uint64, settlement.Record]
	Sessions      *OrderedMap[string, *account.Session]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Users:         NewOrderedMap[account.Identity, *account.User](),
		Businesses:    NewOrderedMap[account.Identity, *account.Business](),
		Aliases:       NewOrderedMap[string, account.Identity](),
		Histories:     NewOrderedMap[account.Identity, *history.Log](),
		Chats:         NewOrderedMap[string, *chat.Chat](),
		Relationships: NewOrderedMap[string, *relationship.Relationship](),
		Settlements:   NewOrderedMap[uint64, settlement.Record](),
		Sessions:      NewOrderedMap[string, *account.Session](),
	}
}

// Lock takes the single-writer lock.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the single-writer lock.
func (s *Store) Unlock() { s.mu.Unlock() }

// Classify returns the kind of an identity. Caller holds the lock.
func (s *Store) Classify(id account.Identity) account.Kind {
	if s.Users.Contains(id) {
		return account.KindUser
	}
	if s.Businesses.Contains(id) {
		return account.KindBusiness
	}
	return account.KindUnknown
}

// Metadata returns the public profile of a registered identity.
func (s *Store) Metadata(id account.Identity) (*account.Metadata, bool) {
	if u, ok := s.Users.Get(id); ok {
		return &account.Metadata{
			Identity:  u.Identity,
			Kind:      account.KindUser,
			Name:      u.Name,
			Alias:     u.Alias,
			CreatedAt: u.CreatedAt,
		}, true
	}
	if b, ok := s.Businesses.Get(id); ok {
		return &account.Metadata{
			Identity:  b.Identity,
			Kind:      account.KindBusiness,
			Name:      b.Name,
			Alias:     b.Alias,
			Logo:      b.Logo,
			Category:  b.Category,
			CreatedAt: b.CreatedAt,
		}, true
	}
	return nil, false
}

// AppendHistory appends an entry to an identity's log, creating the log
// on first use.
func (s *Store) AppendHistory(id account.Identity, e history.Entry) {
	log, ok := s.Histories.Get(id)
	if !ok {
		log = &history.Log{}
		s.Histories.Insert(id, log)
	}
	log.Append(e)
}

// HistoryOf returns the identity's log, or nil if it never transacted.
func (s *Store) HistoryOf(id account.Identity) *history.Log {
	log, _ := s.Histories.Get(id)
	return log
}
