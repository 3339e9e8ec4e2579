// Package account implements sign-up, sessions and the data-fetch
// operations shared by both account kinds.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/history"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/infrastructure/memstore"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// Initial fetch windows. The client pages in the rest on demand.
const (
	InitialChats         = 8
	InitialRelationships = 4
)

// Service owns account registration, passphrase sessions and data reads.
type Service struct {
	store      *memstore.Store
	sessionTTL time.Duration
	logger     zerolog.Logger
	now        func() uint64
}

// NewService creates the account service.
func NewService(store *memstore.Store, sessionTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("service", "account").Logger(),
		now:        func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// SignUpUserInput carries a personal sign-up. Identity is the principal
// the caller controls; it must not already own an account of either kind.
type SignUpUserInput struct {
	Identity   account.Identity
	Name       string
	Alias      string
	ProfilePic string
	Passphrase string
}

// SignUpBusinessInput carries a business sign-up.
type SignUpBusinessInput struct {
	Identity   account.Identity
	Name       string
	Alias      string
	Logo       string
	Category   account.Category
	Passphrase string
}

// SignUpUser registers a personal account and opens a session for it.
func (s *Service) SignUpUser(ctx context.Context, in SignUpUserInput) (*account.User, string, error) {
	if in.Identity.IsAnonymous() {
		return nil, "", account.ErrAnonymousCaller
	}
	if err := account.ValidateAlias(in.Alias); err != nil {
		return nil, "", err
	}
	hash, err := account.HashPassphrase(in.Passphrase)
	if err != nil {
		return nil, "", err
	}

	s.store.Lock()
	defer s.store.Unlock()

	if s.store.Classify(in.Identity) != account.KindUnknown {
		return nil, "", account.ErrAccountExists
	}
	if s.store.Aliases.Contains(in.Alias) {
		return nil, "", account.ErrAliasTaken
	}

	u := &account.User{
		Identity:   in.Identity,
		Name:       in.Name,
		Alias:      in.Alias,
		ProfilePic: in.ProfilePic,
		PassHash:   hash,
		CreatedAt:  s.now(),
	}
	s.store.Users.Insert(in.Identity, u)
	s.store.Aliases.Insert(in.Alias, in.Identity)

	token, err := s.startSession(in.Identity)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("alias", in.Alias).Msg("user signed up")
	return u, token, nil
}

// SignUpBusiness registers a business account and opens a session for it.
func (s *Service) SignUpBusiness(ctx context.Context, in SignUpBusinessInput) (*account.Business, string, error) {
	if in.Identity.IsAnonymous() {
		return nil, "", account.ErrAnonymousCaller
	}
	if err := account.ValidateAlias(in.Alias); err != nil {
		return nil, "", err
	}
	if err := account.ValidateCategory(in.Category); err != nil {
		return nil, "", err
	}
	hash, err := account.HashPassphrase(in.Passphrase)
	if err != nil {
		return nil, "", err
	}

	s.store.Lock()
	defer s.store.Unlock()

	if s.store.Classify(in.Identity) != account.KindUnknown {
		return nil, "", account.ErrAccountExists
	}
	if s.store.Aliases.Contains(in.Alias) {
		return nil, "", account.ErrAliasTaken
	}

	b := &account.Business{
		Identity:  in.Identity,
		Name:      in.Name,
		Alias:     in.Alias,
		Logo:      in.Logo,
		Category:  in.Category,
		PassHash:  hash,
		CreatedAt: s.now(),
	}
	s.store.Businesses.Insert(in.Identity, b)
	s.store.Aliases.Insert(in.Alias, in.Identity)

	token, err := s.startSession(in.Identity)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("alias", in.Alias).Msg("business signed up")
	return b, token, nil
}

// Login opens a session for the account owning the alias.
func (s *Service) Login(ctx context.Context, alias, passphrase string) (string, *account.Metadata, error) {
	s.store.Lock()
	defer s.store.Unlock()

	id, ok := s.store.Aliases.Get(alias)
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	var hash string
	if u, ok := s.store.Users.Get(id); ok {
		hash = u.PassHash
	} else if b, ok := s.store.Businesses.Get(id); ok {
		hash = b.PassHash
	}
	if !account.VerifyPassphrase(hash, passphrase) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.startSession(id)
	if err != nil {
		return "", nil, err
	}
	md, _ := s.store.Metadata(id)
	s.logger.Info().Str("alias", alias).Msg("login")
	return token, md, nil
}

// Logout invalidates the session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) {
	s.store.Lock()
	defer s.store.Unlock()
	s.store.Sessions.Remove(hashToken(token))
}

// Authenticate resolves a bearer token to its identity. Expired sessions
// are dropped on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (account.Identity, error) {
	s.store.Lock()
	defer s.store.Unlock()

	key := hashToken(token)
	sess, ok := s.store.Sessions.Get(key)
	if !ok {
		return account.Anonymous, ErrInvalidSession
	}
	if sess.IsExpired(time.Now()) {
		s.store.Sessions.Remove(key)
		return account.Anonymous, ErrInvalidSession
	}
	return sess.Identity, nil
}

// AliasAvailable reports whether the alias can still be claimed.
func (s *Service) AliasAvailable(ctx context.Context, alias string) (bool, error) {
	if err := account.ValidateAlias(alias); err != nil {
		return false, err
	}
	s.store.Lock()
	defer s.store.Unlock()
	return !s.store.Aliases.Contains(alias), nil
}

// ResolveAlias returns the public profile behind an alias. Only registered
// callers may look aliases up.
func (s *Service) ResolveAlias(ctx context.Context, caller account.Identity, alias string) (*account.Metadata, error) {
	if caller.IsAnonymous() {
		return nil, account.ErrAnonymousCaller
	}

	s.store.Lock()
	defer s.store.Unlock()

	if s.store.Classify(caller) == account.KindUnknown {
		return nil, account.ErrNotFound
	}
	id, ok := s.store.Aliases.Get(alias)
	if !ok {
		return nil, account.ErrNotFound
	}
	md, ok := s.store.Metadata(id)
	if !ok {
		return nil, account.ErrNotFound
	}
	return md, nil
}

// MetadataOf returns the caller's own public profile.
func (s *Service) MetadataOf(ctx context.Context, caller account.Identity) (*account.Metadata, error) {
	if caller.IsAnonymous() {
		return nil, account.ErrAnonymousCaller
	}
	s.store.Lock()
	defer s.store.Unlock()
	md, ok := s.store.Metadata(caller)
	if !ok {
		return nil, account.ErrNotFound
	}
	return md, nil
}

// UserData is the user-side payload of a data fetch. The length fields
// carry the full sizes so the client can later ask only for what is new.
type UserData struct {
	User          *account.User                `json:"user"`
	History       []history.Entry              `json:"history"`
	HistoryLen    int                          `json:"historyLen"`
	Chats         []*chat.Chat                 `json:"chats"`
	Relationships []*relationship.Relationship `json:"relationships"`
}

// BusinessData is the business-side payload of a data fetch.
type BusinessData struct {
	Business        *account.Business `json:"business"`
	Transactions    []history.Entry   `json:"transactions"`
	TransactionsLen int               `json:"transactionsLen"`
}

// Snapshot is the result of a data fetch: exactly one of User or Business
// is set for a registered caller, neither for an unregistered one.
type Snapshot struct {
	Kind     account.Kind  `json:"kind"`
	User     *UserData     `json:"user,omitempty"`
	Business *BusinessData `json:"business,omitempty"`
}

// FetchInitialData returns the bounded first-paint snapshot: the newest
// history window plus the most recently active chats and relationships.
func (s *Service) FetchInitialData(ctx context.Context, caller account.Identity) (*Snapshot, error) {
	return s.fetch(caller, true)
}

// FetchAllData returns the caller's complete records.
func (s *Service) FetchAllData(ctx context.Context, caller account.Identity) (*Snapshot, error) {
	return s.fetch(caller, false)
}

func (s *Service) fetch(caller account.Identity, initial bool) (*Snapshot, error) {
	if caller.IsAnonymous() {
		return nil, account.ErrAnonymousCaller
	}

	s.store.Lock()
	defer s.store.Unlock()

	if u, ok := s.store.Users.Get(caller); ok {
		return &Snapshot{Kind: account.KindUser, User: s.userData(u, initial)}, nil
	}
	if b, ok := s.store.Businesses.Get(caller); ok {
		return &Snapshot{Kind: account.KindBusiness, Business: businessData(b, initial)}, nil
	}
	return &Snapshot{Kind: account.KindUnknown}, nil
}

func (s *Service) userData(u *account.User, initial bool) *UserData {
	log := s.store.HistoryOf(u.Identity)

	chatLimit, relLimit := 0, 0
	entries := log.ReadAll()
	if initial {
		chatLimit, relLimit = InitialChats, InitialRelationships
		entries = log.ReadInitial()
	}

	var chats []*chat.Chat
	for _, id := range u.Chats.NewestFirst(chatLimit) {
		if c, ok := s.store.Chats.Get(id); ok {
			chats = append(chats, c)
		}
	}
	var rels []*relationship.Relationship
	for _, id := range u.Relationships.NewestFirst(relLimit) {
		if r, ok := s.store.Relationships.Get(id); ok {
			rels = append(rels, r)
		}
	}

	return &UserData{
		User:          u,
		History:       entries,
		HistoryLen:    log.Len(),
		Chats:         chats,
		Relationships: rels,
	}
}

func businessData(b *account.Business, initial bool) *BusinessData {
	entries := history.WindowNewestFirst(b.Transactions, 0)
	if initial {
		entries = history.WindowNewestFirst(b.Transactions, history.InitialWindow)
	}
	// Shallow copy without the inline list; it travels separately so the
	// window bound actually holds.
	trimmed := *b
	trimmed.Transactions = nil
	return &BusinessData{
		Business:        &trimmed,
		Transactions:    entries,
		TransactionsLen: len(b.Transactions),
	}
}

// ReadNewHistory returns the caller's entries appended after knownLen,
// newest first.
func (s *Service) ReadNewHistory(ctx context.Context, caller account.Identity, knownLen int) ([]history.Entry, error) {
	if caller.IsAnonymous() {
		return nil, account.ErrAnonymousCaller
	}

	s.store.Lock()
	defer s.store.Unlock()

	if s.store.Users.Contains(caller) {
		return s.store.HistoryOf(caller).ReadNew(knownLen), nil
	}
	if b, ok := s.store.Businesses.Get(caller); ok {
		return history.NewSince(b.Transactions, knownLen), nil
	}
	return nil, account.ErrNotFound
}

func (s *Service) startSession(id account.Identity) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	key := hashToken(token)
	s.store.Sessions.Insert(key, &account.Session{
		ID:        uuid.NewString(),
		TokenHash: key,
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
