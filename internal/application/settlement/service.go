// Package settlement verifies transfers against the external ledger and
// mirrors them into the accounts, chats and relationships they touch.
package settlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
	"github.com/paylink/paylink/internal/domain/history"
	"github.com/paylink/paylink/internal/domain/relationship"
	"github.com/paylink/paylink/internal/domain/settlement"
	"github.com/paylink/paylink/internal/infrastructure/memstore"
	"github.com/paylink/paylink/internal/infrastructure/sse"
)

// Service owns the settle and fulfillment write paths. Both reserve the
// tx id before the ledger call and only commit the record after every
// mirror write succeeded, so a duplicate submission of the same id fails
// fast no matter where the first one currently is.
type Service struct {
	store   *memstore.Store
	gateway settlement.LedgerGateway
	hub     *sse.Hub
	logger  zerolog.Logger
}

// NewService creates the settlement service.
func NewService(store *memstore.Store, gateway settlement.LedgerGateway, hub *sse.Hub, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		hub:     hub,
		logger:  logger.With().Str("service", "settlement").Logger(),
	}
}

// Settle verifies the transaction on the ledger and records it for both
// parties. The note, when given, travels with the sender's and receiver's
// entries but never into a business's inline list.
func (s *Service) Settle(ctx context.Context, caller account.Identity, txID uint64, note *string) error {
	if err := s.reserve(txID); err != nil {
		return err
	}

	tx, err := s.gateway.GetTransaction(ctx, txID)
	if err != nil {
		s.release(txID)
		return fmt.Errorf("%w: %v", settlement.ErrExternalCall, err)
	}

	s.store.Lock()
	defer s.store.Unlock()

	xfer, err := settlement.Inspect(txID, tx)
	if err != nil {
		s.store.Settlements.Remove(txID)
		return err
	}

	if err := s.apply(caller, xfer, txID, note); err != nil {
		s.store.Settlements.Remove(txID)
		return err
	}

	s.store.Settlements.Insert(txID, settlement.Record{From: xfer.From, To: xfer.To})
	s.logger.Info().Uint64("tx_id", txID).Uint64("amount", xfer.Amount).Msg("transfer settled")
	return nil
}

// apply dispatches on the registration kinds of both parties. Caller
// holds the lock.
func (s *Service) apply(caller account.Identity, xfer *settlement.Transfer, txID uint64, note *string) error {
	fromKind := s.store.Classify(xfer.From)
	toKind := s.store.Classify(xfer.To)

	switch {
	case fromKind == account.KindUser && toKind == account.KindUser:
		s.applyUserToUser(caller, xfer, txID, note)
	case fromKind == account.KindUser && toKind == account.KindBusiness:
		s.applyUserBusiness(xfer.From, xfer.To, history.DirectionSend, xfer, txID, note)
	case fromKind == account.KindBusiness && toKind == account.KindUser:
		s.applyUserBusiness(xfer.To, xfer.From, history.DirectionReceive, xfer, txID, note)
	case fromKind == account.KindBusiness && toKind == account.KindBusiness:
		s.applyBusinessToBusiness(xfer, txID, note)
	case fromKind != account.KindUnknown:
		s.applyKnownUnknown(xfer.From, fromKind, xfer.To, history.DirectionSend, xfer, txID, note)
	case toKind != account.KindUnknown:
		s.applyKnownUnknown(xfer.To, toKind, xfer.From, history.DirectionReceive, xfer, txID, note)
	default:
		return &settlement.BothAccountsNotFoundError{From: xfer.From, To: xfer.To}
	}
	return nil
}

// applyUserToUser mirrors the transfer into the pair's chat and into both
// users' histories, each under their own key.
func (s *Service) applyUserToUser(caller account.Identity, xfer *settlement.Transfer, txID uint64, note *string) {
	from, _ := s.store.Users.Get(xfer.From)
	to, _ := s.store.Users.Get(xfer.To)

	id := chat.DeriveID(from.Alias, to.Alias)
	c, ok := s.store.Chats.Get(id)
	if !ok {
		c = chat.New(from.Alias, to.Alias, xfer.Timestamp)
		s.store.Chats.Insert(id, c)
	}

	readBy := []string{}
	switch caller {
	case xfer.From:
		readBy = append(readBy, from.Alias)
	case xfer.To:
		readBy = append(readBy, to.Alias)
	}

	pre := c.LastActivity
	c.Append(&chat.Transfer{
		SenderAlias: from.Alias,
		Timestamp:   xfer.Timestamp,
		Note:        note,
		Amount:      xfer.Amount,
		TxID:        txID,
		ReadBy:      readBy,
	}, xfer.Timestamp)
	from.Chats.Reposition(id, pre, c.LastActivity)
	to.Chats.Reposition(id, pre, c.LastActivity)

	s.store.AppendHistory(xfer.From, history.Entry{
		Direction:         history.DirectionSend,
		CounterpartyName:  to.Name,
		CounterpartyAlias: to.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	})
	s.store.AppendHistory(xfer.To, history.Entry{
		Direction:         history.DirectionReceive,
		CounterpartyName:  from.Name,
		CounterpartyAlias: from.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	})

	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "transfer", ChatID: id})
}

// applyUserBusiness handles both directions between a user and a
// business. userDir is the user's side of the transfer. The business's
// inline entry carries no note.
func (s *Service) applyUserBusiness(userID, businessID account.Identity, userDir history.Direction, xfer *settlement.Transfer, txID uint64, note *string) {
	u, _ := s.store.Users.Get(userID)
	b, _ := s.store.Businesses.Get(businessID)

	bizDir := history.DirectionReceive
	senderAlias := u.Alias
	if userDir == history.DirectionReceive {
		bizDir = history.DirectionSend
		senderAlias = b.Alias
	}

	b.Transactions = append(b.Transactions, history.Entry{
		Direction:         bizDir,
		CounterpartyName:  u.Name,
		CounterpartyAlias: u.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
	})

	relID := relationship.DeriveID(u.Alias, b.Alias)
	rel, ok := s.store.Relationships.Get(relID)
	if !ok {
		rel = relationship.New(u.Alias, relationship.BusinessSnapshot{
			Identity: b.Identity,
			Name:     b.Name,
			Alias:    b.Alias,
			Logo:     b.Logo,
			Category: b.Category,
		}, xfer.Timestamp)
		s.store.Relationships.Insert(relID, rel)
	}
	pre := rel.LastActivity
	rel.Append(relationship.SubLedgerEntry{
		SenderAlias: senderAlias,
		Timestamp:   xfer.Timestamp,
		Note:        note,
		Amount:      xfer.Amount,
		TxID:        txID,
	}, xfer.Timestamp)
	u.Relationships.Reposition(relID, pre, rel.LastActivity)

	s.store.AppendHistory(userID, history.Entry{
		Direction:         userDir,
		CounterpartyName:  b.Name,
		CounterpartyAlias: b.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	})
}

func (s *Service) applyBusinessToBusiness(xfer *settlement.Transfer, txID uint64, note *string) {
	from, _ := s.store.Businesses.Get(xfer.From)
	to, _ := s.store.Businesses.Get(xfer.To)

	from.Transactions = append(from.Transactions, history.Entry{
		Direction:         history.DirectionSend,
		CounterpartyName:  to.Name,
		CounterpartyAlias: to.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	})
	to.Transactions = append(to.Transactions, history.Entry{
		Direction:         history.DirectionReceive,
		CounterpartyName:  from.Name,
		CounterpartyAlias: from.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	})
}

// applyKnownUnknown records the transfer for the one registered side. The
// unregistered party shows up as its raw identity text.
func (s *Service) applyKnownUnknown(knownID account.Identity, kind account.Kind, unknownID account.Identity, dir history.Direction, xfer *settlement.Transfer, txID uint64, note *string) {
	e := history.Entry{
		Direction:         dir,
		CounterpartyName:  unknownID.String(),
		CounterpartyAlias: unknownID.String(),
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              note,
	}
	if kind == account.KindUser {
		s.store.AppendHistory(knownID, e)
		return
	}
	b, _ := s.store.Businesses.Get(knownID)
	b.Transactions = append(b.Transactions, e)
}

// FulfillRequest verifies that the transaction pays an open payment
// request in the chat and marks the request fulfilled. The request's note
// travels into both users' history entries.
func (s *Service) FulfillRequest(ctx context.Context, txID uint64, chatID string, messageIndex int) error {
	if err := s.reserve(txID); err != nil {
		return err
	}

	tx, err := s.gateway.GetTransaction(ctx, txID)
	if err != nil {
		s.release(txID)
		return fmt.Errorf("%w: %v", settlement.ErrExternalCall, err)
	}

	s.store.Lock()
	defer s.store.Unlock()

	fail := func(err error) error {
		s.store.Settlements.Remove(txID)
		return err
	}

	xfer, err := settlement.Inspect(txID, tx)
	if err != nil {
		return fail(err)
	}

	from, ok := s.store.Users.Get(xfer.From)
	if !ok {
		return fail(account.ErrNotFound)
	}
	to, ok := s.store.Users.Get(xfer.To)
	if !ok {
		return fail(account.ErrNotFound)
	}

	c, ok := s.store.Chats.Get(chatID)
	if !ok {
		return fail(chat.ErrNotFound)
	}
	if !c.HasParticipant(from.Alias) || !c.HasParticipant(to.Alias) {
		return fail(chat.ErrNotAParticipant)
	}

	if messageIndex < 0 || messageIndex >= len(c.Timeline) {
		return fail(settlement.ErrRequestNotFound)
	}
	req, ok := c.Timeline[messageIndex].(*chat.PaymentRequest)
	if !ok {
		return fail(settlement.ErrRequestNotFound)
	}
	if req.Fulfilled() {
		return fail(settlement.ErrRequestAlreadyFulfilled)
	}
	if xfer.Timestamp > req.ExpiresAt+chat.FulfillGrace {
		return fail(settlement.ErrRequestExpired)
	}
	if xfer.Amount != req.Amount {
		return fail(settlement.ErrAmountMismatch)
	}
	if req.RequesterAlias != to.Alias {
		return fail(&settlement.WrongRequesterError{RequesterAlias: req.RequesterAlias, PayeeAlias: to.Alias})
	}

	req.Fulfill(xfer.Timestamp, txID)
	pre := c.LastActivity
	if xfer.Timestamp > c.LastActivity {
		c.LastActivity = xfer.Timestamp
	}
	from.Chats.Reposition(c.ID, pre, c.LastActivity)
	to.Chats.Reposition(c.ID, pre, c.LastActivity)

	s.store.AppendHistory(xfer.From, history.Entry{
		Direction:         history.DirectionSend,
		CounterpartyName:  to.Name,
		CounterpartyAlias: to.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              req.Note,
	})
	s.store.AppendHistory(xfer.To, history.Entry{
		Direction:         history.DirectionReceive,
		CounterpartyName:  from.Name,
		CounterpartyAlias: from.Alias,
		TxID:              txID,
		Timestamp:         xfer.Timestamp,
		Amount:            xfer.Amount,
		Note:              req.Note,
	})

	s.store.Settlements.Insert(txID, settlement.Record{From: xfer.From, To: xfer.To})
	s.logger.Info().Uint64("tx_id", txID).Str("chat_id", chatID).Msg("payment request fulfilled")
	s.hub.BroadcastToAliases(c.Participants, &sse.Event{Type: "payment_request_fulfilled", ChatID: c.ID})
	return nil
}

// reserve claims the tx id before the suspension point. A second settle
// of the same id, concurrent or later, sees the record and stops.
func (s *Service) reserve(txID uint64) error {
	s.store.Lock()
	defer s.store.Unlock()
	if s.store.Settlements.Contains(txID) {
		return settlement.ErrAlreadyRecorded
	}
	s.store.Settlements.Insert(txID, settlement.Record{Pending: true})
	return nil
}

// release frees a reservation after a failed verification so the id can
// be retried.
func (s *Service) release(txID uint64) {
	s.store.Lock()
	defer s.store.Unlock()
	s.store.Settlements.Remove(txID)
}
