package settlement

import (
	"errors"
	"fmt"

	"github.com/paylink/paylink/internal/domain/account"
)

var (
	// ErrAlreadyRecorded means the tx id is reserved or applied.
	ErrAlreadyRecorded = errors.New("transaction already recorded")
	// ErrExternalCall wraps a ledger gateway transport failure.
	ErrExternalCall = errors.New("ledger call failed")
	// ErrInvalidTransaction covers out-of-range ids and non-transfer kinds.
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrRequestNotFound means the addressed timeline event is not a
	// payment request.
	ErrRequestNotFound = errors.New("payment request not found")
	// ErrRequestExpired means the payment landed past expiry plus grace.
	ErrRequestExpired = errors.New("payment request expired")
	// ErrRequestAlreadyFulfilled rejects a second fulfillment.
	ErrRequestAlreadyFulfilled = errors.New("payment request already fulfilled")
	// ErrAmountMismatch means the paid amount differs from the requested one.
	ErrAmountMismatch = errors.New("paid amount does not equal requested amount")
)

// BothAccountsNotFoundError reports a transfer where neither counterparty
// is registered.
type BothAccountsNotFoundError struct {
	From account.Identity
	To   account.Identity
}

func (e *BothAccountsNotFoundError) Error() string {
	return fmt.Sprintf("neither account found: from %s, to %s", e.From, e.To)
}

// WrongRequesterError reports a fulfillment where the paid party is not
// the original requester.
type WrongRequesterError struct {
	RequesterAlias string
	PayeeAlias     string
}

func (e *WrongRequesterError) Error() string {
	return fmt.Sprintf("requester %s is not the payment receiver %s", e.RequesterAlias, e.PayeeAlias)
}

// Record is the write-once idempotency record for an applied tx id. A
// pending record reserves the id while its verification is in flight, so
// a concurrent settle of the same id fails fast instead of racing the
// suspended call.
type Record struct {
	From    account.Identity `json:"from"`
	To      account.Identity `json:"to"`
	Pending bool             `json:"pending"`
}

// Transfer is a ledger-verified money movement.
type Transfer struct {
	From      account.Identity
	To        account.Identity
	Amount    uint64
	Timestamp uint64
}

// LedgerTx is the raw record the gateway returns for one transaction id.
// The kind check and the bounds check against LogLength are the caller's
// responsibility.
type LedgerTx struct {
	Kind      string
	Timestamp uint64
	LogLength uint64
	Transfer  *TransferDetail
}

// TransferDetail is the transfer payload of a ledger transaction; nil on
// records of other kinds.
type TransferDetail struct {
	From   account.Identity
	To     account.Identity
	Amount uint64
}

// Inspect validates a gateway record for txID and extracts the transfer.
func Inspect(txID uint64, tx *LedgerTx) (*Transfer, error) {
	if txID >= tx.LogLength {
		return nil, fmt.Errorf("%w: id %d, ledger length %d", ErrInvalidTransaction, txID, tx.LogLength)
	}
	if tx.Transfer == nil {
		return nil, fmt.Errorf("%w: expected transfer, got kind %q", ErrInvalidTransaction, tx.Kind)
	}
	return &Transfer{
		From:      tx.Transfer.From,
		To:        tx.Transfer.To,
		Amount:    tx.Transfer.Amount,
		Timestamp: tx.Timestamp,
	}, nil
}
