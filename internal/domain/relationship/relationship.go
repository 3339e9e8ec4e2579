package relationship

import (
	"errors"

	"github.com/paylink/paylink/internal/domain/account"
	"github.com/paylink/paylink/internal/domain/chat"
)

// ErrBusinessNotFound means the referenced business is not registered.
var ErrBusinessNotFound = errors.New("business not found")

// BusinessSnapshot denormalizes the business profile into the pairing so
// listing a user's relationships needs no second lookup.
type BusinessSnapshot struct {
	Identity account.Identity `json:"identity"`
	Name     string           `json:"name"`
	Alias    string           `json:"alias"`
	Logo     string           `json:"logo"`
	Category account.Category `json:"category"`
}

// SubLedgerEntry is one transfer between the user and the business, seen
// from inside the pairing.
type SubLedgerEntry struct {
	SenderAlias string  `json:"senderAlias"`
	Timestamp   uint64  `json:"timestamp"`
	Note        *string `json:"note,omitempty"`
	Amount      uint64  `json:"amount"`
	TxID        uint64  `json:"txId"`
}

// Relationship pairs a user with a business: the business snapshot, the
// transfers between the two, and a recency stamp. It is the business
// analogue of a chat, without free-text messaging.
type Relationship struct {
	ID           string           `json:"id"`
	Business     BusinessSnapshot `json:"business"`
	SubLedger    []SubLedgerEntry `json:"subLedger"`
	LastActivity uint64           `json:"lastActivity"`
}

// DeriveID builds the pairing id from the two aliases, same construction
// as a chat id.
func DeriveID(userAlias, businessAlias string) string {
	return chat.DeriveID(userAlias, businessAlias)
}

// New creates an empty pairing.
func New(userAlias string, snap BusinessSnapshot, now uint64) *Relationship {
	return &Relationship{
		ID:           DeriveID(userAlias, snap.Alias),
		Business:     snap,
		LastActivity: now,
	}
}

// Append adds a sub-ledger entry and advances the recency stamp.
func (r *Relationship) Append(e SubLedgerEntry, timestamp uint64) {
	r.SubLedger = append(r.SubLedger, e)
	r.LastActivity = timestamp
}
