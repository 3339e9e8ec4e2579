package settlement

import "context"

//go:generate mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

// LedgerGateway verifies a transaction against the external ledger. The
// call suspends the settling operation; everything before it must leave
// the engine in a state a concurrent operation may observe.
type LedgerGateway interface {
	GetTransaction(ctx context.Context, txID uint64) (*LedgerTx, error)
}
