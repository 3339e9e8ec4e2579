package settlement

import (
	"errors"
	"testing"
)

func TestInspectTransfer(t *testing.T) {
	tx := &LedgerTx{
		Kind:      "transfer",
		Timestamp: 500,
		LogLength: 10,
		Transfer:  &TransferDetail{From: "alice-id", To: "bob-id", Amount: 25},
	}
	xfer, err := Inspect(4, tx)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if xfer.From != "alice-id" || xfer.To != "bob-id" || xfer.Amount != 25 || xfer.Timestamp != 500 {
		t.Fatalf("unexpected transfer: %+v", xfer)
	}
}

func TestInspectOutOfRange(t *testing.T) {
	tx := &LedgerTx{Kind: "transfer", LogLength: 10, Transfer: &TransferDetail{}}
	if _, err := Inspect(10, tx); !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
	if _, err := Inspect(11, tx); !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
}

func TestInspectNonTransferKind(t *testing.T) {
	tx := &LedgerTx{Kind: "mint", Timestamp: 1, LogLength: 10}
	if _, err := Inspect(3, tx); !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
}

func TestBothAccountsNotFoundError(t *testing.T) {
	err := &BothAccountsNotFoundError{From: "x", To: "y"}
	var target *BothAccountsNotFoundError
	if !errors.As(error(err), &target) {
		t.Fatalf("expected errors.As to match")
	}
	if err.Error() == "" {
		t.Fatalf("expected a message")
	}
}
