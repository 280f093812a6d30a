package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrUnknownAccount      = errors.New("unknown account")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Movement is an immutable fact of money having moved: one leg of a committed
// transfer. Amount is in the leg's own currency; RefAmount is the same value in
// the reference currency and is what the limit windows sum over.
type Movement struct {
	AccountID  uint64
	TransferID uuid.UUID
	Direction  Direction
	Amount     money.Money
	RefAmount  money.Money
	OccurredAt time.Time
}

// Leg is one side of an atomic transfer.
type Leg struct {
	AccountID uint64
	Amount    money.Money
	RefAmount money.Money
}

// AccountLedger applies balance mutations. AtomicTransfer is the only path a
// settlement uses: both legs and their movement records persist together or
// not at all, and no intermediate state is visible to concurrent readers.
type AccountLedger interface {
	Balance(ctx context.Context, accountID uint64, c money.Currency) (money.Money, error)
	AtomicTransfer(ctx context.Context, transferID uuid.UUID, debit, credit Leg, occurredAt time.Time) error
}

// MovementLog reads the append-only movement history. Both bounds are inclusive.
type MovementLog interface {
	MovementsBetween(ctx context.Context, accountID uint64, from, to time.Time) ([]Movement, error)
}
