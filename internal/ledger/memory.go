package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process AccountLedger and MovementLog. Per-account
// mutexes serialize mutations on the same account; AtomicTransfer acquires the
// two account locks in ascending id order so that opposing transfers between
// the same pair cannot deadlock.
type MemoryLedger struct {
	mu       sync.RWMutex
	accounts map[uint64]*memAccount

	logMu     sync.RWMutex
	movements []Movement
}

type memAccount struct {
	mu       sync.Mutex
	balances map[money.Currency]decimal.Decimal
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[uint64]*memAccount)}
}

// Open creates the account if needed and its balance slot for c, seeded with
// the given opening amount.
func (l *MemoryLedger) Open(accountID uint64, opening money.Money) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[accountID]
	if !ok {
		acc = &memAccount{balances: make(map[money.Currency]decimal.Decimal)}
		l.accounts[accountID] = acc
	}
	acc.balances[opening.Currency] = opening.Amount
}

func (l *MemoryLedger) account(accountID uint64) (*memAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccount, accountID)
	}
	return acc, nil
}

func (l *MemoryLedger) Balance(ctx context.Context, accountID uint64, c money.Currency) (money.Money, error) {
	acc, err := l.account(accountID)
	if err != nil {
		return money.Money{}, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	bal, ok := acc.balances[c]
	if !ok {
		return money.Money{}, fmt.Errorf("%w: account %d holds no %s balance", ErrUnsupportedCurrency, accountID, c)
	}
	return money.New(bal, c), nil
}

// debit and credit are building blocks for AtomicTransfer. They assume the
// account lock is held and must never be used on their own for a cross-account
// movement.
func (a *memAccount) debit(m money.Money) error {
	bal, ok := a.balances[m.Currency]
	if !ok {
		return fmt.Errorf("%w: no %s balance", ErrUnsupportedCurrency, m.Currency)
	}
	next := bal.Sub(m.Amount)
	if next.IsNegative() {
		return fmt.Errorf("%w: balance %s, debit %s", ErrInsufficientFunds, bal, m.Amount)
	}
	a.balances[m.Currency] = next
	return nil
}

func (a *memAccount) credit(m money.Money) error {
	bal, ok := a.balances[m.Currency]
	if !ok {
		return fmt.Errorf("%w: no %s balance", ErrUnsupportedCurrency, m.Currency)
	}
	a.balances[m.Currency] = bal.Add(m.Amount)
	return nil
}

func (l *MemoryLedger) AtomicTransfer(ctx context.Context, transferID uuid.UUID, debit, credit Leg, occurredAt time.Time) error {
	from, err := l.account(debit.AccountID)
	if err != nil {
		return err
	}
	to, err := l.account(credit.AccountID)
	if err != nil {
		return err
	}

	// Lock ordering: lower account id first.
	first, second := from, to
	if debit.AccountID > credit.AccountID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	// Validate both legs before touching either balance.
	if _, ok := to.balances[credit.Amount.Currency]; !ok {
		return fmt.Errorf("%w: account %d holds no %s balance", ErrUnsupportedCurrency, credit.AccountID, credit.Amount.Currency)
	}
	if err := from.debit(debit.Amount); err != nil {
		return err
	}
	if err := to.credit(credit.Amount); err != nil {
		// Unreachable after the slot check above; restore the debit anyway.
		from.balances[debit.Amount.Currency] = from.balances[debit.Amount.Currency].Add(debit.Amount.Amount)
		return err
	}

	l.logMu.Lock()
	l.movements = append(l.movements,
		Movement{AccountID: debit.AccountID, TransferID: transferID, Direction: Debit, Amount: debit.Amount, RefAmount: debit.RefAmount, OccurredAt: occurredAt},
		Movement{AccountID: credit.AccountID, TransferID: transferID, Direction: Credit, Amount: credit.Amount, RefAmount: credit.RefAmount, OccurredAt: occurredAt},
	)
	l.logMu.Unlock()
	return nil
}

func (l *MemoryLedger) MovementsBetween(ctx context.Context, accountID uint64, from, to time.Time) ([]Movement, error) {
	l.logMu.RLock()
	defer l.logMu.RUnlock()
	var out []Movement
	for _, m := range l.movements {
		if m.AccountID != accountID {
			continue
		}
		if m.OccurredAt.Before(from) || m.OccurredAt.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
