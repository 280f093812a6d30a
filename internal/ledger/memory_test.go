package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var occurredAt = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func usd(s string) money.Money { return money.MustFromString(s, money.USD) }
func eur(s string) money.Money { return money.MustFromString(s, money.EUR) }

func newTestLedger() *MemoryLedger {
	l := NewMemoryLedger()
	l.Open(1, usd("1000.00"))
	l.Open(1, eur("500.00"))
	l.Open(2, usd("1000.00"))
	l.Open(2, eur("500.00"))
	return l
}

func transfer(l *MemoryLedger, from, to uint64, debit, credit money.Money) error {
	return l.AtomicTransfer(context.Background(), uuid.New(),
		Leg{AccountID: from, Amount: debit, RefAmount: debit},
		Leg{AccountID: to, Amount: credit, RefAmount: credit},
		occurredAt)
}

func TestAtomicTransferConservation(t *testing.T) {
	l := newTestLedger()

	// Cross-currency: 100 EUR leaves the sender, 106.92 USD reaches the
	// recipient, both exactly.
	require.NoError(t, transfer(l, 1, 2, eur("100.00"), usd("106.92")))

	senderEur, err := l.Balance(context.Background(), 1, money.EUR)
	require.NoError(t, err)
	assert.True(t, senderEur.Amount.Equal(decimal.RequireFromString("400.00")), "sender EUR %s", senderEur)

	recipientUsd, err := l.Balance(context.Background(), 2, money.USD)
	require.NoError(t, err)
	assert.True(t, recipientUsd.Amount.Equal(decimal.RequireFromString("1106.92")), "recipient USD %s", recipientUsd)

	// Untouched slots stay untouched.
	senderUsd, err := l.Balance(context.Background(), 1, money.USD)
	require.NoError(t, err)
	assert.True(t, senderUsd.Amount.Equal(decimal.RequireFromString("1000.00")))
}

func TestAtomicTransferAppendsMovementPair(t *testing.T) {
	l := newTestLedger()
	id := uuid.New()
	require.NoError(t, l.AtomicTransfer(context.Background(), id,
		Leg{AccountID: 1, Amount: eur("100.00"), RefAmount: usd("108.00")},
		Leg{AccountID: 2, Amount: usd("106.92"), RefAmount: usd("106.92")},
		occurredAt))

	sender, err := l.MovementsBetween(context.Background(), 1, occurredAt, occurredAt)
	require.NoError(t, err)
	require.Len(t, sender, 1)
	assert.Equal(t, Debit, sender[0].Direction)
	assert.Equal(t, id, sender[0].TransferID)
	assert.True(t, sender[0].RefAmount.Amount.Equal(decimal.RequireFromString("108.00")))

	recipient, err := l.MovementsBetween(context.Background(), 2, occurredAt, occurredAt)
	require.NoError(t, err)
	require.Len(t, recipient, 1)
	assert.Equal(t, Credit, recipient[0].Direction)
	assert.Equal(t, id, recipient[0].TransferID)
}

func TestInsufficientFundsNoPartialApplication(t *testing.T) {
	l := newTestLedger()

	err := transfer(l, 1, 2, usd("1000.01"), usd("1000.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Neither side moved and no movement was logged.
	sender, _ := l.Balance(context.Background(), 1, money.USD)
	assert.True(t, sender.Amount.Equal(decimal.RequireFromString("1000.00")))
	recipient, _ := l.Balance(context.Background(), 2, money.USD)
	assert.True(t, recipient.Amount.Equal(decimal.RequireFromString("1000.00")))

	records, err := l.MovementsBetween(context.Background(), 1, occurredAt.Add(-time.Hour), occurredAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExactDrainToZeroIsAllowed(t *testing.T) {
	l := newTestLedger()
	require.NoError(t, transfer(l, 1, 2, usd("1000.00"), usd("1000.00")))
	sender, err := l.Balance(context.Background(), 1, money.USD)
	require.NoError(t, err)
	assert.True(t, sender.IsZero())
}

func TestUnknownAccountAndCurrency(t *testing.T) {
	l := newTestLedger()

	err := transfer(l, 99, 2, usd("10"), usd("10"))
	assert.ErrorIs(t, err, ErrUnknownAccount)

	err = transfer(l, 1, 99, usd("10"), usd("10"))
	assert.ErrorIs(t, err, ErrUnknownAccount)

	err = transfer(l, 1, 2, money.MustFromString("10", money.GBP), usd("10"))
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	err = transfer(l, 1, 2, usd("10"), money.MustFromString("10", money.GBP))
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = l.Balance(context.Background(), 99, money.USD)
	assert.ErrorIs(t, err, ErrUnknownAccount)
	_, err = l.Balance(context.Background(), 1, money.GBP)
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestConcurrentOpposingTransfersDoNotDeadlock(t *testing.T) {
	l := newTestLedger()

	// 100 transfers each way between the same pair, concurrently. Lock
	// ordering must prevent deadlock and the totals must conserve.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, transfer(l, 1, 2, usd("1.00"), usd("1.00")))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, transfer(l, 2, 1, usd("1.00"), usd("1.00")))
		}()
	}
	wg.Wait()

	a, err := l.Balance(context.Background(), 1, money.USD)
	require.NoError(t, err)
	b, err := l.Balance(context.Background(), 2, money.USD)
	require.NoError(t, err)
	assert.True(t, a.Amount.Equal(decimal.RequireFromString("1000.00")), "account 1: %s", a)
	assert.True(t, b.Amount.Equal(decimal.RequireFromString("1000.00")), "account 2: %s", b)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	l := NewMemoryLedger()
	l.Open(1, usd("50.00"))
	l.Open(2, usd("0.00"))

	// Ten concurrent 10 USD debits against a 50 USD balance: exactly five
	// succeed, the rest fail with insufficient funds.
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed, rejected := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := transfer(l, 1, 2, usd("10.00"), usd("10.00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				committed++
			} else {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, committed)
	assert.Equal(t, 5, rejected)

	sender, err := l.Balance(context.Background(), 1, money.USD)
	require.NoError(t, err)
	assert.True(t, sender.IsZero(), "sender %s", sender)
	recipient, err := l.Balance(context.Background(), 2, money.USD)
	require.NoError(t, err)
	assert.True(t, recipient.Amount.Equal(decimal.RequireFromString("50.00")), "recipient %s", recipient)
}
