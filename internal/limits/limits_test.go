package limits

import (
	"context"
	"testing"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movementStub struct {
	records []ledger.Movement
}

func (s *movementStub) MovementsBetween(_ context.Context, accountID uint64, from, to time.Time) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, m := range s.records {
		if m.AccountID != accountID || m.OccurredAt.Before(from) || m.OccurredAt.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func debitAt(accountID uint64, amount string, at time.Time) ledger.Movement {
	return ledger.Movement{
		AccountID:  accountID,
		TransferID: uuid.New(),
		Direction:  ledger.Debit,
		Amount:     money.MustFromString(amount, money.USD),
		RefAmount:  money.MustFromString(amount, money.USD),
		OccurredAt: at,
	}
}

func testTable() Table {
	return Table{
		Tier0Unverified: {
			Single:  money.MustFromString("500", money.USD),
			Daily:   money.MustFromString("1000", money.USD),
			Monthly: money.MustFromString("5000", money.USD),
		},
		Tier1Verified: {
			Single:  money.MustFromString("2000", money.USD),
			Daily:   money.MustFromString("2000", money.USD),
			Monthly: money.MustFromString("20000", money.USD),
		},
	}
}

var checkNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

func usd(s string) money.Money { return money.MustFromString(s, money.USD) }

func TestSingleLimitBoundary(t *testing.T) {
	c := NewChecker(testTable(), time.UTC, &movementStub{})

	// Exactly at the ceiling is admitted; one minor unit over is not.
	assert.NoError(t, c.Check(context.Background(), 1, Tier0Unverified, usd("500"), checkNow))

	err := c.Check(context.Background(), 1, Tier0Unverified, usd("500.01"), checkNow)
	var limitErr *Error
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, KindSingle, limitErr.Kind)
	assert.True(t, limitErr.Threshold.Amount.Equal(usd("500").Amount))
	assert.Equal(t, "exceeds KYC level 0 single limit", err.Error())
}

func TestDailyLimitWithPriorUsage(t *testing.T) {
	movements := &movementStub{records: []ledger.Movement{
		debitAt(1, "1000", checkNow.Add(-4*time.Hour)),
		debitAt(1, "800", checkNow.Add(-2*time.Hour)),
	}}
	c := NewChecker(testTable(), time.UTC, movements)

	// 1800 moved today: 250 overshoots the 2000 daily ceiling, 200 fits exactly.
	err := c.Check(context.Background(), 1, Tier1Verified, usd("250"), checkNow)
	var limitErr *Error
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, KindDaily, limitErr.Kind)
	assert.Equal(t, "exceeds KYC level 1 daily limit", err.Error())

	assert.NoError(t, c.Check(context.Background(), 1, Tier1Verified, usd("200"), checkNow))
}

func TestMonthlyLimit(t *testing.T) {
	// Usage spread over earlier days of the month: outside the daily window,
	// inside the monthly one.
	movements := &movementStub{records: []ledger.Movement{
		debitAt(1, "3000", checkNow.AddDate(0, 0, -5)),
		debitAt(1, "1900", checkNow.AddDate(0, 0, -2)),
	}}
	c := NewChecker(testTable(), time.UTC, movements)

	err := c.Check(context.Background(), 1, Tier0Unverified, usd("200"), checkNow)
	var limitErr *Error
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, KindMonthly, limitErr.Kind)
	assert.True(t, limitErr.Threshold.Amount.Equal(usd("5000").Amount))

	assert.NoError(t, c.Check(context.Background(), 1, Tier0Unverified, usd("100"), checkNow))
}

func TestRejectionPriorityOrder(t *testing.T) {
	// An amount violating every limit reports the single-transaction kind.
	movements := &movementStub{records: []ledger.Movement{
		debitAt(1, "900", checkNow.Add(-time.Hour)),
	}}
	c := NewChecker(testTable(), time.UTC, movements)

	err := c.Check(context.Background(), 1, Tier0Unverified, usd("6000"), checkNow)
	var limitErr *Error
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, KindSingle, limitErr.Kind)
}

func TestWindowsAreCalendarAligned(t *testing.T) {
	// A movement late yesterday counts toward the month but not toward today.
	yesterday := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)
	movements := &movementStub{records: []ledger.Movement{
		debitAt(1, "900", yesterday),
	}}
	c := NewChecker(testTable(), time.UTC, movements)

	// 900 today would breach tier 0's 1000 daily cap if yesterday leaked in.
	assert.NoError(t, c.Check(context.Background(), 1, Tier0Unverified, usd("500"), checkNow))

	// But the same record still consumes monthly headroom.
	movements.records = append(movements.records,
		debitAt(1, "3700", checkNow.AddDate(0, 0, -3)))
	err := c.Check(context.Background(), 1, Tier0Unverified, usd("401"), checkNow)
	var limitErr *Error
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, KindMonthly, limitErr.Kind)
}

func TestCreditsDoNotConsumeLimits(t *testing.T) {
	credit := ledger.Movement{
		AccountID:  1,
		TransferID: uuid.New(),
		Direction:  ledger.Credit,
		Amount:     usd("5000"),
		RefAmount:  usd("5000"),
		OccurredAt: checkNow.Add(-time.Hour),
	}
	c := NewChecker(testTable(), time.UTC, &movementStub{records: []ledger.Movement{credit}})

	assert.NoError(t, c.Check(context.Background(), 1, Tier0Unverified, usd("500"), checkNow))
}

func TestOtherAccountsDoNotConsumeLimits(t *testing.T) {
	movements := &movementStub{records: []ledger.Movement{
		debitAt(2, "5000", checkNow.Add(-time.Hour)),
	}}
	c := NewChecker(testTable(), time.UTC, movements)

	assert.NoError(t, c.Check(context.Background(), 1, Tier0Unverified, usd("500"), checkNow))
}

func TestUnknownTier(t *testing.T) {
	c := NewChecker(testTable(), time.UTC, &movementStub{})
	err := c.Check(context.Background(), 1, Tier2Premium, usd("1"), checkNow)
	assert.Error(t, err)
}
