package quote

import (
	"testing"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func testQuoter() *Quoter {
	rates := StaticRates{
		{money.EUR, money.USD}: decimal.RequireFromString("1.08"),
		{money.USD, money.EUR}: decimal.RequireFromString("0.93"),
	}
	fees := map[Pair]FeePolicy{
		{money.EUR, money.USD}: {Rate: decimal.RequireFromString("0.01"), Floor: decimal.Zero},
		{money.USD, money.EUR}: {Rate: decimal.RequireFromString("0.01"), Floor: decimal.RequireFromString("0.50")},
	}
	return NewQuoter(rates, fees, 60*time.Second)
}

func TestPriceEurToUsd(t *testing.T) {
	q, err := testQuoter().Price(money.MustFromString("100", money.EUR), money.USD, testNow)
	require.NoError(t, err)

	// 1% of 100 EUR is 1.00 EUR; (100 - 1.00) * 1.08 = 106.92 USD.
	assert.True(t, q.FeeAmount.Amount.Equal(decimal.RequireFromString("1.00")), "fee %s", q.FeeAmount)
	assert.Equal(t, money.EUR, q.FeeAmount.Currency)
	assert.True(t, q.EstimatedReceived.Amount.Equal(decimal.RequireFromString("106.92")), "received %s", q.EstimatedReceived)
	assert.Equal(t, money.USD, q.EstimatedReceived.Currency)
	assert.True(t, q.FeePercent.Equal(decimal.RequireFromString("1")), "fee percent %s", q.FeePercent)
	assert.Equal(t, testNow.Add(60*time.Second), q.ExpiresAt)
}

func TestPriceFeeFloor(t *testing.T) {
	q, err := testQuoter().Price(money.MustFromString("10", money.USD), money.EUR, testNow)
	require.NoError(t, err)

	// 1% of 10 is 0.10, below the 0.50 floor; (10 - 0.50) * 0.93 = 8.835,
	// bankers-rounded to 8.84.
	assert.True(t, q.FeeAmount.Amount.Equal(decimal.RequireFromString("0.50")), "fee %s", q.FeeAmount)
	assert.True(t, q.EstimatedReceived.Amount.Equal(decimal.RequireFromString("8.84")), "received %s", q.EstimatedReceived)
}

func TestPriceDeterministic(t *testing.T) {
	quoter := testQuoter()
	amount := money.MustFromString("250.25", money.EUR)

	a, err := quoter.Price(amount, money.USD, testNow)
	require.NoError(t, err)
	b, err := quoter.Price(amount, money.USD, testNow)
	require.NoError(t, err)

	// Identical except for the id.
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.FeeAmount.Amount.Equal(b.FeeAmount.Amount))
	assert.True(t, a.EstimatedReceived.Amount.Equal(b.EstimatedReceived.Amount))
	assert.True(t, a.ExchangeRate.Equal(b.ExchangeRate))
	assert.Equal(t, a.ExpiresAt, b.ExpiresAt)
}

func TestPriceRejections(t *testing.T) {
	quoter := testQuoter()

	_, err := quoter.Price(money.New(decimal.Zero, money.EUR), money.USD, testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = quoter.Price(money.New(decimal.RequireFromString("-5"), money.EUR), money.USD, testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = quoter.Price(money.New(decimal.RequireFromString("10.005"), money.EUR), money.USD, testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = quoter.Price(money.MustFromString("10", money.GBP), money.USD, testNow)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestQuoteExpiry(t *testing.T) {
	q, err := testQuoter().Price(money.MustFromString("100", money.EUR), money.USD, testNow)
	require.NoError(t, err)

	assert.False(t, q.Expired(testNow))
	assert.False(t, q.Expired(q.ExpiresAt), "expiry is inclusive of the boundary instant")
	assert.True(t, q.Expired(q.ExpiresAt.Add(time.Millisecond)))
}

func TestToReference(t *testing.T) {
	quoter := testQuoter()

	same, err := quoter.ToReference(money.MustFromString("42.42", money.USD), money.USD)
	require.NoError(t, err)
	assert.True(t, same.Amount.Equal(decimal.RequireFromString("42.42")))

	conv, err := quoter.ToReference(money.MustFromString("100", money.EUR), money.USD)
	require.NoError(t, err)
	assert.True(t, conv.Amount.Equal(decimal.RequireFromString("108.00")), "got %s", conv.Amount)

	_, err = quoter.ToReference(money.MustFromString("100", money.GBP), money.USD)
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestStoreSingleUse(t *testing.T) {
	s := NewStore()
	q, err := testQuoter().Price(money.MustFromString("100", money.EUR), money.USD, testNow)
	require.NoError(t, err)
	s.Put(q)

	got, ok := s.Get(q.ID)
	require.True(t, ok)
	assert.Equal(t, q.ID, got.ID)

	_, ok = s.Consume(q.ID)
	assert.True(t, ok)
	_, ok = s.Consume(q.ID)
	assert.False(t, ok, "second consume must fail")
	_, ok = s.Get(q.ID)
	assert.False(t, ok)
}

func TestStorePurgeExpired(t *testing.T) {
	s := NewStore()
	quoter := testQuoter()

	fresh, err := quoter.Price(money.MustFromString("100", money.EUR), money.USD, testNow)
	require.NoError(t, err)
	stale, err := quoter.Price(money.MustFromString("50", money.EUR), money.USD, testNow.Add(-5*time.Minute))
	require.NoError(t, err)
	s.Put(fresh)
	s.Put(stale)

	assert.Equal(t, 1, s.PurgeExpired(testNow))
	_, ok := s.Get(fresh.ID)
	assert.True(t, ok)
	_, ok = s.Get(stale.ID)
	assert.False(t, ok)
}
