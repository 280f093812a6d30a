package quote

import (
	"errors"
	"fmt"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnsupportedPair = errors.New("unsupported currency pair")
)

// Pair identifies a directed currency pair.
type Pair struct {
	From money.Currency
	To   money.Currency
}

// RateProvider supplies the current exchange rate for a pair. A missing or
// stale rate is reported as not found and surfaces as ErrUnsupportedPair.
type RateProvider interface {
	Rate(from, to money.Currency) (decimal.Decimal, bool)
}

// StaticRates is a config-backed RateProvider. Same-currency pairs resolve to 1.
type StaticRates map[Pair]decimal.Decimal

func (r StaticRates) Rate(from, to money.Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	rate, ok := r[Pair{From: from, To: to}]
	return rate, ok
}

// FeePolicy is the fee schedule for one currency pair: a fractional rate with
// an absolute floor, both applied in the source currency.
type FeePolicy struct {
	Rate  decimal.Decimal
	Floor decimal.Decimal
}

// Quote is an immutable, time-boxed price for one conversion. It is single-use:
// the registry invalidates it when a settlement consumes it.
type Quote struct {
	ID                uuid.UUID
	SourceAmount      money.Money
	TargetCurrency    money.Currency
	FeePercent        decimal.Decimal
	FeeAmount         money.Money
	ExchangeRate      decimal.Decimal
	EstimatedReceived money.Money
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// Expired reports whether the quote is no longer valid for admission.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// Quoter prices conversions. It owns the arithmetic and rounding only; rates
// come from the provider and fee policies from configuration.
type Quoter struct {
	rates    RateProvider
	fees     map[Pair]FeePolicy
	validity time.Duration
}

func NewQuoter(rates RateProvider, fees map[Pair]FeePolicy, validity time.Duration) *Quoter {
	return &Quoter{rates: rates, fees: fees, validity: validity}
}

// Price builds a quote for converting amount into the target currency.
// Rounding is bankers (round-half-even) at each currency's minor unit, applied
// once to the fee and once to the converted amount.
func (q *Quoter) Price(amount money.Money, to money.Currency, now time.Time) (*Quote, error) {
	srcExp, err := money.Exponent(amount.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPair, amount.Currency)
	}
	if _, err := money.Exponent(to); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPair, to)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, amount.Amount)
	}
	if !amount.Amount.Equal(amount.Amount.Truncate(srcExp)) {
		return nil, fmt.Errorf("%w: %s exceeds %s precision", ErrInvalidAmount, amount.Amount, amount.Currency)
	}

	pair := Pair{From: amount.Currency, To: to}
	rate, ok := q.rates.Rate(amount.Currency, to)
	if !ok {
		return nil, fmt.Errorf("%w: %s->%s", ErrUnsupportedPair, pair.From, pair.To)
	}
	policy, ok := q.fees[pair]
	if !ok {
		return nil, fmt.Errorf("%w: no fee policy for %s->%s", ErrUnsupportedPair, pair.From, pair.To)
	}

	fee := amount.Amount.Mul(policy.Rate)
	if fee.LessThan(policy.Floor) {
		fee = policy.Floor
	}
	fee = fee.RoundBank(srcExp)
	feeAmount := money.New(fee, amount.Currency)

	net := amount.Amount.Sub(fee)
	if !net.IsPositive() {
		return nil, fmt.Errorf("%w: fee %s consumes the whole amount", ErrInvalidAmount, feeAmount)
	}

	received := money.New(net.Mul(rate), to).RoundMinor()

	return &Quote{
		ID:                uuid.New(),
		SourceAmount:      amount,
		TargetCurrency:    to,
		FeePercent:        policy.Rate.Mul(decimal.NewFromInt(100)),
		FeeAmount:         feeAmount,
		ExchangeRate:      rate,
		EstimatedReceived: received,
		CreatedAt:         now,
		ExpiresAt:         now.Add(q.validity),
	}, nil
}

// ToReference converts an amount into the reference currency for limit
// accounting, at the provider's current rate, rounded at the reference minor
// unit. An amount already denominated in ref passes through unchanged.
func (q *Quoter) ToReference(amount money.Money, ref money.Currency) (money.Money, error) {
	if amount.Currency == ref {
		return amount, nil
	}
	rate, ok := q.rates.Rate(amount.Currency, ref)
	if !ok {
		return money.Money{}, fmt.Errorf("%w: %s->%s", ErrUnsupportedPair, amount.Currency, ref)
	}
	return money.New(amount.Amount.Mul(rate), ref).RoundMinor(), nil
}
