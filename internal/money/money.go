package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	GEL Currency = "GEL"
	JPY Currency = "JPY"
)

// minorUnits is the number of decimal places each supported currency carries.
// Amounts are never stored or compared at a finer resolution.
var minorUnits = map[Currency]int32{
	USD: 2,
	EUR: 2,
	GBP: 2,
	GEL: 2,
	JPY: 0,
}

var (
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrPrecision        = errors.New("amount exceeds currency precision")
)

// Money is a fixed-point amount tagged with its currency. Arithmetic across
// currencies is refused; conversion goes through a quote.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// Exponent returns the minor-unit resolution of a currency.
func Exponent(c Currency) (int32, error) {
	exp, ok := minorUnits[c]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, c)
	}
	return exp, nil
}

// Supported reports whether c is a known currency code.
func Supported(c Currency) bool {
	_, ok := minorUnits[c]
	return ok
}

func New(amount decimal.Decimal, c Currency) Money {
	return Money{Amount: amount, Currency: c}
}

// FromString parses a decimal string into Money, rejecting unknown currencies
// and amounts finer than the currency's minor unit.
func FromString(s string, c Currency) (Money, error) {
	exp, err := Exponent(c)
	if err != nil {
		return Money{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.Equal(d.Truncate(exp)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d decimal places for %s", ErrPrecision, s, exp, c)
	}
	return Money{Amount: d, Currency: c}, nil
}

// MustFromString is FromString for compile-time constants; panics on error.
func MustFromString(s string, c Currency) Money {
	m, err := FromString(s, c)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, o.Currency, m.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: cannot subtract %s from %s", ErrCurrencyMismatch, o.Currency, m.Currency)
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// Cmp compares two amounts of the same currency: -1, 0 or 1.
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrCurrencyMismatch, o.Currency, m.Currency)
	}
	return m.Amount.Cmp(o.Amount), nil
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// RoundMinor rounds to the currency's minor unit using bankers rounding.
func (m Money) RoundMinor() Money {
	exp, ok := minorUnits[m.Currency]
	if !ok {
		return m
	}
	return Money{Amount: m.Amount.RoundBank(exp), Currency: m.Currency}
}

func (m Money) String() string {
	exp, ok := minorUnits[m.Currency]
	if !ok {
		return fmt.Sprintf("%s %s", m.Amount, m.Currency)
	}
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(exp), m.Currency)
}
