package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:50;not null"`
	Email    string `gorm:"uniqueIndex;size:255;not null"`
	Password string `gorm:"size:255"`
}

// Account carries the KYC tier assigned by the verification pipeline; the
// settlement core only reads it.
type Account struct {
	gorm.Model
	UserID uint64 `gorm:"index;not null"`
	Tier   int    `gorm:"not null;default:0"`
}

// Balance is one currency slot of an account. Mutated only inside a committed
// transfer's transaction; never negative.
type Balance struct {
	gorm.Model
	AccountID uint64          `gorm:"uniqueIndex:idx_balance_account_currency;not null"`
	Currency  string          `gorm:"size:3;uniqueIndex:idx_balance_account_currency;not null"`
	Amount    decimal.Decimal `gorm:"not null"`
}

// Movement is one leg of a committed transfer, append-only. RefAmount is the
// leg's value in the reference currency; limit windows sum over it.
type Movement struct {
	gorm.Model
	AccountID   uint64          `gorm:"index;not null"`
	TransferID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Direction   string          `gorm:"size:6;not null"` // debit | credit
	Currency    string          `gorm:"size:3;not null"`
	Amount      decimal.Decimal `gorm:"not null"`
	RefCurrency string          `gorm:"size:3;not null"`
	RefAmount   decimal.Decimal `gorm:"not null"`
	OccurredAt  time.Time       `gorm:"index;not null"`
}

// Transfer is a settlement attempt in its terminal state, with the quote
// fields pinned at commit time so the movement can be explained later.
type Transfer struct {
	gorm.Model
	TransferID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	QuoteID            uuid.UUID `gorm:"type:uuid;index"`
	SenderAccountID    uint64    `gorm:"index;not null"`
	RecipientAccountID uint64    `gorm:"index;not null"`
	SourceCurrency     string    `gorm:"size:3"`
	TargetCurrency     string    `gorm:"size:3"`
	SourceAmount       decimal.Decimal
	FeeAmount          decimal.Decimal
	ExchangeRate       decimal.Decimal
	ReceivedAmount     decimal.Decimal
	Status             string `gorm:"size:16;index;not null"` // COMMITTED | REJECTED | FAILED
	Reason             string `gorm:"size:255"`
	CompletedAt        time.Time
}
