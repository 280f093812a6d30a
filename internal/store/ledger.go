package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/limits"
	"github.com/Clemergorges/globalsecure-sub002/internal/models"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/settlement"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the durable AccountLedger, MovementLog, TierSource and Recorder,
// backed by Postgres. Balance rows are locked FOR UPDATE in ascending
// (account, currency) order so opposing transfers between the same pair of
// accounts cannot deadlock.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Balance(ctx context.Context, accountID uint64, c money.Currency) (money.Money, error) {
	var bal models.Balance
	err := l.db.WithContext(ctx).
		Where("account_id = ? AND currency = ?", accountID, string(c)).
		First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return money.Money{}, l.missingBalance(ctx, accountID, c)
	}
	if err != nil {
		return money.Money{}, fmt.Errorf("reading balance: %w", err)
	}
	return money.New(bal.Amount, c), nil
}

// missingBalance distinguishes an absent account from an absent currency slot.
func (l *Ledger) missingBalance(ctx context.Context, accountID uint64, c money.Currency) error {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %d", ledger.ErrUnknownAccount, accountID)
	}
	return fmt.Errorf("%w: account %d holds no %s balance", ledger.ErrUnsupportedCurrency, accountID, c)
}

type balanceKey struct {
	accountID uint64
	currency  string
}

func (l *Ledger) AtomicTransfer(ctx context.Context, transferID uuid.UUID, debit, credit ledger.Leg, occurredAt time.Time) error {
	debitKey := balanceKey{debit.AccountID, string(debit.Amount.Currency)}
	creditKey := balanceKey{credit.AccountID, string(credit.Amount.Currency)}

	// Lock ordering: lower (account, currency) first.
	first, second := debitKey, creditKey
	if first.accountID > second.accountID ||
		(first.accountID == second.accountID && first.currency > second.currency) {
		first, second = second, first
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := make(map[balanceKey]*models.Balance, 2)
		for _, key := range []balanceKey{first, second} {
			if _, ok := rows[key]; ok {
				continue
			}
			var bal models.Balance
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("account_id = ? AND currency = ?", key.accountID, key.currency).
				First(&bal).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return l.missingBalance(ctx, key.accountID, money.Currency(key.currency))
			}
			if err != nil {
				return fmt.Errorf("locking balance: %w", err)
			}
			rows[key] = &bal
		}

		debitRow := rows[debitKey]
		next := debitRow.Amount.Sub(debit.Amount.Amount)
		if next.IsNegative() {
			return fmt.Errorf("%w: balance %s, debit %s", ledger.ErrInsufficientFunds, debitRow.Amount, debit.Amount.Amount)
		}
		if err := tx.Model(&models.Balance{}).Where("id = ?", debitRow.ID).Update("amount", next).Error; err != nil {
			return fmt.Errorf("applying debit: %w", err)
		}

		creditRow := rows[creditKey]
		creditNext := creditRow.Amount.Add(credit.Amount.Amount)
		if debitKey == creditKey {
			creditNext = next.Add(credit.Amount.Amount)
		}
		if err := tx.Model(&models.Balance{}).Where("id = ?", creditRow.ID).Update("amount", creditNext).Error; err != nil {
			return fmt.Errorf("applying credit: %w", err)
		}

		movements := []models.Movement{
			{
				AccountID:   debit.AccountID,
				TransferID:  transferID,
				Direction:   string(ledger.Debit),
				Currency:    string(debit.Amount.Currency),
				Amount:      debit.Amount.Amount,
				RefCurrency: string(debit.RefAmount.Currency),
				RefAmount:   debit.RefAmount.Amount,
				OccurredAt:  occurredAt,
			},
			{
				AccountID:   credit.AccountID,
				TransferID:  transferID,
				Direction:   string(ledger.Credit),
				Currency:    string(credit.Amount.Currency),
				Amount:      credit.Amount.Amount,
				RefCurrency: string(credit.RefAmount.Currency),
				RefAmount:   credit.RefAmount.Amount,
				OccurredAt:  occurredAt,
			},
		}
		for _, m := range movements {
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("appending movement: %w", err)
			}
		}
		return nil
	})
}

func (l *Ledger) MovementsBetween(ctx context.Context, accountID uint64, from, to time.Time) ([]ledger.Movement, error) {
	var rows []models.Movement
	err := l.db.WithContext(ctx).
		Where("account_id = ? AND occurred_at BETWEEN ? AND ?", accountID, from, to).
		Order("occurred_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reading movements: %w", err)
	}
	out := make([]ledger.Movement, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.Movement{
			AccountID:  r.AccountID,
			TransferID: r.TransferID,
			Direction:  ledger.Direction(r.Direction),
			Amount:     money.New(r.Amount, money.Currency(r.Currency)),
			RefAmount:  money.New(r.RefAmount, money.Currency(r.RefCurrency)),
			OccurredAt: r.OccurredAt,
		})
	}
	return out, nil
}

func (l *Ledger) Tier(ctx context.Context, accountID uint64) (limits.Tier, error) {
	var acc models.Account
	err := l.db.WithContext(ctx).First(&acc, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %d", ledger.ErrUnknownAccount, accountID)
	}
	if err != nil {
		return 0, fmt.Errorf("reading account tier: %w", err)
	}
	return limits.Tier(acc.Tier), nil
}

func (l *Ledger) Record(ctx context.Context, t *settlement.Transfer) error {
	row := models.Transfer{
		TransferID:         t.ID,
		QuoteID:            t.QuoteID,
		SenderAccountID:    t.SenderAccountID,
		RecipientAccountID: t.RecipientAccountID,
		Status:             string(t.Status),
		Reason:             t.Reason,
		CompletedAt:        t.CompletedAt,
	}
	if t.Quote != nil {
		row.SourceCurrency = string(t.Quote.SourceAmount.Currency)
		row.TargetCurrency = string(t.Quote.TargetCurrency)
		row.SourceAmount = t.Quote.SourceAmount.Amount
		row.FeeAmount = t.Quote.FeeAmount.Amount
		row.ExchangeRate = t.Quote.ExchangeRate
		row.ReceivedAmount = t.Quote.EstimatedReceived.Amount
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("recording transfer: %w", err)
	}
	return nil
}
