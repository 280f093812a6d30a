package seed

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Clemergorges/globalsecure-sub002/configs"
	"github.com/Clemergorges/globalsecure-sub002/internal/ledger"
	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	"github.com/Clemergorges/globalsecure-sub002/internal/models"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/quote"
	"github.com/Clemergorges/globalsecure-sub002/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// refAmount converts an opening balance into the reference currency at the
// configured rate, rounded at the reference minor unit, so seeded movement
// records carry the same reference values a committed transfer would.
func refAmount(rates quote.StaticRates, amount decimal.Decimal, from, ref money.Currency) (decimal.Decimal, error) {
	if from == ref {
		return amount, nil
	}
	rate, ok := rates.Rate(from, ref)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no %s->%s rate for opening balance", from, ref)
	}
	exp, err := money.Exponent(ref)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate).RoundBank(exp), nil
}

const (
	seedPassword = "password123"
	systemEmail  = "system@transfers.local"
)

var testUsers = []struct {
	Name  string
	Email string
	Tier  int
}{
	{"Test User 1", "user1@test.com", 0},
	{"Test User 2", "user2@test.com", 1},
	{"Test User 3", "user3@test.com", 2},
}

// Run creates a system account and three demo users on different KYC tiers.
// Opening balances are booked double-entry against the system account, with
// the movement pair recorded the same way a committed transfer records it.
func Run() {
	db := store.DB
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", systemEmail).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	hashed := string(hash)

	usdOpen := decimal.RequireFromString("1000.00")
	eurOpen := decimal.RequireFromString("500.00")

	rates := configs.Rates()
	ref := money.Currency(configs.AppConfig.Limits.ReferenceCurrency)

	err = db.Transaction(func(tx *gorm.DB) error {
		// System account holds the negative side of opening balances.
		sys := models.User{Name: "System", Email: systemEmail, Password: hashed}
		if err := tx.Create(&sys).Error; err != nil {
			return err
		}
		sysAcc := models.Account{UserID: uint64(sys.ID), Tier: 2}
		if err := tx.Create(&sysAcc).Error; err != nil {
			return err
		}

		sysUsd := usdOpen.Mul(decimal.NewFromInt(int64(len(testUsers)))).Neg()
		sysEur := eurOpen.Mul(decimal.NewFromInt(int64(len(testUsers)))).Neg()
		for _, bal := range []models.Balance{
			{AccountID: uint64(sysAcc.ID), Currency: "USD", Amount: sysUsd},
			{AccountID: uint64(sysAcc.ID), Currency: "EUR", Amount: sysEur},
		} {
			if err := tx.Create(&bal).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, u := range testUsers {
			user := models.User{Name: u.Name, Email: u.Email, Password: hashed}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			acc := models.Account{UserID: uint64(user.ID), Tier: u.Tier}
			if err := tx.Create(&acc).Error; err != nil {
				return err
			}
			for _, bal := range []models.Balance{
				{AccountID: uint64(acc.ID), Currency: "USD", Amount: usdOpen},
				{AccountID: uint64(acc.ID), Currency: "EUR", Amount: eurOpen},
			} {
				if err := tx.Create(&bal).Error; err != nil {
					return err
				}
			}

			// One movement pair per opening leg; the system side carries the
			// debit direction, so demo users start with untouched limits.
			for _, opening := range []struct {
				currency string
				amount   decimal.Decimal
			}{
				{"USD", usdOpen},
				{"EUR", eurOpen},
			} {
				refAmt, err := refAmount(rates, opening.amount, money.Currency(opening.currency), ref)
				if err != nil {
					return err
				}
				transferID := uuid.New()
				movements := []models.Movement{
					{
						AccountID: uint64(sysAcc.ID), TransferID: transferID,
						Direction: string(ledger.Debit), Currency: opening.currency, Amount: opening.amount,
						RefCurrency: string(ref), RefAmount: refAmt, OccurredAt: now,
					},
					{
						AccountID: uint64(acc.ID), TransferID: transferID,
						Direction: string(ledger.Credit), Currency: opening.currency, Amount: opening.amount,
						RefCurrency: string(ref), RefAmount: refAmt, OccurredAt: now,
					},
				}
				for _, m := range movements {
					if err := tx.Create(&m).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded 3 test users", zap.String("password", seedPassword))
}
