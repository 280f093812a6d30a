package configs

import (
	"strconv"
	"time"

	"github.com/Clemergorges/globalsecure-sub002/internal/limits"
	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	"github.com/Clemergorges/globalsecure-sub002/internal/money"
	"github.com/Clemergorges/globalsecure-sub002/internal/quote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The builders below turn the raw yaml entries into the core's immutable
// tables. Malformed configuration is fatal at startup: a transfer platform
// must not boot with an ambiguous rate, fee, or limit table.

func mustDecimal(s, field string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Log.Fatal("invalid decimal in config", zap.String("field", field), zap.String("value", s), zap.Error(err))
	}
	return d
}

func Rates() quote.StaticRates {
	rates := make(quote.StaticRates, len(AppConfig.Quote.Rates))
	for _, r := range AppConfig.Quote.Rates {
		pair := quote.Pair{From: money.Currency(r.From), To: money.Currency(r.To)}
		rates[pair] = mustDecimal(r.Rate, "quote.rates.rate")
	}
	return rates
}

func Fees() map[quote.Pair]quote.FeePolicy {
	fees := make(map[quote.Pair]quote.FeePolicy, len(AppConfig.Quote.Fees))
	for _, f := range AppConfig.Quote.Fees {
		pair := quote.Pair{From: money.Currency(f.From), To: money.Currency(f.To)}
		fees[pair] = quote.FeePolicy{
			Rate:  mustDecimal(f.Rate, "quote.fees.rate"),
			Floor: mustDecimal(f.Floor, "quote.fees.floor"),
		}
	}
	return fees
}

func LimitTable() limits.Table {
	ref := money.Currency(AppConfig.Limits.ReferenceCurrency)
	table := make(limits.Table, len(AppConfig.Limits.Tiers))
	for key, t := range AppConfig.Limits.Tiers {
		tier, err := strconv.Atoi(key)
		if err != nil {
			logger.Log.Fatal("invalid tier key in config", zap.String("tier", key), zap.Error(err))
		}
		table[limits.Tier(tier)] = limits.Limits{
			Single:  money.New(mustDecimal(t.Single, "limits.tiers.single"), ref),
			Daily:   money.New(mustDecimal(t.Daily, "limits.tiers.daily"), ref),
			Monthly: money.New(mustDecimal(t.Monthly, "limits.tiers.monthly"), ref),
		}
	}
	return table
}

func LimitLocation() *time.Location {
	loc, err := time.LoadLocation(AppConfig.Limits.Timezone)
	if err != nil {
		logger.Log.Fatal("invalid limits timezone", zap.String("timezone", AppConfig.Limits.Timezone), zap.Error(err))
	}
	return loc
}

func QuoteValidity() time.Duration {
	return time.Duration(AppConfig.Quote.ValiditySeconds) * time.Second
}
