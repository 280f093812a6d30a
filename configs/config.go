package configs

import (
	"errors"

	"github.com/Clemergorges/globalsecure-sub002/internal/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RateEntry is one configured exchange rate, target units per source unit.
type RateEntry struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
	Rate string `mapstructure:"rate"`
}

// FeeEntry is the fee policy for one pair: fractional rate plus absolute
// floor, both in the source currency.
type FeeEntry struct {
	From  string `mapstructure:"from"`
	To    string `mapstructure:"to"`
	Rate  string `mapstructure:"rate"`
	Floor string `mapstructure:"floor"`
}

// TierEntry is one KYC tier's limit table in the reference currency.
type TierEntry struct {
	Single  string `mapstructure:"single"`
	Daily   string `mapstructure:"daily"`
	Monthly string `mapstructure:"monthly"`
}

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Quote struct {
		ValiditySeconds int         `mapstructure:"validity-seconds"`
		Rates           []RateEntry `mapstructure:"rates"`
		Fees            []FeeEntry  `mapstructure:"fees"`
	} `mapstructure:"quote"`
	Limits struct {
		ReferenceCurrency string               `mapstructure:"reference-currency"`
		Timezone          string               `mapstructure:"timezone"`
		Tiers             map[string]TierEntry `mapstructure:"tiers"`
	} `mapstructure:"limits"`
}

var AppConfig Config

// LoadConfig reads ./configs/config.yaml once at startup. The limit table and
// fee policies are immutable for the process lifetime; changes ship as a
// config change plus restart, never a live write.
func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("quote.validity-seconds", 60)
	viper.SetDefault("limits.reference-currency", "USD")
	viper.SetDefault("limits.timezone", "UTC")

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		logger.Log.Fatal("failed to unmarshal config", zap.Error(err))
	}
}
