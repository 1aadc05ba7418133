// Package params holds the trading core's runtime configuration: fee and
// price-band parameters, the system account ID, and the storage path,
// loaded from environment variables with an optional .env file fallback.
// Grounded on the teacher's params.Config / LoadFromEnv pattern (godotenv,
// ENV > .env file > defaults precedence), generalized from consensus
// timing knobs to this domain's risk and storage knobs.
package params

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wyvernlabs/predictcore/pkg/decimal"
	"github.com/wyvernlabs/predictcore/pkg/types"
)

// Market holds the fee and order-bound parameters. Only TakerFeeRate is
// used (cmd/predictcore passes it to coordinator.New); the coordinator
// does not check an order's price or quantity against MinPrice, MaxPrice
// or MaxQuantity.
type Market struct {
	// TakerFeeRate is charged against notional on the taker's side of a
	// fill; PlanTrade refunds it back to a buyer acting as maker.
	TakerFeeRate decimal.Decimal
	// MinPrice and MaxPrice describe a limit order's price band, exclusive
	// of the terminal 0/1.00 payouts which only the settlement engine
	// produces. No order admission path applies them.
	MinPrice decimal.Decimal
	MaxPrice decimal.Decimal
	// MaxQuantity is the configured per-order quantity cap. No order
	// admission path applies it.
	MaxQuantity decimal.Decimal
}

// Storage configures the embedded persistence adapter (C10).
type Storage struct {
	// Path is the Pebble database directory. When it is empty,
	// cmd/predictcore opens data/predictcore.db instead.
	Path string
}

// Config is the full runtime configuration for one coordinator instance.
type Config struct {
	Market        Market
	Storage       Storage
	SystemAccount types.UserID
	MetricsAddr   string
}

// Default returns the baseline configuration: a 1% taker fee, prices
// bounded to the closed interval [0.01, 0.99], a generous per-order
// quantity cap, an empty storage path, and metrics disabled.
func Default() Config {
	return Config{
		Market: Market{
			TakerFeeRate: decimal.MustNew("0.01"),
			MinPrice:     decimal.MustNew("0.01"),
			MaxPrice:     decimal.MustNew("0.99"),
			MaxQuantity:  decimal.MustNew("1000000"),
		},
		Storage:       Storage{Path: ""},
		SystemAccount: types.SystemAccountID,
		MetricsAddr:   "",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables, falling back to Default for anything unset.
// Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var err error
	if cfg.Market.TakerFeeRate, err = decimalEnv("TAKER_FEE_RATE", cfg.Market.TakerFeeRate); err != nil {
		return Config{}, err
	}
	if cfg.Market.MinPrice, err = decimalEnv("MIN_PRICE", cfg.Market.MinPrice); err != nil {
		return Config{}, err
	}
	if cfg.Market.MaxPrice, err = decimalEnv("MAX_PRICE", cfg.Market.MaxPrice); err != nil {
		return Config{}, err
	}
	if cfg.Market.MaxQuantity, err = decimalEnv("MAX_QUANTITY", cfg.Market.MaxQuantity); err != nil {
		return Config{}, err
	}

	if path := os.Getenv("STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if sysAcct := os.Getenv("SYSTEM_ACCOUNT_ID"); sysAcct != "" {
		cfg.SystemAccount = types.UserID(sysAcct)
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}

	return cfg, nil
}

func decimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("params: invalid %s=%q: %w", key, raw, err)
	}
	return v, nil
}
