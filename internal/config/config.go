// Package config provides session configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	apperr "github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/errors"
)

// Config holds all session configuration. Loaded once at session setup,
// validated, and treated as immutable for the session's duration; changes
// require an explicit reconfiguration call.
type Config struct {
	Session SessionConfig `mapstructure:"session"`
	Spread  SpreadConfig  `mapstructure:"spread"`
	Fees    FeeConfig     `mapstructure:"fees"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SessionConfig holds session-level parameters.
type SessionConfig struct {
	Symbol             string  `mapstructure:"symbol"`
	InitialBankroll    float64 `mapstructure:"initial_bankroll"`
	ContractMultiplier float64 `mapstructure:"contract_multiplier"`
	WorkerQueueSize    int     `mapstructure:"worker_queue_size"`
}

// SpreadConfig holds the bid/ask spread decision table, in basis points.
type SpreadConfig struct {
	FuturesFrontBps  float64 `mapstructure:"futures_front_bps"`
	FuturesBackBps   float64 `mapstructure:"futures_back_bps"`
	OptionATMBps     float64 `mapstructure:"option_atm_bps"`
	OptionOTMBps     float64 `mapstructure:"option_otm_bps"`
	OptionDeepBps    float64 `mapstructure:"option_deep_bps"`
	ATMThreshold     float64 `mapstructure:"atm_threshold"`      // |K/F - 1| within this is ATM
	DeepThreshold    float64 `mapstructure:"deep_threshold"`     // beyond this is deep OTM/ITM
	FrontMonthDays   float64 `mapstructure:"front_month_days"`   // futures front vs back band boundary
	NearExpiryDays   float64 `mapstructure:"near_expiry_days"`   // widening kicks in below this
	NearExpiryFactor float64 `mapstructure:"near_expiry_factor"` // spread multiplier near expiry
}

// FeeConfig holds the trading cost structure.
type FeeConfig struct {
	PerContract    float64 `mapstructure:"per_contract"`
	RegulatoryRate float64 `mapstructure:"regulatory_rate"` // applied to notional
	MinTotal       float64 `mapstructure:"min_total"`
	MaxTotal       float64 `mapstructure:"max_total"`
}

// RiskConfig holds portfolio risk caps and VaR parameters.
type RiskConfig struct {
	DeltaCap      float64 `mapstructure:"delta_cap"`
	GammaCap      float64 `mapstructure:"gamma_cap"`
	VegaCap       float64 `mapstructure:"vega_cap"`
	ThetaCap      float64 `mapstructure:"theta_cap"` // per-day portfolio decay cap
	VaRLimit      float64 `mapstructure:"var_limit"`
	DailyPriceVol float64 `mapstructure:"daily_price_vol"` // fraction of futures price per 1-sigma shock
	IVShock       float64 `mapstructure:"iv_shock"`        // vol points per VaR vol shock
	WarningRatio  float64 `mapstructure:"warning_ratio"`   // fraction of cap that triggers a warning
	CriticalRatio float64 `mapstructure:"critical_ratio"`  // multiple of cap that escalates to critical
}

// ScoringConfig holds the score penalty weights.
type ScoringConfig struct {
	BreachWeight   float64 `mapstructure:"breach_weight"`   // alpha, per weighted breach-second
	VaRWeight      float64 `mapstructure:"var_weight"`      // beta, per unit of VaR excess
	DrawdownWeight float64 `mapstructure:"drawdown_weight"` // gamma, per unit of max drawdown
	FeeWeight      float64 `mapstructure:"fee_weight"`      // delta, per unit of fees paid
}

// PricingConfig holds pricer inputs that are configuration, not market data.
type PricingConfig struct {
	FallbackIV   float64 `mapstructure:"fallback_iv"`  // used when the surface has no vol for an option
	IVMin        float64 `mapstructure:"iv_min"`       // override clamp floor
	IVMax        float64 `mapstructure:"iv_max"`       // override clamp ceiling
	IVMaxExtreme float64 `mapstructure:"iv_max_extreme"` // tighter ceiling for deep OTM/ITM strikes
	TimeStepFrac float64 `mapstructure:"time_step_frac"`
	TimeStepMin  float64 `mapstructure:"time_step_min"`
	TimeStepMax  float64 `mapstructure:"time_step_max"`
	PriceStepRel float64 `mapstructure:"price_step_rel"`
	VolStepRel   float64 `mapstructure:"vol_step_rel"`
	StepFloor    float64 `mapstructure:"step_floor"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Symbol:             "BRN",
			InitialBankroll:    100000,
			ContractMultiplier: 1000,
			WorkerQueueSize:    256,
		},
		Spread: SpreadConfig{
			FuturesFrontBps:  4,
			FuturesBackBps:   8,
			OptionATMBps:     40,
			OptionOTMBps:     80,
			OptionDeepBps:    160,
			ATMThreshold:     0.05,
			DeepThreshold:    0.15,
			FrontMonthDays:   45,
			NearExpiryDays:   7,
			NearExpiryFactor: 1.5,
		},
		Fees: FeeConfig{
			PerContract:    2.5,
			RegulatoryRate: 0.00002,
			MinTotal:       1.0,
			MaxTotal:       500.0,
		},
		Risk: RiskConfig{
			DeltaCap:      25000,
			GammaCap:      5000,
			VegaCap:       50000,
			ThetaCap:      20000,
			VaRLimit:      75000,
			DailyPriceVol: 0.02,
			IVShock:       0.05,
			WarningRatio:  0.8,
			CriticalRatio: 1.5,
		},
		Scoring: ScoringConfig{
			BreachWeight:   1.0,
			VaRWeight:      0.5,
			DrawdownWeight: 0.25,
			FeeWeight:      1.0,
		},
		Pricing: PricingConfig{
			FallbackIV:   0.25,
			IVMin:        0.05,
			IVMax:        1.50,
			IVMaxExtreme: 1.00,
			TimeStepFrac: 0.01,
			TimeStepMin:  1e-5,
			TimeStepMax:  1e-3,
			PriceStepRel: 1e-4,
			VolStepRel:   1e-4,
			StepFloor:    1e-6,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       false,
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionsim"
	}
	return filepath.Join(home, ".config", "optionsim")
}

// Load loads configuration from the specified directory, falling back to
// defaults when no config file exists. A present-but-invalid file is a
// fatal configuration error: the session must not start.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPTIONSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPTIONSIM_BANKROLL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Session.InitialBankroll = f
		}
	}
	if v := os.Getenv("OPTIONSIM_SYMBOL"); v != "" {
		cfg.Session.Symbol = v
	}
}

// Validate checks the configuration for values that would make the engine
// misbehave. Any error here is fatal at session setup.
func (c *Config) Validate() error {
	if c.Session.InitialBankroll <= 0 {
		return apperr.NewValidationError("session.initial_bankroll", c.Session.InitialBankroll, "must be positive")
	}
	if c.Session.ContractMultiplier <= 0 {
		return apperr.NewValidationError("session.contract_multiplier", c.Session.ContractMultiplier, "must be positive")
	}

	if c.Spread.FuturesFrontBps <= 0 || c.Spread.FuturesBackBps <= 0 ||
		c.Spread.OptionATMBps <= 0 || c.Spread.OptionOTMBps <= 0 || c.Spread.OptionDeepBps <= 0 {
		return apperr.NewValidationError("spread", nil, "all spread bands must be positive")
	}
	if c.Spread.ATMThreshold <= 0 || c.Spread.DeepThreshold <= c.Spread.ATMThreshold {
		return apperr.NewValidationError("spread.deep_threshold", c.Spread.DeepThreshold, "thresholds must satisfy 0 < atm < deep")
	}
	if c.Spread.NearExpiryFactor < 1 {
		return apperr.NewValidationError("spread.near_expiry_factor", c.Spread.NearExpiryFactor, "must be >= 1")
	}

	if c.Fees.PerContract < 0 || c.Fees.RegulatoryRate < 0 {
		return apperr.NewValidationError("fees", nil, "fee components must be non-negative")
	}
	if c.Fees.MaxTotal > 0 && c.Fees.MinTotal > c.Fees.MaxTotal {
		return apperr.NewValidationError("fees.min_total", c.Fees.MinTotal, "exceeds max_total")
	}

	if c.Risk.DailyPriceVol <= 0 {
		return apperr.NewValidationError("risk.daily_price_vol", c.Risk.DailyPriceVol, "must be positive")
	}
	if c.Risk.IVShock <= 0 {
		return apperr.NewValidationError("risk.iv_shock", c.Risk.IVShock, "must be positive")
	}
	if c.Risk.WarningRatio <= 0 || c.Risk.WarningRatio >= 1 {
		return apperr.NewValidationError("risk.warning_ratio", c.Risk.WarningRatio, "must be in (0,1)")
	}
	if c.Risk.CriticalRatio <= 1 {
		return apperr.NewValidationError("risk.critical_ratio", c.Risk.CriticalRatio, "must exceed 1")
	}

	if c.Pricing.IVMin <= 0 || c.Pricing.IVMax <= c.Pricing.IVMin {
		return apperr.NewValidationError("pricing.iv_max", c.Pricing.IVMax, "bounds must satisfy 0 < iv_min < iv_max")
	}
	if c.Pricing.IVMaxExtreme <= c.Pricing.IVMin || c.Pricing.IVMaxExtreme > c.Pricing.IVMax {
		return apperr.NewValidationError("pricing.iv_max_extreme", c.Pricing.IVMaxExtreme, "must lie in (iv_min, iv_max]")
	}
	if c.Pricing.FallbackIV < c.Pricing.IVMin || c.Pricing.FallbackIV > c.Pricing.IVMax {
		return apperr.NewValidationError("pricing.fallback_iv", c.Pricing.FallbackIV, "must lie within iv bounds")
	}
	if c.Pricing.TimeStepFrac <= 0 || c.Pricing.TimeStepMin <= 0 ||
		c.Pricing.TimeStepMax < c.Pricing.TimeStepMin {
		return apperr.NewValidationError("pricing.time_step", c.Pricing.TimeStepFrac, "parameters must satisfy 0 < min <= max and frac > 0")
	}
	if c.Pricing.PriceStepRel <= 0 || c.Pricing.VolStepRel <= 0 || c.Pricing.StepFloor <= 0 {
		return apperr.NewValidationError("pricing.steps", nil, "finite-difference steps must be positive")
	}

	if c.Scoring.BreachWeight < 0 || c.Scoring.VaRWeight < 0 ||
		c.Scoring.DrawdownWeight < 0 || c.Scoring.FeeWeight < 0 {
		return apperr.NewValidationError("scoring", nil, "weights must be non-negative")
	}

	return nil
}
