package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/reconciler/internal/matching"
	"github.com/MrJamesThe3rd/reconciler/internal/reconciliation"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Reconciler"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"reconciler"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
		CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
		// Requests are unauthenticated when empty.
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"text"`
	}

	Matching struct {
		AmountTolerancePercent    decimal.Decimal   `envconfig:"AMOUNT_TOLERANCE_PERCENT" default:"5.0"`
		SettlementWindowHours     int               `envconfig:"SETTLEMENT_WINDOW_HOURS" default:"72"`
		RefundWindowDays          int               `envconfig:"REFUND_WINDOW_DAYS" default:"30"`
		ChargebackWindowDays      int               `envconfig:"CHARGEBACK_WINDOW_DAYS" default:"90"`
		FXTolerancePercent        decimal.Decimal   `envconfig:"FX_TOLERANCE_PERCENT" default:"10.0"`
		MinConfidenceForAutoMatch int               `envconfig:"MIN_CONFIDENCE_FOR_AUTO_MATCH" default:"80"`
		RatesToUSD                map[string]string `envconfig:"FX_RATES_TO_USD" default:"USD:1.0,MXN:0.058,COP:0.00025,BRL:0.20"`
		Workers                   int               `envconfig:"MATCH_WORKERS" default:"4"`
	}

	Priority struct {
		HighAmountUSD   decimal.Decimal `envconfig:"PRIORITY_HIGH_AMOUNT_USD" default:"1000"`
		MediumAmountUSD decimal.Decimal `envconfig:"PRIORITY_MEDIUM_AMOUNT_USD" default:"100"`
		HighAgeDays     int             `envconfig:"PRIORITY_HIGH_AGE_DAYS" default:"7"`
		MediumAgeDays   int             `envconfig:"PRIORITY_MEDIUM_AGE_DAYS" default:"3"`
		// Unmatched records older than this count as orphaned in the summary.
		OrphanThresholdDays int `envconfig:"ORPHAN_THRESHOLD_DAYS" default:"7"`
	}

	Persist struct {
		MaxAttempts    int           `envconfig:"PERSIST_MAX_ATTEMPTS" default:"3"`
		InitialBackoff time.Duration `envconfig:"PERSIST_INITIAL_BACKOFF" default:"200ms"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Policy converts the matching settings into an engine policy. It does not
// validate the result; matching.NewEngine does.
func (c *Config) Policy() (matching.Policy, error) {
	rates := make(matching.RateTable, len(c.Matching.RatesToUSD))

	for cur, raw := range c.Matching.RatesToUSD {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return matching.Policy{}, fmt.Errorf("%w: rate for %s: %v", matching.ErrInvalidConfiguration, cur, err)
		}

		rates[strings.ToUpper(strings.TrimSpace(cur))] = rate
	}

	const day = 24 * time.Hour

	return matching.Policy{
		AmountTolerancePercent:    c.Matching.AmountTolerancePercent,
		SettlementWindow:          time.Duration(c.Matching.SettlementWindowHours) * time.Hour,
		RefundWindow:              time.Duration(c.Matching.RefundWindowDays) * day,
		ChargebackWindow:          time.Duration(c.Matching.ChargebackWindowDays) * day,
		FXTolerancePercent:        c.Matching.FXTolerancePercent,
		MinConfidenceForAutoMatch: c.Matching.MinConfidenceForAutoMatch,
		Rates:                     rates,
		Priority: matching.PriorityThresholds{
			HighAmountUSD:   c.Priority.HighAmountUSD,
			MediumAmountUSD: c.Priority.MediumAmountUSD,
			HighAge:         time.Duration(c.Priority.HighAgeDays) * day,
			MediumAge:       time.Duration(c.Priority.MediumAgeDays) * day,
		},
		Workers: c.Matching.Workers,
	}, nil
}

func (c *Config) Retry() reconciliation.RetryPolicy {
	return reconciliation.RetryPolicy{
		MaxAttempts:     c.Persist.MaxAttempts,
		InitialInterval: c.Persist.InitialBackoff,
	}
}

func (c *Config) OrphanThreshold() time.Duration {
	return time.Duration(c.Priority.OrphanThresholdDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
