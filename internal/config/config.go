package config

import (
	"fmt"

	"github.com/meetai/meetai/internal/domain"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	DefaultPort            = 3000
	DefaultBaseURL         = "http://127.0.0.1:3000"
	DefaultSessionTTLHours = 24 * 30
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// DefaultProducts is the catalog served when billing.products is empty.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "pro-monthly",
			Name:        "Pro",
			Description: "For individuals who meet every day",
			PriceAmount: 2900,
			Interval:    "month",
			Benefits:    []string{"Unlimited agents", "Unlimited meetings", "Transcript search"},
		},
		{
			ID:          "pro-yearly",
			Name:        "Pro Yearly",
			Description: "Two months free",
			PriceAmount: 29000,
			Interval:    "year",
			Benefits:    []string{"Unlimited agents", "Unlimited meetings", "Transcript search", "Priority support"},
			Badge:       "Best value",
			Highlighted: true,
		},
	}
}
