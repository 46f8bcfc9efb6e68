package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/meetai/meetai/internal/filter"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Server validation
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		add("server.port", "port must be 0-65535, got %d", cfg.Server.Port)
	}

	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		add("server.bind", "must be one of %v, got %q", validBinds, cfg.Server.Bind)
	}
	if cfg.Server.Bind == "custom" && cfg.Server.CustomBindHost == "" {
		add("server.customBindHost", "required when bind is custom")
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertPath == "" || cfg.Server.TLS.KeyPath == "") {
		add("server.tls", "certPath and keyPath are required when TLS is enabled")
	}
	if cfg.Server.AppURL != "" && !isAbsURL(cfg.Server.AppURL) {
		add("server.appUrl", "must be an absolute URL, got %q", cfg.Server.AppURL)
	}

	// Auth validation
	if cfg.Auth.SessionTTLHours < 0 {
		add("auth.sessionTtlHours", "must be positive, got %d", cfg.Auth.SessionTTLHours)
	}
	if cfg.Auth.MinPasswordLength < 0 {
		add("auth.minPasswordLength", "must be positive, got %d", cfg.Auth.MinPasswordLength)
	}

	// Plan and list validation
	if cfg.Plans.MaxFreeAgents < 0 {
		add("plans.maxFreeAgents", "must not be negative, got %d", cfg.Plans.MaxFreeAgents)
	}
	if cfg.Plans.MaxFreeMeetings < 0 {
		add("plans.maxFreeMeetings", "must not be negative, got %d", cfg.Plans.MaxFreeMeetings)
	}
	if cfg.Lists.MaxPageSize < 0 {
		add("lists.maxPageSize", "must not be negative, got %d", cfg.Lists.MaxPageSize)
	}
	if cfg.Lists.MaxPageSize > 0 && cfg.Lists.MaxPageSize < filter.DefaultPageSize {
		add("lists.maxPageSize", "must be at least the default page size (%d), got %d", filter.DefaultPageSize, cfg.Lists.MaxPageSize)
	}

	// Billing validation
	seen := make(map[string]bool)
	for i, p := range cfg.Billing.Products {
		path := fmt.Sprintf("billing.products[%d]", i)
		if p.ID == "" {
			add(path+".id", "id is required")
		} else if seen[p.ID] {
			add(path+".id", "duplicate product id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" {
			add(path+".name", "name is required")
		}
		if p.PriceAmount < 0 {
			add(path+".priceAmount", "must not be negative, got %d", p.PriceAmount)
		}
	}

	if cfg.Client.BaseURL != "" && !isAbsURL(cfg.Client.BaseURL) {
		add("client.baseUrl", "must be an absolute URL, got %q", cfg.Client.BaseURL)
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	return issues
}

func isAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
