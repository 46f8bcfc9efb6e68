package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// secret and URL fields so they can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Billing.WebhookSecret = expandEnvVars(cfg.Billing.WebhookSecret)
	cfg.Billing.CheckoutURL = expandEnvVars(cfg.Billing.CheckoutURL)
	cfg.Billing.PortalURL = expandEnvVars(cfg.Billing.PortalURL)
	cfg.Database.Path = expandEnvVars(cfg.Database.Path)
	cfg.Server.TLS.CertPath = expandEnvVars(cfg.Server.TLS.CertPath)
	cfg.Server.TLS.KeyPath = expandEnvVars(cfg.Server.TLS.KeyPath)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	return parse(data)
}

func parse(data []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "loopback"
	}
	if cfg.Auth.SessionTTLHours == 0 {
		cfg.Auth.SessionTTLHours = DefaultSessionTTLHours
	}
	if cfg.Auth.MinPasswordLength == 0 {
		cfg.Auth.MinPasswordLength = 8
	}
	if cfg.Plans.MaxFreeAgents == 0 {
		cfg.Plans.MaxFreeAgents = 1
	}
	if cfg.Plans.MaxFreeMeetings == 0 {
		cfg.Plans.MaxFreeMeetings = 1
	}
	if cfg.Lists.MaxPageSize == 0 {
		cfg.Lists.MaxPageSize = 100
	}
	if len(cfg.Billing.Products) == 0 {
		cfg.Billing.Products = DefaultProducts()
	}
	if cfg.Client.BaseURL == "" {
		cfg.Client.BaseURL = DefaultBaseURL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads MEETAI_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEETAI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MEETAI_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("MEETAI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("MEETAI_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MEETAI_BASE_URL"); v != "" {
		cfg.Client.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("MEETAI_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}
}
