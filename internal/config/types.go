package config

import "github.com/meetai/meetai/internal/domain"

// Config is the root configuration for Meet.AI, shared by the server and the
// CLI client.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Plans    PlansConfig    `yaml:"plans,omitempty"`
	Lists    ListsConfig    `yaml:"lists,omitempty"`
	Billing  BillingConfig  `yaml:"billing,omitempty"`
	Client   ClientConfig   `yaml:"client,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// ServerConfig controls the procedure API / event stream server.
type ServerConfig struct {
	Port           int       `yaml:"port,omitempty"`
	Bind           string    `yaml:"bind,omitempty"` // "auto" | "lan" | "loopback" | "custom"
	CustomBindHost string    `yaml:"customBindHost,omitempty"`
	TLS            ServerTLS `yaml:"tls,omitempty"`
	AllowedOrigins []string  `yaml:"allowedOrigins,omitempty"`
	AppURL         string    `yaml:"appUrl,omitempty"` // public URL used in billing return links
}

// ServerTLS configures TLS for the server.
type ServerTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// DatabaseConfig locates the SQLite database. An empty path means
// <base>/data/meetai.db.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// AuthConfig controls sign-up and sessions.
type AuthConfig struct {
	SessionTTLHours   int `yaml:"sessionTtlHours,omitempty"`
	MinPasswordLength int `yaml:"minPasswordLength,omitempty"`
}

// PlansConfig sets the free tier allowance.
type PlansConfig struct {
	MaxFreeAgents   int `yaml:"maxFreeAgents,omitempty"`
	MaxFreeMeetings int `yaml:"maxFreeMeetings,omitempty"`
}

// ListsConfig bounds list pagination. The default page size is fixed by
// the filter codec so clients and server agree on what an absent pageSize
// means.
type ListsConfig struct {
	MaxPageSize int `yaml:"maxPageSize,omitempty"`
}

// BillingConfig describes the hosted billing provider hand-off.
// CheckoutURL and PortalURL are templates; {productId}, {userId} and
// {returnUrl} are substituted per request.
type BillingConfig struct {
	CheckoutURL   string           `yaml:"checkoutUrl,omitempty"`
	PortalURL     string           `yaml:"portalUrl,omitempty"`
	WebhookSecret string           `yaml:"webhookSecret,omitempty"`
	Products      []domain.Product `yaml:"products,omitempty"`
}

// ClientConfig controls the CLI client.
type ClientConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
