package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/joho/godotenv"
)

const (
	BackendRealtime  = "rtdb"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"

	SinkStdout = "stdout"
	SinkCloud  = "cloud"
)

var (
	errMissingDatabaseURL = errors.New("FIREBASE_DATABASE_URL is required for the rtdb store backend")
	errMissingPostgresDSN = errors.New("POSTGRES_DSN is required for the postgres store backend")
)

type Firebase struct {
	ProjectID       string
	DatabaseURL     string
	APIKey          string
	CredentialsFile string
}

type Store struct {
	Backend      string
	PollInterval time.Duration
	PostgresDSN  string
}

type Mailchimp struct {
	APIKey       string
	AudienceID   string
	ServerPrefix string
}

type SendGrid struct {
	APIKey string
	From   string
	To     string
}

type GoogleOAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Config is the site configuration, loaded from environment variables.
type Config struct {
	Env      string
	Port     int
	LogLevel string
	LogSink  string

	Firebase  Firebase
	Store     Store
	Mailchimp Mailchimp
	SendGrid  SendGrid
	Google    GoogleOAuth

	SessionTTL     time.Duration
	SessionIdleTTL time.Duration
	CookieSecure   bool

	RateLimitRPS   float64
	RateLimitBurst int
}

// String returns a representation of Config with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Env: %s, Port: %d, LogLevel: %s, LogSink: %s, ProjectID: %s, DatabaseURL: %s, APIKey: %s, Store: %s, PostgresDSN: %s, Mailchimp: %s/%s key=%s, SendGrid: key=%s, GoogleClientID: %s, GoogleClientSecret: %s}",
		c.Env, c.Port, c.LogLevel, c.LogSink,
		c.Firebase.ProjectID, c.Firebase.DatabaseURL, redact(c.Firebase.APIKey),
		c.Store.Backend, maskDSN(c.Store.PostgresDSN),
		c.Mailchimp.ServerPrefix, c.Mailchimp.AudienceID, redact(c.Mailchimp.APIKey),
		redact(c.SendGrid.APIKey),
		c.Google.ClientID, redact(c.Google.ClientSecret),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// maskDSN masks the password in a postgres URL DSN.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" {
		return "[REDACTED_DSN]"
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}
	return parsed.String()
}

// LoadDotenv loads a .env file when present. Missing files are not an error.
func LoadDotenv(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8082"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	cfg := &Config{
		Env:      GetEnvWithDefault("APP_ENV", "development"),
		Port:     port,
		LogLevel: GetEnvWithDefault("LOG_LEVEL", "info"),
		LogSink:  GetEnvWithDefault("LOG_SINK", SinkStdout),
		Firebase: Firebase{
			ProjectID:       firstNonEmpty(os.Getenv("FIREBASE_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT")),
			DatabaseURL:     os.Getenv("FIREBASE_DATABASE_URL"),
			APIKey:          os.Getenv("FIREBASE_API_KEY"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Store: Store{
			Backend:      GetEnvWithDefault("STORE_BACKEND", BackendRealtime),
			PollInterval: GetEnvAsType("STORE_POLL_INTERVAL", 2*time.Second),
			PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		},
		Mailchimp: Mailchimp{
			APIKey:       os.Getenv("MAILCHIMP_API_KEY"),
			AudienceID:   os.Getenv("MAILCHIMP_AUDIENCE_ID"),
			ServerPrefix: os.Getenv("MAILCHIMP_SERVER_PREFIX"),
		},
		SendGrid: SendGrid{
			APIKey: os.Getenv("SENDGRID_API_KEY"),
			From:   os.Getenv("CONTACT_NOTIFY_FROM"),
			To:     os.Getenv("CONTACT_NOTIFY_TO"),
		},
		Google: GoogleOAuth{
			ClientID:     os.Getenv("GOOGLE_OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_OAUTH_REDIRECT_URL"),
		},
		SessionTTL:     GetEnvAsType("SESSION_TTL", 5*24*time.Hour),
		SessionIdleTTL: GetEnvAsType("SESSION_IDLE_TTL", 10*time.Minute),
		CookieSecure:   GetEnvAsType("COOKIE_SECURE", true),
		RateLimitRPS:   GetEnvAsType("RATE_LIMIT_RPS", 5.0),
		RateLimitBurst: GetEnvAsType("RATE_LIMIT_BURST", 10),
	}

	switch cfg.Store.Backend {
	case BackendRealtime:
		if cfg.Firebase.DatabaseURL == "" {
			return nil, errMissingDatabaseURL
		}
	case BackendPostgres:
		if cfg.Store.PostgresDSN == "" {
			return nil, errMissingPostgresDSN
		}
	case BackendFirestore, BackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}

	switch cfg.LogSink {
	case SinkStdout, SinkCloud:
	default:
		return nil, fmt.Errorf("unknown LOG_SINK %q", cfg.LogSink)
	}

	return cfg, nil
}

// ResolveProjectID fills Firebase.ProjectID from the metadata server when running on GCP.
func (c *Config) ResolveProjectID(ctx context.Context) error {
	if c.Firebase.ProjectID != "" {
		return nil
	}
	if !metadata.OnGCE() {
		return errors.New("FIREBASE_PROJECT_ID is not set and metadata server is unavailable")
	}
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get project ID: %w", err)
	}
	c.Firebase.ProjectID = projectID
	return nil
}

// MailchimpConfigured reports whether all three Mailchimp credentials are set.
func (c *Config) MailchimpConfigured() bool {
	return c.Mailchimp.APIKey != "" && c.Mailchimp.AudienceID != "" && c.Mailchimp.ServerPrefix != ""
}

func (c *Config) GoogleConfigured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.Google.RedirectURL != ""
}

func (c *Config) SendGridConfigured() bool {
	return c.SendGrid.APIKey != "" && c.SendGrid.From != "" && c.SendGrid.To != ""
}

// GetEnvWithDefault returns the environment value for key, or defaultValue when unset.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the type of defaultValue.
// Unparseable values fall back to defaultValue.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return any(floatValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(d).(T)
	default:
		return defaultValue
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
