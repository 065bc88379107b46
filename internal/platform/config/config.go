package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile       = ".env"
	defaultPort          = "8080"
	defaultReadTimeout   = 15 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultIdleTimeout   = 120 * time.Second
	defaultEnvironment   = "local"
	defaultDefaultLocale = "en"
	defaultSessionTTL    = 12 * time.Hour
	defaultRefreshTopic  = "search-index-refresh"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	PubSub      PubSubConfig
	Auth        AuthConfig
	Locale      LocaleConfig
	Environment string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PubSubConfig stores the topic used for search-index refresh messages.
type PubSubConfig struct {
	ProjectID         string
	IndexRefreshTopic string
}

// AuthConfig configures back-office session token verification.
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	Issuer        string
}

// LocaleConfig fixes the locale policy used by the catalogue and the message
// catalogue. Secondary is the second locale consulted when diffing text values.
type LocaleConfig struct {
	Default   string
	Secondary string
	Supported []string
}

// ValidationError reports configuration fields that failed validation.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid configuration fields: %s", strings.Join(e.fields, ", "))
}

// Fields returns the field names that failed validation.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from dotenv values, the process
// environment, and explicit overrides, in increasing precedence order.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "CATALOG_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "CATALOG_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "CATALOG_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "CATALOG_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "CATALOG_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "CATALOG_FIRESTORE_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			ProjectID:         stringWithDefault(lookup, "CATALOG_PUBSUB_PROJECT_ID", ""),
			IndexRefreshTopic: stringWithDefault(lookup, "CATALOG_PUBSUB_INDEX_REFRESH_TOPIC", defaultRefreshTopic),
		},
		Auth: AuthConfig{
			SessionSecret: stringWithDefault(lookup, "CATALOG_AUTH_SESSION_SECRET", ""),
			SessionTTL:    durationWithDefault(lookup, "CATALOG_AUTH_SESSION_TTL", defaultSessionTTL),
			Issuer:        stringWithDefault(lookup, "CATALOG_AUTH_ISSUER", "catalog-api"),
		},
		Locale: LocaleConfig{
			Default:   strings.ToLower(stringWithDefault(lookup, "CATALOG_LOCALE_DEFAULT", defaultDefaultLocale)),
			Secondary: strings.ToLower(stringWithDefault(lookup, "CATALOG_LOCALE_SECONDARY", "")),
			Supported: lowercased(csvWithDefault(lookup, "CATALOG_LOCALE_SUPPORTED")),
		},
		Environment: strings.ToLower(stringWithDefault(lookup, "CATALOG_ENVIRONMENT", defaultEnvironment)),
	}

	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var fields []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		fields = append(fields, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		fields = append(fields, "Server.Port")
	}
	if cfg.Server.ReadTimeout <= 0 {
		fields = append(fields, "Server.ReadTimeout")
	}
	if cfg.Server.WriteTimeout <= 0 {
		fields = append(fields, "Server.WriteTimeout")
	}
	if strings.TrimSpace(cfg.Locale.Default) == "" {
		fields = append(fields, "Locale.Default")
	}
	if cfg.Environment != "local" && strings.TrimSpace(cfg.Auth.SessionSecret) == "" {
		fields = append(fields, "Auth.SessionSecret")
	}

	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	return &ValidationError{fields: fields}
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowercased(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.ToLower(value))
	}
	return out
}
