package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Fatalf("expected default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Locale.Default != defaultDefaultLocale {
		t.Fatalf("expected default locale %q, got %q", defaultDefaultLocale, cfg.Locale.Default)
	}
	if cfg.PubSub.IndexRefreshTopic != defaultRefreshTopic {
		t.Fatalf("expected default topic %q, got %q", defaultRefreshTopic, cfg.PubSub.IndexRefreshTopic)
	}
	if cfg.Environment != defaultEnvironment {
		t.Fatalf("expected environment %q, got %q", defaultEnvironment, cfg.Environment)
	}
}

func TestLoadReadsEnvMap(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"CATALOG_SERVER_PORT":         "9090",
		"CATALOG_SERVER_READ_TIMEOUT": "5s",
		"CATALOG_FIRESTORE_PROJECT_ID": "vintora-test",
		"CATALOG_LOCALE_DEFAULT":      "FR",
		"CATALOG_LOCALE_SECONDARY":    "en",
		"CATALOG_LOCALE_SUPPORTED":    "fr, EN ,de",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "vintora-test" {
		t.Fatalf("expected firestore project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.PubSub.ProjectID != "vintora-test" {
		t.Fatalf("expected pubsub project to inherit firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Locale.Default != "fr" || cfg.Locale.Secondary != "en" {
		t.Fatalf("expected lowercased locales, got %q/%q", cfg.Locale.Default, cfg.Locale.Secondary)
	}
	if len(cfg.Locale.Supported) != 3 || cfg.Locale.Supported[1] != "en" {
		t.Fatalf("unexpected supported locales: %v", cfg.Locale.Supported)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport CATALOG_SERVER_PORT=7070\nCATALOG_ENVIRONMENT=\"staging\"\nCATALOG_AUTH_SESSION_SECRET=abc123\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected port from env file, got %s", cfg.Server.Port)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("expected quoted value unwrapped, got %s", cfg.Environment)
	}
}

func TestLoadValidatesFields(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"CATALOG_SERVER_PORT": "not-a-port",
		"CATALOG_ENVIRONMENT": "production",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	want := map[string]bool{"Server.Port": true, "Auth.SessionSecret": true}
	for _, field := range fields {
		if !want[field] {
			t.Fatalf("unexpected invalid field %q in %v", field, fields)
		}
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected invalid fields: %v", want)
	}
}
