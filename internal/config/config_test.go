package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("tauth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DatabasePath != "cashgame.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.TAuthCookieName != "app_session" || cfg.TAuthIssuer != "tauth" {
		t.Fatalf("unexpected tauth defaults %q/%q", cfg.TAuthCookieName, cfg.TAuthIssuer)
	}
	if cfg.Reasoning.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected reasoning model %q", cfg.Reasoning.Model)
	}
	if cfg.Reasoning.Timeout != 60*time.Second {
		t.Fatalf("unexpected reasoning timeout %s", cfg.Reasoning.Timeout)
	}
	if cfg.Reasoning.APIKey != "" || cfg.BypassUserID != "" {
		t.Fatalf("expected reasoning key and bypass to be empty by default")
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	if _, err := Load(NewViper()); err == nil {
		t.Fatalf("expected missing signing secret to fail")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CASHGAME_TAUTH_SIGNING_SECRET", "from-env")
	t.Setenv("CASHGAME_REASONING_TIMEOUT_SECONDS", "15")
	t.Setenv("CASHGAME_AUTH_BYPASS_USER_ID", " dev-user ")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.TAuthSigningKey != "from-env" {
		t.Fatalf("expected signing secret from env, got %q", cfg.TAuthSigningKey)
	}
	if cfg.Reasoning.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.Reasoning.Timeout)
	}
	if cfg.BypassUserID != "dev-user" {
		t.Fatalf("expected trimmed bypass user, got %q", cfg.BypassUserID)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	configViper := NewViper()
	configViper.Set("tauth.signing_secret", "secret")
	configViper.Set("reasoning.timeout_seconds", 0)
	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected zero timeout to fail")
	}
}
