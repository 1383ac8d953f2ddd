package config

import (
	"testing"
	"time"
)

const testCryptoKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fsbo")
	t.Setenv("JWT_ACCESS_SECRET", "test-secret")
	t.Setenv("GHL_CLIENT_ID", "client-id")
	t.Setenv("GHL_CLIENT_SECRET", "client-secret")
	t.Setenv("TOKEN_CRYPTO_KEY", testCryptoKeyHex)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr: %q", cfg.HTTPAddr)
	}
	if cfg.GHLAPIBase != "https://services.leadconnectorhq.com" {
		t.Errorf("ghl api base: %q", cfg.GHLAPIBase)
	}
	if cfg.ExportDelay != 150*time.Millisecond {
		t.Errorf("export delay: %v", cfg.ExportDelay)
	}
	if cfg.BatchTimeout != 10*time.Minute {
		t.Errorf("batch timeout: %v", cfg.BatchTimeout)
	}
	if cfg.RunnerInterval != time.Minute {
		t.Errorf("runner interval: %v", cfg.RunnerInterval)
	}
	if len(cfg.TokenCryptoKey) != 32 {
		t.Errorf("crypto key length: %d", len(cfg.TokenCryptoKey))
	}
	if cfg.AlertsEnabled {
		t.Error("alerts should stay disabled without smtp host and recipient")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsShortCryptoKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_CRYPTO_KEY", "abcd1234")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for short crypto key")
	}
}

func TestLoadWildcardOriginEnablesAllowAll(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CORSAllowAll {
		t.Error("wildcard origin should enable allow-all")
	}
}

func TestLoadAlertsNeedSMTPAndRecipient(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("ALERT_TO_ADDRESS", "ops@example.com")
	t.Setenv("ALERT_FROM_ADDRESS", "alerts@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AlertsEnabled {
		t.Error("alerts should enable with smtp host and recipient set")
	}
}
