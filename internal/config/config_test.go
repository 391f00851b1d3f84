package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
calendar:
  timezone: Asia/Tokyo
  year_bounded: false
  default_currency: JPY
tips:
  preset_amounts_cents: [100, 300]
share:
  base_url: https://advent.example
cleanup:
  interval: 1m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Calendar.Timezone != "Asia/Tokyo" {
		t.Fatalf("unexpected calendar timezone: %s", cfg.Calendar.Timezone)
	}
	if cfg.Calendar.YearBounded {
		t.Fatalf("calendar.year_bounded override was not applied")
	}
	if cfg.Calendar.DefaultCurrency != "JPY" {
		t.Fatalf("unexpected default currency: %s", cfg.Calendar.DefaultCurrency)
	}
	if len(cfg.Tips.PresetAmountsCents) != 2 || cfg.Tips.PresetAmountsCents[1] != 300 {
		t.Fatalf("unexpected tip presets: %v", cfg.Tips.PresetAmountsCents)
	}
	if cfg.Share.BaseURL != "https://advent.example" {
		t.Fatalf("unexpected share base url: %s", cfg.Share.BaseURL)
	}
	if cfg.Cleanup.Interval != time.Minute {
		t.Fatalf("unexpected cleanup interval: %s", cfg.Cleanup.Interval)
	}

	if cfg.Calendar.DefaultTitle != "My Advent Calendar" {
		t.Fatalf("calendar.default_title default should stay, got %q", cfg.Calendar.DefaultTitle)
	}
	if cfg.Share.QRSize != 256 {
		t.Fatalf("share.qr_size default should stay 256, got %d", cfg.Share.QRSize)
	}
	if cfg.Calendar.Location().String() != "Asia/Tokyo" {
		t.Fatalf("unexpected location: %s", cfg.Calendar.Location())
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTP.Addr)
	}
	if !cfg.Calendar.YearBounded {
		t.Fatalf("year_bounded must default to true")
	}
	if cfg.Calendar.Location() != time.UTC {
		t.Fatalf("unexpected default location: %s", cfg.Calendar.Location())
	}
	if cfg.Purchases.RatePer10Seconds != 5 {
		t.Fatalf("unexpected purchases rate default: %d", cfg.Purchases.RatePer10Seconds)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CALENDAR_YEAR_BOUNDED", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ADMIN_EMAILS", "santa@example.com, ,elf@example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.Calendar.YearBounded || cfg.Redis.DB != 3 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Auth.AdminEmails) != 2 || cfg.Auth.AdminEmails[1] != "elf@example.com" {
		t.Fatalf("unexpected admin emails: %v", cfg.Auth.AdminEmails)
	}
}

func TestLoadRejectsBadEnvValue(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("REDIS_DB", "three")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for non-numeric REDIS_DB")
	}
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when jwt secret is the default in production")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CALENDAR_TIMEZONE", "Nowhere/Special")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_DOTENV", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"POSTGRES_MIGRATE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"S3_PUBLIC_BASE_URL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"ADMIN_EMAILS",
		"CALENDAR_TIMEZONE",
		"CALENDAR_YEAR_BOUNDED",
		"CALENDAR_DEFAULT_CURRENCY",
		"SHARE_BASE_URL",
		"CLEANUP_INTERVAL",
		"METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}
