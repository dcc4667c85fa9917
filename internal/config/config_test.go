package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database_url: \":memory:\"\ncommand_prefix: \"?\"\nautomod:\n  page_size: 10\n  rules_path: rules.json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("AUTOMOD_AUDIT_ONLY", "yes")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != ":memory:" || cfg.CommandPrefix != "?" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Automod.PageSize != 10 || cfg.Automod.RulesPath != "rules.json" {
		t.Fatalf("automod values not applied: %+v", cfg.Automod)
	}
	if !cfg.Automod.AuditOnly {
		t.Fatalf("expected audit only from env")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
	}
	if cfg.Support.AutoCloseHours != 72 {
		t.Fatalf("expected default auto close hours, got %d", cfg.Support.AutoCloseHours)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing token error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiscordToken = "token"
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Automod.PageSize = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected page size error")
	}

	cfg = DefaultConfig()
	cfg.DiscordToken = "token"
	cfg.Reputation.BaseURL = "not a url"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected base url error")
	}
}
