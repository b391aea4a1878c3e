package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/integrator")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if !cfg.IsDev() {
		t.Error("default ENV should be development")
	}
	if cfg.DBMaxConns != 20 || cfg.DBMinConns != 5 {
		t.Errorf("pool defaults = %d/%d, want 20/5", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.SweepInterval != 5*time.Second {
		t.Errorf("SweepInterval = %s, want 5s", cfg.SweepInterval)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/integrator")
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "250ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.SweepInterval != 250*time.Millisecond {
		t.Errorf("SweepInterval = %s, want 250ms", cfg.SweepInterval)
	}
}

func TestValidate_RequiresIssuerOutsideDev(t *testing.T) {
	cfg := &Config{Env: "production", SweepInterval: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for production without AUTH_ISSUER")
	}
	cfg.AuthIssuer = "https://sso.example.org/realms/integrator"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsNonPositiveSweepInterval(t *testing.T) {
	cfg := &Config{Env: "development"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero sweep interval")
	}
}
