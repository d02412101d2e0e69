package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OOF2510/geofinder-harness/internal/log"
)

func TestDefaultTimings(t *testing.T) {
	cfg := Default()

	if cfg.AuthDelay != time.Second {
		t.Fatalf("auth delay = %v", cfg.AuthDelay)
	}
	if cfg.SessionTimeout != 2*time.Minute {
		t.Fatalf("session timeout = %v", cfg.SessionTimeout)
	}
	if cfg.AnswerDelayMin != 5*time.Second || cfg.AnswerDelayMax != 25*time.Second {
		t.Fatalf("answer window = [%v, %v)", cfg.AnswerDelayMin, cfg.AnswerDelayMax)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestApplyMode(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyMode(ModeLocal); err != nil {
		t.Fatalf("apply local: %v", err)
	}
	if cfg.WSBaseURL != "ws://localhost:8080" {
		t.Fatalf("local ws base = %q", cfg.WSBaseURL)
	}

	if err := cfg.ApplyMode(ModeDeployed); err != nil {
		t.Fatalf("apply deployed: %v", err)
	}
	if cfg.WSBaseURL != Default().WSBaseURL {
		t.Fatalf("deployed ws base = %q", cfg.WSBaseURL)
	}

	if err := cfg.ApplyMode("staging"); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestApplyModeEmptyKeepsConfiguredURLs(t *testing.T) {
	cfg := Default()
	cfg.RoomAPIURL = "https://staging.example.com/1v1/new"
	cfg.WSBaseURL = "wss://staging.example.com"

	if err := cfg.ApplyMode(""); err != nil {
		t.Fatalf("apply empty mode: %v", err)
	}
	if cfg.RoomAPIURL != "https://staging.example.com/1v1/new" {
		t.Fatalf("room api url rewritten to %q", cfg.RoomAPIURL)
	}
	if cfg.WSBaseURL != "wss://staging.example.com" {
		t.Fatalf("ws base url rewritten to %q", cfg.WSBaseURL)
	}
}

func TestValidateRejectsInvertedAnswerWindow(t *testing.T) {
	cfg := Default()
	cfg.AnswerDelayMin = 10 * time.Second
	cfg.AnswerDelayMax = time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("inverted answer window accepted")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEOFINDER_BYPASS_APP_CHECK", "from-env")
	t.Setenv("GEOFINDER_SESSION_TIMEOUT", "90s")

	cfg, err := Load(log.New("error"), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BypassAppCheck != "from-env" {
		t.Fatalf("bypass credential = %q, want env value", cfg.BypassAppCheck)
	}
	if cfg.SessionTimeout != 90*time.Second {
		t.Fatalf("session timeout = %v, want 90s", cfg.SessionTimeout)
	}
}

func TestLoadWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(log.New("error"), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeDeployed {
		t.Fatalf("mode = %q", cfg.Mode)
	}

	// Second load reads the file written on the first.
	if _, err := Load(log.New("error"), path); err != nil {
		t.Fatalf("reload: %v", err)
	}
}
