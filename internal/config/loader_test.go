package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COORDINATOR_HTTP_PORT", "")
	t.Setenv("COORDINATOR_SQLITE_DSN", "")
	t.Setenv("COORDINATOR_SESSION_TTL", "")
	t.Setenv("COORDINATOR_INVITATION_TTL", "")
	t.Setenv("COORDINATOR_SMTP_ADDR", "")
	t.Setenv("COORDINATOR_SMTP_FROM", "")
	t.Setenv("COORDINATOR_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected default session TTL 24h, got %v", cfg.SessionTTL)
	}
	if cfg.InvitationTTL != 72*time.Hour {
		t.Errorf("expected default invitation TTL 72h, got %v", cfg.InvitationTTL)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected default base URL %q", cfg.BaseURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COORDINATOR_HTTP_PORT", "9090")
	t.Setenv("COORDINATOR_SQLITE_DSN", "file:test.db")
	t.Setenv("COORDINATOR_SESSION_TTL", "2h")
	t.Setenv("COORDINATOR_INVITATION_TTL", "48h")
	t.Setenv("COORDINATOR_SMTP_ADDR", "localhost:2525")
	t.Setenv("COORDINATOR_SMTP_FROM", "noreply@example.com")
	t.Setenv("COORDINATOR_BASE_URL", "https://coordinator.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:test.db" {
		t.Errorf("unexpected DSN %q", cfg.SQLiteDSN)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected session TTL 2h, got %v", cfg.SessionTTL)
	}
	if cfg.InvitationTTL != 48*time.Hour {
		t.Errorf("expected invitation TTL 48h, got %v", cfg.InvitationTTL)
	}
	if cfg.BaseURL != "https://coordinator.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
}

func TestLoad_AggregatesInvalidValues(t *testing.T) {
	t.Setenv("COORDINATOR_HTTP_PORT", "not-a-port")
	t.Setenv("COORDINATOR_SESSION_TTL", "soon")
	t.Setenv("COORDINATOR_INVITATION_TTL", "")
	t.Setenv("COORDINATOR_SMTP_ADDR", "")
	t.Setenv("COORDINATOR_SMTP_FROM", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error for invalid values")
	}
	for _, name := range []string{"COORDINATOR_HTTP_PORT", "COORDINATOR_SESSION_TTL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to name %s, got %v", name, err)
		}
	}
}

func TestLoad_SMTPAddrRequiresFrom(t *testing.T) {
	t.Setenv("COORDINATOR_HTTP_PORT", "")
	t.Setenv("COORDINATOR_SESSION_TTL", "")
	t.Setenv("COORDINATOR_INVITATION_TTL", "")
	t.Setenv("COORDINATOR_SMTP_ADDR", "localhost:2525")
	t.Setenv("COORDINATOR_SMTP_FROM", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "COORDINATOR_SMTP_FROM") {
		t.Fatalf("expected COORDINATOR_SMTP_FROM flagged, got %v", err)
	}
}
