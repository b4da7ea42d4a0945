package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the
// coordinator service.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionTTL    time.Duration
	InvitationTTL time.Duration
	SMTPAddr      string
	SMTPFrom      string
	BaseURL       string
}

// Load parses configuration values from the current process environment.
// A .env file in the working directory is merged in first when present.
//
// Optional fields fall back to defaults; missing and invalid values are
// aggregated so operators see every problem in one pass.
func Load() (Config, error) {
	// Ignore the error: a missing .env file is the common case.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:      8080,
		SQLiteDSN:     "file:coordinator.db?_pragma=foreign_keys(1)",
		SessionTTL:    24 * time.Hour,
		InvitationTTL: 72 * time.Hour,
		BaseURL:       "http://localhost:8080",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("COORDINATOR_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "COORDINATOR_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("COORDINATOR_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("COORDINATOR_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "COORDINATOR_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("COORDINATOR_INVITATION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "COORDINATOR_INVITATION_TTL")
		} else {
			cfg.InvitationTTL = ttl
		}
	}

	cfg.SMTPAddr = strings.TrimSpace(os.Getenv("COORDINATOR_SMTP_ADDR"))
	cfg.SMTPFrom = strings.TrimSpace(os.Getenv("COORDINATOR_SMTP_FROM"))
	if cfg.SMTPAddr != "" && cfg.SMTPFrom == "" {
		invalid = append(invalid, "COORDINATOR_SMTP_FROM")
	}

	if base := strings.TrimSpace(os.Getenv("COORDINATOR_BASE_URL")); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
