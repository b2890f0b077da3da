package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}
	if c.XMPP.ComponentPort < 1 || c.XMPP.ComponentPort > 65535 {
		errs = append(errs, fmt.Sprintf("XMPP_COMPONENT_PORT must be 1–65535, got %d", c.XMPP.ComponentPort))
	}

	// Scheduler
	if c.Scheduler.TickInterval < time.Second {
		errs = append(errs, "SCHEDULER_TICK_INTERVAL must be at least 1s")
	}
	if _, err := time.Parse("15:04", c.Scheduler.MorningTime); err != nil {
		errs = append(errs, fmt.Sprintf("SCHEDULER_MORNING_TIME must be HH:MM, got %q", c.Scheduler.MorningTime))
	}

	// LLM provider keys: warn only — a local backend may be the only one configured
	if c.LLM.OpenAIAPIKey == "" && c.LLM.LocalBaseURL == "" {
		slog.Warn("LLM_OPENAI_API_KEY is empty and no local backend configured — completions will fail")
	}

	// XMPP component secret: warn only, dev setups run without it
	if c.XMPP.ComponentSecret == "" {
		slog.Warn("XMPP_COMPONENT_SECRET is empty — XMPP component cannot authenticate")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
