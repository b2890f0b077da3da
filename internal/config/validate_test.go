package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "coachd",
			Password: "secret", Name: "coachd", SSLMode: "disable",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret:  strings.Repeat("a", 32),
			RefreshSecret: strings.Repeat("b", 32),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		XMPP: XMPPConfig{
			Domain:        "coachd.local",
			ComponentName: "coach.coachd.local",
			ComponentHost: "localhost",
			ComponentPort: 5347,
		},
		LLM: LLMConfig{OpenAIAPIKey: "sk-test", DefaultModel: "gpt-4o-mini"},
		Scheduler: SchedulerConfig{
			TickInterval:   time.Minute,
			MorningTime:    "08:00",
			FollowUpBuffer: time.Hour,
		},
		Quota: QuotaConfig{TurnsPerMinute: 20},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ShortJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
}

func TestValidate_IdenticalJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidate_MissingDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidate_BadPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Redis.Port = 70000
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "REDIS_PORT")
}

func TestValidate_BadMorningTime(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.MorningTime = "8 o'clock"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_MORNING_TIME")
}

func TestValidate_TickIntervalTooSmall(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.TickInterval = 100 * time.Millisecond
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULER_TICK_INTERVAL")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "x"
	cfg.DB.Password = ""
	cfg.Server.Port = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
	assert.Contains(t, err.Error(), "DB_PASSWORD")
	assert.Contains(t, err.Error(), "SERVER_PORT")
}
