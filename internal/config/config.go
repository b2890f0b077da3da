package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	NATS      NATSConfig
	XMPP      XMPPConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
	Quota     QuotaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type NATSConfig struct {
	URL string
}

type XMPPConfig struct {
	Domain          string
	ComponentName   string
	ComponentSecret string
	ComponentHost   string
	ComponentPort   int
	CoachJID        string
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.ComponentHost, c.ComponentPort)
}

type LLMConfig struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	LocalBaseURL  string
	DefaultModel  string
	Temperature   float64
}

type SchedulerConfig struct {
	TickInterval   time.Duration
	MorningTime    string // HH:MM in the user's timezone
	FollowUpBuffer time.Duration
}

type QuotaConfig struct {
	TurnsPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		XMPP: XMPPConfig{
			Domain:          k.String("xmpp.domain"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
			ComponentHost:   k.String("xmpp.component.host"),
			ComponentPort:   k.Int("xmpp.component.port"),
			CoachJID:        k.String("xmpp.coach.jid"),
		},
		LLM: LLMConfig{
			OpenAIAPIKey:  k.String("llm.openai.api.key"),
			OpenAIBaseURL: k.String("llm.openai.base.url"),
			LocalBaseURL:  k.String("llm.local.base.url"),
			DefaultModel:  k.String("llm.default.model"),
			Temperature:   k.Float64("llm.temperature"),
		},
		Scheduler: SchedulerConfig{
			MorningTime: k.String("scheduler.morning.time"),
		},
		Quota: QuotaConfig{
			TurnsPerMinute: k.Int("quota.turns.per.minute"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "coachd"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "coachd"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.XMPP.Domain == "" {
		cfg.XMPP.Domain = "coachd.local"
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "coach." + cfg.XMPP.Domain
	}
	if cfg.XMPP.ComponentHost == "" {
		cfg.XMPP.ComponentHost = "localhost"
	}
	if cfg.XMPP.ComponentPort == 0 {
		cfg.XMPP.ComponentPort = 5347
	}
	if cfg.XMPP.CoachJID == "" {
		cfg.XMPP.CoachJID = "coach@" + cfg.XMPP.ComponentName
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "gpt-4o-mini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.Scheduler.MorningTime == "" {
		cfg.Scheduler.MorningTime = "08:00"
	}
	if cfg.Quota.TurnsPerMinute == 0 {
		cfg.Quota.TurnsPerMinute = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	tickStr := k.String("scheduler.tick.interval")
	if tickStr == "" {
		tickStr = "60s"
	}
	cfg.Scheduler.TickInterval, err = time.ParseDuration(tickStr)
	if err != nil {
		return nil, fmt.Errorf("parsing scheduler tick interval: %w", err)
	}

	bufferStr := k.String("scheduler.followup.buffer")
	if bufferStr == "" {
		bufferStr = "60m"
	}
	cfg.Scheduler.FollowUpBuffer, err = time.ParseDuration(bufferStr)
	if err != nil {
		return nil, fmt.Errorf("parsing scheduler follow-up buffer: %w", err)
	}

	return cfg, nil
}
