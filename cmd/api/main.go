package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/coachd-platform/coachd/internal/api"
	"github.com/coachd-platform/coachd/internal/audit"
	"github.com/coachd-platform/coachd/internal/auth"
	"github.com/coachd-platform/coachd/internal/chat"
	"github.com/coachd-platform/coachd/internal/config"
	"github.com/coachd-platform/coachd/internal/database"
	"github.com/coachd-platform/coachd/internal/functions"
	mw "github.com/coachd-platform/coachd/internal/middleware"
	inats "github.com/coachd-platform/coachd/internal/nats"
	"github.com/coachd-platform/coachd/internal/orchestrator"
	"github.com/coachd-platform/coachd/internal/provider"
	"github.com/coachd-platform/coachd/internal/quota"
	iredis "github.com/coachd-platform/coachd/internal/redis"
	"github.com/coachd-platform/coachd/internal/schedule"
	"github.com/coachd-platform/coachd/internal/scheduler"
	"github.com/coachd-platform/coachd/internal/server"
	"github.com/coachd-platform/coachd/internal/tasks"
	"github.com/coachd-platform/coachd/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS
	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		slog.Error("connecting to nats", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()

	publisher := inats.NewPublisher(natsClient.JetStream())
	consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

	// Repositories and domain services
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)

	taskRepo := tasks.NewRepository(pool)
	eventRepo := tasks.NewEventRepository(pool)
	taskSvc := tasks.NewService(taskRepo, eventRepo)

	scheduleRepo := schedule.NewScheduleRepository(pool)
	messageRepo := schedule.NewRepository(pool)
	scheduleSvc := schedule.NewService(scheduleRepo, messageRepo)

	auditRepo := audit.NewRepository(pool)

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Language model backends
	openaiBackend := provider.NewOpenAIBackend("openai", cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL)
	gateway := provider.NewGateway(openaiBackend, cfg.LLM.DefaultModel)
	gateway.Register("gpt", openaiBackend)
	if cfg.LLM.LocalBaseURL != "" {
		localBackend := provider.NewOpenAIBackend("local", "", cfg.LLM.LocalBaseURL)
		gateway.Register("llama", localBackend)
	}

	// Conversation loop
	registry := functions.NewCoachRegistry(functions.Deps{
		Tasks:    taskSvc,
		Schedule: scheduleSvc,
		Users:    userSvc,
	})
	history := orchestrator.NewHistoryStore(redisClient, orchestrator.DefaultHistoryTurns, orchestrator.DefaultHistoryTTL)
	loop := orchestrator.New(gateway, registry, history, taskSvc, scheduleSvc, cfg.LLM.DefaultModel, cfg.LLM.Temperature)

	// Chat transport
	chatHandler := chat.NewHandler(publisher)
	component, err := chat.NewComponent(cfg.XMPP, chatHandler)
	if err != nil {
		slog.Error("creating xmpp component", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := component.Start(ctx); err != nil {
			slog.Error("xmpp component stopped", "error", err)
		}
	}()
	defer component.Stop()

	outboundRelay := chat.NewOutboundRelay(chatHandler, component.Sender(), consumerMgr)
	go func() {
		if err := outboundRelay.Start(ctx); err != nil {
			slog.Error("outbound relay stopped", "error", err)
		}
	}()

	turnLimiter := quota.NewRateLimiter(redisClient)
	inboundWorker := chat.NewInboundWorker(consumerMgr, publisher, userSvc, loop,
		turnLimiter, cfg.Quota.TurnsPerMinute, cfg.XMPP.CoachJID)
	go func() {
		if err := inboundWorker.Start(ctx); err != nil {
			slog.Error("inbound worker stopped", "error", err)
		}
	}()

	// Reminder scheduling and dispatch
	reminderScheduler := scheduler.New(userSvc, taskSvc, messageRepo,
		cfg.Scheduler.MorningTime, cfg.Scheduler.FollowUpBuffer)
	chatGateway := chat.NewGateway(publisher, cfg.XMPP.CoachJID)
	sweeper := scheduler.NewSweeper(messageRepo, userSvc, loop, chatGateway, 100)
	runner := scheduler.NewRunner(reminderScheduler, sweeper, cfg.Scheduler.TickInterval)
	go runner.Run(ctx)

	// Audit trail
	auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
	go func() {
		if err := auditConsumer.Start(ctx); err != nil {
			slog.Error("audit consumer stopped", "error", err)
		}
	}()

	// HTTP API
	taskHandler := tasks.NewHandler(taskSvc, auth.CurrentUserID)
	userHandler := users.NewHandler(userSvc, auth.CurrentUserID)
	scheduleHandler := schedule.NewHandler(scheduleSvc, auth.CurrentUserID)
	auditHandler := audit.NewHandler(auditRepo, auth.CurrentUserID)

	authLimiter := mw.NewRateLimiter(redisClient, 10, 60)

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		AuthRateLimiter: authLimiter.Middleware,
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		CreateTask:    taskHandler.Create,
		ListTasks:     taskHandler.List,
		GetTask:       taskHandler.Get,
		UpdateTask:    taskHandler.Update,
		DeleteTask:    taskHandler.Delete,
		CreateSubtask: taskHandler.CreateSubtask,
		ListSubtasks:  taskHandler.ListSubtasks,

		GetProfile:    userHandler.GetProfile,
		UpdateProfile: userHandler.UpdateProfile,

		GetSchedule:    scheduleHandler.GetSchedule,
		ListReminders:  scheduleHandler.ListReminders,
		SnoozeReminder: scheduleHandler.SnoozeReminder,
		CancelReminder: scheduleHandler.CancelReminder,

		ListAuditLogs: auditHandler.ListLogs,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
