package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives the scheduler and sweeper on a recurring timer. Tick-based
// polling, not event-driven: each tick re-derives the full due set from the
// store, so a missed tick costs latency, never correctness.
type Runner struct {
	scheduler *Scheduler
	sweeper   *Sweeper
	tick      time.Duration
}

func NewRunner(scheduler *Scheduler, sweeper *Sweeper, tick time.Duration) *Runner {
	return &Runner{scheduler: scheduler, sweeper: sweeper, tick: tick}
}

// Run blocks until ctx is cancelled, running one pass per tick. A pass runs
// immediately on start so a restarted process catches up without waiting.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler runner stopping")
			return
		case <-ticker.C:
			r.pass(ctx)
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	now := time.Now()

	if err := r.scheduler.ScheduleDailyReminders(ctx, now); err != nil {
		slog.Error("scheduling daily reminders", "error", err)
	}
	if err := r.scheduler.ScheduleRecurringTasks(ctx, now); err != nil {
		slog.Error("scheduling recurring tasks", "error", err)
	}
	if err := r.scheduler.ScheduleOverdueFollowUps(ctx, now); err != nil {
		slog.Error("scheduling overdue follow-ups", "error", err)
	}
	if err := r.scheduler.ScheduleMorningMessages(ctx, now); err != nil {
		slog.Error("scheduling morning messages", "error", err)
	}
	if err := r.sweeper.ProcessPendingSchedules(ctx, now); err != nil {
		slog.Error("processing pending schedules", "error", err)
	}
}
