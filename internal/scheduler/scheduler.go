// Package scheduler triggers keyword runs from a cron expression when saka
// runs as a long-lived process instead of behind Cloud Scheduler.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/homemade/saka/internal/config"
	"github.com/homemade/saka/keywords"
)

const TriggerTypeSchedule = "schedule"

// Runner runs one keyword extraction and upload.
type Runner interface {
	ExtractAndUploadKeywords(ctx context.Context, trigger keywords.Trigger) (string, error)
}

type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	runner  Runner
	logger  *slog.Logger
	ctx     context.Context
}

// New parses the schedule and registers the run. Call Start to begin firing.
// Runs never overlap: a firing that arrives while a run is in progress is skipped.
func New(ctx context.Context, cfg config.ScheduleConfig, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	s := &Scheduler{
		runner: runner,
		logger: logger,
		ctx:    ctx,
	}
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	id, err := s.cron.AddFunc(cfg.Spec, s.Invoke)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Spec, err)
	}
	s.entryID = id
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("started scheduler", "next_run", s.Next())
}

// Stop prevents further firings and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next is the time of the next firing, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Invoke runs the pipeline once.
func (s *Scheduler) Invoke() {
	trigger := keywords.Trigger{Type: TriggerTypeSchedule, ID: time.Now().UTC().Format(time.RFC3339)}
	message, err := s.runner.ExtractAndUploadKeywords(s.ctx, trigger)
	if err != nil {
		s.logger.Error("scheduled keyword run failed", "trigger_id", trigger.ID, "error", err)
		return
	}
	s.logger.Info("scheduled keyword run finished", "trigger_id", trigger.ID, "message", message)
}
