package keywords

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunContext holds shared run configuration and trigger metadata.
// It is immutable after construction.
type RunContext struct {
	Config         Config
	RunID          string
	StartedAt      time.Time
	Logger         *slog.Logger
	RecordRequests bool

	// Trigger metadata
	TriggerType string
	TriggerID   string
}

// NewRunContext stamps a new run with a random ID and the current time.
// A nil logger falls back to slog.Default.
func NewRunContext(cfg Config, logger *slog.Logger, triggerType, triggerID string) *RunContext {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	return &RunContext{
		Config:      cfg,
		RunID:       runID,
		StartedAt:   time.Now(),
		Logger:      logger.With("run_id", runID, "trigger_type", triggerType),
		TriggerType: triggerType,
		TriggerID:   triggerID,
	}
}
