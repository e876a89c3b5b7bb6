package frame

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/state"
)

// Loop drives a Pipeline at a fixed frame rate from a single goroutine.
// It owns the records; nothing else may touch them while it runs.
type Loop struct {
	pipeline *Pipeline
	board    *input.Board
	records  *state.Records
	interval time.Duration
	logger   *slog.Logger

	start time.Time
	now   func() time.Time
}

// NewLoop creates a loop running pipeline at rate frames per second.
func NewLoop(pipeline *Pipeline, board *input.Board, records *state.Records, rate int, logger *slog.Logger) *Loop {
	if rate < 1 {
		rate = 1
	}
	return &Loop{
		pipeline: pipeline,
		board:    board,
		records:  records,
		interval: time.Second / time.Duration(rate),
		logger:   logger,
		now:      time.Now,
	}
}

// Step samples the inputs and runs one frame.
func (l *Loop) Step() error {
	if l.start.IsZero() {
		l.start = l.now()
	}
	snap := l.board.Snapshot()
	return l.pipeline.Run(snap, l.now().Sub(l.start), l.records)
}

// Start runs frames until ctx is cancelled or a frame fails. A failed frame
// is a configuration error; its error is returned and no further frames run.
//
// Blocks until done. Returns nil on cancellation.
func (l *Loop) Start(ctx context.Context) error {
	l.logger.Info("frame loop started",
		"interval_ms", l.interval.Milliseconds(),
		"stages", Stages,
	)

	if err := l.Step(); err != nil {
		l.logger.Error("frame failed", "frame", l.pipeline.Frame(), "error", err)
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("frame loop stopped", "frames", l.pipeline.Frame())
			return nil
		case <-ticker.C:
			if err := l.Step(); err != nil {
				l.logger.Error("frame failed", "frame", l.pipeline.Frame(), "error", err)
				return err
			}
		}
	}
}
