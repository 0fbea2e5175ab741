// Package scheduler runs the recurring batch scan of all active clients on a
// cron expression.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// BatchRunner scans every active client.
type BatchRunner interface {
	ExecuteActiveClients(ctx context.Context) (*domain.BatchResult, error)
}

// Scheduler triggers one batch per cron tick. A tick that fires while the
// previous batch is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner BatchRunner
	logger infralogger.Logger
	entry  cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses expr as a standard 5-field cron expression.
func New(runner BatchRunner, expr string, log infralogger.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	cl := cronLogger{logger: log}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		runner: runner,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
	s.entry = s.cron.Schedule(schedule, cron.FuncJob(s.tick))

	return s, nil
}

func (s *Scheduler) tick() {
	s.wg.Add(1)
	defer s.wg.Done()

	if _, err := s.RunOnce(s.ctx); err != nil {
		s.logger.Error("Scheduled batch failed", infralogger.Error(err))
	}
}

// RunOnce runs one batch immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (*domain.BatchResult, error) {
	start := time.Now()
	s.logger.Info("Scheduled batch starting")

	result, err := s.runner.ExecuteActiveClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("run batch: %w", err)
	}

	s.logger.Info("Scheduled batch finished",
		infralogger.Int("succeeded", result.Succeeded),
		infralogger.Int("failed", result.Failed),
		infralogger.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", infralogger.Time("next_run", s.Next()))
}

// Next returns the next planned run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop cancels a running batch and waits for it to return, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	stopped := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// cronLogger routes robfig/cron's logging to the service logger.
type cronLogger struct {
	logger infralogger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(fields(keysAndValues), infralogger.Error(err))...)
}

func fields(keysAndValues []any) []infralogger.Field {
	out := make([]infralogger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, infralogger.Any(key, keysAndValues[i+1]))
	}
	return out
}
