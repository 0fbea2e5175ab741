// Package executor runs the scan pipeline for one client or a batch of clients.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/alert"
	"github.com/jonesrussell/competitive-scan/internal/delta"
	"github.com/jonesrussell/competitive-scan/internal/domain"
	"github.com/jonesrussell/competitive-scan/internal/health"
	"github.com/jonesrussell/competitive-scan/internal/observability"
)

// ErrBatchCapReached is reported for clients beyond the per-batch limit.
var ErrBatchCapReached = errors.New("batch client limit reached")

// Scan outcomes recorded in metrics.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// ClientRepository reads clients.
type ClientRepository interface {
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	ListActiveClientIDs(ctx context.Context) ([]string, error)
}

// ScanRepository reads and writes scan records. LatestScan returns
// domain.ErrNotFound when the client was never scanned. SaveScan stores the
// scan and updates the client's health score and last scan time atomically.
type ScanRepository interface {
	LatestScan(ctx context.Context, clientID string) (*domain.Scan, error)
	SaveScan(ctx context.Context, scan *domain.Scan) error
}

// DataFetcher produces the snapshots of a scan.
type DataFetcher interface {
	FetchScanData(ctx context.Context, client *domain.Client) (*domain.ScanData, error)
}

// TaskCreator materializes actionable alerts.
type TaskCreator interface {
	CreateTasksFromAlerts(ctx context.Context, clientID string, scanID uuid.UUID, alerts []domain.Alert) ([]domain.ClientTask, error)
}

// Config controls batch pacing.
type Config struct {
	// BatchDelay is the pause between two clients of a batch.
	BatchDelay time.Duration
	// MaxClientsPerBatch caps one batch; 0 means no cap.
	MaxClientsPerBatch int
}

// Executor sequences fetch, delta, score, alert, persist and task creation.
type Executor struct {
	clients ClientRepository
	scans   ScanRepository
	fetcher DataFetcher
	tasks   TaskCreator
	logger  infralogger.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	config  Config
	now     func() time.Time
	newID   func() uuid.UUID
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records scan outcomes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock replaces time.Now for scan dates.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an executor.
func New(
	clients ClientRepository,
	scans ScanRepository,
	fetcher DataFetcher,
	tasks TaskCreator,
	log infralogger.Logger,
	cfg Config,
	opts ...Option,
) *Executor {
	e := &Executor{
		clients: clients,
		scans:   scans,
		fetcher: fetcher,
		tasks:   tasks,
		logger:  log,
		tracer:  observability.NewTracer(),
		config:  cfg,
		now:     time.Now,
		newID:   uuid.New,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExecuteScan runs the full pipeline for one client. Provider failures only
// degrade the snapshot; a failure to compute or persist the scan is returned.
// Task creation runs after the scan is stored and its failure is reported in
// the result, not as an error.
func (e *Executor) ExecuteScan(ctx context.Context, clientID string) (*domain.ScanResult, error) {
	start := e.now()
	ctx, span := e.tracer.ScanSpan(ctx, clientID)
	defer span.End()

	log := e.logger.With(infralogger.ClientID(clientID))

	result, err := e.executeScan(ctx, clientID, log)
	duration := e.now().Sub(start)
	if err != nil {
		observability.RecordError(span, err)
		e.metrics.RecordScan(statusFailed, duration)
		log.Error("Scan failed",
			infralogger.Duration("duration", duration),
			infralogger.Error(err),
		)
		return nil, err
	}

	e.metrics.RecordScan(statusSuccess, duration)
	log.Info("Scan completed",
		infralogger.ScanID(result.ScanID.String()),
		infralogger.Int("health_score", result.HealthScore),
		infralogger.Int("alerts", result.AlertCount),
		infralogger.Int("tasks_created", result.TasksCreated),
		infralogger.Float64("cost_usd", result.TotalCostUSD),
		infralogger.Duration("duration", duration),
	)

	return result, nil
}

func (e *Executor) executeScan(ctx context.Context, clientID string, log infralogger.Logger) (*domain.ScanResult, error) {
	client, err := e.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", clientID, err)
	}

	previous, err := e.scans.LatestScan(ctx, clientID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		previous = nil
	case err != nil:
		return nil, fmt.Errorf("load previous scan: %w", err)
	}

	data, err := e.fetcher.FetchScanData(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("fetch scan data: %w", err)
	}
	if len(data.Client.Unavailable) > 0 {
		log.Warn("Scanning with partial data",
			infralogger.Any("unavailable_families", data.Client.Unavailable),
		)
	}

	deltas, err := delta.CalculateDeltas(&data.Client, data.Competitors, previous)
	if err != nil {
		return nil, fmt.Errorf("calculate deltas: %w", err)
	}

	score, err := health.CalculateHealthScore(&data.Client, &deltas)
	if err != nil {
		return nil, fmt.Errorf("calculate health score: %w", err)
	}

	var previousScore *int
	if previous != nil {
		prev := previous.HealthScore
		previousScore = &prev
	}
	delta.WithHealth(&deltas, score, previousScore)

	alerts := alert.GenerateAlerts(&deltas, &data.Client)

	scan := &domain.Scan{
		ID:                  e.newID(),
		ClientID:            clientID,
		ScanDate:            e.now().UTC(),
		HealthScore:         score,
		PreviousHealthScore: previousScore,
		RawMetrics:          data.Payload(),
		Deltas:              deltas,
		Alerts:              alerts,
		APICosts:            data.APICosts,
		TotalCostUSD:        data.TotalCostUSD(),
	}

	if saveErr := e.persist(ctx, scan); saveErr != nil {
		return nil, saveErr
	}

	result := &domain.ScanResult{
		ClientID:            clientID,
		ScanID:              scan.ID,
		HealthScore:         score,
		PreviousHealthScore: previousScore,
		AlertCount:          len(alerts),
		UnavailableFamilies: data.Client.Unavailable,
		TotalCostUSD:        scan.TotalCostUSD,
	}

	created, taskErr := e.tasks.CreateTasksFromAlerts(ctx, clientID, scan.ID, alerts)
	result.TasksCreated = len(created)
	if taskErr != nil {
		result.TaskError = taskErr.Error()
		log.Warn("Scan stored but task creation failed",
			infralogger.ScanID(scan.ID.String()),
			infralogger.Error(taskErr),
		)
	}

	e.metrics.RecordScanResult(alerts, result.TasksCreated, score)
	return result, nil
}

func (e *Executor) persist(ctx context.Context, scan *domain.Scan) error {
	ctx, span := e.tracer.StageSpan(ctx, "persist")
	defer span.End()

	if err := e.scans.SaveScan(ctx, scan); err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("persist scan: %w", err)
	}
	return nil
}

// ExecuteBatchScan scans clients one at a time in the given order, pausing
// between clients. One client's failure never stops the batch. Clients past
// the batch cap, or left over when ctx ends, are reported as failures.
func (e *Executor) ExecuteBatchScan(ctx context.Context, clientIDs []string) *domain.BatchResult {
	result := &domain.BatchResult{Results: make([]domain.ClientScanOutcome, 0, len(clientIDs))}

	var stopErr error
	for i, clientID := range clientIDs {
		if stopErr == nil && e.config.MaxClientsPerBatch > 0 && i >= e.config.MaxClientsPerBatch {
			stopErr = fmt.Errorf("%w: %d", ErrBatchCapReached, e.config.MaxClientsPerBatch)
		}
		if stopErr == nil && ctx.Err() != nil {
			stopErr = fmt.Errorf("batch interrupted: %w", ctx.Err())
		}
		if stopErr == nil && i > 0 && e.config.BatchDelay > 0 {
			if sleepErr := e.sleep(ctx, e.config.BatchDelay); sleepErr != nil {
				stopErr = fmt.Errorf("batch interrupted: %w", sleepErr)
			}
		}
		if stopErr != nil {
			result.Results = append(result.Results, domain.ClientScanOutcome{ClientID: clientID, Error: stopErr.Error()})
			result.Failed++
			continue
		}

		summary, err := e.ExecuteScan(ctx, clientID)
		if err != nil {
			result.Results = append(result.Results, domain.ClientScanOutcome{ClientID: clientID, Error: err.Error()})
			result.Failed++
			continue
		}

		result.Results = append(result.Results, domain.ClientScanOutcome{ClientID: clientID, Success: true, Summary: summary})
		result.Succeeded++
	}

	e.logger.Info("Batch scan finished",
		infralogger.Int("clients", len(clientIDs)),
		infralogger.Int("succeeded", result.Succeeded),
		infralogger.Int("failed", result.Failed),
	)

	return result
}

// ExecuteActiveClients runs a batch over every active client.
func (e *Executor) ExecuteActiveClients(ctx context.Context) (*domain.BatchResult, error) {
	ids, err := e.clients.ListActiveClientIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active clients: %w", err)
	}
	return e.ExecuteBatchScan(ctx, ids), nil
}
