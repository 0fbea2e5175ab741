// Package tasks materializes actionable scan alerts as work-queue tasks.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/competitive-scan/infrastructure/logger"
	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// Repository persists tasks.
type Repository interface {
	CreateTask(ctx context.Context, task *domain.ClientTask) error
}

// Creator turns alerts with a suggested task into tasks.
type Creator struct {
	repo   Repository
	logger infralogger.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// NewCreator creates a task creator.
func NewCreator(repo Repository, log infralogger.Logger) *Creator {
	return &Creator{
		repo:   repo,
		logger: log,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// CreateTasksFromAlerts creates one open task per actionable alert, linked to
// scanID. Every alert is attempted; the returned tasks are the ones that were
// stored and the error joins every failure. Tasks are never de-duplicated
// against earlier scans.
func (c *Creator) CreateTasksFromAlerts(
	ctx context.Context, clientID string, scanID uuid.UUID, alerts []domain.Alert,
) ([]domain.ClientTask, error) {
	created := make([]domain.ClientTask, 0, len(alerts))
	var errs []error

	for i := range alerts {
		a := &alerts[i]
		if !a.Actionable() {
			continue
		}

		task := domain.ClientTask{
			ID:           c.newID(),
			ClientID:     clientID,
			ScanID:       &scanID,
			Title:        a.SuggestedTask.Title,
			Category:     a.SuggestedTask.Category,
			Priority:     a.SuggestedTask.Priority,
			Source:       domain.TaskSourceCompetitiveScan,
			ContentBrief: a.SuggestedTask.ContentBrief,
			Status:       domain.TaskStatusOpen,
			CreatedAt:    c.now().UTC(),
		}

		if err := c.repo.CreateTask(ctx, &task); err != nil {
			errs = append(errs, fmt.Errorf("create task for %s: %w", a.Condition, err))
			continue
		}
		created = append(created, task)
	}

	if len(errs) > 0 {
		c.logger.Warn("Some scan tasks could not be created",
			infralogger.ClientID(clientID),
			infralogger.ScanID(scanID.String()),
			infralogger.Int("created", len(created)),
			infralogger.Int("failed", len(errs)),
		)
		return created, errors.Join(errs...)
	}

	if len(created) > 0 {
		c.logger.Info("Created tasks from scan alerts",
			infralogger.ClientID(clientID),
			infralogger.ScanID(scanID.String()),
			infralogger.Int("count", len(created)),
		)
	}

	return created, nil
}
