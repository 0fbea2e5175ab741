package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// TaskRepository writes work-queue tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask inserts task. A nil content brief is stored as NULL.
func (r *TaskRepository) CreateTask(ctx context.Context, task *domain.ClientTask) error {
	var brief []byte
	if task.ContentBrief != nil {
		data, err := marshalJSONB("content_brief", task.ContentBrief)
		if err != nil {
			return err
		}
		brief = data
	}

	query := `
		INSERT INTO client_tasks (
			id, client_id, scan_id, title, category, priority, source, content_brief, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.ClientID, task.ScanID, task.Title, task.Category,
		task.Priority, task.Source, brief, task.Status, task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", classify(err))
	}
	return nil
}
