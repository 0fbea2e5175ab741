package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const scanSelectColumns = `id, client_id, scan_date, health_score, previous_health_score,
	raw_metrics, deltas, alerts, api_costs, total_cost_usd`

type scanRow struct {
	ID                  uuid.UUID     `db:"id"`
	ClientID            string        `db:"client_id"`
	ScanDate            time.Time     `db:"scan_date"`
	HealthScore         int           `db:"health_score"`
	PreviousHealthScore sql.NullInt64 `db:"previous_health_score"`
	RawMetrics          []byte        `db:"raw_metrics"`
	Deltas              []byte        `db:"deltas"`
	Alerts              []byte        `db:"alerts"`
	APICosts            []byte        `db:"api_costs"`
	TotalCostUSD        float64       `db:"total_cost_usd"`
}

func (row *scanRow) toDomain() (*domain.Scan, error) {
	scan := &domain.Scan{
		ID:           row.ID,
		ClientID:     row.ClientID,
		ScanDate:     row.ScanDate,
		HealthScore:  row.HealthScore,
		TotalCostUSD: row.TotalCostUSD,
	}
	if row.PreviousHealthScore.Valid {
		prev := int(row.PreviousHealthScore.Int64)
		scan.PreviousHealthScore = &prev
	}

	fields := []struct {
		name string
		data []byte
		dest any
	}{
		{"raw_metrics", row.RawMetrics, &scan.RawMetrics},
		{"deltas", row.Deltas, &scan.Deltas},
		{"alerts", row.Alerts, &scan.Alerts},
		{"api_costs", row.APICosts, &scan.APICosts},
	}
	for _, f := range fields {
		if err := json.Unmarshal(f.data, f.dest); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", f.name, err)
		}
	}

	return scan, nil
}

// ScanRepository stores the append-only scan history.
type ScanRepository struct {
	db *sqlx.DB
}

// NewScanRepository creates a new scan repository.
func NewScanRepository(db *sqlx.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// LatestScan returns the most recent scan of the client, or domain.ErrNotFound.
func (r *ScanRepository) LatestScan(ctx context.Context, clientID string) (*domain.Scan, error) {
	query := `SELECT ` + scanSelectColumns + `
		FROM competitive_scans
		WHERE client_id = $1
		ORDER BY scan_date DESC
		LIMIT 1`

	var row scanRow
	if err := r.db.GetContext(ctx, &row, query, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get latest scan: %w", err)
	}

	return row.toDomain()
}

// ListScans returns up to limit scans of the client, newest first.
func (r *ScanRepository) ListScans(ctx context.Context, clientID string, limit int) ([]domain.Scan, error) {
	query := `SELECT ` + scanSelectColumns + `
		FROM competitive_scans
		WHERE client_id = $1
		ORDER BY scan_date DESC
		LIMIT $2`

	var rows []scanRow
	if err := r.db.SelectContext(ctx, &rows, query, clientID, limit); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}

	scans := make([]domain.Scan, 0, len(rows))
	for i := range rows {
		scan, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", rows[i].ID, err)
		}
		scans = append(scans, *scan)
	}
	return scans, nil
}

// SaveScan inserts the scan and points the client profile at it in one transaction.
func (r *ScanRepository) SaveScan(ctx context.Context, scan *domain.Scan) error {
	rawMetrics, err := marshalJSONB("raw_metrics", scan.RawMetrics)
	if err != nil {
		return err
	}
	deltas, err := marshalJSONB("deltas", scan.Deltas)
	if err != nil {
		return err
	}
	alerts, err := marshalJSONB("alerts", nonNil(scan.Alerts))
	if err != nil {
		return err
	}
	apiCosts, err := marshalJSONB("api_costs", nonNil(scan.APICosts))
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO competitive_scans (
			id, client_id, scan_date, health_score, previous_health_score,
			raw_metrics, deltas, alerts, api_costs, total_cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, execErr := tx.ExecContext(ctx, insertQuery,
		scan.ID, scan.ClientID, scan.ScanDate, scan.HealthScore, scan.PreviousHealthScore,
		rawMetrics, deltas, alerts, apiCosts, scan.TotalCostUSD,
	); execErr != nil {
		return fmt.Errorf("insert scan: %w", classify(execErr))
	}

	updateQuery := `
		UPDATE clients
		SET health_score = $2, last_scan_at = $3, updated_at = NOW()
		WHERE id = $1`

	result, execErr := tx.ExecContext(ctx, updateQuery, scan.ClientID, scan.HealthScore, scan.ScanDate)
	if reqErr := execRequireRows(result, execErr, fmt.Errorf("client %s: %w", scan.ClientID, domain.ErrNotFound)); reqErr != nil {
		return fmt.Errorf("update client profile: %w", reqErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit scan: %w", commitErr)
	}
	return nil
}

// nonNil keeps empty lists as JSON arrays instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
