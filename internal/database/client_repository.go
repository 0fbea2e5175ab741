package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

const clientSelectColumns = `id, name, domain, place_id, keywords, health_score, last_scan_at, active`

type clientRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Domain      string         `db:"domain"`
	PlaceID     sql.NullString `db:"place_id"`
	Keywords    pq.StringArray `db:"keywords"`
	HealthScore sql.NullInt64  `db:"health_score"`
	LastScanAt  sql.NullTime   `db:"last_scan_at"`
	Active      bool           `db:"active"`
}

type competitorRow struct {
	ID       string         `db:"id"`
	ClientID string         `db:"client_id"`
	Name     string         `db:"name"`
	Domain   string         `db:"domain"`
	PlaceID  sql.NullString `db:"place_id"`
	Priority int            `db:"priority"`
}

// ClientRepository reads client profiles and their competitors.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new client repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetClient returns the client with its competitors ordered by priority.
func (r *ClientRepository) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var row clientRow
	query := `SELECT ` + clientSelectColumns + ` FROM clients WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	var competitors []competitorRow
	compQuery := `
		SELECT id, client_id, name, domain, place_id, priority
		FROM client_competitors
		WHERE client_id = $1
		ORDER BY priority ASC, id ASC`
	if err := r.db.SelectContext(ctx, &competitors, compQuery, id); err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}

	client := &domain.Client{
		ID:          row.ID,
		Name:        row.Name,
		Domain:      row.Domain,
		PlaceID:     row.PlaceID.String,
		Keywords:    []string(row.Keywords),
		Active:      row.Active,
		Competitors: make([]domain.Competitor, 0, len(competitors)),
	}
	if row.HealthScore.Valid {
		score := int(row.HealthScore.Int64)
		client.HealthScore = &score
	}
	if row.LastScanAt.Valid {
		at := row.LastScanAt.Time
		client.LastScanAt = &at
	}

	for _, c := range competitors {
		client.Competitors = append(client.Competitors, domain.Competitor{
			ID:       c.ID,
			ClientID: c.ClientID,
			Name:     c.Name,
			Domain:   c.Domain,
			PlaceID:  c.PlaceID.String,
			Priority: c.Priority,
		})
	}

	return client, nil
}

// ListActiveClientIDs returns the ids of active clients, least recently scanned first.
func (r *ClientRepository) ListActiveClientIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT id FROM clients
		WHERE active = TRUE
		ORDER BY last_scan_at ASC NULLS FIRST, id ASC`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active clients: %w", err)
	}
	return ids, nil
}
