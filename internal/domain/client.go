package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// Client is an agency client whose competitive standing is scanned.
type Client struct {
	ID          string
	Name        string
	Domain      string
	PlaceID     string
	Keywords    []string
	HealthScore *int
	LastScanAt  *time.Time
	Active      bool
	Competitors []Competitor
}

// Target returns the provider target for the client.
func (c *Client) Target() Target {
	return Target{Domain: c.Domain, PlaceID: c.PlaceID, Keywords: c.Keywords}
}

// Competitor is one configured competitor of a client. Lower Priority is scanned first.
type Competitor struct {
	ID       string
	ClientID string
	Name     string
	Domain   string
	PlaceID  string
	Priority int
}

// Target returns the provider target for the competitor. Competitors are
// ranked on the client's keywords.
func (c *Competitor) Target(keywords []string) Target {
	return Target{Domain: c.Domain, PlaceID: c.PlaceID, Keywords: keywords}
}
