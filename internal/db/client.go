// Package db persists the element-set catalog to Postgres: one row per known
// satellite and one row per recorded element set, so historical elements stay
// queryable after the in-memory dataset rolls over.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/cywf/tle-fetcher/internal/tle"
)

// Client wraps a Postgres connection for catalog persistence.
type Client struct {
	db *sql.DB
}

// New opens a Postgres client for the given connection string.
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewFromDB wraps an existing *sql.DB (used by tests).
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// EnsureSchema creates the catalog tables when they do not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS satellites (
			id SERIAL PRIMARY KEY,
			norad_id INTEGER NOT NULL UNIQUE,
			name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS tles (
			id SERIAL PRIMARY KEY,
			satellite_id INTEGER NOT NULL REFERENCES satellites(id),
			line1 TEXT NOT NULL,
			line2 TEXT NOT NULL,
			source TEXT NOT NULL,
			epoch TIMESTAMPTZ NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS tles_satellite_epoch_idx ON tles (satellite_id, epoch DESC);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// UpsertSatellite creates or updates the satellite row for a NORAD ID and
// returns its primary key.
func (c *Client) UpsertSatellite(ctx context.Context, noradID int, name string) (int64, error) {
	const query = `
		INSERT INTO satellites (norad_id, name)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (norad_id)
		DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), satellites.name)
		RETURNING id
	`
	var id int64
	if err := c.db.QueryRowContext(ctx, query, noradID, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upserting satellite %d: %w", noradID, err)
	}
	return id, nil
}

// RecordTLE stores one element set for its satellite, creating the satellite
// row if needed.
func (c *Client) RecordTLE(ctx context.Context, es tle.ElementSet, fetchedAt time.Time) error {
	satID, err := c.UpsertSatellite(ctx, es.NORADID, es.Name)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO tles (satellite_id, line1, line2, source, epoch, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := c.db.ExecContext(ctx, query, satID, es.Line1, es.Line2, es.Source, es.Epoch, fetchedAt); err != nil {
		return fmt.Errorf("recording TLE for NORAD %d: %w", es.NORADID, err)
	}
	return nil
}

// ErrNotFound indicates no stored element set for the requested object.
var ErrNotFound = errors.New("no stored TLE for satellite")

// LatestTLE returns the most recent element set by epoch for a NORAD ID.
func (c *Client) LatestTLE(ctx context.Context, noradID int) (tle.ElementSet, error) {
	const query = `
		SELECT s.norad_id, COALESCE(s.name, ''), t.line1, t.line2, t.source, t.epoch
		FROM tles t
		JOIN satellites s ON s.id = t.satellite_id
		WHERE s.norad_id = $1
		ORDER BY t.epoch DESC
		LIMIT 1
	`
	var es tle.ElementSet
	err := c.db.QueryRowContext(ctx, query, noradID).Scan(
		&es.NORADID, &es.Name, &es.Line1, &es.Line2, &es.Source, &es.Epoch,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return tle.ElementSet{}, fmt.Errorf("%w: %d", ErrNotFound, noradID)
	}
	if err != nil {
		return tle.ElementSet{}, fmt.Errorf("loading latest TLE for NORAD %d: %w", noradID, err)
	}
	return es, nil
}

// RecordDataset stores every element set in a fetched dataset. Individual
// insert failures are returned but do not stop the remaining rows.
func (c *Client) RecordDataset(ctx context.Context, ds *tle.Dataset) (int, error) {
	var stored int
	var firstErr error
	for _, es := range ds.Satellites {
		if err := c.RecordTLE(ctx, es, ds.FetchedAt); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stored++
	}
	return stored, firstErr
}
