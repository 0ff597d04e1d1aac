package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atlas_scraper/models"
)

// PostgresStore archives real-confidence analyses. The archive feeds the
// per-city market trend aggregates; it is optional and the pipeline runs
// fine without it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS property_analyses (
		id BIGSERIAL PRIMARY KEY,
		platform TEXT NOT NULL,
		url TEXT NOT NULL,
		city TEXT,
		price DOUBLE PRECISION,
		square_meters DOUBLE PRECISION,
		bedrooms INTEGER,
		bathrooms INTEGER,
		rental_yield DOUBLE PRECISION,
		cap_rate DOUBLE PRECISION,
		atlas_score INTEGER,
		scraped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_city ON property_analyses(LOWER(city), created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_url ON property_analyses(url, created_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveAnalysis archives one completed analysis.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO property_analyses (platform, url, city, price, square_meters, bedrooms,
			bathrooms, rental_yield, cap_rate, atlas_score, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.Source.Platform, a.Source.URL, a.City, a.Price, a.SquareMeters, a.Bedrooms,
		a.Bathrooms, a.FinancialMetrics.RentalYield, a.FinancialMetrics.CapRate,
		a.AtlasScore, a.Source.ScrapedAt)
	return err
}

// CityTrends aggregates archived analyses for a city over the last year.
// Returns ok=false when fewer than three samples exist.
func (s *PostgresStore) CityTrends(ctx context.Context, city string) (*models.MarketTrends, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rental_yield), 0)
		FROM property_analyses
		WHERE LOWER(city) = $1 AND created_at > NOW() - INTERVAL '1 year'`,
		strings.ToLower(strings.TrimSpace(city)))

	var count int
	var avgYield float64
	if err := row.Scan(&count, &avgYield); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	if count < 3 {
		return nil, false, nil
	}

	return &models.MarketTrends{
		RentalYield: avgYield,
		SampleSize:  count,
	}, true, nil
}
