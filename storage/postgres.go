package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meli_scrooper/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
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
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		listing_code TEXT NOT NULL,
		fingerprint TEXT,
		url TEXT,
		title TEXT,
		price NUMERIC,
		currency TEXT,
		operation_type TEXT,
		description TEXT,
		location TEXT,
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		total_area DOUBLE PRECISION,
		covered_area DOUBLE PRECISION,
		rooms DOUBLE PRECISION,
		bedrooms DOUBLE PRECISION,
		bathrooms DOUBLE PRECISION,
		parking_spots DOUBLE PRECISION,
		age DOUBLE PRECISION,
		maintenance_fee NUMERIC,
		images JSONB,
		status TEXT,
		times_seen INTEGER DEFAULT 1,
		first_seen TIMESTAMPTZ,
		last_seen TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (source, listing_code)
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id BIGSERIAL PRIMARY KEY,
		listing_id UUID NOT NULL REFERENCES listings(id),
		price NUMERIC,
		currency TEXT,
		maintenance_fee NUMERIC,
		run_key TEXT,
		observed_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_listings_fingerprint ON listings(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_price_history_listing ON price_history(listing_id, observed_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.StoredListing) error {
	query := `
		INSERT INTO listings (
			id, source, listing_code, fingerprint, url, title, price, currency, operation_type,
			description, location, lat, lng, total_area, covered_area, rooms, bedrooms,
			bathrooms, parking_spots, age, maintenance_fee, images, status, times_seen,
			first_seen, last_seen, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
		)
		ON CONFLICT (source, listing_code) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			url = EXCLUDED.url,
			title = COALESCE(NULLIF(EXCLUDED.title, ''), listings.title),
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			operation_type = EXCLUDED.operation_type,
			description = COALESCE(NULLIF(EXCLUDED.description, ''), listings.description),
			location = COALESCE(NULLIF(EXCLUDED.location, ''), listings.location),
			lat = COALESCE(EXCLUDED.lat, listings.lat),
			lng = COALESCE(EXCLUDED.lng, listings.lng),
			total_area = COALESCE(EXCLUDED.total_area, listings.total_area),
			covered_area = COALESCE(EXCLUDED.covered_area, listings.covered_area),
			rooms = COALESCE(EXCLUDED.rooms, listings.rooms),
			bedrooms = COALESCE(EXCLUDED.bedrooms, listings.bedrooms),
			bathrooms = COALESCE(EXCLUDED.bathrooms, listings.bathrooms),
			parking_spots = COALESCE(EXCLUDED.parking_spots, listings.parking_spots),
			age = COALESCE(EXCLUDED.age, listings.age),
			maintenance_fee = EXCLUDED.maintenance_fee,
			images = EXCLUDED.images,
			status = EXCLUDED.status,
			times_seen = listings.times_seen + 1,
			last_seen = EXCLUDED.last_seen,
			updated_at = NOW()
		RETURNING id, times_seen, first_seen`

	return s.pool.QueryRow(ctx, query,
		l.ID, l.Source, l.ListingCode, l.Fingerprint, l.URL, l.Title, l.Price, l.Currency, l.OperationType,
		l.Description, l.Location, l.Lat, l.Lng, l.TotalArea, l.CoveredArea, l.Rooms, l.Bedrooms,
		l.Bathrooms, l.ParkingSpots, l.Age, l.MaintenanceFee, l.Images, l.Status, l.TimesSeen,
		l.FirstSeen, l.LastSeen, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID, &l.TimesSeen, &l.FirstSeen)
}

func (s *PostgresStore) GetListingByCode(ctx context.Context, source, code string) (*models.StoredListing, error) {
	query := `
		SELECT id, source, listing_code, fingerprint, url, title, price, currency, operation_type,
			description, location, lat, lng, total_area, covered_area, rooms, bedrooms,
			bathrooms, parking_spots, age, maintenance_fee, images, status, times_seen,
			first_seen, last_seen, created_at, updated_at
		FROM listings WHERE source = $1 AND listing_code = $2`

	var l models.StoredListing
	err := s.pool.QueryRow(ctx, query, source, code).Scan(
		&l.ID, &l.Source, &l.ListingCode, &l.Fingerprint, &l.URL, &l.Title, &l.Price, &l.Currency, &l.OperationType,
		&l.Description, &l.Location, &l.Lat, &l.Lng, &l.TotalArea, &l.CoveredArea, &l.Rooms, &l.Bedrooms,
		&l.Bathrooms, &l.ParkingSpots, &l.Age, &l.MaintenanceFee, &l.Images, &l.Status, &l.TimesSeen,
		&l.FirstSeen, &l.LastSeen, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByFingerprint returns other listings that describe the same property,
// typically relistings under a new code.
func (s *PostgresStore) FindByFingerprint(ctx context.Context, fingerprint string, excludeCode string) ([]models.StoredListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, listing_code, url, price, currency, last_seen
		FROM listings
		WHERE fingerprint = $1 AND listing_code <> $2
		ORDER BY last_seen DESC`, fingerprint, excludeCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.StoredListing
	for rows.Next() {
		var l models.StoredListing
		if err := rows.Scan(&l.ID, &l.Source, &l.ListingCode, &l.URL, &l.Price, &l.Currency, &l.LastSeen); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetStaleListings returns active listings not seen since olderThan, oldest first.
func (s *PostgresStore) GetStaleListings(ctx context.Context, olderThan time.Time, limit int) ([]models.StoredListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, listing_code, url, price, currency, last_seen
		FROM listings
		WHERE status = $1 AND last_seen < $2
		ORDER BY last_seen
		LIMIT $3`, models.ListingStatusActive, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.StoredListing
	for rows.Next() {
		var l models.StoredListing
		if err := rows.Scan(&l.ID, &l.Source, &l.ListingCode, &l.URL, &l.Price, &l.Currency, &l.LastSeen); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) UpdateListingStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = $2, last_seen = NOW(), updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

// =============================================================================
// Price History
// =============================================================================

func (s *PostgresStore) CreatePricePoint(ctx context.Context, pp *models.PricePoint) error {
	query := `
		INSERT INTO price_history (listing_id, price, currency, maintenance_fee, run_key, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		pp.ListingID, pp.Price, pp.Currency, pp.MaintenanceFee, pp.RunKey, pp.ObservedAt,
	).Scan(&pp.ID)
}

func (s *PostgresStore) GetLatestPricePoint(ctx context.Context, listingID uuid.UUID) (*models.PricePoint, error) {
	query := `
		SELECT id, listing_id, price, currency, maintenance_fee, run_key, observed_at
		FROM price_history
		WHERE listing_id = $1
		ORDER BY observed_at DESC
		LIMIT 1`

	var pp models.PricePoint
	err := s.pool.QueryRow(ctx, query, listingID).Scan(
		&pp.ID, &pp.ListingID, &pp.Price, &pp.Currency, &pp.MaintenanceFee, &pp.RunKey, &pp.ObservedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pp, nil
}

func (s *PostgresStore) GetPriceHistory(ctx context.Context, listingID uuid.UUID) ([]models.PricePoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, listing_id, price, currency, maintenance_fee, run_key, observed_at
		FROM price_history
		WHERE listing_id = $1
		ORDER BY observed_at`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var pp models.PricePoint
		if err := rows.Scan(&pp.ID, &pp.ListingID, &pp.Price, &pp.Currency, &pp.MaintenanceFee, &pp.RunKey, &pp.ObservedAt); err != nil {
			return nil, err
		}
		points = append(points, pp)
	}
	return points, rows.Err()
}
