package registry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
	"github.com/raolivei/swimTO-sub000/pkg/database"
	"github.com/raolivei/swimTO-sub000/pkg/logger"
)

// Repository persists the facility registry in Postgres and serves it
// back as per-run snapshots. It implements Provider.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a facility registry repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithField("component", "registry"),
	}
}

// Facilities implements Provider, returning the full registry snapshot
// ordered by facility ID.
func (r *Repository) Facilities(ctx context.Context) ([]contracts.Facility, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT facility_id, name, address, postal_code, latitude, longitude
		FROM facilities
		ORDER BY facility_id`)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	defer rows.Close()

	var facilities []contracts.Facility
	for rows.Next() {
		var f contracts.Facility
		if err := rows.Scan(&f.FacilityID, &f.Name, &f.Address, &f.PostalCode, &f.Latitude, &f.Longitude); err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facilities: %w", err)
	}

	return facilities, nil
}

// Upsert writes facilities in one transaction, inserting new entries and
// refreshing existing ones by facility ID.
func (r *Repository) Upsert(ctx context.Context, facilities []contracts.Facility) error {
	if len(facilities) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range facilities {
		batch.Queue(`
			INSERT INTO facilities (facility_id, name, address, postal_code, latitude, longitude, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (facility_id) DO UPDATE SET
				name = EXCLUDED.name,
				address = EXCLUDED.address,
				postal_code = EXCLUDED.postal_code,
				latitude = EXCLUDED.latitude,
				longitude = EXCLUDED.longitude,
				updated_at = NOW()`,
			f.FacilityID, f.Name, f.Address, f.PostalCode, f.Latitude, f.Longitude)
	}

	results := tx.SendBatch(ctx, batch)
	for range facilities {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert facility: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.WithField("count", len(facilities)).Info("Upserted facilities")
	return nil
}

// Count returns the number of registered facilities
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM facilities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count facilities: %w", err)
	}
	return count, nil
}
