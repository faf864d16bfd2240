// Package postgres provides a PostgreSQL implementation of
// storage.ActivationStore. It uses pgx/v5 for connection pooling and JSONB
// for activation config storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/storage"
)

// Store is a PostgreSQL-backed ActivationStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ActivationStore at compile time.
var _ storage.ActivationStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// LoadRecords returns every persisted activation record keyed by model id.
func (s *Store) LoadRecords(ctx context.Context) (map[string]*api.ActivationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT model_id, status, activated_at, deactivated_at, config
		FROM activation_records
	`)
	if err != nil {
		return nil, fmt.Errorf("querying activation records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*api.ActivationRecord)
	for rows.Next() {
		var (
			rec        api.ActivationRecord
			status     string
			configJSON []byte
		)
		if err := rows.Scan(&rec.ModelID, &status, &rec.ActivatedAt, &rec.DeactivatedAt, &configJSON); err != nil {
			return nil, fmt.Errorf("scanning activation record: %w", err)
		}
		rec.Status = api.ActivationStatus(status)
		if len(configJSON) > 0 {
			if err := json.Unmarshal(configJSON, &rec.Config); err != nil {
				return nil, fmt.Errorf("unmarshaling config for %s: %w", rec.ModelID, err)
			}
		}
		records[rec.ModelID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activation records: %w", err)
	}

	return records, nil
}

// SaveRecord upserts one activation record.
func (s *Store) SaveRecord(ctx context.Context, rec *api.ActivationRecord) error {
	var configJSON []byte
	if rec.Config != nil {
		var err error
		configJSON, err = json.Marshal(rec.Config)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO activation_records (model_id, status, activated_at, deactivated_at, config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_id) DO UPDATE SET
			status = EXCLUDED.status,
			activated_at = EXCLUDED.activated_at,
			deactivated_at = EXCLUDED.deactivated_at,
			config = EXCLUDED.config
	`, rec.ModelID, string(rec.Status), rec.ActivatedAt, rec.DeactivatedAt, nullJSON(configJSON))
	if err != nil {
		return fmt.Errorf("upserting activation record: %w", err)
	}

	return nil
}

// LoadSlot returns the persisted global slot, or a zero Slot when no model
// was active.
func (s *Store) LoadSlot(ctx context.Context) (storage.Slot, error) {
	var (
		modelID      string
		lastActivity time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT model_id, last_activity FROM activation_slot WHERE id = 1
	`).Scan(&modelID, &lastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Slot{}, nil
	}
	if err != nil {
		return storage.Slot{}, fmt.Errorf("querying activation slot: %w", err)
	}

	return storage.Slot{ModelID: modelID, LastActivity: lastActivity}, nil
}

// SaveSlot persists the global slot. An empty ModelID clears it.
func (s *Store) SaveSlot(ctx context.Context, slot storage.Slot) error {
	if slot.ModelID == "" {
		_, err := s.pool.Exec(ctx, `DELETE FROM activation_slot WHERE id = 1`)
		if err != nil {
			return fmt.Errorf("clearing activation slot: %w", err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO activation_slot (id, model_id, last_activity)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			model_id = EXCLUDED.model_id,
			last_activity = EXCLUDED.last_activity
	`, slot.ModelID, slot.LastActivity)
	if err != nil {
		return fmt.Errorf("upserting activation slot: %w", err)
	}

	return nil
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// nullJSON returns nil for empty JSON so the column stores NULL instead of
// an empty string.
func nullJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return data
}
