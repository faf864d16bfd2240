package storage

import (
	"context"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// Slot is the persisted form of the global activation slot. An empty
// ModelID means no model is active.
type Slot struct {
	ModelID      string
	LastActivity time.Time
}

// ActivationStore persists activation records and the global slot.
type ActivationStore interface {
	// LoadRecords returns every persisted activation record, keyed by
	// model id. Called once at startup to hydrate the registry.
	LoadRecords(ctx context.Context) (map[string]*api.ActivationRecord, error)

	// SaveRecord upserts one activation record.
	SaveRecord(ctx context.Context, rec *api.ActivationRecord) error

	// LoadSlot returns the persisted global slot. A zero-valued Slot
	// means no model was active.
	LoadSlot(ctx context.Context) (Slot, error)

	// SaveSlot persists the global slot.
	SaveSlot(ctx context.Context, slot Slot) error

	// HealthCheck verifies the store is functional.
	HealthCheck(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
