// Package memory provides the in-memory activation store. It is the
// default backend: activation state lives for the process lifetime and is
// lost on restart, which matches the gateway's best-effort activation
// semantics.
package memory

import (
	"context"
	"sync"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/storage"
)

// Store is a mutex-guarded in-memory ActivationStore.
type Store struct {
	mu      sync.RWMutex
	records map[string]*api.ActivationRecord
	slot    storage.Slot
}

var _ storage.ActivationStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*api.ActivationRecord),
	}
}

// LoadRecords returns a copy of every stored record.
func (s *Store) LoadRecords(_ context.Context) (map[string]*api.ActivationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*api.ActivationRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = copyRecord(rec)
	}
	return out, nil
}

// SaveRecord upserts one activation record.
func (s *Store) SaveRecord(_ context.Context, rec *api.ActivationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ModelID] = copyRecord(rec)
	return nil
}

// LoadSlot returns the stored global slot.
func (s *Store) LoadSlot(_ context.Context) (storage.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slot, nil
}

// SaveSlot stores the global slot.
func (s *Store) SaveSlot(_ context.Context, slot storage.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = slot
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func copyRecord(rec *api.ActivationRecord) *api.ActivationRecord {
	cp := *rec
	if rec.Config != nil {
		cp.Config = make(map[string]any, len(rec.Config))
		for k, v := range rec.Config {
			cp.Config[k] = v
		}
	}
	return &cp
}
