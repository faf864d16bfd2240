// Package registry tracks which catalog models are activated and which one
// occupies the global activation slot.
//
// In-memory state is authoritative. An optional storage.ActivationStore
// receives write-through updates and hydrates the registry at startup;
// because activation is a best-effort cache, store failures are logged and
// never surfaced to callers.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/storage"
)

// Registry holds the model catalog, per-model activation records, and the
// global activation slot. Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	catalog map[string]api.ModelDescriptor
	order   []string

	records map[string]*api.ActivationRecord

	// active is the model id occupying the global activation slot;
	// "" means no model is active.
	active       string
	lastActivity time.Time

	store  storage.ActivationStore
	logger *slog.Logger
}

// New creates a registry over the given catalog. store may be nil, in which
// case activation state is process-lifetime only.
func New(catalog []api.ModelDescriptor, store storage.ActivationStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		catalog: make(map[string]api.ModelDescriptor, len(catalog)),
		order:   make([]string, 0, len(catalog)),
		records: make(map[string]*api.ActivationRecord),
		store:   store,
		logger:  logger,
	}
	for _, desc := range catalog {
		if _, exists := r.catalog[desc.ID]; exists {
			continue
		}
		r.catalog[desc.ID] = desc
		r.order = append(r.order, desc.ID)
	}
	return r
}

// Load hydrates activation state from the store. Records for ids no longer
// in the catalog are dropped; a persisted slot pointing at a model that is
// not activated is cleared.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	records, err := r.store.LoadRecords(ctx)
	if err != nil {
		return err
	}
	slot, err := r.store.LoadSlot(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range records {
		if _, known := r.catalog[id]; !known {
			r.logger.Warn("dropping activation record for unknown model", "model", id)
			continue
		}
		r.records[id] = rec
	}

	if slot.ModelID != "" {
		rec, ok := r.records[slot.ModelID]
		if ok && rec.Status == api.StatusActivated {
			r.active = slot.ModelID
			r.lastActivity = slot.LastActivity
		} else {
			r.logger.Warn("ignoring persisted slot for inactive model", "model", slot.ModelID)
		}
	}

	return nil
}

// ListModels returns every catalog model decorated with its activation
// state, in catalog order. It never fails.
func (r *Registry) ListModels() []api.ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.ModelStatus, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.statusLocked(id))
	}
	return out
}

// GetModel returns the status of one catalog model. Unknown ids fail with
// an activation error.
func (r *Registry) GetModel(id string) (api.ModelStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.catalog[id]; !ok {
		return api.ModelStatus{}, api.NewActivationError("model not found in catalog: " + id)
	}
	return r.statusLocked(id), nil
}

// ActivateModel marks a catalog model as activated and moves the global
// slot to it. Re-activating an already-activated model refreshes its
// timestamp and merges config overrides; it is not an error.
func (r *Registry) ActivateModel(ctx context.Context, id string, overrides map[string]any) (*api.ActivationRecord, error) {
	r.mu.Lock()

	if _, ok := r.catalog[id]; !ok {
		r.mu.Unlock()
		return nil, api.NewActivationError("model not found in catalog: " + id)
	}

	now := time.Now()
	rec, ok := r.records[id]
	if !ok {
		rec = &api.ActivationRecord{ModelID: id}
		r.records[id] = rec
	}
	rec.Status = api.StatusActivated
	rec.ActivatedAt = &now
	rec.DeactivatedAt = nil
	if len(overrides) > 0 {
		rec.Config = api.MergeConfig(rec.Config, overrides)
	}

	r.active = id
	r.lastActivity = now

	recCopy := copyRecord(rec)
	activated := r.activatedCountLocked()
	r.mu.Unlock()

	observability.ActivationsTotal.WithLabelValues(id, "activate").Inc()
	observability.ActivatedModels.Set(float64(activated))

	r.persistRecord(ctx, recCopy)
	r.persistSlot(ctx, storage.Slot{ModelID: id, LastActivity: now})

	return recCopy, nil
}

// DeactivateModel deactivates the model occupying the global slot and
// clears the slot. It returns the deactivated model id; ok is false when no
// model was active, which is not an error.
func (r *Registry) DeactivateModel(ctx context.Context) (string, bool) {
	r.mu.Lock()

	id := r.active
	if id == "" {
		r.mu.Unlock()
		return "", false
	}

	now := time.Now()
	rec := r.records[id]
	rec.Status = api.StatusDeactivated
	rec.DeactivatedAt = &now

	r.active = ""
	r.lastActivity = time.Time{}

	recCopy := copyRecord(rec)
	activated := r.activatedCountLocked()
	r.mu.Unlock()

	observability.ActivationsTotal.WithLabelValues(id, "deactivate").Inc()
	observability.ActivatedModels.Set(float64(activated))

	r.persistRecord(ctx, recCopy)
	r.persistSlot(ctx, storage.Slot{})

	return id, true
}

// GetActiveModel returns the status of the model occupying the global slot;
// ok is false when no model is active.
func (r *Registry) GetActiveModel() (api.ModelStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return api.ModelStatus{}, false
	}
	return r.statusLocked(r.active), true
}

// RecordFor returns a copy of the activation record for id, or nil when the
// model has never been activated.
func (r *Registry) RecordFor(id string) *api.ActivationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	return copyRecord(rec)
}

// Touch bumps the slot's last-activity timestamp after a successful
// inference call.
func (r *Registry) Touch(ctx context.Context) {
	r.mu.Lock()
	if r.active == "" {
		r.mu.Unlock()
		return
	}
	id := r.active
	now := time.Now()
	r.lastActivity = now
	r.mu.Unlock()

	r.persistSlot(ctx, storage.Slot{ModelID: id, LastActivity: now})
}

// LastActivity returns the slot's last-activity timestamp; zero when no
// model is active.
func (r *Registry) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActivity
}

// activatedCountLocked counts records currently in the activated state.
// Caller holds the lock.
func (r *Registry) activatedCountLocked() int {
	n := 0
	for _, rec := range r.records {
		if rec.Status == api.StatusActivated {
			n++
		}
	}
	return n
}

// statusLocked builds the ModelStatus for a known catalog id.
// Caller holds at least a read lock.
func (r *Registry) statusLocked(id string) api.ModelStatus {
	status := api.ModelStatus{
		ModelDescriptor: r.catalog[id],
		Status:          api.StatusAvailable,
		Active:          id == r.active,
	}
	if rec, ok := r.records[id]; ok {
		status.Status = rec.Status
	}
	return status
}

func (r *Registry) persistRecord(ctx context.Context, rec *api.ActivationRecord) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRecord(ctx, rec); err != nil {
		r.logger.Warn("persisting activation record failed", "model", rec.ModelID, "error", err)
	}
}

func (r *Registry) persistSlot(ctx context.Context, slot storage.Slot) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSlot(ctx, slot); err != nil {
		r.logger.Warn("persisting activation slot failed", "model", slot.ModelID, "error", err)
	}
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
