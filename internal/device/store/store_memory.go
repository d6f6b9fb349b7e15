package store

import (
	"context"
	"sort"
	"sync"

	"modzero/internal/device"
	"modzero/internal/trust"
	id "modzero/pkg/domain"
	"modzero/pkg/platform/sentinel"
)

// InMemoryStore keeps devices and checkpoint history in maps guarded by a
// RWMutex. Checkpoint history is append-only; reads reduce to the latest
// status per checkpoint name.
type InMemoryStore struct {
	mu          sync.RWMutex
	devices     map[id.DeviceID]*device.Device
	checkpoints map[id.DeviceID][]device.PostureCheckpoint
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		devices:     make(map[id.DeviceID]*device.Device),
		checkpoints: make(map[id.DeviceID][]device.PostureCheckpoint),
	}
}

func (s *InMemoryStore) Create(_ context.Context, d *device.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[d.ID]; ok {
		return sentinel.ErrConflict
	}
	cloned := *d
	s.devices[d.ID] = &cloned
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, deviceID id.DeviceID) (*device.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[deviceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cloned := *d
	return &cloned, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*device.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*device.Device
	for _, d := range s.devices {
		if d.UserID == userID {
			cloned := *d
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, deviceID id.DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[deviceID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.devices, deviceID)
	delete(s.checkpoints, deviceID)
	return nil
}

func (s *InMemoryStore) AppendCheckpoint(_ context.Context, cp *device.PostureCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[cp.DeviceID]; !ok {
		return sentinel.ErrNotFound
	}
	s.checkpoints[cp.DeviceID] = append(s.checkpoints[cp.DeviceID], *cp)
	return nil
}

// LatestCheckpoints returns the most recent status per checkpoint name,
// sorted by checkpoint name for deterministic output.
func (s *InMemoryStore) LatestCheckpoints(_ context.Context, deviceID id.DeviceID) ([]trust.CheckpointResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]device.PostureCheckpoint)
	for _, cp := range s.checkpoints[deviceID] {
		current, ok := latest[cp.Checkpoint]
		if !ok || !cp.RecordedAt.Before(current.RecordedAt) {
			latest[cp.Checkpoint] = cp
		}
	}

	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]trust.CheckpointResult, 0, len(names))
	for _, name := range names {
		results = append(results, trust.CheckpointResult{
			Checkpoint: name,
			Status:     latest[name].Status,
		})
	}
	return results, nil
}

// Clear removes all devices and checkpoints. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = make(map[id.DeviceID]*device.Device)
	s.checkpoints = make(map[id.DeviceID][]device.PostureCheckpoint)
}
