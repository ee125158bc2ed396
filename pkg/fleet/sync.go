// Package fleet coordinates vehicle list and telemetry fetching for the UI.
//
// A Syncer sits between the views and the API client. It serves repeated reads from a
// freshness-window cache, wakes sleeping vehicles at most once per session, and prefetches
// telemetry for every listed vehicle so the detail view usually opens warm.
package fleet

import (
	"context"
	"fmt"
	"sync"

	"github.com/tdsapp/tdsclient/internal/log"
	"github.com/tdsapp/tdsclient/pkg/api"
	"github.com/tdsapp/tdsclient/pkg/cache"
)

const vehiclesKey = "vehicles"

func vehicleDataKey(tag string) string {
	return "vehicle-data." + tag
}

// Backend is the slice of the API client the Syncer uses.
type Backend interface {
	ListVehicles(ctx context.Context) ([]api.VehicleSummary, error)
	GetVehicleData(ctx context.Context, tag string) (*api.VehicleData, error)
	WakeVehicle(ctx context.Context, tag string) (*api.VehicleSummary, error)
}

// Syncer is safe for concurrent use.
type Syncer struct {
	backend Backend
	queries *cache.QueryCache

	mu    sync.Mutex
	woken map[string]bool

	bg sync.WaitGroup
}

// NewSyncer returns a Syncer that fetches through backend and caches results in queries. A nil
// queries gets a cache with the default freshness window.
func NewSyncer(backend Backend, queries *cache.QueryCache) *Syncer {
	if queries == nil {
		queries = cache.New(cache.DefaultFreshness)
	}
	return &Syncer{
		backend: backend,
		queries: queries,
		woken:   make(map[string]bool),
	}
}

// Vehicles returns the account's vehicle list. Within the freshness window the cached snapshot
// is returned without a network call; force bypasses the window (pull-to-refresh). Each
// successful fetch triggers background wake commands for non-online vehicles and a background
// telemetry prefetch for every vehicle.
func (s *Syncer) Vehicles(ctx context.Context, force bool) ([]api.VehicleSummary, error) {
	if !force {
		if cached, ok := s.queries.Get(vehiclesKey); ok {
			return cached.([]api.VehicleSummary), nil
		}
	}
	vehicles, err := s.backend.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	s.queries.Put(vehiclesKey, vehicles)
	s.autoWake(vehicles)
	s.prefetch(vehicles)
	return vehicles, nil
}

// autoWake issues one wake command per non-online vehicle per session. A vehicle enters the
// attempted set before its wake call is issued, so rapid successive refreshes cannot produce a
// request storm; the trade-off is that a failed wake is not retried until ResetWakeAttempts.
func (s *Syncer) autoWake(vehicles []api.VehicleSummary) {
	for i := range vehicles {
		v := vehicles[i]
		if v.Online() {
			continue
		}
		tag := v.Tag()
		s.mu.Lock()
		attempted := s.woken[tag]
		s.woken[tag] = true
		s.mu.Unlock()
		if attempted {
			continue
		}
		log.Info("fleet: waking %q (%s)", v.DisplayName, v.State)
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			// Deliberately not tied to the caller's context; a wake may outlive the view
			// that triggered it.
			if _, err := s.backend.WakeVehicle(context.Background(), tag); err != nil {
				log.Warning("fleet: wake %s failed: %s", tag, err)
			}
		}()
	}
}

// prefetch warms the telemetry cache for every listed vehicle. The freshness window keeps
// repeated list refreshes from refetching data that is still current.
func (s *Syncer) prefetch(vehicles []api.VehicleSummary) {
	for i := range vehicles {
		tag := vehicles[i].Tag()
		if _, ok := s.queries.Get(vehicleDataKey(tag)); ok {
			continue
		}
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			if _, err := s.VehicleData(context.Background(), tag, false); err != nil {
				log.Debug("fleet: prefetch %s failed: %s", tag, err)
			}
		}()
	}
}

// VehicleData returns the telemetry snapshot for tag, served from cache within the freshness
// window unless force is set.
func (s *Syncer) VehicleData(ctx context.Context, tag string, force bool) (*api.VehicleData, error) {
	key := vehicleDataKey(tag)
	if !force {
		if cached, ok := s.queries.Get(key); ok {
			return cached.(*api.VehicleData), nil
		}
	}
	data, err := s.backend.GetVehicleData(ctx, tag)
	if err != nil {
		return nil, err
	}
	s.queries.Put(key, data)
	return data, nil
}

// CachedVehicleData returns the most recent telemetry snapshot for tag, however stale, or nil.
func (s *Syncer) CachedVehicleData(tag string) *api.VehicleData {
	if cached, ok := s.queries.Peek(vehicleDataKey(tag)); ok {
		return cached.(*api.VehicleData)
	}
	return nil
}

// BatteryLevel returns the best known battery level for v: the cached telemetry's value when
// present (telemetry is more current once prefetched), else the list summary's value.
func (s *Syncer) BatteryLevel(v *api.VehicleSummary) (int, bool) {
	if data := s.CachedVehicleData(v.Tag()); data != nil {
		if level, ok := data.BatteryLevel(); ok {
			return level, true
		}
	}
	if v.ChargeState != nil && v.ChargeState.BatteryLevel != nil {
		return *v.ChargeState.BatteryLevel, true
	}
	return 0, false
}

// ResetWakeAttempts clears the wake-attempted set. Called when the list view remounts; new data
// arriving never clears it.
func (s *Syncer) ResetWakeAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.woken = make(map[string]bool)
}

// WakeAttempted reports whether a wake command was already issued for tag this session.
func (s *Syncer) WakeAttempted(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.woken[tag]
}

// Wait blocks until in-flight background wake and prefetch calls settle.
func (s *Syncer) Wait() {
	s.bg.Wait()
}

// String describes the syncer's session state, for debug logging.
func (s *Syncer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("fleet.Syncer(wake-attempted: %d)", len(s.woken))
}
