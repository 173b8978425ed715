package audio

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/rbright/autostart/internal/action"
)

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// Match applies the resolution policy to a device list.
//
// Order: exact id, exact instance id, exact name, then name substring. Name
// matches prefer Active > Disabled > Unplugged > NotPresent, then name
// ascending. All comparisons are case-insensitive.
func Match(devices []DeviceInfo, ref action.DeviceRef) (DeviceInfo, bool) {
	if id := fold(ref.ID); id != "" {
		for _, dev := range devices {
			if fold(dev.ID) == id {
				return dev, true
			}
		}
	}

	if instance := fold(ref.InstanceID); instance != "" {
		for _, dev := range devices {
			if fold(dev.InstanceID) == instance {
				return dev, true
			}
		}
	}

	name := fold(ref.Name)
	if name == "" {
		return DeviceInfo{}, false
	}

	exact := make([]DeviceInfo, 0, 2)
	partial := make([]DeviceInfo, 0, 2)
	for _, dev := range devices {
		devName := fold(dev.FriendlyName)
		switch {
		case devName == "":
		case devName == name:
			exact = append(exact, dev)
		case strings.Contains(devName, name):
			partial = append(partial, dev)
		}
	}

	if best, ok := bestByState(exact); ok {
		return best, true
	}
	return bestByState(partial)
}

func bestByState(candidates []DeviceInfo) (DeviceInfo, bool) {
	if len(candidates) == 0 {
		return DeviceInfo{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].State.preference(), candidates[j].State.preference()
		if pi != pj {
			return pi > pj
		}
		return candidates[i].FriendlyName < candidates[j].FriendlyName
	})
	return candidates[0], true
}

// SnapshotFunc enumerates every endpoint.
type SnapshotFunc func(ctx context.Context) ([]DeviceInfo, error)

type cacheEntry struct {
	device DeviceInfo
	found  bool
}

// Resolver resolves descriptors against a run-scoped snapshot.
//
// The snapshot is taken on first use and re-taken at most once per Resolver,
// on the first miss. Results, including misses, are cached by descriptor.
// A Resolver is owned by a single goroutine.
type Resolver struct {
	snapshot SnapshotFunc
	logger   *slog.Logger

	devices   []DeviceInfo
	captured  bool
	refreshed bool
	cache     map[string]cacheEntry
}

// NewResolver creates a resolver for one run.
func NewResolver(snapshot SnapshotFunc, logger *slog.Logger) *Resolver {
	return &Resolver{
		snapshot: snapshot,
		logger:   logger,
		cache:    make(map[string]cacheEntry),
	}
}

// CacheKey is the case-insensitive descriptor key.
func CacheKey(ref action.DeviceRef) string {
	return fold(ref.ID) + "|" + fold(ref.InstanceID) + "|" + fold(ref.Name)
}

// Resolve finds the device described by ref.
func (r *Resolver) Resolve(ctx context.Context, ref action.DeviceRef) (DeviceInfo, bool) {
	if ref.Empty() {
		return DeviceInfo{}, false
	}

	key := CacheKey(ref)
	if entry, ok := r.cache[key]; ok {
		return entry.device, entry.found
	}

	device, found := r.lookup(ctx, ref, false)
	if !found && !r.refreshed {
		r.refreshed = true
		device, found = r.lookup(ctx, ref, true)
	}

	r.cache[key] = cacheEntry{device: device, found: found}
	return device, found
}

func (r *Resolver) lookup(ctx context.Context, ref action.DeviceRef, refresh bool) (DeviceInfo, bool) {
	if refresh || !r.captured {
		devices, err := r.snapshot(ctx)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("audio device snapshot failed", "refresh", refresh, "error", err.Error())
			}
			r.devices = nil
			r.captured = true
			return DeviceInfo{}, false
		}
		r.devices = devices
		r.captured = true
	}
	return Match(r.devices, ref)
}

// Backfill copies the resolved identity into ref so later lookups take the id
// path and saved profiles carry the current identity.
func Backfill(ref *action.DeviceRef, device DeviceInfo) {
	ref.ID = device.ID
	ref.InstanceID = device.InstanceID
	ref.Name = device.FriendlyName
}
