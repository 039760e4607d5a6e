// SPDX-License-Identifier: MIT
/*
Package registry implements a fixed-capacity shared table of per-track
spectral data connecting real-time audio producers to visualization
consumers within one process.

Concurrency discipline:
  - Slot claiming and releasing (registration, unregistration, staleness
    reclamation) are rare and run under a mutex.
  - Per-slot field updates run on the real-time audio thread and must
    never block: each field is an independent atomic. Readers load the
    same atomics without locking. Torn reads across fields within one
    slot are tolerated; the data is a continuously evolving display
    feed, not a transactional snapshot.
*/
package registry

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"spectral/internal/config"
)

// BandLevels is one band's stereo level pair in linear amplitude.
type BandLevels struct {
	Left  float32
	Right float32
}

// TrackSlot is one registry entry owned by at most one producer at a time.
// Every field is independently atomic so a producer can publish from the
// audio callback without locking while readers scan concurrently.
type TrackSlot struct {
	bands      [config.MaxBands]bandCell
	colorARGB  atomic.Uint32
	active     atomic.Bool
	lastUpdate atomic.Int64 // milliseconds, monotonic-enough wall clock
	instanceID atomic.Uint64
	numBands   atomic.Int32
}

// bandCell holds one band's left/right linear amplitudes as float32 bit
// patterns. Two independent words: a reader may see left from one hop and
// right from the previous one, which is acceptable for display data.
type bandCell struct {
	left  atomic.Uint32
	right atomic.Uint32
}

// SetBand stores one band's stereo levels. Safe on the real-time thread:
// two relaxed atomic stores, no locks, no allocation. Out-of-range band
// indices are ignored.
func (t *TrackSlot) SetBand(i int, left, right float32) {
	if i < 0 || i >= config.MaxBands {
		return
	}
	t.bands[i].left.Store(math.Float32bits(left))
	t.bands[i].right.Store(math.Float32bits(right))
}

// Band loads one band's stereo levels. Returns zeros for out-of-range
// indices so renderer loops can iterate unconditionally.
func (t *TrackSlot) Band(i int) (left, right float32) {
	if i < 0 || i >= config.MaxBands {
		return 0, 0
	}
	return math.Float32frombits(t.bands[i].left.Load()),
		math.Float32frombits(t.bands[i].right.Load())
}

// SetColor stores the track's packed ARGB color.
func (t *TrackSlot) SetColor(argb uint32) { t.colorARGB.Store(argb) }

// Color returns the track's packed ARGB color.
func (t *TrackSlot) Color() uint32 { return t.colorARGB.Load() }

// SetNumBands publishes the band count currently in use. Consumers must
// ignore band indices at or beyond this count.
func (t *TrackSlot) SetNumBands(n int) { t.numBands.Store(int32(config.ClampBands(n))) }

// NumBands returns the published band count.
func (t *TrackSlot) NumBands() int { return int(t.numBands.Load()) }

// IsActive reports whether the slot currently holds live producer data.
// Consumers must skip inactive slots entirely.
func (t *TrackSlot) IsActive() bool { return t.active.Load() }

// LastUpdate returns the wall-clock milliseconds of the last refresh.
func (t *TrackSlot) LastUpdate() int64 { return t.lastUpdate.Load() }

// InstanceID returns the identity of the owning producer, 0 if unowned.
func (t *TrackSlot) InstanceID() uint64 { return t.instanceID.Load() }

func (t *TrackSlot) reset() {
	t.active.Store(false)
	t.instanceID.Store(0)
}

// Provider is the read/refresh surface shared by both registry variants.
// The fixed-local variant implements the lifecycle operations as no-ops.
type Provider interface {
	// Track returns the slot at index i, clamped into the valid range.
	// Renderer loops iterate the full fixed capacity unconditionally, so
	// out-of-range indices clamp rather than fail.
	Track(i int) *TrackSlot

	// ActiveCount scans all slots and counts the active ones. Intended
	// for UI track counters, not the audio thread.
	ActiveCount() int

	// UpdateTimestamp refreshes slot liveness. If the slot was swept
	// inactive but its producer is still writing, it is re-asserted
	// active (recovery after a race with the cleanup sweep).
	UpdateTimestamp(slot int)

	// CleanupStale deactivates and unbinds every slot whose producer has
	// not refreshed within timeout. This is the sole reclamation path
	// for producers that terminated without unregistering.
	CleanupStale(timeout time.Duration)
}

// SharedRegistry is the standard Provider: a fixed array of slots with a
// mutex guarding the claim/release protocol. NoSlot (-1) signals capacity
// exhaustion; callers operate in a "no slot" state and may retry later.
type SharedRegistry struct {
	tracks [config.MaxTracks]TrackSlot
	mu     sync.Mutex
}

// NoSlot is returned by RegisterSender when every slot is occupied.
const NoSlot = -1

// NewSharedRegistry returns an empty registry with all slots inactive.
func NewSharedRegistry() *SharedRegistry {
	return &SharedRegistry{}
}

// RegisterSender claims a slot for the producer identity id. Idempotent:
// if id already owns a slot its index is returned unchanged. Otherwise the
// first free slot is bound, activated, and timestamped. Returns NoSlot when
// capacity is exhausted; that is an operating state, not an error.
func (r *SharedRegistry) RegisterSender(id uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tracks {
		if r.tracks[i].instanceID.Load() == id && r.tracks[i].active.Load() {
			return i
		}
	}
	for i := range r.tracks {
		if !r.tracks[i].active.Load() {
			r.tracks[i].instanceID.Store(id)
			r.tracks[i].lastUpdate.Store(nowMillis())
			// Activation last: a reader that observes active=true must
			// find the identity and timestamp already bound.
			r.tracks[i].active.Store(true)
			return i
		}
	}
	return NoSlot
}

// UnregisterSender releases the slot owned by id, if any.
func (r *SharedRegistry) UnregisterSender(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tracks {
		if r.tracks[i].instanceID.Load() == id {
			r.tracks[i].reset()
			return
		}
	}
}

// Track implements Provider.
func (r *SharedRegistry) Track(i int) *TrackSlot {
	return &r.tracks[clampIndex(i)]
}

// ActiveCount implements Provider.
func (r *SharedRegistry) ActiveCount() int {
	n := 0
	for i := range r.tracks {
		if r.tracks[i].active.Load() {
			n++
		}
	}
	return n
}

// UpdateTimestamp implements Provider. Lock-free: called from the
// real-time audio thread on every analysis hop.
func (r *SharedRegistry) UpdateTimestamp(slot int) {
	if slot < 0 || slot >= config.MaxTracks {
		return
	}
	t := &r.tracks[slot]
	t.lastUpdate.Store(nowMillis())
	if !t.active.Load() {
		t.active.Store(true)
	}
}

// CleanupStale implements Provider.
func (r *SharedRegistry) CleanupStale(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowMillis()
	limit := timeout.Milliseconds()
	for i := range r.tracks {
		if r.tracks[i].active.Load() && now-r.tracks[i].lastUpdate.Load() > limit {
			r.tracks[i].reset()
		}
	}
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= config.MaxTracks {
		return config.MaxTracks - 1
	}
	return i
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

var _ Provider = (*SharedRegistry)(nil)
