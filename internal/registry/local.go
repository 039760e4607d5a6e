// SPDX-License-Identifier: MIT
package registry

import (
	"time"

	"spectral/internal/config"
)

// LocalRegistry is the Provider variant for a single-process multi-track
// configuration: a bounded set of tracks is permanently active and never
// reclaimed. Lifecycle operations are no-ops; only direct slot writes
// apply. It satisfies the same read contract as SharedRegistry.
type LocalRegistry struct {
	tracks [config.MaxTracks]TrackSlot
}

// NewLocalRegistry returns a registry with the first LocalTracks slots
// marked permanently active.
func NewLocalRegistry() *LocalRegistry {
	r := &LocalRegistry{}
	for i := 0; i < config.LocalTracks; i++ {
		r.tracks[i].numBands.Store(config.DefaultBands)
		r.tracks[i].colorARGB.Store(config.DefaultColorARGB)
		r.tracks[i].active.Store(true)
	}
	return r
}

// Track implements Provider.
func (r *LocalRegistry) Track(i int) *TrackSlot {
	return &r.tracks[clampIndex(i)]
}

// ActiveCount implements Provider. Scans rather than returning the fixed
// count so both variants behave identically for consumers.
func (r *LocalRegistry) ActiveCount() int {
	n := 0
	for i := range r.tracks {
		if r.tracks[i].active.Load() {
			n++
		}
	}
	return n
}

// UpdateTimestamp is a no-op: local tracks never expire.
func (r *LocalRegistry) UpdateTimestamp(int) {}

// CleanupStale is a no-op: local tracks persist indefinitely.
func (r *LocalRegistry) CleanupStale(time.Duration) {}

var _ Provider = (*LocalRegistry)(nil)
