// SPDX-License-Identifier: MIT
/*
Package sender wires a spectral analyzer to a registry slot: it owns the
producer side of the track lifecycle and publishes band levels on every
analysis hop from the real-time audio callback.

A sender is either Publishing (holds a slot, writes band data) or Idle
(holds no slot, audio passes through unanalyzed). The transition
Publishing→Idle releases the slot; Idle→Publishing re-claims one.
*/
package sender

import (
	"sync"
	"sync/atomic"

	"spectral/internal/analysis"
	"spectral/internal/config"
	applog "spectral/internal/log"
	"spectral/internal/registry"
)

// Mode is the sender's publishing state.
type Mode int32

const (
	// Publishing means the sender holds (or is trying to hold) a slot
	// and writes band data on every hop.
	Publishing Mode = iota
	// Idle means the sender holds no slot and ignores audio.
	Idle
)

// Registrar is the slot lifecycle surface of the shared registry. The
// fixed-local variant has no lifecycle, so senders built on it never see
// this interface.
type Registrar interface {
	registry.Provider
	RegisterSender(id uint64) int
	UnregisterSender(id uint64)
}

// Process-wide producer identity source. Identities are stable for a
// sender's lifetime and never reused, so slot ownership is unambiguous.
var nextInstanceID atomic.Uint64

// Sender publishes one track's band levels into a registry slot.
type Sender struct {
	analyzer *analysis.Analyzer
	provider registry.Provider
	reg      Registrar // nil for fixed-slot (local) senders

	id    uint64
	slot  atomic.Int32
	mode  atomic.Int32
	color atomic.Uint32

	// Guards the claim/release protocol. Never taken on the audio path.
	mu sync.Mutex
}

// New creates a sender bound to the shared registry and immediately
// attempts to claim a slot. A full registry is not an error: the sender
// starts in a "no slot" state and retries on Prepare and mode changes.
func New(reg Registrar, sampleRate float64, colorARGB uint32) *Sender {
	s := &Sender{
		analyzer: analysis.NewAnalyzer(sampleRate),
		provider: reg,
		reg:      reg,
		id:       nextInstanceID.Add(1),
	}
	s.color.Store(colorARGB)
	s.mode.Store(int32(Publishing))
	s.slot.Store(int32(registry.NoSlot))
	s.tryRegister()
	return s
}

// NewFixed creates a sender that writes to a fixed slot of a local
// registry. Mode transitions only gate publishing; the slot is never
// claimed or released.
func NewFixed(provider registry.Provider, slot int, sampleRate float64, colorARGB uint32) *Sender {
	s := &Sender{
		analyzer: analysis.NewAnalyzer(sampleRate),
		provider: provider,
		id:       nextInstanceID.Add(1),
	}
	s.color.Store(colorARGB)
	s.mode.Store(int32(Publishing))
	s.slot.Store(int32(slot))
	provider.Track(slot).SetColor(colorARGB)
	return s
}

// tryRegister claims a slot if none is held. Caller need not hold mu for
// construction; runtime callers do.
func (s *Sender) tryRegister() {
	if s.reg == nil || s.slot.Load() != int32(registry.NoSlot) {
		return
	}
	slot := s.reg.RegisterSender(s.id)
	s.slot.Store(int32(slot))
	if slot == registry.NoSlot {
		applog.Warnf("Sender %d: registry full, publishing suspended until a slot frees up", s.id)
		return
	}
	s.provider.Track(slot).SetColor(s.color.Load())
	applog.Infof("Sender %d: claimed slot %d", s.id, slot)
}

// Process feeds a stereo block to the analyzer and, on each completed
// hop, publishes the fresh band levels to the slot. Runs on the
// real-time audio thread: no locks, no allocation. Returns true when new
// results were published.
func (s *Sender) Process(left, right []float64) bool {
	if Mode(s.mode.Load()) != Publishing {
		return false
	}
	slot := int(s.slot.Load())
	if slot == registry.NoSlot {
		return false
	}

	if !s.analyzer.Process(left, right) {
		return false
	}

	track := s.provider.Track(slot)
	results := s.analyzer.Results()
	bands := s.analyzer.NumBands()
	track.SetNumBands(bands)
	for i := 0; i < bands; i++ {
		track.SetBand(i, float32(results[i].Left), float32(results[i].Right))
	}
	// Timestamp last: band writes precede the liveness refresh in
	// program order. Readers may still observe the refresh first; that
	// brief inconsistency is part of the read contract.
	s.provider.UpdateTimestamp(slot)
	return true
}

// SetMode switches between Publishing and Idle, claiming or releasing
// the slot accordingly. Safe to call from any non-real-time thread.
func (s *Sender) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if Mode(s.mode.Load()) == m {
		return
	}
	s.mode.Store(int32(m))

	if s.reg == nil {
		return // fixed-slot senders keep their slot in both modes
	}
	if m == Publishing {
		s.tryRegister()
		return
	}
	if slot := int(s.slot.Load()); slot != registry.NoSlot {
		s.reg.UnregisterSender(s.id)
		s.slot.Store(int32(registry.NoSlot))
		applog.Infof("Sender %d: released slot %d", s.id, slot)
	}
}

// Mode returns the current publishing state.
func (s *Sender) Mode() Mode { return Mode(s.mode.Load()) }

// Slot returns the held slot index, or registry.NoSlot.
func (s *Sender) Slot() int { return int(s.slot.Load()) }

// InstanceID returns the sender's process-unique identity.
func (s *Sender) InstanceID() uint64 { return s.id }

// SetColor updates the track color and propagates it to the slot.
func (s *Sender) SetColor(argb uint32) {
	s.color.Store(argb)
	if slot := int(s.slot.Load()); slot != registry.NoSlot {
		s.provider.Track(slot).SetColor(argb)
	}
}

// SetHighRes flips the analyzer between standard and high band
// resolution. The new count reaches consumers with the next hop.
func (s *Sender) SetHighRes(on bool) {
	if on {
		s.analyzer.SetNumBands(config.HighResBands)
	} else {
		s.analyzer.SetNumBands(config.DefaultBands)
	}
}

// NumBands returns the analyzer's current band count.
func (s *Sender) NumBands() int { return s.analyzer.NumBands() }

// Prepare resets the analyzer for a new sample rate and retries
// registration if the sender is publishing without a slot.
func (s *Sender) Prepare(sampleRate float64, blockSize int) {
	s.analyzer.Prepare(sampleRate, blockSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if Mode(s.mode.Load()) == Publishing {
		s.tryRegister()
	}
}

// Clear zeroes analyzer state; used on playback stop so stale levels do
// not linger.
func (s *Sender) Clear() { s.analyzer.Clear() }

// Close releases the slot. The sender must not be used afterwards.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reg != nil {
		s.reg.UnregisterSender(s.id)
		s.slot.Store(int32(registry.NoSlot))
	}
	return nil
}
