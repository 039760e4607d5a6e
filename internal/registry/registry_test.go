// SPDX-License-Identifier: MIT
package registry

import (
	"testing"
	"time"

	"spectral/internal/config"
)

func TestRegisterSenderIdempotent(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()

	first := r.RegisterSender(42)
	if first == NoSlot {
		t.Fatal("expected a slot on an empty registry")
	}
	second := r.RegisterSender(42)
	if second != first {
		t.Errorf("re-registration returned slot %d, want %d", second, first)
	}
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
}

func TestRegisterSenderCapacity(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()

	for i := 0; i < config.MaxTracks; i++ {
		if slot := r.RegisterSender(uint64(i + 1)); slot == NoSlot {
			t.Fatalf("registration %d failed before capacity", i)
		}
	}
	if slot := r.RegisterSender(999); slot != NoSlot {
		t.Errorf("expected NoSlot past capacity, got %d", slot)
	}

	// Unregistering one frees exactly one slot for reuse.
	r.UnregisterSender(5)
	if slot := r.RegisterSender(999); slot == NoSlot {
		t.Error("expected a slot after unregistering one sender")
	}
	if slot := r.RegisterSender(1000); slot != NoSlot {
		t.Errorf("expected NoSlot again, got %d", slot)
	}
}

func TestUnregisterSenderUnknownID(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()
	r.RegisterSender(1)
	r.UnregisterSender(2) // no-op
	if got := r.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}
}

func TestTrackIndexClamping(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()

	if r.Track(-5) != r.Track(0) {
		t.Error("negative index should clamp to slot 0")
	}
	if r.Track(config.MaxTracks+10) != r.Track(config.MaxTracks-1) {
		t.Error("overflow index should clamp to last slot")
	}
}

func TestCleanupStale(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()

	slot := r.RegisterSender(7)
	fresh := r.RegisterSender(8)

	// Age the first slot past the timeout, keep the second fresh.
	r.Track(slot).lastUpdate.Store(nowMillis() - 5000)
	r.UpdateTimestamp(fresh)

	r.CleanupStale(2 * time.Second)

	if r.Track(slot).IsActive() {
		t.Error("stale slot should be deactivated")
	}
	if r.Track(slot).InstanceID() != 0 {
		t.Error("stale slot identity should be cleared")
	}
	if !r.Track(fresh).IsActive() {
		t.Error("fresh slot should remain active")
	}
}

func TestUpdateTimestampReactivates(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()

	slot := r.RegisterSender(3)
	r.Track(slot).active.Store(false) // simulate a sweep racing the producer
	r.UpdateTimestamp(slot)
	if !r.Track(slot).IsActive() {
		t.Error("UpdateTimestamp should re-assert activity on a live slot")
	}

	// Out-of-range slots are ignored, not clamped onto slot 0.
	before := r.Track(0).LastUpdate()
	r.UpdateTimestamp(-1)
	r.UpdateTimestamp(config.MaxTracks)
	if r.Track(0).LastUpdate() != before {
		t.Error("out-of-range UpdateTimestamp must not touch slot 0")
	}
}

func TestBandRoundTripAndBounds(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()
	slot := r.Track(r.RegisterSender(1))

	slot.SetBand(3, 0.25, 0.5)
	l, rr := slot.Band(3)
	if l != 0.25 || rr != 0.5 {
		t.Errorf("Band(3) = (%v, %v), want (0.25, 0.5)", l, rr)
	}

	// Out-of-range indices are ignored on write and zero on read.
	slot.SetBand(config.MaxBands, 1, 1)
	slot.SetBand(-1, 1, 1)
	if l, rr := slot.Band(config.MaxBands); l != 0 || rr != 0 {
		t.Errorf("out-of-range Band = (%v, %v), want zeros", l, rr)
	}
}

func TestSlotPublishMetadata(t *testing.T) {
	t.Parallel()
	r := NewSharedRegistry()
	slot := r.Track(r.RegisterSender(1))

	slot.SetColor(0xFFAA0011)
	if slot.Color() != 0xFFAA0011 {
		t.Errorf("Color = %#x, want 0xFFAA0011", slot.Color())
	}

	slot.SetNumBands(48)
	if slot.NumBands() != 48 {
		t.Errorf("NumBands = %d, want 48", slot.NumBands())
	}
	slot.SetNumBands(200)
	if slot.NumBands() != config.MaxBands {
		t.Errorf("NumBands = %d, want clamp to %d", slot.NumBands(), config.MaxBands)
	}
	slot.SetNumBands(1)
	if slot.NumBands() != config.MinBands {
		t.Errorf("NumBands = %d, want clamp to %d", slot.NumBands(), config.MinBands)
	}
}

func TestLocalRegistryLifecycleNoOps(t *testing.T) {
	t.Parallel()
	r := NewLocalRegistry()

	if got := r.ActiveCount(); got != config.LocalTracks {
		t.Fatalf("ActiveCount = %d, want %d", got, config.LocalTracks)
	}

	// Lifecycle operations change nothing.
	r.UpdateTimestamp(0)
	r.CleanupStale(time.Nanosecond)
	if got := r.ActiveCount(); got != config.LocalTracks {
		t.Errorf("ActiveCount after cleanup = %d, want %d", got, config.LocalTracks)
	}

	// Direct slot writes still apply.
	r.Track(0).SetBand(0, 0.7, 0.1)
	if l, _ := r.Track(0).Band(0); l != 0.7 {
		t.Errorf("local slot write lost: left = %v, want 0.7", l)
	}

	if r.Track(-1) != r.Track(0) || r.Track(1000) != r.Track(config.MaxTracks-1) {
		t.Error("local variant must clamp indices like the shared one")
	}
}

func TestAcquireReleaseShared(t *testing.T) {
	a := AcquireShared()
	b := AcquireShared()
	if a != b {
		t.Error("AcquireShared should return the same instance while referenced")
	}
	a.RegisterSender(77)

	ReleaseShared()
	if c := AcquireShared(); c != a {
		t.Error("instance should survive while one reference remains")
	}
	ReleaseShared()
	ReleaseShared()

	// All references dropped: a fresh Acquire starts clean.
	d := AcquireShared()
	defer ReleaseShared()
	if d == a && d.ActiveCount() != 0 {
		t.Error("expected a fresh registry after the last release")
	}
}

func TestSetBandHotPathZeroAllocs(t *testing.T) {
	r := NewSharedRegistry()
	slot := r.Track(r.RegisterSender(1))

	allocs := testing.AllocsPerRun(100, func() {
		for i := 0; i < config.MaxBands; i++ {
			slot.SetBand(i, 0.5, 0.5)
		}
		r.UpdateTimestamp(0)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in the publish hot path, got %.1f", allocs)
	}
}

func BenchmarkSetBand(b *testing.B) {
	r := NewSharedRegistry()
	slot := r.Track(r.RegisterSender(1))
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		for i := 0; i < config.DefaultBands; i++ {
			slot.SetBand(i, 0.25, 0.75)
		}
	}
}
