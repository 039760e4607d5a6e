// SPDX-License-Identifier: MIT
package registry

import (
	"sync"
	"testing"
	"time"

	"spectral/internal/config"
)

// Concurrent-safety property: producers hammering their own slots while
// readers scan the whole table must never observe a crash, an
// out-of-bounds access, or an amplitude outside the published range.
// Run with -race for full effect.
func TestConcurrentProducersAndReaders(t *testing.T) {
	const (
		producers = 8
		readers   = 4
		duration  = 200 * time.Millisecond
	)

	r := NewSharedRegistry()
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			slot := r.RegisterSender(id)
			if slot == NoSlot {
				t.Errorf("producer %d failed to register", id)
				return
			}
			track := r.Track(slot)
			level := float32(0)
			for {
				select {
				case <-stop:
					return
				default:
				}
				level += 0.001
				if level > 1 {
					level = 0
				}
				track.SetNumBands(config.DefaultBands)
				for i := 0; i < config.DefaultBands; i++ {
					track.SetBand(i, level, level/2)
				}
				r.UpdateTimestamp(slot)
			}
		}(uint64(p + 1))
	}

	for m := 0; m < readers; m++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for i := 0; i < config.MaxTracks; i++ {
					track := r.Track(i)
					if !track.IsActive() {
						continue
					}
					n := track.NumBands()
					for b := 0; b < n; b++ {
						l, rr := track.Band(b)
						if l < 0 || l > 1.5 || rr < 0 || rr > 1.5 {
							t.Errorf("slot %d band %d outside valid range: (%v, %v)", i, b, l, rr)
							return
						}
					}
				}
				_ = r.ActiveCount()
			}
		}()
	}

	// A sweeper running alongside must never break the producers: they
	// refresh continuously, so nothing is actually stale.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.CleanupStale(config.DefaultStaleTimeoutMs * time.Millisecond)
			}
		}
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()

	if got := r.ActiveCount(); got != producers {
		t.Errorf("ActiveCount after run = %d, want %d", got, producers)
	}
}
