// SPDX-License-Identifier: MIT
/*
Package receiver implements the consumer side of the track registry: a
fixed-cadence poller that snapshots every active slot, converts linear
band levels to display heights, and hands the resulting frames to a
transport for rendering.

Consumers tolerate torn multi-field reads by design: a snapshot may mix
band values from two adjacent hops of the same producer. The data is a
continuously evolving display feed, so per-field eventual consistency is
the contract, not a defect to synchronize away.
*/
package receiver

import (
	"sync"
	"time"

	"spectral/internal/analysis"
	"spectral/internal/config"
	applog "spectral/internal/log"
	"spectral/internal/registry"
	"spectral/internal/transport"
)

// TrackSnapshot is one active track's display data at poll time.
type TrackSnapshot struct {
	Slot      int       `json:"slot"`
	ColorARGB uint32    `json:"color"`
	NumBands  int       `json:"numBands"`
	Left      []float64 `json:"left"`  // normalized heights in [0, 1]
	Right     []float64 `json:"right"` // normalized heights in [0, 1]
}

// Frame is one complete registry snapshot.
type Frame struct {
	Type        string          `json:"type"` // always "spectral_frame"
	Timestamp   int64           `json:"timestamp"`
	ActiveCount int             `json:"activeCount"`
	Tracks      []TrackSnapshot `json:"tracks"`
}

// LevelToHeight maps a linear amplitude to a display height in [0, 1]
// against the given dB range: silence sits at 0, full scale at 1.
func LevelToHeight(level, rangeDB float64) float64 {
	if level < config.SilenceFloor {
		return 0
	}
	db := analysis.LevelToDB(level)
	norm := (db + rangeDB) / rangeDB
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// Poller snapshots a registry Provider at a fixed cadence, runs the
// staleness sweep, and forwards frames to a Transport. It owns no audio
// state and never runs on a real-time thread.
type Poller struct {
	provider     registry.Provider
	transport    transport.Transport
	interval     time.Duration
	staleTimeout time.Duration
	rangeDB      float64

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewPoller creates a poller over the given provider. Invalid intervals
// fall back to the default render cadence.
func NewPoller(provider registry.Provider, tr transport.Transport, interval, staleTimeout time.Duration, rangeDB float64) *Poller {
	if interval <= 0 {
		interval = config.DefaultRenderIntervalMs * time.Millisecond
		applog.Warnf("Poller: invalid interval, defaulting to %s", interval)
	}
	return &Poller{
		provider:     provider,
		transport:    tr,
		interval:     interval,
		staleTimeout: staleTimeout,
		rangeDB:      config.ClampRangeDB(rangeDB),
	}
}

// Snapshot builds one frame from the current registry state. Inactive
// slots are skipped and band indices at or beyond a track's published
// count are ignored.
func (p *Poller) Snapshot() Frame {
	frame := Frame{
		Type:      "spectral_frame",
		Timestamp: time.Now().UnixMilli(),
	}

	for i := 0; i < config.MaxTracks; i++ {
		track := p.provider.Track(i)
		// Activity gates trust in the rest of the slot: once a slot
		// reads active, its identity and levels are meaningful.
		if !track.IsActive() {
			continue
		}
		n := track.NumBands()
		snap := TrackSnapshot{
			Slot:      i,
			ColorARGB: track.Color(),
			NumBands:  n,
			Left:      make([]float64, n),
			Right:     make([]float64, n),
		}
		for b := 0; b < n; b++ {
			l, r := track.Band(b)
			snap.Left[b] = LevelToHeight(float64(l), p.rangeDB)
			snap.Right[b] = LevelToHeight(float64(r), p.rangeDB)
		}
		frame.Tracks = append(frame.Tracks, snap)
	}
	frame.ActiveCount = len(frame.Tracks)
	return frame
}

// Start launches the polling goroutine. Safe to call once per
// Start/Stop cycle; a second call while running is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Poller: Start called but already running")
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Poller: started (interval %s, stale timeout %s)", p.interval, p.staleTimeout)
		for {
			select {
			case <-ticker.C:
				p.sweep()
			case <-doneChan:
				return
			}
		}
	}()
}

// sweep runs one poll cycle: reclaim stale slots, then distribute a
// fresh snapshot.
func (p *Poller) sweep() {
	p.provider.CleanupStale(p.staleTimeout)
	frame := p.Snapshot()
	if p.transport == nil {
		return
	}
	if err := p.transport.Send(frame); err != nil {
		applog.Errorf("Poller: error sending frame: %v", err)
	}
}

// Stop terminates the polling goroutine and waits for it to exit.
// Safe to call multiple times.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("Poller: stopped")
	return nil
}

// Close implements io.Closer.
func (p *Poller) Close() error { return p.Stop() }
