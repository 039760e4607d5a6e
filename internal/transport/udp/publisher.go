// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"spectral/internal/config"
	applog "spectral/internal/log"
	"spectral/internal/registry"
)

// UDPPublisher periodically snapshots the track registry, packs the
// active slots into a binary packet, and sends it over UDP using a
// UDPSender. It runs in a goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	provider registry.Provider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32

	// Reusable buffer for constructing the binary packet.
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher. If the
// provided interval is invalid (<= 0), it defaults to ~30Hz.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, provider registry.Provider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("UDPPublisher: registry provider cannot be nil")
	}

	if interval <= 0 {
		interval = config.DefaultRenderIntervalMs * time.Millisecond
		applog.Warnf("UDPPublisher: invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: initializing (interval: %s)", interval)

	return &UDPPublisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Safe to call multiple
// times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running")
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
		applog.Infof("UDPPublisher: publisher goroutine started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and
// waits for it to exit. Safe to call multiple times.
func (p *UDPPublisher) Stop() error {
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
	applog.Infof("UDPPublisher: publisher goroutine finished")
	return nil
}

/*
UDP Packet Structure (BigEndian):

+------------------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description               |
|-----------------|-----------|--------------|---------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing  |
| Timestamp       | int64     | 8            | Nanoseconds since epoch   |
| Track Count     | uint8     | 1            | Active tracks (T)         |
| Tracks          | T records | variable     | One record per track      |
+------------------------------------------------------------------------+

Per-track record:

+------------------------------------------------------------------------+
| Slot Index      | uint8     | 1            | Registry slot             |
| Color           | uint32    | 4            | Packed ARGB               |
| Band Count      | uint16    | 2            | Meaningful bands (N)      |
| Band Levels     | []float32 | N * 8        | N pairs of (left, right)  |
+------------------------------------------------------------------------+
*/

// buildAndSendPacket packs the active registry slots into one binary
// packet and sends it. Levels are transmitted linear; display mapping is
// the client's concern.
func (p *UDPPublisher) buildAndSendPacket() {
	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	p.packetBuffer.Reset()

	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}

	// The count byte is written as a placeholder and patched after the
	// records are serialized. Counting in a separate scan would race
	// concurrent (de)registration and desynchronize header and body.
	countOffset := p.packetBuffer.Len()
	if err == nil {
		err = p.packetBuffer.WriteByte(0)
	}

	var count uint8
	for i := 0; i < config.MaxTracks && err == nil; i++ {
		track := p.provider.Track(i)
		if !track.IsActive() {
			continue
		}
		count++
		n := track.NumBands()
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint8(i))
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, track.Color())
		}
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(n))
		}
		for b := 0; b < n && err == nil; b++ {
			left, right := track.Band(b)
			if err = binary.Write(p.packetBuffer, binary.BigEndian, left); err == nil {
				err = binary.Write(p.packetBuffer, binary.BigEndian, right)
			}
		}
	}

	if err != nil {
		applog.Errorf("UDPPublisher: error packing data into binary buffer: %v", err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()
	packetBytes[countOffset] = count
	if err := p.sender.Send(packetBytes); err == nil {
		applog.Debugf("UDPPublisher: sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
