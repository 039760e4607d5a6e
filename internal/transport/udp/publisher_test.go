// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"spectral/internal/config"
	"spectral/internal/registry"
)

func newLoopbackPair(t *testing.T) (*UDPSender, *net.UDPConn) {
	t.Helper()
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to open loopback listener: %v", err)
	}
	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		listener.Close()
		t.Fatalf("failed to create sender: %v", err)
	}
	return sender, listener
}

func TestPublisherPacketFormat(t *testing.T) {
	sender, listener := newLoopbackPair(t)
	defer sender.Close()
	defer listener.Close()

	reg := registry.NewSharedRegistry()
	slot := reg.RegisterSender(1)
	track := reg.Track(slot)
	track.SetColor(0xFF112233)
	track.SetNumBands(config.MinBands)
	for i := 0; i < config.MinBands; i++ {
		track.SetBand(i, float32(i)*0.01, float32(i)*0.02)
	}

	pub, err := NewUDPPublisher(time.Second, sender, reg)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	pub.buildAndSendPacket()

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64*1024)
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("failed to receive packet: %v", err)
	}
	r := bytes.NewReader(buf[:n])

	var seq uint32
	var ts int64
	var count uint8
	if err := binary.Read(r, binary.BigEndian, &seq); err != nil {
		t.Fatalf("reading sequence: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &ts); err != nil {
		t.Fatalf("reading timestamp: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		t.Fatalf("reading track count: %v", err)
	}
	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}
	if count != 1 {
		t.Fatalf("track count = %d, want 1", count)
	}

	var slotIdx uint8
	var color uint32
	var bands uint16
	binary.Read(r, binary.BigEndian, &slotIdx)
	binary.Read(r, binary.BigEndian, &color)
	binary.Read(r, binary.BigEndian, &bands)
	if int(slotIdx) != slot || color != 0xFF112233 || int(bands) != config.MinBands {
		t.Errorf("track header = (%d, %#x, %d), want (%d, 0xFF112233, %d)",
			slotIdx, color, bands, slot, config.MinBands)
	}
	for i := 0; i < int(bands); i++ {
		var left, right float32
		binary.Read(r, binary.BigEndian, &left)
		if err := binary.Read(r, binary.BigEndian, &right); err != nil {
			t.Fatalf("reading band %d: %v", i, err)
		}
		if left != float32(i)*0.01 || right != float32(i)*0.02 {
			t.Errorf("band %d = (%v, %v), want (%v, %v)", i, left, right,
				float32(i)*0.01, float32(i)*0.02)
		}
	}
	if r.Len() != 0 {
		t.Errorf("%d unexpected trailing bytes", r.Len())
	}
}

// TestPacketCountMatchesRecordsUnderChurn verifies the header's track
// count always matches the records that follow, even while slots are
// concurrently claimed and released between packets being built.
func TestPacketCountMatchesRecordsUnderChurn(t *testing.T) {
	sender, listener := newLoopbackPair(t)
	defer sender.Close()
	defer listener.Close()

	reg := registry.NewSharedRegistry()
	slot := reg.RegisterSender(1)
	reg.Track(slot).SetNumBands(config.MinBands)

	pub, err := NewUDPPublisher(time.Second, sender, reg)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			id := uint64(2 + i%4)
			if s := reg.RegisterSender(id); s != registry.NoSlot {
				reg.Track(s).SetNumBands(config.MinBands)
			}
			reg.UnregisterSender(id)
		}
	}()
	defer func() {
		close(stop)
		<-stopped
	}()

	buf := make([]byte, 64*1024)
	for i := 0; i < 2000; i++ {
		pub.buildAndSendPacket()

		listener.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("packet %d: receive failed: %v", i, err)
		}
		r := bytes.NewReader(buf[:n])

		var seq uint32
		var ts int64
		var count uint8
		binary.Read(r, binary.BigEndian, &seq)
		binary.Read(r, binary.BigEndian, &ts)
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			t.Fatalf("packet %d: reading track count: %v", i, err)
		}

		for rec := 0; rec < int(count); rec++ {
			var slotIdx uint8
			var color uint32
			var bands uint16
			binary.Read(r, binary.BigEndian, &slotIdx)
			binary.Read(r, binary.BigEndian, &color)
			if err := binary.Read(r, binary.BigEndian, &bands); err != nil {
				t.Fatalf("packet %d: header says %d tracks but record %d is truncated",
					i, count, rec)
			}
			levels := make([]byte, int(bands)*8)
			if _, err := io.ReadFull(r, levels); err != nil {
				t.Fatalf("packet %d: record %d missing band levels: %v", i, rec, err)
			}
		}
		if r.Len() != 0 {
			t.Fatalf("packet %d: header says %d tracks but %d bytes of extra records follow",
				i, count, r.Len())
		}
	}
}

func TestPublisherStartStop(t *testing.T) {
	sender, listener := newLoopbackPair(t)
	defer sender.Close()
	defer listener.Close()

	pub, err := NewUDPPublisher(5*time.Millisecond, sender, registry.NewLocalRegistry())
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	pub.Start()
	pub.Start() // second Start is a no-op

	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64*1024)
	if _, _, err := listener.ReadFromUDP(buf); err != nil {
		t.Fatalf("no packet published: %v", err)
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop returned error: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop returned error: %v", err)
	}
}

func TestNewUDPPublisherValidation(t *testing.T) {
	if _, err := NewUDPPublisher(time.Second, nil, registry.NewLocalRegistry()); err == nil {
		t.Error("expected error for nil sender")
	}
	sender, listener := newLoopbackPair(t)
	defer sender.Close()
	defer listener.Close()
	if _, err := NewUDPPublisher(time.Second, sender, nil); err == nil {
		t.Error("expected error for nil provider")
	}
}
