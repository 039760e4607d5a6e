// SPDX-License-Identifier: MIT
/*
Package audio implements the live capture front-end for the sender role:
- Lock-free audio capture using PortAudio
- Stereo deinterleaving into the spectral analysis pipeline
- Peak level monitoring for the UI
- WAV recording with atomic state management

Thread Safety:
- Uses atomic operations for state management
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"spectral/internal/config"
	applog "spectral/internal/log"
	"spectral/internal/sender"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// Engine owns the PortAudio input stream and drives one Sender from the
// real-time callback.
type Engine struct {
	config *config.Config
	sender *sender.Sender

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Pre-allocated per-channel buffers for the analyzer.
	leftBuf  []float64
	rightBuf []float64

	// Peak amplitude of the most recent callback, float32 bits.
	peakBits atomic.Uint32

	// Recording state and buffers. recMu guards the encoder handoff
	// between Start/StopRecording and the callback; the callback only
	// ever try-locks it so it can never block on the UI thread.
	isRecording atomic.Int32
	recMu       sync.Mutex
	outputFile  closableFile
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine creates an engine capturing from the configured device and
// feeding snd. Buffers are sized once here; the callback never allocates.
func NewEngine(cfg *config.Config, snd *sender.Sender) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:      cfg,
		sender:      snd,
		inputDevice: inputDevice,
		leftBuf:     make([]float64, cfg.Audio.FramesPerBuffer),
		rightBuf:    make([]float64, cfg.Audio.FramesPerBuffer),
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return e, nil
}

// StartInputStream opens and starts the PortAudio stream. The first
// callback marks the start of the hot path.
func (e *Engine) StartInputStream() error {
	e.sender.Prepare(e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // capture only
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		return err
	}

	applog.Infof("Engine: input stream started (%s, %.0f Hz, %d frames)",
		e.inputDevice.Name, e.config.Audio.SampleRate, e.config.Audio.FramesPerBuffer)
	return nil
}

// StopInputStream stops and closes the stream, clearing held analyzer
// levels so the display does not freeze on the last frame.
func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}
		if err := e.inputStream.Close(); err != nil {
			return err
		}
		e.inputStream = nil
	}
	e.sender.Clear()
	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := e.deinterleave(in)
	e.sender.Process(e.leftBuf[:frames], e.rightBuf[:frames])

	if e.isRecording.Load() == 1 {
		e.writeRecording(in)
	}
}

// deinterleave splits the interleaved callback buffer into the
// pre-allocated left/right channel buffers and updates the peak monitor.
// Returns the number of frames written. Channels beyond the first stereo
// pair are ignored; mono input is duplicated to both channels.
func (e *Engine) deinterleave(in []float32) int {
	channels := e.config.Audio.Channels
	frames := len(in) / channels
	if frames > len(e.leftBuf) {
		frames = len(e.leftBuf)
	}

	var peak float32
	for i := 0; i < frames; i++ {
		l := in[i*channels]
		r := l
		if channels > 1 {
			r = in[i*channels+1]
		}
		e.leftBuf[i] = float64(l)
		e.rightBuf[i] = float64(r)

		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		if l > peak {
			peak = l
		}
		if r > peak {
			peak = r
		}
	}
	e.peakBits.Store(math.Float32bits(peak))
	return frames
}

// PeakLevel returns the peak absolute amplitude of the most recent
// callback buffer, in [0, 1] for in-range signals.
func (e *Engine) PeakLevel() float64 {
	return float64(math.Float32frombits(e.peakBits.Load()))
}

// Close stops any active recording and shuts the stream down.
func (e *Engine) Close() error {
	if e.isRecording.Load() == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return e.StopInputStream()
}
