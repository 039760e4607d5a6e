// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"os"

	applog "spectral/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordingBitDepth = 32

// closableFile is what the WAV encoder needs from its destination.
type closableFile interface {
	io.WriteSeeker
	io.Closer
}

// StartRecording begins capturing the raw input stream to a 32-bit WAV
// file. Safe to call while the stream is running; the callback picks up
// the state change on its next invocation.
func (e *Engine) StartRecording(outputFile string) error {
	if e.isRecording.Load() == 1 {
		return fmt.Errorf("recording already in progress")
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	e.outputFile = f
	e.wavEncoder = wav.NewEncoder(f,
		int(e.config.Audio.SampleRate),
		recordingBitDepth,
		e.config.Audio.Channels,
		1, // PCM format
	)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.config.Audio.Channels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*e.config.Audio.Channels),
		SourceBitDepth: recordingBitDepth,
	}

	e.isRecording.Store(1)
	applog.Infof("Engine: recording to %s", outputFile)
	return nil
}

// StopRecording finalizes the WAV header and closes the file. Taking
// recMu here means a callback mid-write finishes before the encoder is
// torn down.
func (e *Engine) StopRecording() error {
	if e.isRecording.Swap(0) == 0 {
		return nil
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	var firstErr error
	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			firstErr = fmt.Errorf("close wav encoder: %w", err)
		}
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close recording file: %w", err)
		}
		e.outputFile = nil
	}
	e.sampleBuf = nil

	applog.Info("Engine: recording stopped")
	return firstErr
}

// writeRecording converts the float32 callback buffer to scaled ints and
// appends it to the encoder. Called from the audio callback; reuses
// sampleBuf to stay allocation-free. TryLock keeps the callback
// non-blocking: when Stop holds the lock the buffer is dropped, which
// only shortens the tail of the recording.
func (e *Engine) writeRecording(in []float32) {
	if !e.recMu.TryLock() {
		return
	}
	defer e.recMu.Unlock()

	buf := e.sampleBuf
	if buf == nil || e.wavEncoder == nil {
		return
	}
	n := len(in)
	if n > len(buf.Data) {
		n = len(buf.Data)
	}
	const scale = 1 << (recordingBitDepth - 1)
	for i := 0; i < n; i++ {
		s := in[i]
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		buf.Data[i] = int(s * (scale - 1))
	}
	buf.Data = buf.Data[:n]

	if err := e.wavEncoder.Write(buf); err != nil {
		applog.Errorf("Engine: recording write failed: %v", err)
		e.isRecording.Store(0)
	}
	buf.Data = buf.Data[:cap(buf.Data)]
}
