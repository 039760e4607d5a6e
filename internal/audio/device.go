// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Device is a snapshot of one PortAudio device, decoupled from the
// PortAudio handle so it can be listed and formatted without holding
// the subsystem open.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	IsDefaultInput    bool
}

// Direction classifies the device by its channel counts.
func (d Device) Direction() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	}
	return "None"
}

// Describe renders the device as a multi-line block for device listings.
// The default input device is marked with an asterisk.
func (d Device) Describe() string {
	marker := " "
	if d.IsDefaultInput {
		marker = "*"
	}
	return fmt.Sprintf("%s[%d] %s (%s)\n"+
		"    Input channels: %d, Output channels: %d\n"+
		"    Default sample rate: %.0f Hz\n"+
		"    Input latency: low %.2fms, high %.2fms\n",
		marker, d.ID, d.Name, d.Direction(),
		d.MaxInputChannels, d.MaxOutputChannels,
		d.DefaultSampleRate,
		d.LowInputLatency.Seconds()*1000,
		d.HighInputLatency.Seconds()*1000)
}

func fromDeviceInfo(id int, info *portaudio.DeviceInfo, defaultInput *portaudio.DeviceInfo) Device {
	return Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency,
		HighInputLatency:  info.DefaultHighInputLatency,
		IsDefaultInput:    defaultInput != nil && info.Name == defaultInput.Name,
	}
}

// GetDevices enumerates all audio devices visible to PortAudio. It
// brackets its own Initialize/Terminate pair, so it is safe to call
// whether or not the subsystem is already up (PortAudio ref-counts).
func GetDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = fromDeviceInfo(i, info, defaultInput)
	}
	return devices, nil
}
