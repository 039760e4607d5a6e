// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"

	"spectral/internal/config"

	"github.com/gordonklaus/portaudio"
)

// Initialize brings up the PortAudio subsystem. Must precede any other
// audio call and be paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down. Defer it right after a
// successful Initialize.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice resolves a device ID to a capture-capable device.
// MinDeviceID (-1) selects the system default input. IDs that are out
// of range or name a device without input channels are errors.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("device ID %d out of range [0, %d]", deviceID, len(devices)-1)
	}
	device := devices[deviceID]
	if device.MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) has no input channels", deviceID, device.Name)
	}
	return device, nil
}

// ListDevices prints every audio device to stdout, with the system
// default input marked.
func ListDevices() error {
	devices, err := GetDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nAvailable Audio Devices (* = default input)\n\n")
	for _, d := range devices {
		fmt.Fprintln(os.Stdout, d.Describe())
	}
	return nil
}
