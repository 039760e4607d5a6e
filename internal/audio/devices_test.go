// SPDX-License-Identifier: MIT
package audio

import (
	"strings"
	"testing"
	"time"
)

func TestDeviceDirection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, out  int
		expected string
	}{
		{2, 2, "Input/Output"},
		{2, 0, "Input"},
		{0, 2, "Output"},
		{0, 0, "None"},
	}
	for _, tc := range cases {
		d := Device{MaxInputChannels: tc.in, MaxOutputChannels: tc.out}
		if got := d.Direction(); got != tc.expected {
			t.Errorf("Direction(%d in, %d out) = %q, want %q", tc.in, tc.out, got, tc.expected)
		}
	}
}

func TestDeviceDescribe(t *testing.T) {
	t.Parallel()

	d := Device{
		ID:                3,
		Name:              "USB Interface",
		MaxInputChannels:  2,
		MaxOutputChannels: 0,
		DefaultSampleRate: 48000,
		LowInputLatency:   5 * time.Millisecond,
		HighInputLatency:  20 * time.Millisecond,
		IsDefaultInput:    true,
	}

	desc := d.Describe()
	for _, want := range []string{"*[3] USB Interface (Input)", "48000 Hz", "low 5.00ms, high 20.00ms"} {
		if !strings.Contains(desc, want) {
			t.Errorf("Describe() missing %q in:\n%s", want, desc)
		}
	}

	d.IsDefaultInput = false
	if strings.Contains(d.Describe(), "*") {
		t.Error("non-default device must not carry the default marker")
	}
}
