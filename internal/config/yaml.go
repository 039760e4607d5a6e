// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML
// and optionally overridden by CLI flags and environment variables.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Mode      string          `yaml:"mode"`      // Instance role: "sender", "receiver" or "both".
	Command   string          `yaml:"-"`         // A one-off command to execute instead of running (e.g., "list").
	Audio     AudioConfig     `yaml:"audio"`     // Capture settings.
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`  // Spectral analysis settings.
	Registry  RegistryConfig  `yaml:"registry"`  // Shared track registry settings.
	Recording RecordingConfig `yaml:"recording"` // Input recording settings.
	Transport TransportConfig `yaml:"transport"` // Snapshot distribution settings.
}

// AudioConfig holds settings related to audio input capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Audio frames per callback buffer.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	Channels        int     `yaml:"channels"`          // Input channels to capture (2 for a stereo pair).
}

// AnalyzerConfig holds spectral analysis and display settings.
type AnalyzerConfig struct {
	HighRes   bool    `yaml:"high_res"`   // 48 bands instead of 24.
	RangeDB   float64 `yaml:"range_db"`   // Display dB range, clamped to [12, 60].
	ColorARGB uint32  `yaml:"color_argb"` // Track color published to the registry.
}

// RegistryConfig holds shared registry lifecycle settings.
type RegistryConfig struct {
	Local        bool          `yaml:"local"`         // Use the fixed-local variant (no lifecycle).
	StaleTimeout time.Duration `yaml:"stale_timeout"` // Slot reclamation timeout.
}

// RecordingConfig holds settings for recording the captured input.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the input stream to a WAV file.
	OutputFile string `yaml:"output_file"` // Destination path ("" for auto-generated).
}

// TransportConfig holds settings for distributing registry snapshots.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Broadcast JSON frames over WebSocket.
	WSAddress        string        `yaml:"ws_address"`         // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets.
	RenderInterval   time.Duration `yaml:"render_interval"`    // Interval between registry polls.
}

// DefaultConfig returns the built-in defaults used when no config file or
// overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Mode:     "both",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Channels:        DefaultChannels,
		},
		Analyzer: AnalyzerConfig{
			HighRes:   false,
			RangeDB:   DefaultRangeDB,
			ColorARGB: DefaultColorARGB,
		},
		Registry: RegistryConfig{
			Local:        false,
			StaleTimeout: DefaultStaleTimeoutMs * time.Millisecond,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSAddress:        ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			RenderInterval:   DefaultRenderIntervalMs * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it searches default locations ("spectral.yaml"). If no file is found,
// built-in defaults are used. After loading, environment variable overrides are
// applied and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		candidates := []string{
			"spectral.yaml",
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Mode != "sender" && c.Mode != "receiver" && c.Mode != "both" {
		return fmt.Errorf("mode must be \"sender\", \"receiver\" or \"both\", got %q", c.Mode)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside supported range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be at least 1, got %d", c.Audio.Channels)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
	}
	// Out-of-range display and timeout values are clamped, not rejected.
	c.Analyzer.RangeDB = ClampRangeDB(c.Analyzer.RangeDB)
	if c.Registry.StaleTimeout < MinStaleTimeoutMs*time.Millisecond {
		c.Registry.StaleTimeout = MinStaleTimeoutMs * time.Millisecond
	}
	if c.Registry.StaleTimeout > MaxStaleTimeoutMs*time.Millisecond {
		c.Registry.StaleTimeout = MaxStaleTimeoutMs * time.Millisecond
	}
	if c.Transport.RenderInterval <= 0 {
		c.Transport.RenderInterval = DefaultRenderIntervalMs * time.Millisecond
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() {
	// SPECTRAL_{...}
	// These are general overrides.

	if val, ok := os.LookupEnv("SPECTRAL_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRAL_MODE"); ok {
		cfg.Mode = val
	}

	// SPECTRAL_UDP_{...}
	// These are specific to the transport layer.

	if val, ok := os.LookupEnv("SPECTRAL_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("SPECTRAL_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("SPECTRAL_RENDER_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.RenderInterval = dur
		}
	}
}
