// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"time"

	"spectral/internal/config"
	"spectral/pkg/build"

	"github.com/spf13/cobra"
)

// ParseArgs builds the final configuration from, in order of precedence:
// CLI flags, environment variables, the YAML config file, built-in defaults.
// One-off commands (e.g. "list") are reported via Config.Command.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		configPath   string
		command      string
		mode         string
		deviceID     int
		channels     int
		sampleRate   float64
		framesPerBuf int
		lowLatency   bool
		highRes      bool
		rangeDB      float64
		colorARGB    uint32
		local        bool
		staleTimeout time.Duration
		record       bool
		outputFile   string
		wsEnabled    bool
		wsAddress    string
		udpEnabled   bool
		udpTarget    string
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "both",
		"Instance role: 'sender' analyzes audio, 'receiver' displays tracks, 'both' runs the full pipeline")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuf, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Analyzer Configuration
	rootCmd.PersistentFlags().BoolVar(&highRes, "high-res", false,
		fmt.Sprintf("Use %d analysis bands instead of %d", config.HighResBands, config.DefaultBands))
	rootCmd.PersistentFlags().Float64Var(&rangeDB, "range-db", config.DefaultRangeDB,
		fmt.Sprintf("Display dynamic range in dB, clamped to [%.0f, %.0f]", config.MinRangeDB, config.MaxRangeDB))
	rootCmd.PersistentFlags().Uint32Var(&colorARGB, "color", config.DefaultColorARGB,
		"Track color as packed ARGB (e.g. 0xFF00FFFF)")

	// Registry Configuration
	rootCmd.PersistentFlags().BoolVar(&local, "local", false,
		"Use the fixed local registry instead of the shared one")
	rootCmd.PersistentFlags().DurationVar(&staleTimeout, "stale-timeout", config.DefaultStaleTimeoutMs*time.Millisecond,
		"How long a silent track keeps its slot before reclamation")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record audio from the specified input device")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport Configuration
	rootCmd.PersistentFlags().BoolVar(&wsEnabled, "ws", false,
		"Broadcast JSON frames to WebSocket clients (receiver mode)")
	rootCmd.PersistentFlags().StringVar(&wsAddress, "ws-address", ":8080",
		"Listen address for the WebSocket server")
	rootCmd.PersistentFlags().BoolVar(&udpEnabled, "udp", false,
		"Send binary frames over UDP (receiver mode)")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "127.0.0.1:9090",
		"Target address for UDP frames")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Command = command

	// Flags the user actually set override the file and environment.
	flags := rootCmd.PersistentFlags()
	if flags.Changed("mode") {
		cfg.Mode = mode
	}
	if flags.Changed("device") {
		cfg.Audio.InputDevice = deviceID
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels = channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = framesPerBuf
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = lowLatency
	}
	if flags.Changed("high-res") {
		cfg.Analyzer.HighRes = highRes
	}
	if flags.Changed("range-db") {
		cfg.Analyzer.RangeDB = rangeDB
	}
	if flags.Changed("color") {
		cfg.Analyzer.ColorARGB = colorARGB
	}
	if flags.Changed("local") {
		cfg.Registry.Local = local
	}
	if flags.Changed("stale-timeout") {
		cfg.Registry.StaleTimeout = staleTimeout
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = record
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile = outputFile
	}
	if flags.Changed("ws") {
		cfg.Transport.WSEnabled = wsEnabled
	}
	if flags.Changed("ws-address") {
		cfg.Transport.WSAddress = wsAddress
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = udpEnabled
	}
	if flags.Changed("udp-target") {
		cfg.Transport.UDPTargetAddress = udpTarget
	}
	if verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
