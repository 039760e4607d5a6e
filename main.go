package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"spectral/cmd"
	"spectral/internal/audio"
	"spectral/internal/config"
	applog "spectral/internal/log"
	"spectral/internal/receiver"
	"spectral/internal/registry"
	"spectral/internal/sender"
	"spectral/internal/transport"
	"spectral/internal/transport/udp"
	"spectral/internal/tui"
	"spectral/pkg/build"
)

// main is the entry point for the spectral analyzer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse configuration and command line arguments
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Sender: capture audio, analyze, publish band levels to the registry
//   - Receiver: poll the registry, distribute snapshots, render the monitor
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Release registry slots and close transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for UI and I/O operations
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	// One-off commands run without the engine.
	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	switch cfg.Mode {
	case "sender":
		runSender(cfg)
	case "receiver":
		runReceiver(cfg)
	case "both":
		runBoth(cfg)
	}
}

// runSender captures from the input device, analyzes it, and publishes
// band levels to a track registry until interrupted.
func runSender(cfg *config.Config) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	var snd *sender.Sender
	if cfg.Registry.Local {
		provider := registry.NewLocalRegistry()
		snd = sender.NewFixed(provider, 0, cfg.Audio.SampleRate, cfg.Analyzer.ColorARGB)
	} else {
		reg := registry.AcquireShared()
		defer registry.ReleaseShared()
		snd = sender.New(reg, cfg.Audio.SampleRate, cfg.Analyzer.ColorARGB)
	}
	defer snd.Close()

	if cfg.Analyzer.HighRes {
		snd.SetHighRes(true)
	}
	if snd.Slot() == registry.NoSlot {
		applog.Warn("All registry slots are taken, running without publishing")
	}

	engine, err := audio.NewEngine(cfg, snd)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// The first callback after StartInputStream marks the start of the
	// hot path.
	if err := engine.StartInputStream(); err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	applog.Infof("Sender running on slot %d, Ctrl+C to stop", snd.Slot())
	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
}

// runReceiver polls the registry, pushes snapshots to any enabled
// transports, and renders the track monitor until the UI exits.
func runReceiver(cfg *config.Config) {
	var provider registry.Provider
	if cfg.Registry.Local {
		provider = registry.NewLocalRegistry()
	} else {
		provider = registry.AcquireShared()
		defer registry.ReleaseShared()
	}

	stopTransports := startTransports(cfg, provider)
	defer stopTransports()

	if err := tui.StartTrackMonitor(provider, cfg.Analyzer.RangeDB, cfg.Registry.StaleTimeout); err != nil {
		applog.Fatalf("%v", err)
	}
}

// runBoth hosts the producer and consumer in one process over the same
// registry instance: the capture engine publishes band levels while the
// transports and track monitor consume them.
func runBoth(cfg *config.Config) {
	var provider registry.Provider
	var snd *sender.Sender
	if cfg.Registry.Local {
		local := registry.NewLocalRegistry()
		provider = local
		snd = sender.NewFixed(local, 0, cfg.Audio.SampleRate, cfg.Analyzer.ColorARGB)
	} else {
		reg := registry.AcquireShared()
		defer registry.ReleaseShared()
		provider = reg
		snd = sender.New(reg, cfg.Audio.SampleRate, cfg.Analyzer.ColorARGB)
	}
	defer snd.Close()

	if cfg.Analyzer.HighRes {
		snd.SetHighRes(true)
	}

	engine, err := audio.NewEngine(cfg, snd)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if err := engine.StartInputStream(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing audio engine: %v", err)
		}
	}()

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	stopTransports := startTransports(cfg, provider)
	defer stopTransports()

	if err := tui.StartTrackMonitor(provider, cfg.Analyzer.RangeDB, cfg.Registry.StaleTimeout); err != nil {
		applog.Fatalf("%v", err)
	}
}

// startTransports wires the enabled snapshot transports over the given
// provider and returns a function that shuts them down.
func startTransports(cfg *config.Config, provider registry.Provider) func() {
	var closers []interface{ Close() error }

	if cfg.Transport.WSEnabled {
		wst := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		poller := receiver.NewPoller(provider, wst,
			cfg.Transport.RenderInterval, cfg.Registry.StaleTimeout, cfg.Analyzer.RangeDB)
		poller.Start()
		closers = append(closers, poller, wst)
	}

	if cfg.Transport.UDPEnabled {
		udpSender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.RenderInterval, udpSender, provider)
		if err != nil {
			applog.Fatalf("%v", err)
		}
		publisher.Start()
		closers = append(closers, publisher)
	}

	return func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				applog.Errorf("Error closing transport: %v", err)
			}
		}
	}
}
