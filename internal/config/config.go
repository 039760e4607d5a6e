package config

// Core constants shared by the analyzer, the registry, and the
// consumer-side components. The FFT geometry mirrors a 4096-point
// window with a quarter-window hop.
const (
	// FFT analysis geometry
	FFTSize = 4096        // Analysis window length in samples (power of 2)
	NumBins = FFTSize / 2 // Usable one-sided spectrum bins
	HopSize = FFTSize / 4 // Samples between successive analysis passes

	// Band partitioning
	MinBands     = 12 // Lower clamp for band count
	MaxBands     = 64 // Upper clamp for band count, also per-slot band capacity
	DefaultBands = 24 // Standard resolution
	HighResBands = 48 // High resolution mode
	MinFreqHz    = 20.0
	MaxFreqHz    = 20000.0

	// Registry sizing
	MaxTracks   = 16 // Fixed slot capacity of the shared registry
	LocalTracks = 8  // Permanently active slots in the local variant

	// Display
	DefaultColorARGB = 0xFF00FFFF // Cyan, fully opaque
	MinRangeDB       = 12.0
	MaxRangeDB       = 60.0
	DefaultRangeDB   = 36.0

	// Levels below this floor are treated as silence in dB conversion.
	SilenceFloor   = 1e-4
	SilenceFloorDB = -100.0

	// Default values for the capture engine configuration
	DefaultChannels        = 2           // Stereo pairs
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)

	// Consumer cadences and slot reclamation
	DefaultRenderIntervalMs  = 33   // ~30 Hz registry poll
	DefaultCounterIntervalMs = 100  // ~10 Hz track counter refresh
	DefaultStaleTimeoutMs    = 2000 // Slot reclaimed after this long without refresh
	MinStaleTimeoutMs        = 1000
	MaxStaleTimeoutMs        = 4000
)

// ClampBands limits a requested band count to the supported range.
// Out-of-range values are silently clamped, never rejected.
func ClampBands(n int) int {
	if n < MinBands {
		return MinBands
	}
	if n > MaxBands {
		return MaxBands
	}
	return n
}

// ClampRangeDB limits the display dB range to [12, 60].
func ClampRangeDB(r float64) float64 {
	if r < MinRangeDB {
		return MinRangeDB
	}
	if r > MaxRangeDB {
		return MaxRangeDB
	}
	return r
}
