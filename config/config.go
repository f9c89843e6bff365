package config

import (
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime configuration, loaded from environment variables.
type Config struct {
	// Visualization
	IntervalSeconds float64 // visible time window width
	Width           float64
	Height          float64
	FPS             int

	// Spectrum
	FFTBinCountLowRegister int // used when the lowest note is below LowRegisterThreshold
	FFTBinCountDefault     int
	LowRegisterThreshold   int

	// Server
	Port     int
	MediaDir string

	Debug bool
}

// Load reads configuration from environment variables with fallbacks.
func Load() Config {
	return Config{
		IntervalSeconds: envFloat("SINGVIZ_INTERVAL_SECONDS", 4),
		Width:           envFloat("SINGVIZ_WIDTH", 1280),
		Height:          envFloat("SINGVIZ_HEIGHT", 720),
		FPS:             envInt("SINGVIZ_FPS", 60),

		FFTBinCountLowRegister: envInt("SINGVIZ_FFT_BINS_LOW", 16384),
		FFTBinCountDefault:     envInt("SINGVIZ_FFT_BINS", 8192),
		LowRegisterThreshold:   envInt("SINGVIZ_LOW_THRESHOLD", 36),

		Port:     envInt("SINGVIZ_PORT", 8080),
		MediaDir: envStr("MEDIA_PATH", "./media"),

		Debug: envBool("SINGVIZ_DEBUG", false),
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.IntervalSeconds > 0) || math.IsInf(c.IntervalSeconds, 0):
		return errors.Wrapf(ErrInvalidConfig, "interval seconds must be positive, got %v", c.IntervalSeconds)
	case !(c.Width > 0) || !(c.Height > 0) || math.IsInf(c.Width, 0) || math.IsInf(c.Height, 0):
		return errors.Wrapf(ErrInvalidConfig, "canvas must be positive, got %vx%v", c.Width, c.Height)
	case c.FPS <= 0:
		return errors.Wrapf(ErrInvalidConfig, "fps must be positive, got %d", c.FPS)
	case !powerOfTwo(c.FFTBinCountLowRegister):
		return errors.Wrapf(ErrInvalidConfig, "low register bin count must be a power of two, got %d", c.FFTBinCountLowRegister)
	case !powerOfTwo(c.FFTBinCountDefault):
		return errors.Wrapf(ErrInvalidConfig, "bin count must be a power of two, got %d", c.FFTBinCountDefault)
	case c.Port <= 0 || c.Port > 65535:
		return errors.Wrapf(ErrInvalidConfig, "port out of range: %d", c.Port)
	}
	return nil
}

// BinCountFor picks the bin count for a timeline whose lowest drawn note is
// lowestNote. Low voices get the finer resolution.
func (c Config) BinCountFor(lowestNote int) int {
	if lowestNote < c.LowRegisterThreshold {
		return c.FFTBinCountLowRegister
	}
	return c.FFTBinCountDefault
}

// FFTSizeFor is the transform size matching BinCountFor.
func (c Config) FFTSizeFor(lowestNote int) int {
	return c.BinCountFor(lowestNote) * 2
}

func powerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
