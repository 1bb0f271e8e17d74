package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wlansense/csi-capture/internal/csi"
	"github.com/wlansense/csi-capture/internal/csi/sim"
)

const (
	VariantLegacy = "legacy" // ESP32, ESP32-S2, ESP32-S3, ESP32-C3
	VariantHE     = "he"     // ESP32-C5, ESP32-C6

	// Capacity bounds enforced here, at the embedding layer; the
	// controller applies whatever it is handed.
	minBufferFrames = 1
	maxBufferFrames = 1024

	maxShift = 15
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Radio    sim.Config    `yaml:"radio"`
	CSI      CSIConfig     `yaml:"csi"`
	Storage  StorageConfig `yaml:"storage"`
	Server   ServerConfig  `yaml:"server"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level maps the configured log level name onto slog levels, defaulting
// to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CSIConfig selects the acquisition variant and its parameters. Exactly
// one of the two variant blocks applies, matching the target chip
// family.
type CSIConfig struct {
	Variant      string       `yaml:"variant"` // "legacy" or "he"
	BufferFrames uint32       `yaml:"bufferFrames"`
	Legacy       LegacyConfig `yaml:"legacy"`
	HE           HEConfig     `yaml:"he"`
}

// LegacyConfig mirrors csi.LegacyAcquisition for YAML.
type LegacyConfig struct {
	LLTF          bool  `yaml:"lltf"`
	HTLTF         bool  `yaml:"htltf"`
	STBCHTLTF2    bool  `yaml:"stbcHtltf2"`
	LTFMerge      bool  `yaml:"ltfMerge"`
	ChannelFilter bool  `yaml:"channelFilter"`
	ManualScale   bool  `yaml:"manualScale"`
	Shift         uint8 `yaml:"shift"`
	DumpACK       bool  `yaml:"dumpAck"`
}

// HEConfig mirrors csi.HEAcquisition for YAML.
type HEConfig struct {
	AcquireLegacy     bool  `yaml:"acquireLegacy"`
	AcquireHT20       bool  `yaml:"acquireHt20"`
	AcquireHT40       bool  `yaml:"acquireHt40"`
	AcquireSU         bool  `yaml:"acquireSu"`
	AcquireMU         bool  `yaml:"acquireMu"`
	AcquireDCM        bool  `yaml:"acquireDcm"`
	AcquireBeamformed bool  `yaml:"acquireBeamformed"`
	AcquireHESTBC     bool  `yaml:"acquireHeStbc"`
	ScaleConfig       uint8 `yaml:"scaleConfig"`
	DumpACK           bool  `yaml:"dumpAck"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// ServerConfig configures the live frame streaming endpoint.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoadConfig reads and validates the application configuration.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		CSI: CSIConfig{
			Variant:      VariantLegacy,
			BufferFrames: csi.DefaultBufferFrames,
			Legacy: LegacyConfig{
				LLTF:          true,
				HTLTF:         true,
				STBCHTLTF2:    true,
				LTFMerge:      true,
				ChannelFilter: true,
			},
			HE: HEConfig{
				AcquireLegacy: true,
				AcquireHT20:   true,
				AcquireSU:     true,
			},
		},
		Storage: StorageConfig{MaxBatchSize: 100},
		Server:  ServerConfig{Listen: "localhost:8137"},
	}
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate enforces the argument contracts the controller relies on its
// caller for: variant selection, shift range and buffer capacity bounds.
func (c *Config) Validate() error {
	switch c.CSI.Variant {
	case VariantLegacy, VariantHE:
	default:
		return fmt.Errorf("csi: variant must be %q or %q: %q given", VariantLegacy, VariantHE, c.CSI.Variant)
	}

	if c.CSI.BufferFrames < minBufferFrames || c.CSI.BufferFrames > maxBufferFrames {
		return fmt.Errorf("csi: bufferFrames must be between %d and %d: %d given", minBufferFrames, maxBufferFrames, c.CSI.BufferFrames)
	}

	if c.CSI.Legacy.Shift > maxShift {
		return fmt.Errorf("csi: shift must be between 0 and %d: %d given", maxShift, c.CSI.Legacy.Shift)
	}

	if err := c.Radio.Validate(); err != nil {
		return err
	}
	return nil
}

// ControllerConfig builds the controller configuration from the
// validated application configuration.
func (c *Config) ControllerConfig() csi.Config {
	cfg := csi.Config{BufferFrames: c.CSI.BufferFrames}

	switch c.CSI.Variant {
	case VariantHE:
		cfg.Acquisition = csi.HEAcquisition{
			AcquireLegacy:     c.CSI.HE.AcquireLegacy,
			AcquireHT20:       c.CSI.HE.AcquireHT20,
			AcquireHT40:       c.CSI.HE.AcquireHT40,
			AcquireSU:         c.CSI.HE.AcquireSU,
			AcquireMU:         c.CSI.HE.AcquireMU,
			AcquireDCM:        c.CSI.HE.AcquireDCM,
			AcquireBeamformed: c.CSI.HE.AcquireBeamformed,
			AcquireHESTBC:     c.CSI.HE.AcquireHESTBC,
			ScaleConfig:       c.CSI.HE.ScaleConfig,
			DumpACK:           c.CSI.HE.DumpACK,
		}

	default:
		cfg.Acquisition = csi.LegacyAcquisition{
			LLTF:          c.CSI.Legacy.LLTF,
			HTLTF:         c.CSI.Legacy.HTLTF,
			STBCHTLTF2:    c.CSI.Legacy.STBCHTLTF2,
			LTFMerge:      c.CSI.Legacy.LTFMerge,
			ChannelFilter: c.CSI.Legacy.ChannelFilter,
			ManualScale:   c.CSI.Legacy.ManualScale,
			Shift:         c.CSI.Legacy.Shift,
			DumpACK:       c.CSI.Legacy.DumpACK,
		}
	}

	return cfg
}
