package sim

import (
	"fmt"
)

const (
	// DefaultFrameRate is the synthetic CSI event rate in frames per
	// second. Real traffic against a quiet AP lands in this region.
	DefaultFrameRate = 50.0

	// DefaultSubcarriers matches HT20: 64 subcarriers, 128 I/Q bytes.
	DefaultSubcarriers = 64

	MaxSubcarriers = 128
)

// Config shapes the synthetic traffic the simulated radio produces.
// Zero values fall back to defaults.
type Config struct {
	FrameRate   float64 `yaml:"frameRate"`   // Events per second
	Subcarriers int     `yaml:"subcarriers"` // Subcarriers per event (payload is 2x bytes)
	Channel     uint8   `yaml:"channel"`     // Primary channel number
	RSSI        int     `yaml:"rssi"`        // Base RSSI in dBm, jittered per event
	NoiseFloor  int     `yaml:"noiseFloor"`  // Reported noise floor in dBm
	Source      [6]byte `yaml:"-"`           // Source MAC, set via SourceMAC
	SourceMAC   string  `yaml:"sourceMAC"`   // Source MAC as aa:bb:cc:dd:ee:ff

	// Channel model parameters.
	Amplitude      float64 `yaml:"amplitude"`      // Peak I/Q amplitude
	NoiseAmplitude float64 `yaml:"noiseAmplitude"` // Additive noise amplitude
	PhaseDrift     float64 `yaml:"phaseDrift"`     // Radians of phase drift per event
	DelaySlope     float64 `yaml:"delaySlope"`     // Phase slope across subcarriers
}

// Validate checks the ranges of the configured values.
func (c *Config) Validate() error {
	if c.FrameRate < 0 {
		return fmt.Errorf("sim.Config: frame rate must be positive: %f given", c.FrameRate)
	}
	if c.Subcarriers < 0 || c.Subcarriers > MaxSubcarriers {
		return fmt.Errorf("sim.Config: subcarriers must be between 1 and %d: %d given", MaxSubcarriers, c.Subcarriers)
	}
	if c.SourceMAC != "" {
		if _, err := parseMAC(c.SourceMAC); err != nil {
			return fmt.Errorf("sim.Config: %w", err)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.FrameRate == 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.Subcarriers == 0 {
		c.Subcarriers = DefaultSubcarriers
	}
	if c.Channel == 0 {
		c.Channel = 6
	}
	if c.RSSI == 0 {
		c.RSSI = -55
	}
	if c.NoiseFloor == 0 {
		c.NoiseFloor = -92
	}
	if c.Amplitude == 0 {
		c.Amplitude = 40
	}
	if c.NoiseAmplitude == 0 {
		c.NoiseAmplitude = 4
	}
	if c.PhaseDrift == 0 {
		c.PhaseDrift = 0.05
	}
	if c.DelaySlope == 0 {
		c.DelaySlope = 0.01
	}
	if c.SourceMAC != "" {
		c.Source, _ = parseMAC(c.SourceMAC)
	}
	if c.Source == [6]byte{} {
		c.Source = [6]byte{0x02, 0x32, 0x45, 0x53, 0x50, 0x01}
	}
	return c
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&mac[0], &mac[1], &mac[2], &mac[3], &mac[4], &mac[5])
	if err != nil || n != 6 {
		return mac, fmt.Errorf("invalid MAC address %q", s)
	}
	return mac, nil
}
