package csi

import "github.com/wlansense/csi-capture/internal/csi/driver"

// shiftMask limits manual-scale shift values to the 4-bit range the
// hardware accepts.
const shiftMask = 0x0F

// AcquisitionConfig is the chip-family-specific part of the controller
// configuration. Exactly one variant is active at a time; the controller
// builds the matching driver request from it on enable.
type AcquisitionConfig interface {
	request() driver.Request
	protocol() driver.Protocol
}

// LegacyAcquisition configures CSI acquisition on the original chip
// family (ESP32, ESP32-S2, ESP32-S3, ESP32-C3): one enable flag per
// training field.
type LegacyAcquisition struct {
	LLTF          bool
	HTLTF         bool
	STBCHTLTF2    bool
	LTFMerge      bool
	ChannelFilter bool
	ManualScale   bool
	Shift         uint8 // Masked to 0-15 before use
	DumpACK       bool
}

func (a LegacyAcquisition) request() driver.Request {
	return &driver.LegacyRequest{
		LLTF:          a.LLTF,
		HTLTF:         a.HTLTF,
		STBCHTLTF2:    a.STBCHTLTF2,
		LTFMerge:      a.LTFMerge,
		ChannelFilter: a.ChannelFilter,
		ManualScale:   a.ManualScale,
		Shift:         a.Shift & shiftMask,
		DumpACK:       a.DumpACK,
	}
}

func (a LegacyAcquisition) protocol() driver.Protocol {
	return driver.Protocol11BGN
}

// HEAcquisition configures CSI acquisition on Wi-Fi 6 chips (ESP32-C5,
// ESP32-C6): one acquire flag per packet class. AcquireLegacy or
// AcquireHT20 should normally stay on, otherwise the radio never
// delivers events.
type HEAcquisition struct {
	AcquireLegacy     bool
	AcquireHT20       bool
	AcquireHT40       bool
	AcquireSU         bool
	AcquireMU         bool
	AcquireDCM        bool
	AcquireBeamformed bool
	AcquireHESTBC     bool
	ScaleConfig       uint8
	DumpACK           bool
}

func (a HEAcquisition) request() driver.Request {
	return &driver.HERequest{
		Enable:            true,
		AcquireLegacy:     a.AcquireLegacy,
		AcquireHT20:       a.AcquireHT20,
		AcquireHT40:       a.AcquireHT40,
		AcquireSU:         a.AcquireSU,
		AcquireMU:         a.AcquireMU,
		AcquireDCM:        a.AcquireDCM,
		AcquireBeamformed: a.AcquireBeamformed,
		AcquireHESTBC:     a.AcquireHESTBC,
		ScaleConfig:       a.ScaleConfig & shiftMask,
		DumpACK:           a.DumpACK,
	}
}

func (a HEAcquisition) protocol() driver.Protocol {
	return driver.Protocol11BGNAX
}

// Config is the controller configuration: the acquisition variant for
// the target chip family plus the frame buffer capacity. Validation of
// caller-supplied values (shift range, buffer bounds) belongs to the
// embedding layer; the controller applies whatever it is given, masking
// only the scaling shift.
type Config struct {
	Acquisition  AcquisitionConfig
	BufferFrames uint32
}

// DefaultConfig mirrors the radio defaults: all legacy training fields
// enabled, automatic scaling, 128-frame buffer.
func DefaultConfig() Config {
	return Config{
		Acquisition: LegacyAcquisition{
			LLTF:          true,
			HTLTF:         true,
			STBCHTLTF2:    true,
			LTFMerge:      true,
			ChannelFilter: true,
		},
		BufferFrames: DefaultBufferFrames,
	}
}
