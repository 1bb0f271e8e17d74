// Package telemetry describes the Wi-Fi link state of the capture
// station. Link telemetry is sampled alongside CSI frames so recorded
// sessions carry the radio conditions they were captured under.
package telemetry

import (
	"time"
)

type Provider interface {
	Get() *LinkStatus
}

// LinkStatus is a snapshot of the station's Wi-Fi link. Fields the
// provider cannot observe are nil.
type LinkStatus struct {
	Timestamp  time.Time // When the snapshot was taken
	RSSI       *int64    // Link RSSI in dBm
	NoiseFloor *int64    // Noise floor in dBm
	Channel    *int64    // Primary channel number
	TxPower    *int64    // Transmit power in quarter-dBm
	Connected  bool      // Whether the station is associated
}
