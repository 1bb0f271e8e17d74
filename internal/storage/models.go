package storage

import (
	"time"

	"github.com/wlansense/csi-capture/internal/csi"
)

// Session describes one capture session: a single controller enablement
// against one radio, with the configuration it ran under.
type Session struct {
	ID         int64
	StartTime  time.Time
	DeviceType string
	DeviceID   string
	Config     *string // Configuration in JSON format, if recorded
}

// FrameRecord is a captured CSI frame together with its persistence
// metadata. Timestamp is the collector-side wall clock; the frame itself
// carries the capture-side microsecond stamp.
type FrameRecord struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	Frame     csi.Frame
}

// LinkRecord is a stored Wi-Fi link status snapshot.
type LinkRecord struct {
	ID         int64
	SessionID  int64
	Timestamp  time.Time
	RSSI       *int64
	NoiseFloor *int64
	Channel    *int64
	TxPower    *int64
	Connected  bool
}
