// Package driver defines the contract between the CSI pipeline and an
// ESP32-class Wi-Fi radio driver. The controller sequences these calls;
// concrete drivers (hardware bindings, or the simulator in the sim
// package) implement them.
package driver

// Protocol selects the 802.11 link protocol set for the station
// interface.
type Protocol uint8

const (
	// Protocol11BGN is 802.11b/g/n, the widest set the original ESP32
	// family supports.
	Protocol11BGN Protocol = iota

	// Protocol11BGNAX adds 802.11ax for Wi-Fi 6 capable chips.
	Protocol11BGNAX
)

// Bandwidth selects the station channel bandwidth.
type Bandwidth uint8

const (
	BandwidthHT20 Bandwidth = iota // 20 MHz
	BandwidthHT40                  // 40 MHz
)

// RxControl carries the per-frame radio metadata the driver reports with
// each CSI event. Chips with a reduced metadata set leave the fields they
// do not expose at zero.
type RxControl struct {
	RSSI             int8
	Rate             uint8
	SigMode          uint8
	MCS              uint8
	ChannelBandwidth uint8
	Smoothing        uint8
	NotSounding      uint8
	Aggregation      uint8
	STBC             uint8
	FECCoding        uint8
	SGI              uint8
	NoiseFloor       int8
	AMPDUCount       uint16
	Channel          uint8
	SecondaryChannel uint8
	Timestamp        uint32 // Driver-local timestamp
	Antenna          uint16
	SigLen           uint16
	RxState          uint32
}

// Event is the driver-native record passed to the registered callback
// once per received frame carrying CSI. Payload aliases driver memory
// and is only valid for the duration of the callback; the callback must
// copy what it keeps.
type Event struct {
	MAC [6]byte
	RxControl
	Payload []int8
}

// Callback is invoked by the driver per CSI event. It runs under
// interrupt-level constraints: it must not block, must not allocate and
// must complete in bounded time.
type Callback func(*Event)

// Request is the chip-specific CSI acquisition configuration. Exactly
// one concrete shape exists per chip family; the controller builds the
// one matching its configured variant.
type Request interface {
	csiRequest()
}

// LegacyRequest is the acquisition shape for ESP32, ESP32-S2, ESP32-S3
// and ESP32-C3: per-training-field enable flags plus manual scaling.
type LegacyRequest struct {
	LLTF          bool  // Capture L-LTF (802.11a/g training field)
	HTLTF         bool  // Capture HT-LTF (802.11n training field)
	STBCHTLTF2    bool  // Capture the second HT-LTF of STBC frames
	LTFMerge      bool  // Average L-LTF and HT-LTF for HT frames
	ChannelFilter bool  // Smooth adjacent subcarriers
	ManualScale   bool  // Manual instead of automatic scaling
	Shift         uint8 // Scaling shift, 0-15, used with ManualScale
	DumpACK       bool  // Also capture 802.11 ACK frames
}

func (*LegacyRequest) csiRequest() {}

// HERequest is the acquisition shape for Wi-Fi 6 chips (ESP32-C5,
// ESP32-C6): per-packet-class acquire flags plus a scale configuration.
// At least one acquire flag must be set or the radio never invokes the
// callback.
type HERequest struct {
	Enable            bool  // Master acquisition enable
	AcquireLegacy     bool  // L-LTF CSI from 802.11a/g frames
	AcquireHT20       bool  // HT-LTF CSI from 802.11n HT20 frames
	AcquireHT40       bool  // HT-LTF CSI from 802.11n HT40 frames
	AcquireSU         bool  // HE-LTF CSI from 802.11ax single-user frames
	AcquireMU         bool  // HE-LTF CSI from 802.11ax multi-user frames
	AcquireDCM        bool  // CSI from dual carrier modulation frames
	AcquireBeamformed bool  // CSI from beamformed frames
	AcquireHESTBC     bool  // CSI from HE STBC frames (ignored on ESP32-C5)
	ScaleConfig       uint8 // 0 automatic, 1-8 manual shift
	DumpACK           bool  // Also capture 802.11 ACK frames
}

func (*HERequest) csiRequest() {}

// Driver is the set of radio operations the CSI controller sequences.
// All calls are made from task context. The order the controller applies
// them in is chip-mandated and must not be reordered by implementations.
type Driver interface {
	// SetProtocol selects the station link protocol set. Best effort:
	// the controller tolerates failure.
	SetProtocol(p Protocol) error

	// SetBandwidth selects the station channel bandwidth. Best effort.
	SetBandwidth(bw Bandwidth) error

	// SetPromiscuous toggles promiscuous mode. Calling it, even with
	// false, primes driver-internal state some chips require before CSI
	// configuration; the controller treats failure as fatal.
	SetPromiscuous(enable bool) error

	// ApplyCSIConfig applies the acquisition configuration.
	ApplyCSIConfig(req Request) error

	// RegisterCallback registers the per-frame CSI callback.
	RegisterCallback(cb Callback) error

	// SetCSI toggles the master CSI capture flag. Must be the last call
	// of the enablement sequence.
	SetCSI(enable bool) error
}
