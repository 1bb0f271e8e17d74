package csi

const (
	// MaxDataLen is the maximum CSI payload size in bytes: 64 subcarriers
	// at HT20 × 2 (I, Q) int8 samples.
	MaxDataLen = 128

	// DefaultBufferFrames is the default ring buffer capacity in frames.
	DefaultBufferFrames = 128
)

// Frame is a single captured CSI observation together with its radio
// metadata. It is a fixed-layout value type: copying a Frame never
// allocates, which the producer path depends on.
//
// Fields the active chip family does not report are left zero.
type Frame struct {
	RSSI             int8             // Received signal strength in dBm
	Rate             uint8            // PHY data rate index
	MAC              [6]byte          // Source hardware address
	TimestampMicros  uint32           // Capture-side microsecond clock, stamped in the callback
	Data             [MaxDataLen]int8 // Raw I/Q sample pairs
	Len              uint16           // Valid prefix of Data, in bytes
	SigMode          uint8            // Signal mode (legacy, HT, VHT)
	MCS              uint8            // Modulation and coding scheme index
	ChannelBandwidth uint8            // Channel bandwidth (0: 20MHz, 1: 40MHz)
	Smoothing        uint8            // Channel smoothing applied
	NotSounding      uint8            // Not a sounding frame
	Aggregation      uint8            // AMPDU aggregation
	STBC             uint8            // Space-time block coding
	FECCoding        uint8            // LDPC FEC coding
	SGI              uint8            // Short guard interval
	NoiseFloor       int8             // Noise floor in dBm
	AMPDUCount       uint16           // AMPDU frame count
	Channel          uint8            // Primary channel number
	SecondaryChannel uint8            // Secondary channel position
	LocalTimestamp   uint32           // Driver-reported local timestamp
	Antenna          uint16           // Receive antenna index
	SigLen           uint16           // Signal length in bytes
	RxState          uint32           // Receive state code
}

// Payload returns the valid I/Q samples of the frame. The returned slice
// aliases the frame's inline buffer.
func (f *Frame) Payload() []int8 {
	return f.Data[:f.Len]
}
