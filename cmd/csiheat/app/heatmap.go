package app

import (
	"math"
	"time"

	"github.com/wlansense/csi-capture/internal/analysis"
	"github.com/wlansense/csi-capture/internal/storage"
)

// HeatmapData accumulates per-frame subcarrier amplitudes into a
// time-by-subcarrier matrix. Each stored frame contributes one row; the
// row order follows the capture order.
type HeatmapData struct {
	Width, Height                int
	TimestampStart, TimestampEnd time.Time
	BoundsTracker                *SmoothBounds
	Rows                         [][]*float64
}

func NewHeatmapData(b *SmoothBounds) *HeatmapData {
	return &HeatmapData{
		BoundsTracker: b,
		Rows:          make([][]*float64, 0),
	}
}

// Update appends a frame's amplitude profile to the matrix. Amplitudes
// are converted to dB relative to unit magnitude; a zero magnitude has
// no defined level and renders as no-data.
func (h *HeatmapData) Update(rec *storage.FrameRecord) {
	amps := analysis.Amplitudes(rec.Frame.Payload())

	h.Width = max(h.Width, len(amps))
	h.Height++

	if h.TimestampStart.IsZero() || h.TimestampStart.After(rec.Timestamp) {
		h.TimestampStart = rec.Timestamp
	}
	if h.TimestampEnd.IsZero() || h.TimestampEnd.Before(rec.Timestamp) {
		h.TimestampEnd = rec.Timestamp
	}

	levels := make([]*float64, len(amps))
	for i, amp := range amps {
		if amp <= 0 {
			continue
		}

		level := 20 * math.Log10(amp)
		levels[i] = &level
		h.BoundsTracker.Update(&level)
	}
	h.Rows = append(h.Rows, levels)
}
