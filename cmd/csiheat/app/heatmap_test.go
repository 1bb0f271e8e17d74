package app

import (
	"math"
	"testing"
	"time"

	"github.com/wlansense/csi-capture/internal/csi"
	"github.com/wlansense/csi-capture/internal/storage"
)

func recordWithPayload(ts time.Time, samples []int8) *storage.FrameRecord {
	var f csi.Frame
	copy(f.Data[:], samples)
	f.Len = uint16(len(samples))

	return &storage.FrameRecord{Timestamp: ts, Frame: f}
}

func TestHeatmapData_Update(t *testing.T) {
	data := NewHeatmapData(NewSmoothBounds(0.3))

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	data.Update(recordWithPayload(t1, []int8{3, 4, 0, 0})) // |(3,4)| = 5, |(0,0)| = 0
	data.Update(recordWithPayload(t0, []int8{10, 0}))      // |(10,0)| = 10

	if data.Height != 2 {
		t.Errorf("Height = %d, want 2", data.Height)
	}
	if data.Width != 2 {
		t.Errorf("Width = %d, want 2", data.Width)
	}
	if !data.TimestampStart.Equal(t0) || !data.TimestampEnd.Equal(t1) {
		t.Errorf("time range = [%v, %v], want [%v, %v]", data.TimestampStart, data.TimestampEnd, t0, t1)
	}

	row := data.Rows[0]
	if row[0] == nil {
		t.Fatal("first subcarrier level is nil")
	}
	want := 20 * math.Log10(5)
	if math.Abs(*row[0]-want) > 1e-9 {
		t.Errorf("level = %f, want %f", *row[0], want)
	}
	if row[1] != nil {
		t.Errorf("zero magnitude level = %f, want no data", *row[1])
	}
}

func TestLevelHistogram_PercentileBounds(t *testing.T) {
	h := NewLevelHistogram()

	// Too few samples: defaults apply
	bounds := h.GetPercentileBounds()
	if bounds.Min != defaultMinLevel || bounds.Max != defaultMaxLevel {
		t.Errorf("default bounds = [%f, %f], want [%f, %f]", bounds.Min, bounds.Max, defaultMinLevel, defaultMaxLevel)
	}

	// A tight cluster still yields the minimum visible range
	for i := 0; i < 100; i++ {
		level := 20.5
		h.Update(&level)
	}
	bounds = h.GetPercentileBounds()
	if bounds.Max-bounds.Min < minimumLevelRange {
		t.Errorf("bounds span = %f, want at least %d", bounds.Max-bounds.Min, minimumLevelRange)
	}
	if bounds.Mean < 20 || bounds.Mean > 21 {
		t.Errorf("mean = %f, want around 20.5", bounds.Mean)
	}
}

func TestLevelHistogram_IgnoresNil(t *testing.T) {
	h := NewLevelHistogram()
	h.Update(nil)

	if h.totalCount != 0 {
		t.Errorf("totalCount = %d, want 0", h.totalCount)
	}
}

func TestColorMapper_GetColor(t *testing.T) {
	bounds := LevelBounds{Min: 0, Max: 40}
	cm := NewColorMapper(GrayscaleTheme, bounds)

	low := cm.GetColor(nil)
	if low != cm.colorMap[0] {
		t.Error("nil level should map to the minimum color")
	}

	over := 100.0
	if cm.GetColor(&over) != cm.colorMap[cm.Size()-1] {
		t.Error("level above bounds should clamp to the maximum color")
	}

	under := -10.0
	if cm.GetColor(&under) != cm.colorMap[0] {
		t.Error("level below bounds should clamp to the minimum color")
	}
}

func TestCalculateNiceSubcarrierStep(t *testing.T) {
	tests := []struct {
		width, want int
	}{
		{8, 1},
		{16, 2},
		{64, 8},
		{128, 16},
	}

	for _, tt := range tests {
		if got := calculateNiceSubcarrierStep(tt.width); got != tt.want {
			t.Errorf("calculateNiceSubcarrierStep(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}
