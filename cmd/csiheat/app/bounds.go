package app

import "math"

const (
	// Subcarrier magnitudes come from int8 I/Q pairs, so levels span
	// 0dB (unit magnitude) to just over 45dB (|(-128, -128)|).
	defaultMinLevel = 0.0
	defaultMaxLevel = 45.0

	minimumLevelRange = 12 // dB

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20
)

// LevelBounds represents the calculated amplitude boundaries
type LevelBounds struct {
	Min  float64 // 5th percentile level in dB
	Max  float64 // 95th percentile level in dB
	Mean float64 // Mean level in dB
}

func defaultLevelBounds() LevelBounds {
	return LevelBounds{
		Min:  defaultMinLevel,
		Max:  defaultMaxLevel,
		Mean: (defaultMinLevel + defaultMaxLevel) / 2,
	}
}

// LevelHistogram maintains a histogram of amplitude levels with 1dB bins
type LevelHistogram struct {
	bins       map[int]uint32 // Map of bin index to count
	totalCount uint64         // Total number of samples
	minBin     int            // Cache for min bin
	maxBin     int            // Cache for max bin
}

// NewLevelHistogram creates a new histogram
func NewLevelHistogram() *LevelHistogram {
	return &LevelHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

// getBinIndex converts an amplitude level to bin index
func getBinIndex(level float64) int {
	return int(math.Floor(level)) // 1dB bins
}

// scaleDown scales all bin counts down by factor of 2
func (h *LevelHistogram) scaleDown() {
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32

	for bin := range h.bins {
		h.bins[bin] /= 2
		if h.bins[bin] == 0 {
			delete(h.bins, bin)
		}

		if bin < h.minBin {
			h.minBin = bin
		}
		if bin > h.maxBin {
			h.maxBin = bin
		}
	}
	h.totalCount /= 2
}

// Update adds a new amplitude level to the histogram
func (h *LevelHistogram) Update(level *float64) {
	if level == nil {
		return
	}

	bin := getBinIndex(*level)

	if h.bins[bin] == math.MaxUint32 || h.totalCount == math.MaxUint64 {
		h.scaleDown()
	}

	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

// Clear resets the histogram
func (h *LevelHistogram) Clear() {
	h.bins = make(map[int]uint32)
	h.totalCount = 0
	h.minBin = math.MaxInt32
	h.maxBin = math.MinInt32
}

// GetPercentileBounds returns amplitude bounds based on percentiles
func (h *LevelHistogram) GetPercentileBounds() LevelBounds {
	if h.totalCount < minimumSampleCount {
		return defaultLevelBounds()
	}

	// Target count for the 5th and 95th percentiles
	target5th := h.totalCount * 5 / 100

	var count uint64
	var min5th, max95th int

	// Find 5th percentile
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target5th {
			min5th = bin
			break
		}
	}

	// Find 95th percentile
	count = 0
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target5th {
			max95th = bin
			break
		}
	}

	// Calculate mean (weighted average of bin centers)
	var sumProduct float64
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		sumProduct += float64(bin) * float64(h.bins[bin])
	}
	mean := sumProduct / float64(h.totalCount)

	// Keep enough span for fading dips to stay visible
	if max95th-min5th < minimumLevelRange {
		center := (max95th + min5th) / 2
		min5th = center - minimumLevelRange/2
		max95th = center + minimumLevelRange/2
	}

	// Add small margin
	margin := (max95th - min5th) * 1 / 10 // 10% margin
	return LevelBounds{
		Min:  float64(min5th - margin),
		Max:  float64(max95th + margin),
		Mean: mean,
	}
}

// SmoothBounds represents a smoothed version of the histogram bounds
type SmoothBounds struct {
	hist    *LevelHistogram
	alpha   float64     // Smoothing factor (0-1)
	current LevelBounds // Current smoothed bounds
}

// NewSmoothBounds creates a new bounds smoother
func NewSmoothBounds(alpha float64) *SmoothBounds {
	return &SmoothBounds{
		hist:    NewLevelHistogram(),
		alpha:   alpha,
		current: defaultLevelBounds(),
	}
}

// Update adds a new amplitude level and returns smoothed bounds
func (s *SmoothBounds) Update(level *float64) LevelBounds {
	if level == nil {
		return s.current
	}

	s.hist.Update(level)

	newBounds := s.hist.GetPercentileBounds()

	// Apply exponential smoothing
	s.current.Min = s.current.Min*(1-s.alpha) + newBounds.Min*s.alpha
	s.current.Max = s.current.Max*(1-s.alpha) + newBounds.Max*s.alpha
	s.current.Mean = newBounds.Mean // Use new mean directly

	return s.current
}

// Current returns the current smoothed amplitude bounds
func (s *SmoothBounds) Current() LevelBounds {
	return s.current
}

// Clear resets the histogram and bounds
func (s *SmoothBounds) Clear() {
	s.hist.Clear()
	s.current = defaultLevelBounds()
}
