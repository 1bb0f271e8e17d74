// Package analysis derives per-subcarrier channel metrics from raw CSI
// I/Q payloads: complex amplitude, phase and summary statistics.
// Interpretation beyond that (motion detection, localization and the
// like) belongs to consumers.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Amplitudes computes the per-subcarrier magnitude sqrt(I²+Q²) from an
// interleaved I/Q payload. An odd trailing sample is treated as having a
// zero quadrature component.
func Amplitudes(iq []int8) []float64 {
	if len(iq) == 0 {
		return nil
	}

	out := make([]float64, 0, (len(iq)+1)/2)
	for i := 0; i < len(iq); i += 2 {
		re := float64(iq[i])
		var im float64
		if i+1 < len(iq) {
			im = float64(iq[i+1])
		}
		out = append(out, math.Hypot(re, im))
	}
	return out
}

// Phases computes the per-subcarrier phase atan2(Q, I) in radians, in
// the range (-π, π].
func Phases(iq []int8) []float64 {
	if len(iq) == 0 {
		return nil
	}

	out := make([]float64, 0, (len(iq)+1)/2)
	for i := 0; i < len(iq); i += 2 {
		re := float64(iq[i])
		var im float64
		if i+1 < len(iq) {
			im = float64(iq[i+1])
		}
		out = append(out, math.Atan2(im, re))
	}
	return out
}

// UnwrapPhases removes 2π discontinuities from a phase sequence,
// producing a continuous track across subcarriers.
func UnwrapPhases(phases []float64) []float64 {
	if len(phases) == 0 {
		return nil
	}

	out := make([]float64, len(phases))
	out[0] = phases[0]

	var offset float64
	for i := 1; i < len(phases); i++ {
		delta := phases[i] - phases[i-1]
		if delta > math.Pi {
			offset -= 2 * math.Pi
		} else if delta < -math.Pi {
			offset += 2 * math.Pi
		}
		out[i] = phases[i] + offset
	}
	return out
}

// Summary holds basic statistics over a metric vector.
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes summary statistics over the given values. A zero
// Summary is returned for an empty input.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	s := Summary{
		Mean: stat.Mean(values, nil),
		Min:  floats.Min(values),
		Max:  floats.Max(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// AmplitudeSummary is a convenience wrapper combining Amplitudes and
// Summarize for one payload.
func AmplitudeSummary(iq []int8) Summary {
	return Summarize(Amplitudes(iq))
}
