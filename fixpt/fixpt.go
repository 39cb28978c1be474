// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package fixpt implements the signed Q(31-f).f fixed-point format used for
synaptic weights and for accumulated input currents.

Sums of fixed-point values are associative up to saturation, so the
accumulated current at a target neuron is bit-identical regardless of the
order in which synaptic contributions arrive.  That is the sole mechanism by
which spike delivery stays deterministic when parallelized.
*/
package fixpt

import (
	"math"

	"github.com/goki/mat32"
)

// HeadroomBits reserves integer bits for summing up to 2^HeadroomBits
// maximum-magnitude contributions at one target without overflow.
const HeadroomBits = 5

// DefaultFracBits is the fractional-bit count used for a network with no
// synapses, where there is no maximum weight to derive the format from.
const DefaultFracBits = 26

// Fix is a weight or current in signed Q(31-f).f fixed-point format.
type Fix int32

// FracBits returns the number of fractional bits f to use for a network
// whose largest absolute synaptic weight is maxAbsW:
// f = 31 - ceil(log2(maxAbsW)) - HeadroomBits, clamped to [0, 31].
func FracBits(maxAbsW float32) uint32 {
	if maxAbsW <= 0 {
		return DefaultFracBits
	}
	intBits := int(mat32.Ceil(mat32.Log2(maxAbsW)))
	f := 31 - intBits - HeadroomBits
	if f < 0 {
		f = 0
	}
	if f > 31 {
		f = 31
	}
	return uint32(f)
}

// ToFix converts x to fixed point with fbits fractional bits.
func ToFix(x float32, fbits uint32) Fix {
	return Fix(mat32.Round(x * float32(int64(1)<<fbits)))
}

// ToFloat converts a fixed-point value back to float.
func ToFloat(v Fix, fbits uint32) float32 {
	return float32(v) / float32(int64(1)<<fbits)
}

// SatAdd returns a+b saturated at the int32 range instead of wrapping.
// sat reports whether saturation occurred.  Saturation is silent at the
// simulation level -- networks needing wider sums should be built with more
// headroom -- but the count is surfaced for diagnostics.
func SatAdd(a, b Fix) (sum Fix, sat bool) {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if s < math.MinInt32 {
		return math.MinInt32, true
	}
	return Fix(s), false
}
