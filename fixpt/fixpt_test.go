// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fixpt

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
)

// difTol is the numerical difference tolerance for round-trip comparisons,
// one ULP at 21 fractional bits.
const difTol = float32(1.0 / (1 << 21))

func TestFracBits(t *testing.T) {
	tests := []struct {
		maxW float32
		want uint32
	}{
		{0, DefaultFracBits},
		{1, 26},   // ceil(log2(1)) = 0
		{0.5, 27}, // ceil(log2(0.5)) = -1
		{20, 21},  // ceil(log2(20)) = 5
		{1024, 16},
	}
	for _, ts := range tests {
		got := FracBits(ts.maxW)
		if got != ts.want {
			t.Errorf("FracBits(%v) = %v, want %v", ts.maxW, got, ts.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	fbits := FracBits(20)
	vals := []float32{0, 1, -1, 0.25, -0.25, 19.99, -19.99, 20}
	for _, v := range vals {
		rt := ToFloat(ToFix(v, fbits), fbits)
		if math32.Abs(rt-v) > difTol {
			t.Errorf("round trip %v -> %v, dif %v > %v", v, rt, math32.Abs(rt-v), difTol)
		}
	}
}

func TestSatAdd(t *testing.T) {
	sum, sat := SatAdd(1, 2)
	if sum != 3 || sat {
		t.Errorf("SatAdd(1,2) = %v sat=%v", sum, sat)
	}
	sum, sat = SatAdd(math.MaxInt32, 1)
	if sum != math.MaxInt32 || !sat {
		t.Errorf("positive saturation: got %v sat=%v", sum, sat)
	}
	sum, sat = SatAdd(math.MinInt32, -1)
	if sum != math.MinInt32 || !sat {
		t.Errorf("negative saturation: got %v sat=%v", sum, sat)
	}
}

// order independence below saturation: any permutation of additions gives
// the same bits
func TestAddOrder(t *testing.T) {
	vals := []Fix{1 << 20, -(3 << 18), 7 << 15, -(1 << 20), 5 << 10}
	fwd := Fix(0)
	for _, v := range vals {
		fwd, _ = SatAdd(fwd, v)
	}
	rev := Fix(0)
	for i := len(vals) - 1; i >= 0; i-- {
		rev, _ = SatAdd(rev, vals[i])
	}
	if fwd != rev {
		t.Errorf("sum order dependent: %v != %v", fwd, rev)
	}
}
