// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prng

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestDeterminism(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 1000; i++ {
		if a.Uint32() != b.Uint32() {
			t.Fatalf("same-seed streams diverge at call %v", i)
		}
	}
	c := New(43)
	same := 0
	a.Seed(42)
	for i := 0; i < 1000; i++ {
		if a.Uint32() == c.Uint32() {
			same++
		}
	}
	if same > 2 {
		t.Errorf("different-seed streams coincide %v / 1000 times", same)
	}
}

func TestSeedNonZero(t *testing.T) {
	for idx := uint32(0); idx < 1000; idx++ {
		rs := New(idx)
		allz := true
		for _, w := range rs.State {
			if w != 0 {
				allz = false
			}
		}
		if allz {
			t.Fatalf("seed %v produced all-zero state", idx)
		}
	}
}

func TestGaussianPairing(t *testing.T) {
	a := New(7)
	b := New(7)
	// two same-seed generators must give the same gaussian stream, buffered
	// second samples included, and stay in step on the pair buffer
	for i := 0; i < 100; i++ {
		if a.Gaussian() != b.Gaussian() {
			t.Fatalf("gaussian streams diverge at sample %v", i)
		}
	}
	if a.HasGauss != b.HasGauss {
		t.Errorf("pair buffering out of sync")
	}
}

func TestGaussianMoments(t *testing.T) {
	rs := New(1)
	n := 100000
	var sum, sumsq float32
	for i := 0; i < n; i++ {
		g := rs.Gaussian()
		sum += g
		sumsq += g * g
	}
	mean := sum / float32(n)
	sd := math32.Sqrt(sumsq/float32(n) - mean*mean)
	if math32.Abs(mean) > 0.02 {
		t.Errorf("gaussian mean %v too far from 0", mean)
	}
	if math32.Abs(sd-1) > 0.02 {
		t.Errorf("gaussian stddev %v too far from 1", sd)
	}
}

func TestFloat32Range(t *testing.T) {
	rs := New(3)
	for i := 0; i < 10000; i++ {
		f := rs.Float32()
		if f < 0 || f >= 1 {
			t.Fatalf("Float32() = %v out of [0,1)", f)
		}
	}
}
