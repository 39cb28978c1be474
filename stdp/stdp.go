// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package stdp implements the spike-timing-dependent plasticity window
function: a pair of sampled curves giving the weight change for presynaptic
arrivals before (prefire) and after (postfire) a postsynaptic firing, at
integer millisecond offsets.

The curves are overlaid on the per-neuron 64-bit recent-firing register.
Bit position PostWindow is the postsynaptic firing cycle; prefire samples
occupy the bits above it (older) and postfire samples the bits below it
(newer).  PreWindow + PostWindow must fit in the register, at most 64 bits
in total.
*/
package stdp

import (
	"fmt"
	"math/bits"

	"github.com/emer/etable/v2/minmax"

	"github.com/emer/izhik/fixpt"
)

// NoApplication is the dt sentinel returned when no firing bit falls within
// the relevant window mask.  It compares greater than any valid dt.
const NoApplication = 64

// Function is a configured STDP window function with derived lookup masks.
// It is immutable once created; per-simulation fixed-point samples are
// derived from it via FixCurves when the weight format is known.
type Function struct {
	PreFire  []float32  `desc:"weight change for a presynaptic arrival dt ms before the postsynaptic firing, dt = index, closest first"`
	PostFire []float32  `desc:"weight change for a presynaptic arrival dt+1 ms after the postsynaptic firing, dt = index, closest first"`
	Weight   minmax.F32 `desc:"weight bounds: Min <= 0 for inhibitory synapses, Max >= 0 for excitatory"`

	PreMask  uint64 `inactive:"+" desc:"recent-firing bits holding prefire arrivals with a nonzero curve value"`
	PostMask uint64 `inactive:"+" desc:"recent-firing bits holding postfire arrivals with a nonzero curve value"`
}

// New creates an STDP window function from the prefire and postfire curve
// samples and the weight bounds, validating the window and bound
// constraints.
func New(prefire, postfire []float32, minWeight, maxWeight float32) (*Function, error) {
	if len(prefire)+len(postfire) > 64 {
		return nil, fmt.Errorf("stdp window too large: prefire %v + postfire %v > 64 samples", len(prefire), len(postfire))
	}
	if minWeight > 0 {
		return nil, fmt.Errorf("stdp min weight %v must be <= 0", minWeight)
	}
	if maxWeight < 0 {
		return nil, fmt.Errorf("stdp max weight %v must be >= 0", maxWeight)
	}
	fn := &Function{
		PreFire:  append([]float32{}, prefire...),
		PostFire: append([]float32{}, postfire...),
	}
	fn.Weight.Set(minWeight, maxWeight)
	fn.Update()
	return fn, nil
}

// Update recomputes the derived window masks from the curves.
func (fn *Function) Update() {
	pw := uint(fn.PostWindow())
	fn.PreMask = 0
	for i, w := range fn.PreFire {
		if w != 0 {
			fn.PreMask |= uint64(1) << (pw + uint(i))
		}
	}
	fn.PostMask = 0
	for i, w := range fn.PostFire {
		if w != 0 {
			fn.PostMask |= uint64(1) << (pw - 1 - uint(i))
		}
	}
}

// PreWindow returns the number of prefire curve samples.
func (fn *Function) PreWindow() int { return len(fn.PreFire) }

// PostWindow returns the number of postfire curve samples.
func (fn *Function) PostWindow() int { return len(fn.PostFire) }

// PostBit returns the recent-firing bit marking a postsynaptic firing in
// the middle of the window.
func (fn *Function) PostBit() uint64 { return uint64(1) << uint(fn.PostWindow()) }

// ClosestPreFire returns the smallest dt such that the aligned arrivals
// word has a masked prefire bit at PostWindow+dt, or NoApplication.
func (fn *Function) ClosestPreFire(arrivals uint64) int {
	valid := arrivals & fn.PreMask
	if valid == 0 {
		return NoApplication
	}
	return bits.TrailingZeros64(valid >> uint(fn.PostWindow()))
}

// ClosestPostFire returns the smallest dt such that the aligned arrivals
// word has a masked postfire bit at PostWindow-1-dt, or NoApplication.
func (fn *Function) ClosestPostFire(arrivals uint64) int {
	valid := arrivals & fn.PostMask
	if valid == 0 {
		return NoApplication
	}
	return bits.LeadingZeros64(valid << uint(64-fn.PostWindow()))
}

// LookupPre returns the prefire curve value at offset dt.
func (fn *Function) LookupPre(dt int) float32 { return fn.PreFire[dt] }

// LookupPost returns the postfire curve value at offset dt.
func (fn *Function) LookupPost(dt int) float32 { return fn.PostFire[dt] }

// FixCurves returns the curves sampled in fixed point with fbits fractional
// bits, for accumulating weight deltas in the same format as the weights.
func (fn *Function) FixCurves(fbits uint32) (pre, post []fixpt.Fix) {
	pre = make([]fixpt.Fix, len(fn.PreFire))
	for i, w := range fn.PreFire {
		pre[i] = fixpt.ToFix(w, fbits)
	}
	post = make([]fixpt.Fix, len(fn.PostFire))
	for i, w := range fn.PostFire {
		post[i] = fixpt.ToFix(w, fbits)
	}
	return
}

// InBounds reports whether an initial plastic synapse weight is within the
// configured bounds.
func (fn *Function) InBounds(w float32) bool {
	return w >= fn.Weight.Min && w <= fn.Weight.Max
}

// BoundedWeight applies the sign-preserving asymmetric bounds to a proposed
// new weight wnew for a synapse whose current weight is w.  Excitatory
// synapses (w >= 0) are potentiation-bounded by Max and may depress to 0;
// inhibitory synapses (w < 0) are potentiation-bounded by Min and may
// depress toward 0.  The sign of the weight never flips.
func (fn *Function) BoundedWeight(w, wnew float32) float32 {
	if w >= 0 {
		if wnew > fn.Weight.Max {
			return fn.Weight.Max
		}
		if wnew < 0 {
			return 0
		}
	} else {
		if wnew < fn.Weight.Min {
			return fn.Weight.Min
		}
		if wnew > 0 {
			return 0
		}
	}
	return wnew
}
