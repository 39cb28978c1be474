// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import "github.com/emer/izhik/fixpt"

// RSynapse is one incoming plastic synapse in the reverse matrix.  The
// (Source, Delay, Idx) triple locates the weight slot in the forward
// matrix.
type RSynapse struct {
	Source uint32 `desc:"presynaptic neuron, local index"`
	Delay  uint32 `desc:"conductance delay in ms"`
	Idx    uint32 `desc:"index within the (Source, Delay) forward row"`
}

// izhik.ReverseMatrix lists, for each target neuron, its incoming plastic
// synapses, together with a parallel array of pending fixed-point weight
// deltas accumulated by the STDP engine.  Non-plastic synapses are never
// indexed here.  The shape is immutable once built by BuildReverseMatrix;
// only the accumulators change.
type ReverseMatrix struct {
	Incoming [][]RSynapse  `view:"-" desc:"incoming plastic synapses per local target"`
	WAcc     [][]fixpt.Fix `view:"-" desc:"pending weight deltas, parallel to Incoming"`
}

// BuildReverseMatrix indexes the plastic subset of the network's synapses
// by target.  Endpoint validity has already been established by
// BuildConnMatrix.
func BuildReverseMatrix(nt *Network, mp *Mapper) *ReverseMatrix {
	rcm := &ReverseMatrix{
		Incoming: make([][]RSynapse, mp.N),
		WAcc:     make([][]fixpt.Fix, mp.N),
	}
	for li := 0; li < mp.N; li++ {
		for _, sn := range nt.Syns[mp.Global(li)] {
			if !sn.Plastic {
				continue
			}
			lt := mp.Local(sn.Target)
			rcm.Incoming[lt] = append(rcm.Incoming[lt], RSynapse{
				Source: uint32(li),
				Delay:  sn.Delay,
				Idx:    sn.RowIdx,
			})
		}
	}
	for lt := range rcm.Incoming {
		if n := len(rcm.Incoming[lt]); n > 0 {
			rcm.WAcc[lt] = make([]fixpt.Fix, n)
		}
	}
	return rcm
}

// NPlastic returns the total number of plastic synapses indexed.
func (rcm *ReverseMatrix) NPlastic() int {
	n := 0
	for _, in := range rcm.Incoming {
		n += len(in)
	}
	return n
}

// ResetAcc zeroes all weight-delta accumulators.
func (rcm *ReverseMatrix) ResetAcc() {
	for _, acc := range rcm.WAcc {
		for i := range acc {
			acc[i] = 0
		}
	}
}
