// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"fmt"

	"github.com/emer/izhik/fixpt"
)

// Row is the contiguous set of forward terminals sharing one
// (source, delay), in synapse insertion order.
type Row []Terminal

// izhik.ConnMatrix is the runtime forward connectivity matrix.  Rows are
// laid out in a dense vector indexed by source*MaxDelay + (delay-1) over
// the local index space, so row access during delivery is a single index
// computation and a walk of contiguous memory.  The shape is immutable
// once built by BuildConnMatrix; only the weights of plastic synapses change, through
// ApplyStdp.
type ConnMatrix struct {
	Rows []Row `view:"-" desc:"dense row vector, source*MaxDelay + (delay-1)"`

	// per-source auxiliary synapse records in insertion order; only
	// consulted for introspection
	Aux [][]SynInfo `view:"-"`

	DelayBits []uint64 `view:"-" desc:"per-source mask, bit d-1 set iff the source has outgoing synapses of delay d"`

	MaxDelay uint32 `inactive:"+" desc:"largest delay present in the network"`
	FracBits uint32 `inactive:"+" desc:"fractional bits of the fixed-point weight format"`
	N        int    `inactive:"+" desc:"size of the local neuron index space"`
}

// BuildConnMatrix converts the accumulated network into the dense runtime
// matrix, translating global neuron indices to local ones and weights to
// fixed point.  Every synapse endpoint must refer to an added neuron.
func BuildConnMatrix(nt *Network, mp *Mapper) (*ConnMatrix, error) {
	cm := &ConnMatrix{
		MaxDelay: nt.MaxDelay,
		FracBits: fixpt.FracBits(nt.MaxAbsWeight()),
		N:        mp.N,
	}
	nrows := mp.N * int(cm.MaxDelay)
	if nrows < 0 || nrows > 1<<40 {
		return nil, fmt.Errorf("cannot allocate forward matrix of %v x %v rows: %w", mp.N, cm.MaxDelay, ErrAllocation)
	}
	cm.Rows = make([]Row, nrows)
	cm.Aux = make([][]SynInfo, mp.N)
	cm.DelayBits = make([]uint64, mp.N)

	// sources are validated up front: a source outside the added index
	// range would otherwise never be visited by the local-index scan below
	for g := range nt.Fcm {
		if _, ok := nt.Neurons[g]; !ok {
			return nil, fmt.Errorf("synapse source %v is not an added neuron: %w", g, ErrInvalidInput)
		}
	}

	for li := 0; li < mp.N; li++ {
		g := mp.Global(li)
		axon := nt.Fcm[g]
		if axon == nil {
			continue
		}
		for d := uint32(1); d <= cm.MaxDelay; d++ {
			terms := axon[d]
			if len(terms) == 0 {
				continue
			}
			row := make(Row, len(terms))
			for i, tm := range terms {
				if _, ok := nt.Neurons[tm.Target]; !ok {
					return nil, fmt.Errorf("synapse target %v from source %v is not an added neuron: %w", tm.Target, g, ErrInvalidInput)
				}
				row[i] = Terminal{
					Target: uint32(mp.Local(tm.Target)),
					Weight: fixpt.ToFix(tm.Weight, cm.FracBits),
				}
			}
			cm.Rows[cm.AddrOf(uint32(li), d)] = row
			cm.DelayBits[li] |= uint64(1) << (d - 1)
		}
		cm.Aux[li] = append([]SynInfo{}, nt.Syns[g]...)
	}
	return cm, nil
}

// AddrOf returns the linear index of the (source, delay) row.  source is a
// local index; delay must be in [1, MaxDelay].
func (cm *ConnMatrix) AddrOf(source, delay uint32) int {
	return int(source)*int(cm.MaxDelay) + int(delay) - 1
}

// Row returns the forward row for a local source and delay.  Delays beyond
// MaxDelay have no rows and return nil.
func (cm *ConnMatrix) Row(source, delay uint32) Row {
	if delay < 1 || delay > cm.MaxDelay {
		return nil
	}
	return cm.Rows[cm.AddrOf(source, delay)]
}

// WeightFx returns the fixed-point weight in the given row slot.
func (cm *ConnMatrix) WeightFx(source, delay, idx uint32) fixpt.Fix {
	return cm.Rows[cm.AddrOf(source, delay)][idx].Weight
}

// SetWeightFx overwrites the fixed-point weight in the given row slot.
// Only the STDP weight update uses this, and only for plastic synapses.
func (cm *ConnMatrix) SetWeightFx(source, delay, idx uint32, w fixpt.Fix) {
	cm.Rows[cm.AddrOf(source, delay)][idx].Weight = w
}

// SynCount returns the total number of terminals in the matrix.
func (cm *ConnMatrix) SynCount() int {
	n := 0
	for _, row := range cm.Rows {
		n += len(row)
	}
	return n
}
