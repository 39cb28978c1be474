// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import "github.com/emer/izhik/fixpt"

// MaxDelay is the longest supported synaptic delay in milliseconds, chosen
// so that the per-neuron recent-firing window fits in one 64-bit word.
const MaxDelay = 64

// SynapseID is the opaque identifier assigned to a synapse at insertion:
// the source neuron index in the high 32 bits and the per-source insertion
// sequence number in the low 32 bits.
type SynapseID uint64

// NewSynapseID composes an id from a source index and insertion sequence.
func NewSynapseID(source, seq uint32) SynapseID {
	return SynapseID(uint64(source)<<32 | uint64(seq))
}

// Source returns the source neuron index of the synapse.
func (id SynapseID) Source() uint32 { return uint32(id >> 32) }

// Seq returns the per-source insertion sequence number.
func (id SynapseID) Seq() uint32 { return uint32(id) }

// Terminal is one forward-matrix record: the target neuron (local index)
// and the fixed-point weight.  This is the only data touched during spike
// delivery, kept minimal so a row walk stays in cache.
type Terminal struct {
	Target uint32
	Weight fixpt.Fix
}

// SynInfo is the auxiliary per-synapse record kept per source in insertion
// order.  It is consulted only for introspection (GetTargets etc.) and for
// locating the forward weight slot of a plastic synapse; the simulation
// step never reads it.
type SynInfo struct {
	Target  uint32 `desc:"target neuron, global index"`
	Delay   uint32 `desc:"conductance delay in ms, in [1, MaxDelay]"`
	RowIdx  uint32 `desc:"index of this synapse within its (source, delay) forward row"`
	Plastic bool   `desc:"weight may change via STDP"`
}
