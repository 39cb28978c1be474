// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import "fmt"

// izhik.Neuron holds the Izhikevich model parameters and initial state for
// one neuron, as passed to Network.AddNeuron.  The four dimensionless
// parameters a-d are as in Izhikevich (2003): a is the recovery time scale,
// b the recovery sensitivity to subthreshold fluctuations of v, c the
// after-spike reset value of v, and d the after-spike increment of u.
type Neuron struct {
	A     float32 `desc:"time scale of the recovery variable u"`
	B     float32 `desc:"sensitivity of u to subthreshold fluctuations of v"`
	C     float32 `desc:"after-spike reset value of the membrane potential v (mV)"`
	D     float32 `desc:"after-spike increment of the recovery variable u"`
	U     float32 `desc:"membrane recovery variable"`
	V     float32 `desc:"membrane potential (mV)"`
	Sigma float32 `min:"0" desc:"standard deviation of the gaussian thalamic input current added each cycle -- 0 disables noise"`
}

// RegularSpiking returns parameters for a regular-spiking (RS) cortical
// excitatory cell, at rest.
func RegularSpiking() Neuron {
	return Neuron{A: 0.02, B: 0.2, C: -65, D: 8, U: -13, V: -65}
}

// FastSpiking returns parameters for a fast-spiking (FS) inhibitory
// interneuron, at rest.
func FastSpiking() Neuron {
	return Neuron{A: 0.1, B: 0.2, C: -65, D: 2, U: -13, V: -65}
}

// Chattering returns parameters for a chattering (CH) bursting excitatory
// cell, at rest.
func Chattering() Neuron {
	return Neuron{A: 0.02, B: 0.2, C: -50, D: 2, U: -13, V: -65}
}

// IntrinsicallyBursting returns parameters for an intrinsically bursting
// (IB) excitatory cell, at rest.
func IntrinsicallyBursting() Neuron {
	return Neuron{A: 0.02, B: 0.2, C: -55, D: 4, U: -13, V: -65}
}

// NeuronVars are the per-neuron variable names, in store order.
var NeuronVars = []string{"A", "B", "C", "D", "Sigma", "U", "V"}

// Neurons is the struct-of-arrays neuron store of a built simulation: seven
// parallel vectors over the dense local index space, plus the existence
// bitmap.  The updater mutates U and V; everything else is immutable after
// construction.
type Neurons struct {
	A     []float32
	B     []float32
	C     []float32
	D     []float32
	Sigma []float32
	U     []float32
	V     []float32

	Valid []bool `desc:"true for local indices that hold an actual neuron -- the local space is dense but may contain gaps from sparse global indices"`
}

// Alloc allocates all vectors for n local neurons.
func (ns *Neurons) Alloc(n int) error {
	if n < 0 || n > 1<<31 {
		return fmt.Errorf("cannot allocate neuron store for %v neurons: %w", n, ErrAllocation)
	}
	ns.A = make([]float32, n)
	ns.B = make([]float32, n)
	ns.C = make([]float32, n)
	ns.D = make([]float32, n)
	ns.Sigma = make([]float32, n)
	ns.U = make([]float32, n)
	ns.V = make([]float32, n)
	ns.Valid = make([]bool, n)
	return nil
}

// Len returns the size of the local index space.
func (ns *Neurons) Len() int { return len(ns.A) }

// Set writes the parameters and initial state for local index li.
func (ns *Neurons) Set(li int, nrn *Neuron) {
	ns.A[li] = nrn.A
	ns.B[li] = nrn.B
	ns.C[li] = nrn.C
	ns.D[li] = nrn.D
	ns.Sigma[li] = nrn.Sigma
	ns.U[li] = nrn.U
	ns.V[li] = nrn.V
	ns.Valid[li] = true
}

// VarByName returns the value of the named variable for local index li.
func (ns *Neurons) VarByName(varNm string, li int) (float32, error) {
	switch varNm {
	case "A":
		return ns.A[li], nil
	case "B":
		return ns.B[li], nil
	case "C":
		return ns.C[li], nil
	case "D":
		return ns.D[li], nil
	case "Sigma":
		return ns.Sigma[li], nil
	case "U":
		return ns.U[li], nil
	case "V":
		return ns.V[li], nil
	}
	return 0, fmt.Errorf("neuron variable named: %v not valid: %w", varNm, ErrInvalidInput)
}
