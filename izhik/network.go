// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"fmt"

	"github.com/emer/etable/v2/minmax"
)

// izhik.Network accumulates neurons and synapses during construction.
// Map-based storage means the total neuron count and index range need not
// be known in advance; NewSimulation turns the accumulated network into the
// dense runtime form.  The network itself is never mutated by a failed or
// successful build, so it can be extended and rebuilt.
type Network struct {
	Nm string `desc:"overall name of network -- helps discriminate if there are multiple"`

	Neurons map[uint32]Neuron `desc:"neuron parameters and initial state by global index"`

	// forward connectivity accumulator: source -> delay -> terminals in
	// insertion order
	Fcm map[uint32]map[uint32][]bterm `view:"-"`

	// per-source synapse records in insertion order, for introspection
	Syns map[uint32][]SynInfo `view:"-"`

	MinIdx   uint32     `inactive:"+" desc:"smallest neuron index added"`
	MaxIdx   uint32     `inactive:"+" desc:"largest neuron index added"`
	WtRange  minmax.F32 `inactive:"+" desc:"range of synaptic weights added so far"`
	MaxDelay uint32     `inactive:"+" desc:"largest delay in use"`
	NSyns    int        `inactive:"+" desc:"total number of synapses added"`
}

// bterm is a forward terminal during construction, before conversion to
// fixed point.
type bterm struct {
	Target  uint32
	Weight  float32
	Plastic bool
}

// NewNetwork returns a new, empty network with the given name.
func NewNetwork(name string) *Network {
	nt := &Network{
		Nm:      name,
		Neurons: make(map[uint32]Neuron),
		Fcm:     make(map[uint32]map[uint32][]bterm),
		Syns:    make(map[uint32][]SynInfo),
	}
	nt.WtRange.SetInfinity()
	return nt
}

func (nt *Network) Name() string { return nt.Nm }

// AddNeuron adds a neuron under the given global index.  The index must
// not already be present.
func (nt *Network) AddNeuron(idx uint32, nrn Neuron) error {
	if _, dup := nt.Neurons[idx]; dup {
		return fmt.Errorf("neuron index %v already present: %w", idx, ErrInvalidInput)
	}
	if len(nt.Neurons) == 0 || idx < nt.MinIdx {
		nt.MinIdx = idx
	}
	if len(nt.Neurons) == 0 || idx > nt.MaxIdx {
		nt.MaxIdx = idx
	}
	nt.Neurons[idx] = nrn
	return nil
}

// AddSynapse adds a synapse and returns its id.  The delay must be in
// [1, MaxDelay].  Source and target may refer to neurons that have not
// been added yet; they are validated when the simulation is built.
func (nt *Network) AddSynapse(source, target, delay uint32, weight float32, plastic bool) (SynapseID, error) {
	if delay < 1 || delay > MaxDelay {
		return 0, fmt.Errorf("synapse %v -> %v has delay %v outside [1, %v]: %w", source, target, delay, MaxDelay, ErrInvalidInput)
	}
	return nt.addSyn(source, target, delay, weight, plastic), nil
}

// addSyn performs the unchecked insertion.
func (nt *Network) addSyn(source, target, delay uint32, weight float32, plastic bool) SynapseID {
	axon := nt.Fcm[source]
	if axon == nil {
		axon = make(map[uint32][]bterm)
		nt.Fcm[source] = axon
	}
	row := axon[delay]
	id := NewSynapseID(source, uint32(len(nt.Syns[source])))
	nt.Syns[source] = append(nt.Syns[source], SynInfo{
		Target:  target,
		Delay:   delay,
		RowIdx:  uint32(len(row)),
		Plastic: plastic,
	})
	axon[delay] = append(row, bterm{Target: target, Weight: weight, Plastic: plastic})
	nt.WtRange.FitValInRange(weight)
	if delay > nt.MaxDelay {
		nt.MaxDelay = delay
	}
	nt.NSyns++
	return id
}

// AddSynapses adds a batch of synapses sharing one source.  All argument
// slices must have equal length.  The batch is validated up front so that
// a failure adds nothing.
func (nt *Network) AddSynapses(source uint32, targets, delays []uint32, weights []float32, plastic []bool) ([]SynapseID, error) {
	n := len(targets)
	if len(delays) != n || len(weights) != n || len(plastic) != n {
		return nil, fmt.Errorf("synapse batch from %v has mismatched lengths %v / %v / %v / %v: %w",
			source, n, len(delays), len(weights), len(plastic), ErrInvalidInput)
	}
	for i, d := range delays {
		if d < 1 || d > MaxDelay {
			return nil, fmt.Errorf("synapse %v -> %v has delay %v outside [1, %v]: %w", source, targets[i], d, MaxDelay, ErrInvalidInput)
		}
	}
	ids := make([]SynapseID, n)
	for i := range targets {
		ids[i] = nt.addSyn(source, targets[i], delays[i], weights[i], plastic[i])
	}
	return ids, nil
}

// NeuronCount returns the number of distinct neurons added.
func (nt *Network) NeuronCount() int { return len(nt.Neurons) }

// SynapseCount returns the total number of synapses added.
func (nt *Network) SynapseCount() int { return nt.NSyns }

// MaxAbsWeight returns the largest absolute synaptic weight, which
// determines the fixed-point format, or 0 if there are no synapses.
func (nt *Network) MaxAbsWeight() float32 {
	if nt.NSyns == 0 {
		return 0
	}
	mx := nt.WtRange.Max
	if -nt.WtRange.Min > mx {
		mx = -nt.WtRange.Min
	}
	return mx
}
