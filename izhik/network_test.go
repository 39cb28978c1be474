// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"errors"
	"testing"
)

func TestAddNeuronDup(t *testing.T) {
	net := NewNetwork("TestNet")
	if err := net.AddNeuron(3, RegularSpiking()); err != nil {
		t.Fatal(err)
	}
	err := net.AddNeuron(3, FastSpiking())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate neuron index: got %v, want ErrInvalidInput", err)
	}
	if net.NeuronCount() != 1 {
		t.Errorf("neuron count %v after failed add, want 1", net.NeuronCount())
	}
}

func TestNeuronCount(t *testing.T) {
	net := NewNetwork("TestNet")
	idxs := []uint32{0, 5, 2, 100, 7}
	for _, ix := range idxs {
		if err := net.AddNeuron(ix, RegularSpiking()); err != nil {
			t.Fatal(err)
		}
	}
	if net.NeuronCount() != len(idxs) {
		t.Errorf("neuron count %v, want %v", net.NeuronCount(), len(idxs))
	}
	if net.MinIdx != 0 || net.MaxIdx != 100 {
		t.Errorf("index range [%v, %v], want [0, 100]", net.MinIdx, net.MaxIdx)
	}
}

// invalid delays must fail and leave the builder unchanged
func TestAddSynapseBadDelay(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	net.AddNeuron(1, RegularSpiking())
	if _, err := net.AddSynapse(0, 1, 0, 1.0, false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("delay 0: got %v, want ErrInvalidInput", err)
	}
	if _, err := net.AddSynapse(0, 1, MaxDelay+1, 1.0, false); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("delay %v: got %v, want ErrInvalidInput", MaxDelay+1, err)
	}
	if net.SynapseCount() != 0 {
		t.Errorf("synapse count %v after failed adds, want 0", net.SynapseCount())
	}
	if _, err := net.AddSynapse(0, 1, 1, 1.0, false); err != nil {
		t.Errorf("delay 1 rejected: %v", err)
	}
	if _, err := net.AddSynapse(0, 1, MaxDelay, 1.0, false); err != nil {
		t.Errorf("delay %v rejected: %v", MaxDelay, err)
	}
}

func TestAddSynapsesBatch(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	net.AddNeuron(1, RegularSpiking())
	net.AddNeuron(2, RegularSpiking())

	_, err := net.AddSynapses(0, []uint32{1, 2}, []uint32{1}, []float32{1, 2}, []bool{false, false})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("mismatched batch: got %v, want ErrInvalidInput", err)
	}
	if net.SynapseCount() != 0 {
		t.Errorf("synapse count %v after failed batch, want 0", net.SynapseCount())
	}

	// one bad delay fails the whole batch up front
	_, err = net.AddSynapses(0, []uint32{1, 2}, []uint32{1, 0}, []float32{1, 2}, []bool{false, false})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad delay in batch: got %v, want ErrInvalidInput", err)
	}
	if net.SynapseCount() != 0 {
		t.Errorf("synapse count %v after failed batch, want 0", net.SynapseCount())
	}

	ids, err := net.AddSynapses(0, []uint32{1, 2}, []uint32{1, 5}, []float32{1, 2}, []bool{false, true})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || net.SynapseCount() != 2 {
		t.Errorf("batch added %v ids, count %v, want 2 / 2", len(ids), net.SynapseCount())
	}
}

func TestSynapseID(t *testing.T) {
	id := NewSynapseID(7, 42)
	if id.Source() != 7 || id.Seq() != 42 {
		t.Errorf("id round trip: source %v seq %v", id.Source(), id.Seq())
	}
}

func TestMaxAbsWeight(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	net.AddNeuron(1, RegularSpiking())
	if net.MaxAbsWeight() != 0 {
		t.Errorf("empty net max weight %v, want 0", net.MaxAbsWeight())
	}
	net.AddSynapse(0, 1, 1, 3.0, false)
	net.AddSynapse(1, 0, 1, -8.0, false)
	if net.MaxAbsWeight() != 8.0 {
		t.Errorf("max abs weight %v, want 8", net.MaxAbsWeight())
	}
}

// a synapse to a neuron never added must fail the build, leaving the
// network reusable
func TestBuildMissingNeuron(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	net.AddSynapse(0, 9, 1, 1.0, false)
	_, err := NewSimulation(net, NewConfig())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing target: got %v, want ErrInvalidInput", err)
	}
	net.AddNeuron(9, RegularSpiking())
	if _, err := NewSimulation(net, NewConfig()); err != nil {
		t.Errorf("rebuild after fixing network failed: %v", err)
	}
}

func TestBuildMissingSource(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	net.AddNeuron(1, RegularSpiking())
	net.AddSynapse(5, 1, 1, 1.0, false)
	_, err := NewSimulation(net, NewConfig())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("missing source: got %v, want ErrInvalidInput", err)
	}
}

func TestEmptyNetwork(t *testing.T) {
	net := NewNetwork("TestNet")
	_, err := NewSimulation(net, NewConfig())
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty network: got %v, want ErrInvalidInput", err)
	}
}

func TestCudaUnsupported(t *testing.T) {
	net := NewNetwork("TestNet")
	net.AddNeuron(0, RegularSpiking())
	cfg := NewConfig()
	cfg.SetCudaBackend(0)
	_, err := NewSimulation(net, cfg)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("cuda backend: got %v, want ErrUnsupported", err)
	}
}
