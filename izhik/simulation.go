// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"fmt"
	"time"

	"github.com/emer/emergent/v2/timer"
	"github.com/emer/etable/v2/etable"
)

// Simulation is the backend-neutral interface to a built, running network.
// Step is the only operation that advances simulated time; it and
// ApplyStdp are synchronous and run to completion before returning.
type Simulation interface {
	// Step advances the simulation one millisecond cycle: delivers
	// pending spikes, integrates the membrane dynamics, and returns the
	// global indices of the neurons that fired this cycle.  fstim lists
	// neurons forced to fire this cycle regardless of membrane state; it
	// may be nil.
	Step(fstim []uint32) ([]uint32, error)

	// ApplyStdp folds the accumulated STDP weight deltas, scaled by
	// reward, into the plastic synapse weights, then clears the
	// accumulators.  ApplyStdp(0) clears without changing weights.  A
	// no-op if STDP is not configured.
	ApplyStdp(reward float32) error

	// GetTargets returns the target neuron of each given synapse.
	GetTargets(ids []SynapseID) ([]uint32, error)

	// GetDelays returns the conductance delay of each given synapse.
	GetDelays(ids []SynapseID) ([]uint32, error)

	// GetWeights returns the current weight of each given synapse.
	GetWeights(ids []SynapseID) ([]float32, error)

	// GetPlastic returns the plasticity flag of each given synapse.
	GetPlastic(ids []SynapseID) ([]bool, error)

	// GetSynapsesFrom returns the ids of all synapses of the given
	// source neuron, in insertion order.
	GetSynapsesFrom(source uint32) ([]SynapseID, error)

	// GetMembranePotential returns the membrane potential v of a neuron.
	GetMembranePotential(neuron uint32) (float32, error)

	// GetRecoveryVariable returns the recovery variable u of a neuron.
	GetRecoveryVariable(neuron uint32) (float32, error)

	// ReadFiring returns the buffered firings since the last read as a
	// table with Cycle and Neuron columns, along with the number of
	// cycles the buffer spans, and clears the buffer.
	ReadFiring() (*etable.Table, uint64, error)

	// FlushFiringBuffer discards any buffered firings.
	FlushFiringBuffer()

	// ElapsedSimulation returns simulated milliseconds since the last
	// timer reset.
	ElapsedSimulation() uint64

	// ElapsedWallclock returns wallclock milliseconds since the last
	// timer reset.
	ElapsedWallclock() uint64

	// ResetTimer zeroes both the simulation and wallclock timers.
	ResetTimer()

	// BackendDescription describes the backend in human-readable form.
	BackendDescription() string
}

// NewSimulation builds the network into its immutable runtime form and
// creates the backend selected in cfg.  The network itself is not
// consumed or modified: on failure it remains usable, and it can be built
// again.  A nil cfg uses defaults.
func NewSimulation(nt *Network, cfg *Config) (Simulation, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	switch cfg.Backend {
	case BackendCPU:
		return NewCpuSimulation(nt, cfg)
	case BackendCUDA:
		return nil, fmt.Errorf("library built without CUDA support: %w", ErrUnsupported)
	}
	return nil, fmt.Errorf("backend %v not valid: %w", cfg.Backend, ErrInvalidInput)
}

// Mapper translates between the global neuron indices of the API and the
// dense local index space [0, N) of the runtime structures.  Local index
// space spans the added index range contiguously; gaps are marked invalid
// in the neuron store.
type Mapper struct {
	MinIdx uint32 `desc:"smallest global neuron index"`
	N      int    `desc:"size of the local index space: max - min + 1"`
}

// NewMapper returns the mapper for the index range of the given network.
func NewMapper(nt *Network) *Mapper {
	if nt.NeuronCount() == 0 {
		return &Mapper{}
	}
	return &Mapper{MinIdx: nt.MinIdx, N: int(nt.MaxIdx-nt.MinIdx) + 1}
}

// Local returns the local index of a global neuron index.
func (mp *Mapper) Local(g uint32) int { return int(g - mp.MinIdx) }

// Global returns the global index of a local index.
func (mp *Mapper) Global(li int) uint32 { return mp.MinIdx + uint32(li) }

// InRange reports whether a global index falls inside the mapped range.
func (mp *Mapper) InRange(g uint32) bool {
	return g >= mp.MinIdx && int(g-mp.MinIdx) < mp.N
}

// SimTimer tracks elapsed simulation cycles alongside wallclock time.
type SimTimer struct {
	Cycles uint64     `desc:"simulated milliseconds since last reset"`
	Wall   timer.Time `view:"-" desc:"wallclock timer, running between resets"`
}

// Reset zeroes both timers and restarts the wallclock.
func (tm *SimTimer) Reset() {
	tm.Cycles = 0
	tm.Wall.Reset()
	tm.Wall.Start()
}

// StepInc registers one completed simulation cycle.
func (tm *SimTimer) StepInc() { tm.Cycles++ }

// ElapsedWallclock returns wallclock milliseconds since the last reset.
func (tm *SimTimer) ElapsedWallclock() uint64 {
	tm.Wall.Stop()
	tm.Wall.Start()
	return uint64(tm.Wall.Total / time.Millisecond)
}
