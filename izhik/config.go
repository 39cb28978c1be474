// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"fmt"
	"runtime"

	"github.com/emer/izhik/stdp"
)

// BackendType selects the simulation backend.
type BackendType int32

const (
	// BackendCPU is the multithreaded CPU backend.
	BackendCPU BackendType = iota

	// BackendCUDA is the GPU backend, not built into this library --
	// selecting it yields a clean Unsupported error from NewSimulation.
	BackendCUDA

	BackendTypeN
)

func (bt BackendType) String() string {
	switch bt {
	case BackendCPU:
		return "CPU"
	case BackendCUDA:
		return "CUDA"
	}
	return fmt.Sprintf("BackendType(%d)", int32(bt))
}

// izhik.Config selects and parameterizes the simulation backend.
type Config struct {
	Backend BackendType `desc:"which backend to run the simulation on"`

	Threads int `def:"-1" desc:"number of worker goroutines for the CPU backend -- -1 chooses from hardware concurrency"`

	Stdp *stdp.Function `desc:"STDP window function -- nil disables plasticity"`

	Device int `desc:"CUDA device number, ignored by the CPU backend"`

	TraceLog bool `desc:"log every delivered spike and firing -- very verbose, for debugging small networks"`
}

// NewConfig returns a config with default parameters.
func NewConfig() *Config {
	cf := &Config{}
	cf.Defaults()
	return cf
}

// Defaults sets default values: CPU backend with automatic thread count,
// no plasticity.
func (cf *Config) Defaults() {
	cf.Backend = BackendCPU
	cf.Threads = -1
	cf.Device = 0
}

// SetCpuBackend selects the CPU backend with the given worker thread
// count; -1 chooses from hardware concurrency.
func (cf *Config) SetCpuBackend(threads int) {
	cf.Backend = BackendCPU
	cf.Threads = threads
}

// SetCudaBackend selects the CUDA backend on the given device.  The
// selection itself always succeeds; NewSimulation reports Unsupported.
func (cf *Config) SetCudaBackend(device int) {
	cf.Backend = BackendCUDA
	cf.Device = device
}

// SetStdpFunction configures the STDP window function from the prefire and
// postfire curve samples and weight bounds, enabling plasticity.
func (cf *Config) SetStdpFunction(prefire, postfire []float32, minWeight, maxWeight float32) error {
	fn, err := stdp.New(prefire, postfire, minWeight, maxWeight)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)
	}
	cf.Stdp = fn
	return nil
}

// ThreadCount resolves the configured thread count, substituting hardware
// concurrency for -1 (or any value below 1).
func (cf *Config) ThreadCount() int {
	if cf.Threads < 1 {
		return runtime.NumCPU()
	}
	return cf.Threads
}
