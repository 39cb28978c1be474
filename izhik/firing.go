// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"github.com/emer/etable/v2/etable"
	"github.com/emer/etable/v2/etensor"
)

// izhik.FiringBuffer accumulates fired (cycle, neuron) pairs between reads,
// so callers can step many cycles and collect the firing record in bulk.
type FiringBuffer struct {
	Cycles  []uint64 `desc:"cycle of each firing, parallel to Neurons"`
	Neurons []uint32 `desc:"global index of each fired neuron"`
}

// Add records one firing.
func (fb *FiringBuffer) Add(cycle uint64, neuron uint32) {
	fb.Cycles = append(fb.Cycles, cycle)
	fb.Neurons = append(fb.Neurons, neuron)
}

// Len returns the number of buffered firings.
func (fb *FiringBuffer) Len() int { return len(fb.Cycles) }

// Flush discards all buffered firings.
func (fb *FiringBuffer) Flush() {
	fb.Cycles = fb.Cycles[:0]
	fb.Neurons = fb.Neurons[:0]
}

// Table returns the buffered firings as a table with Cycle and Neuron
// columns, one row per firing in step order.
func (fb *FiringBuffer) Table() *etable.Table {
	sch := etable.Schema{
		{"Cycle", etensor.INT64, nil, nil},
		{"Neuron", etensor.INT64, nil, nil},
	}
	dt := &etable.Table{}
	dt.SetFromSchema(sch, fb.Len())
	for i := range fb.Cycles {
		dt.SetCellFloat("Cycle", i, float64(fb.Cycles[i]))
		dt.SetCellFloat("Neuron", i, float64(fb.Neurons[i]))
	}
	return dt
}
