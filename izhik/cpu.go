// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import (
	"fmt"
	"log"
	"math/bits"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/v2/timer"
	"github.com/emer/etable/v2/etable"
	"github.com/goki/ki/ints"

	"github.com/emer/izhik/fixpt"
	"github.com/emer/izhik/prng"
	"github.com/emer/izhik/stdp"
)

// CpuSimulation implements the full Simulation interface.
var _ Simulation = (*CpuSimulation)(nil)

// SubSteps is the number of Euler substeps of the membrane equations per
// millisecond cycle.
const SubSteps = 4

// SubStepMult is the integration step size, 1 / SubSteps.
const SubStepMult = 0.25

// izhik.CpuSimulation is the multithreaded CPU backend.  Each Step
// delivers pending spikes from the recent-firing registers through the
// forward matrix into the current accumulator, integrates the membrane
// dynamics, records firings, and, when STDP is configured, accumulates
// weight deltas from the firing history.
//
// For a fixed thread count, outputs are bit-identical across runs: noise
// comes from per-neuron generators and per-worker partial current sums are
// reduced in worker order.  Across different thread counts results are
// bit-identical as long as no saturating add saturates (see SatCount).
type CpuSimulation struct {
	Nm  string  `desc:"name of the network this simulation was built from"`
	Map *Mapper `desc:"global <-> local neuron index mapping"`

	Neurons Neurons        `desc:"neuron parameters and state, struct-of-arrays"`
	Cm      *ConnMatrix    `view:"-" desc:"forward connectivity"`
	Rcm     *ReverseMatrix `view:"-" desc:"incoming plastic synapses per target"`

	Stdp   *stdp.Function `desc:"STDP window function -- nil disables plasticity"`
	PreFx  []fixpt.Fix    `view:"-" desc:"prefire curve in the weight fixed-point format"`
	PostFx []fixpt.Fix    `view:"-" desc:"postfire curve in the weight fixed-point format"`

	RecentFiring []uint64    `view:"-" desc:"per-neuron firing shift register, bit k = fired k cycles ago"`
	Fired        []bool      `view:"-" desc:"fired this cycle"`
	Fstim        []bool      `view:"-" desc:"forced-firing stimulus for this cycle"`
	Current      []fixpt.Fix `view:"-" desc:"accumulated input current per neuron, zeroed as each neuron is updated"`
	Rngs         []prng.RNG  `view:"-" desc:"per-neuron noise generators, seeded from global index"`

	NThreads   int                    `inactive:"+" desc:"number of worker goroutines"`
	ThrCurrent [][]fixpt.Fix          `view:"-" desc:"per-worker partial current sums, reduced in worker order"`
	ThrTimes   []timer.Time           `view:"-" desc:"timers for each worker, to see how evenly the workload is distributed"`
	FunTimes   map[string]*timer.Time `view:"-" desc:"timers for each major step of processing"`
	WaitGp     sync.WaitGroup         `view:"-" desc:"wait group for synchronizing workers"`

	Timer     SimTimer     `desc:"simulation and wallclock time since last reset"`
	Fbuf      FiringBuffer `view:"-" desc:"firings buffered since last read"`
	LastFlush uint64       `view:"-" desc:"cycle of the last firing-buffer read"`
	SatCount  uint64       `inactive:"+" desc:"number of saturating current additions since construction -- nonzero means the network needs more fixed-point headroom"`

	TraceLog bool `desc:"log every delivery and firing -- for debugging small networks"`
}

// NewCpuSimulation builds the network into its runtime form and returns a
// ready CPU simulation.  The build is transactional: on error the network
// is left untouched and remains usable.
func NewCpuSimulation(nt *Network, cfg *Config) (*CpuSimulation, error) {
	if nt.NeuronCount() == 0 {
		return nil, fmt.Errorf("network has no neurons: %w", ErrInvalidInput)
	}
	mp := NewMapper(nt)
	ss := &CpuSimulation{Nm: nt.Nm, Map: mp, TraceLog: cfg.TraceLog}

	if err := ss.Neurons.Alloc(mp.N); err != nil {
		return nil, err
	}
	for g := range nt.Neurons {
		nrn := nt.Neurons[g]
		ss.Neurons.Set(mp.Local(g), &nrn)
	}

	cm, err := BuildConnMatrix(nt, mp)
	if err != nil {
		return nil, err
	}
	ss.Cm = cm
	ss.Rcm = BuildReverseMatrix(nt, mp)

	if cfg.Stdp != nil {
		if err := validStdpWeights(nt, cfg.Stdp); err != nil {
			return nil, err
		}
		ss.Stdp = cfg.Stdp
		ss.PreFx, ss.PostFx = cfg.Stdp.FixCurves(cm.FracBits)
	}

	ss.RecentFiring = make([]uint64, mp.N)
	ss.Fired = make([]bool, mp.N)
	ss.Fstim = make([]bool, mp.N)
	ss.Current = make([]fixpt.Fix, mp.N)
	ss.Rngs = make([]prng.RNG, mp.N)
	prng.InitSlice(ss.Rngs, mp.MinIdx)

	ss.NThreads = ints.MaxInt(1, ints.MinInt(cfg.ThreadCount(), mp.N))
	if ss.NThreads > 1 {
		ss.ThrCurrent = make([][]fixpt.Fix, ss.NThreads)
		for th := range ss.ThrCurrent {
			ss.ThrCurrent[th] = make([]fixpt.Fix, mp.N)
		}
	}
	ss.ThrTimes = make([]timer.Time, ss.NThreads)
	ss.FunTimes = make(map[string]*timer.Time)

	ss.Timer.Reset()
	return ss, nil
}

// validStdpWeights checks that every plastic synapse weight lies within
// the configured STDP bounds.
func validStdpWeights(nt *Network, fn *stdp.Function) error {
	for src, syns := range nt.Syns {
		for _, sn := range syns {
			if !sn.Plastic {
				continue
			}
			w := nt.Fcm[src][sn.Delay][sn.RowIdx].Weight
			if !fn.InBounds(w) {
				return fmt.Errorf("plastic synapse %v -> %v weight %v outside stdp bounds [%v, %v]: %w",
					src, sn.Target, w, fn.Weight.Min, fn.Weight.Max, ErrInvalidInput)
			}
		}
	}
	return nil
}

// Step advances the simulation one millisecond cycle.  See Simulation.
func (ss *CpuSimulation) Step(fstim []uint32) ([]uint32, error) {
	for _, g := range fstim {
		if !ss.Map.InRange(g) || !ss.Neurons.Valid[ss.Map.Local(g)] {
			return nil, fmt.Errorf("firing stimulus neuron %v does not exist: %w", g, ErrInvalidInput)
		}
	}
	for _, g := range fstim {
		ss.Fstim[ss.Map.Local(g)] = true
	}

	ss.FunTimerStart("DeliverSpikes")
	ss.deliverSpikes()
	ss.FunTimerStop("DeliverSpikes")

	ss.FunTimerStart("UpdateNeurons")
	ss.updateNeurons()
	ss.FunTimerStop("UpdateNeurons")

	if ss.Stdp != nil {
		ss.FunTimerStart("AccumulateStdp")
		ss.accumulateStdp()
		ss.FunTimerStop("AccumulateStdp")
	}

	fired := ss.setFiring()
	ss.Timer.StepInc()
	for _, g := range fstim {
		ss.Fstim[ss.Map.Local(g)] = false
	}
	return fired, nil
}

// deliverSpikes walks each source's recent firings against its delay bits
// and accumulates the matching rows' weights into the current buffer.
// Spikes older than the maximum delay stay in the register for STDP but
// are masked out of delivery.
func (ss *CpuSimulation) deliverSpikes() {
	if ss.Cm.MaxDelay == 0 {
		return
	}
	validSpikes := ^(^uint64(0) << ss.Cm.MaxDelay)
	n := ss.Neurons.Len()
	if ss.NThreads <= 1 {
		ss.deliverRange(0, n, ss.Current, validSpikes)
		return
	}
	chunk := (n + ss.NThreads - 1) / ss.NThreads
	for th := 0; th < ss.NThreads; th++ {
		st := th * chunk
		ed := ints.MinInt(st+chunk, n)
		buf := ss.ThrCurrent[th]
		for i := range buf {
			buf[i] = 0
		}
		ss.WaitGp.Add(1)
		go func(th, st, ed int, buf []fixpt.Fix) {
			defer ss.WaitGp.Done()
			ss.ThrTimes[th].Start()
			ss.deliverRange(st, ed, buf, validSpikes)
			ss.ThrTimes[th].Stop()
		}(th, st, ed, buf)
	}
	ss.WaitGp.Wait()
	// partial sums combine in worker order, i.e. source-index order, so a
	// given thread count always produces the same bits
	for th := 0; th < ss.NThreads; th++ {
		buf := ss.ThrCurrent[th]
		for i, v := range buf {
			if v == 0 {
				continue
			}
			var sat bool
			ss.Current[i], sat = fixpt.SatAdd(ss.Current[i], v)
			if sat {
				ss.SatCount++
			}
		}
	}
}

// deliverRange delivers spikes for sources in [st, ed) into cur.
func (ss *CpuSimulation) deliverRange(st, ed int, cur []fixpt.Fix, validSpikes uint64) {
	for s := st; s < ed; s++ {
		f := ss.RecentFiring[s] & validSpikes & ss.Cm.DelayBits[s]
		delay := uint32(0)
		for f != 0 {
			shift := uint32(1 + bits.TrailingZeros64(f))
			delay += shift
			f >>= shift
			ss.deliverOne(uint32(s), delay, cur)
		}
	}
}

// deliverOne adds one (source, delay) row into cur.
func (ss *CpuSimulation) deliverOne(source, delay uint32, cur []fixpt.Fix) {
	row := ss.Cm.Row(source, delay)
	for _, tm := range row {
		var sat bool
		cur[tm.Target], sat = fixpt.SatAdd(cur[tm.Target], tm.Weight)
		if sat {
			atomic.AddUint64(&ss.SatCount, 1)
		}
		if ss.TraceLog {
			log.Printf("c%v: n%v -> n%v: %+f (delay %v)", ss.Timer.Cycles,
				ss.Map.Global(int(source)), ss.Map.Global(int(tm.Target)),
				fixpt.ToFloat(tm.Weight, ss.Cm.FracBits), delay)
		}
	}
}

// updateNeurons integrates the membrane dynamics for all neurons.
func (ss *CpuSimulation) updateNeurons() {
	n := ss.Neurons.Len()
	if ss.NThreads <= 1 {
		ss.updateRange(0, n)
		return
	}
	chunk := (n + ss.NThreads - 1) / ss.NThreads
	for th := 0; th < ss.NThreads; th++ {
		st := th * chunk
		ed := ints.MinInt(st+chunk, n)
		ss.WaitGp.Add(1)
		go func(th, st, ed int) {
			defer ss.WaitGp.Done()
			ss.ThrTimes[th].Start()
			ss.updateRange(st, ed)
			ss.ThrTimes[th].Stop()
		}(th, st, ed)
	}
	ss.WaitGp.Wait()
}

// updateRange updates neurons in [st, ed): reads and zeroes the input
// current, adds gaussian thalamic noise, runs the substepped Izhikevich
// equations with at most one firing per cycle, folds in the forced
// stimulus, applies the after-spike reset, and shifts the firing history.
// NaN state propagates; a NaN membrane never crosses the firing threshold.
func (ss *CpuSimulation) updateRange(st, ed int) {
	ns := &ss.Neurons
	fbits := ss.Cm.FracBits
	for n := st; n < ed; n++ {
		if !ns.Valid[n] {
			continue
		}
		cur := fixpt.ToFloat(ss.Current[n], fbits)
		ss.Current[n] = 0

		if ns.Sigma[n] != 0 {
			cur += ns.Sigma[n] * ss.Rngs[n].Gaussian()
		}

		fired := false
		for t := 0; t < SubSteps; t++ {
			if !fired {
				ns.V[n] += SubStepMult * ((0.04*ns.V[n]+5.0)*ns.V[n] + 140.0 - ns.U[n] + cur)
				ns.U[n] += SubStepMult * (ns.A[n] * (ns.B[n]*ns.V[n] - ns.U[n]))
				fired = ns.V[n] >= 30.0
			}
		}

		fired = fired || ss.Fstim[n]
		ss.Fired[n] = fired
		ss.RecentFiring[n] = (ss.RecentFiring[n] << 1) | b64(fired)

		if fired {
			ns.V[n] = ns.C[n]
			ns.U[n] += ns.D[n]
			if ss.TraceLog {
				log.Printf("c%v: n%v fired", ss.Timer.Cycles, ss.Map.Global(n))
			}
		}
	}
}

func b64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// accumulateStdp processes potentiation and depression relating to
// postsynaptic firings in the middle of the STDP window: for each firing
// target, each incoming plastic synapse's presynaptic arrival times are
// aligned into the window frame, and the arrival closest to the
// postsynaptic firing contributes one curve value to the synapse's
// weight-delta accumulator.  On an exact pre/post tie the prefire side
// wins.
func (ss *CpuSimulation) accumulateStdp() {
	fn := ss.Stdp
	postBit := fn.PostBit()
	for post := 0; post < ss.Neurons.Len(); post++ {
		if ss.RecentFiring[post]&postBit == 0 {
			continue
		}
		inc := ss.Rcm.Incoming[post]
		acc := ss.Rcm.WAcc[post]
		for s := range inc {
			arrivals := ss.RecentFiring[inc[s].Source] >> uint(inc[s].Delay)
			dtPre := fn.ClosestPreFire(arrivals)
			dtPost := fn.ClosestPostFire(arrivals)
			var dw fixpt.Fix
			switch {
			case dtPre == stdp.NoApplication && dtPost == stdp.NoApplication:
				continue
			case dtPre <= dtPost:
				dw = ss.PreFx[dtPre]
			default:
				dw = ss.PostFx[dtPost]
			}
			if dw != 0 {
				acc[s] += dw
				if ss.TraceLog {
					log.Printf("c%v: n%v -> n%v stdp %+f", ss.Timer.Cycles,
						ss.Map.Global(int(inc[s].Source)), ss.Map.Global(post),
						fixpt.ToFloat(dw, ss.Cm.FracBits))
				}
			}
		}
	}
}

// ApplyStdp folds the accumulated weight deltas, scaled by reward, into
// the plastic weights with the sign-preserving asymmetric bounds, then
// clears all accumulators.  See Simulation.
func (ss *CpuSimulation) ApplyStdp(reward float32) error {
	if ss.Stdp == nil {
		return nil
	}
	fn := ss.Stdp
	fbits := ss.Cm.FracBits
	for post := range ss.Rcm.Incoming {
		inc := ss.Rcm.Incoming[post]
		acc := ss.Rcm.WAcc[post]
		for s := range inc {
			dwfx := acc[s]
			acc[s] = 0
			if dwfx == 0 || reward == 0 {
				continue
			}
			rs := inc[s]
			w := fixpt.ToFloat(ss.Cm.WeightFx(rs.Source, rs.Delay, rs.Idx), fbits)
			wnew := fn.BoundedWeight(w, w+reward*fixpt.ToFloat(dwfx, fbits))
			if wnew != w {
				ss.Cm.SetWeightFx(rs.Source, rs.Delay, rs.Idx, fixpt.ToFix(wnew, fbits))
			}
		}
	}
	return nil
}

// setFiring collects this cycle's fired neurons into the firing buffer
// and returns their global indices.
func (ss *CpuSimulation) setFiring() []uint32 {
	var fired []uint32
	for n := 0; n < ss.Neurons.Len(); n++ {
		if ss.Fired[n] {
			g := ss.Map.Global(n)
			fired = append(fired, g)
			ss.Fbuf.Add(ss.Timer.Cycles, g)
		}
	}
	return fired
}

//////////////////////////////////////////////////////////////////////////////////////
//  Introspection

// synInfo resolves a synapse id to its auxiliary record.
func (ss *CpuSimulation) synInfo(id SynapseID) (*SynInfo, error) {
	src := id.Source()
	if !ss.Map.InRange(src) || !ss.Neurons.Valid[ss.Map.Local(src)] {
		return nil, fmt.Errorf("synapse id %v: source neuron %v does not exist: %w", uint64(id), src, ErrInvalidInput)
	}
	aux := ss.Cm.Aux[ss.Map.Local(src)]
	seq := id.Seq()
	if int(seq) >= len(aux) {
		return nil, fmt.Errorf("synapse id %v: source neuron %v has only %v synapses: %w", uint64(id), src, len(aux), ErrInvalidInput)
	}
	return &aux[seq], nil
}

// GetTargets returns the target neuron of each given synapse.
func (ss *CpuSimulation) GetTargets(ids []SynapseID) ([]uint32, error) {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		sn, err := ss.synInfo(id)
		if err != nil {
			return nil, err
		}
		out[i] = sn.Target
	}
	return out, nil
}

// GetDelays returns the conductance delay of each given synapse.
func (ss *CpuSimulation) GetDelays(ids []SynapseID) ([]uint32, error) {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		sn, err := ss.synInfo(id)
		if err != nil {
			return nil, err
		}
		out[i] = sn.Delay
	}
	return out, nil
}

// GetWeights returns the current weight of each given synapse, reflecting
// any STDP updates.
func (ss *CpuSimulation) GetWeights(ids []SynapseID) ([]float32, error) {
	out := make([]float32, len(ids))
	for i, id := range ids {
		sn, err := ss.synInfo(id)
		if err != nil {
			return nil, err
		}
		ls := uint32(ss.Map.Local(id.Source()))
		out[i] = fixpt.ToFloat(ss.Cm.WeightFx(ls, sn.Delay, sn.RowIdx), ss.Cm.FracBits)
	}
	return out, nil
}

// GetPlastic returns the plasticity flag of each given synapse.
func (ss *CpuSimulation) GetPlastic(ids []SynapseID) ([]bool, error) {
	out := make([]bool, len(ids))
	for i, id := range ids {
		sn, err := ss.synInfo(id)
		if err != nil {
			return nil, err
		}
		out[i] = sn.Plastic
	}
	return out, nil
}

// GetSynapsesFrom returns the ids of all synapses of the given source
// neuron, in insertion order.
func (ss *CpuSimulation) GetSynapsesFrom(source uint32) ([]SynapseID, error) {
	if !ss.Map.InRange(source) || !ss.Neurons.Valid[ss.Map.Local(source)] {
		return nil, fmt.Errorf("neuron %v does not exist: %w", source, ErrInvalidInput)
	}
	aux := ss.Cm.Aux[ss.Map.Local(source)]
	ids := make([]SynapseID, len(aux))
	for i := range aux {
		ids[i] = NewSynapseID(source, uint32(i))
	}
	return ids, nil
}

// GetMembranePotential returns the membrane potential v of a neuron.
func (ss *CpuSimulation) GetMembranePotential(neuron uint32) (float32, error) {
	if !ss.Map.InRange(neuron) || !ss.Neurons.Valid[ss.Map.Local(neuron)] {
		return 0, fmt.Errorf("neuron %v does not exist: %w", neuron, ErrInvalidInput)
	}
	return ss.Neurons.V[ss.Map.Local(neuron)], nil
}

// GetRecoveryVariable returns the recovery variable u of a neuron.
func (ss *CpuSimulation) GetRecoveryVariable(neuron uint32) (float32, error) {
	if !ss.Map.InRange(neuron) || !ss.Neurons.Valid[ss.Map.Local(neuron)] {
		return 0, fmt.Errorf("neuron %v does not exist: %w", neuron, ErrInvalidInput)
	}
	return ss.Neurons.U[ss.Map.Local(neuron)], nil
}

// ReadFiring returns the buffered firings since the last read and the
// number of cycles the buffer spans, then clears the buffer.
func (ss *CpuSimulation) ReadFiring() (*etable.Table, uint64, error) {
	elapsed := ss.Timer.Cycles - ss.LastFlush
	ss.LastFlush = ss.Timer.Cycles
	dt := ss.Fbuf.Table()
	ss.Fbuf.Flush()
	return dt, elapsed, nil
}

// FlushFiringBuffer discards any buffered firings.
func (ss *CpuSimulation) FlushFiringBuffer() {
	ss.Fbuf.Flush()
	ss.LastFlush = ss.Timer.Cycles
}

//////////////////////////////////////////////////////////////////////////////////////
//  Timing and reporting

// ElapsedSimulation returns simulated milliseconds since the last reset.
func (ss *CpuSimulation) ElapsedSimulation() uint64 { return ss.Timer.Cycles }

// ElapsedWallclock returns wallclock milliseconds since the last reset.
func (ss *CpuSimulation) ElapsedWallclock() uint64 { return ss.Timer.ElapsedWallclock() }

// ResetTimer zeroes the simulation and wallclock timers.
func (ss *CpuSimulation) ResetTimer() {
	ss.Timer.Reset()
	ss.LastFlush = 0
}

// BackendDescription describes the backend in human-readable form.
func (ss *CpuSimulation) BackendDescription() string {
	return fmt.Sprintf("CPU backend (%d threads)", ss.NThreads)
}

// SizeReport returns an estimate of the memory allocated to the neuron
// and synapse state.
func (ss *CpuSimulation) SizeReport() string {
	var b strings.Builder
	nn := ss.Neurons.Len()
	nmem := nn * (7*4 + 1 + 8 + 1 + 1 + 4 + int(unsafe.Sizeof(prng.RNG{})))
	syn := ss.Cm.SynCount()
	smem := syn*int(unsafe.Sizeof(Terminal{})) + syn*int(unsafe.Sizeof(SynInfo{})) +
		ss.Rcm.NPlastic()*(int(unsafe.Sizeof(RSynapse{}))+4)
	fmt.Fprintf(&b, "%14s:\t Neurons: %d\t NeurMem: %v\t Syns: %d\t SynMem: %v\n",
		ss.Nm, nn, (datasize.ByteSize)(nmem).HumanReadable(),
		syn, (datasize.ByteSize)(smem).HumanReadable())
	return b.String()
}

// FunTimerStart starts the named function timer, creating it on first use.
func (ss *CpuSimulation) FunTimerStart(fun string) {
	ft, ok := ss.FunTimes[fun]
	if !ok {
		ft = &timer.Time{}
		ss.FunTimes[fun] = ft
	}
	ft.Start()
}

// FunTimerStop stops the named function timer, which must exist.
func (ss *CpuSimulation) FunTimerStop(fun string) {
	ss.FunTimes[fun].Stop()
}

// TimerReport reports the time spent in each step function and worker.
func (ss *CpuSimulation) TimerReport() {
	fmt.Printf("TimerReport: %v, NThreads: %v\n", ss.Nm, ss.NThreads)
	fmt.Printf("\t%13s \t%7s\t%7s\n", "Function Name", "Secs", "Pct")
	nfn := len(ss.FunTimes)
	fnms := make([]string, 0, nfn)
	for k := range ss.FunTimes {
		fnms = append(fnms, k)
	}
	sort.Strings(fnms)
	pcts := make([]float64, nfn)
	tot := 0.0
	for i, fn := range fnms {
		pcts[i] = ss.FunTimes[fn].TotalSecs()
		tot += pcts[i]
	}
	for i, fn := range fnms {
		fmt.Printf("\t%13s \t%7.3f\t%7.1f\n", fn, pcts[i], 100*(pcts[i]/tot))
	}
	fmt.Printf("\t%13s \t%7.3f\n", "Total", tot)

	if ss.NThreads <= 1 {
		return
	}
	fmt.Printf("\n\tThr\tSecs\tPct\n")
	pcts = make([]float64, ss.NThreads)
	tot = 0.0
	for th := 0; th < ss.NThreads; th++ {
		pcts[th] = ss.ThrTimes[th].TotalSecs()
		tot += pcts[th]
	}
	for th := 0; th < ss.NThreads; th++ {
		fmt.Printf("\t%v \t%7.3f\t%7.1f\n", th, pcts[th], 100*(pcts[th]/tot))
	}
}
