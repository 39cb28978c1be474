// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package izhik is the overall repository for a discrete-time spiking neural
network simulator built on the Izhikevich neuron model, with delayed chemical
synapses and optional spike-timing-dependent plasticity (STDP).

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* izhik: the core simulator: network construction, the forward and reverse
connectivity matrices, the millisecond step loop (spike delivery, sub-stepped
membrane integration, firing history), the STDP engine, and the CPU backend.

* fixpt: the signed Q(31-f).f fixed-point format used for synaptic weights and
accumulated input currents, which makes parallel current accumulation
bit-deterministic.

* prng: the small per-neuron deterministic random generator used for gaussian
thalamic input noise.

* stdp: the STDP window function: sampled pre/post curves, firing-window bit
masks, and the bounded weight-update rule.

The repository has no examples directory and no runnable programs.
*/
package izhik
