// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package izhik

import "errors"

// Failure classes for all simulator operations.  Every error returned from
// this package wraps exactly one of these sentinels, so callers classify
// with errors.Is and read the wrapped message for detail.  A failed
// operation leaves the network or simulation in its pre-call state.
var (
	// ErrInvalidInput covers out-of-range delays, duplicate neuron
	// indices, references to nonexistent neurons, and mismatched batch
	// vector lengths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupported is returned for operations the configured backend
	// does not implement.
	ErrUnsupported = errors.New("unsupported")

	// ErrAllocation is returned when the forward or reverse matrix or the
	// current buffer cannot be allocated.
	ErrAllocation = errors.New("allocation error")

	// ErrLogic indicates an internal invariant violation.
	ErrLogic = errors.New("logic error")

	// ErrUnknown covers any other unexpected failure.
	ErrUnknown = errors.New("unknown error")
)
