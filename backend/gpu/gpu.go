// Copyright 2025 Kiln ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gpu provides the optional WebGPU execution path for kernel
// programs. Kernel programs are lowered to WGSL compute shaders;
// shader modules and pipelines are compiled once per kernel signature
// and cached on the backend.
//
// The GPU path computes in float32 and is only built on windows;
// elsewhere New fails and IsAvailable reports false, so callers can
// fall back to the CPU path:
//
//	if gpu.IsAvailable() {
//	    b, _ := gpu.New()
//	    defer b.Release()
//	    out, err = b.Evaluate(prog, points)
//	} else {
//	    out, err = eval.Evaluate(ctx, points, prog, eval.Options{})
//	}
package gpu

import (
	"github.com/kiln-ml/kiln/internal/gpu"
)

// Backend evaluates kernel programs on a WebGPU device.
type Backend = gpu.Backend

// ErrUnavailable reports that no WebGPU backend can be initialized on
// this platform.
var ErrUnavailable = gpu.ErrUnavailable

// New initializes a WebGPU device. Call Release when done.
func New() (*Backend, error) { return gpu.New() }

// IsAvailable reports whether a WebGPU device can be initialized.
func IsAvailable() bool { return gpu.IsAvailable() }
