// Copyright 2025 Kiln ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernel is the public API for defining and compiling numeric
// kernels.
//
// A kernel is a pure function applied uniformly to each fixed-width
// record of a dataset. Kernels are described as small opcode programs
// and compiled once per signature into a directly invokable Artifact;
// compiled artifacts are cached process-wide and shared across
// evaluation calls.
//
// Example:
//
//	prog := kernel.EuclideanDistance([]float64{0.5, 0.5, 0.5})
//	art, err := kernel.Default().GetOrCompile(prog.Signature(), prog.Compile)
package kernel

import (
	"github.com/kiln-ml/kiln/internal/kernel"
)

// Kernel is the contract for kernel providers: a stable signature for
// cache lookup and a compile step producing the invokable form.
type Kernel = kernel.Kernel

// Program describes a kernel as an opcode instruction list over a
// record of Width float64 lanes.
type Program = kernel.Program

// Instr is one kernel program instruction.
type Instr = kernel.Instr

// Op is a kernel program opcode.
type Op = kernel.Op

// Kernel opcodes.
const (
	OpAddVec = kernel.OpAddVec
	OpSubVec = kernel.OpSubVec
	OpMulVec = kernel.OpMulVec
	OpScale  = kernel.OpScale
	OpOffset = kernel.OpOffset
	OpSquare = kernel.OpSquare
	OpAbs    = kernel.OpAbs
	OpSqrt   = kernel.OpSqrt
	OpExp    = kernel.OpExp
	OpNeg    = kernel.OpNeg
	OpRecip  = kernel.OpRecip
	OpSumAll = kernel.OpSumAll
	OpMinAll = kernel.OpMinAll
	OpMaxAll = kernel.OpMaxAll
)

// Signature identifies a kernel's compiled form.
type Signature = kernel.Signature

// Artifact is the compiled, directly invokable form of a kernel. Safe
// for concurrent invocation.
type Artifact = kernel.Artifact

// Cache maps signatures to compiled artifacts, compiling at most once
// per signature under concurrency (blocking-wait policy).
type Cache = kernel.Cache

// CompileError reports a failed kernel compilation.
type CompileError = kernel.CompileError

// NewCache returns an empty artifact cache.
func NewCache() *Cache { return kernel.NewCache() }

// Default returns the process-wide artifact cache.
func Default() *Cache { return kernel.Default() }

// NewArtifact wraps an application function into an Artifact, for
// kernel providers that compile by other means.
func NewArtifact(inWidth, outWidth int, fn func(dst, rec []float64) error) *Artifact {
	return kernel.NewArtifact(inWidth, outWidth, fn)
}

// EuclideanDistance builds a program computing the distance from each
// record to center.
func EuclideanDistance(center []float64) Program { return kernel.EuclideanDistance(center) }

// Affine builds a program computing scale*rec + offset lane-wise.
func Affine(width int, scale, offset float64) Program { return kernel.Affine(width, scale, offset) }

// SquaredNorm builds a program computing sum(rec^2).
func SquaredNorm(width int) Program { return kernel.SquaredNorm(width) }
