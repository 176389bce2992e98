// Package kernel defines numeric kernels as small opcode programs over
// fixed-width records, compiles them into directly invokable artifacts,
// and caches compiled artifacts process-wide by signature.
package kernel

import (
	"errors"
	"fmt"
)

// Kernel is the contract for external kernel providers.
//
// A kernel must be pure: applying its compiled artifact to the same
// record always yields the same output, with no side effects over
// shared memory. Two kernels reporting the same Signature must be
// interchangeable, since they may share one compiled artifact.
type Kernel interface {
	// Signature identifies the kernel's compiled form for cache lookup.
	Signature() Signature

	// Compile produces the directly invokable form of the kernel.
	Compile() (*Artifact, error)
}

// Op is a kernel program opcode.
type Op uint8

// Kernel opcodes. Element-wise ops preserve record width; reduce ops
// collapse the record to width 1.
const (
	OpAddVec Op = iota + 1 // lane-wise add a constant vector
	OpSubVec               // lane-wise subtract a constant vector
	OpMulVec               // lane-wise multiply by a constant vector
	OpScale                // multiply every lane by a scalar
	OpOffset               // add a scalar to every lane
	OpSquare               // square every lane
	OpAbs                  // absolute value of every lane
	OpSqrt                 // square root of every lane
	OpExp                  // e^x for every lane
	OpNeg                  // negate every lane
	OpRecip                // reciprocal of every lane; fails on zero
	OpSumAll               // reduce: sum of all lanes
	OpMinAll               // reduce: minimum lane
	OpMaxAll               // reduce: maximum lane
)

// String returns the opcode mnemonic.
func (op Op) String() string {
	switch op {
	case OpAddVec:
		return "addvec"
	case OpSubVec:
		return "subvec"
	case OpMulVec:
		return "mulvec"
	case OpScale:
		return "scale"
	case OpOffset:
		return "offset"
	case OpSquare:
		return "square"
	case OpAbs:
		return "abs"
	case OpSqrt:
		return "sqrt"
	case OpExp:
		return "exp"
	case OpNeg:
		return "neg"
	case OpRecip:
		return "recip"
	case OpSumAll:
		return "sumall"
	case OpMinAll:
		return "minall"
	case OpMaxAll:
		return "maxall"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Validation errors.
var (
	ErrBadWidth      = errors.New("kernel: record width must be >= 1")
	ErrUnknownOp     = errors.New("kernel: unknown opcode")
	ErrVectorWidth   = errors.New("kernel: constant vector width does not match record width")
	ErrMissingVector = errors.New("kernel: opcode requires a constant vector")
)

// Instr is one kernel program instruction. Vector is consulted only by
// the *Vec opcodes, Scalar only by OpScale and OpOffset.
type Instr struct {
	Code   Op
	Scalar float64
	Vector []float64
}

// Program describes a kernel as an ordered instruction list applied to
// a record of Width float64 lanes. The zero instruction list is the
// identity kernel.
//
// Programs are plain data: they carry no compiled state and may be
// copied freely. Compilation specializes a program into an Artifact.
type Program struct {
	Width  int
	Instrs []Instr
}

// OutWidth returns the width of the record the program produces.
func (p Program) OutWidth() int {
	w := p.Width
	for _, in := range p.Instrs {
		switch in.Code {
		case OpSumAll, OpMinAll, OpMaxAll:
			w = 1
		}
	}
	return w
}

// Validate checks opcodes and constant-vector widths without compiling.
func (p Program) Validate() error {
	if p.Width < 1 {
		return ErrBadWidth
	}
	w := p.Width
	for i, in := range p.Instrs {
		switch in.Code {
		case OpAddVec, OpSubVec, OpMulVec:
			if in.Vector == nil {
				return fmt.Errorf("instr %d (%s): %w", i, in.Code, ErrMissingVector)
			}
			if len(in.Vector) != w {
				return fmt.Errorf("instr %d (%s): have %d, record width %d: %w",
					i, in.Code, len(in.Vector), w, ErrVectorWidth)
			}
		case OpScale, OpOffset, OpSquare, OpAbs, OpSqrt, OpExp, OpNeg, OpRecip:
			// Width-preserving, no operand constraints.
		case OpSumAll, OpMinAll, OpMaxAll:
			w = 1
		default:
			return fmt.Errorf("instr %d: code %d: %w", i, in.Code, ErrUnknownOp)
		}
	}
	return nil
}

// EuclideanDistance builds a program computing the distance from each
// record to center: sqrt(sum((rec - center)^2)). Output width is 1.
func EuclideanDistance(center []float64) Program {
	c := append([]float64(nil), center...)
	return Program{
		Width: len(c),
		Instrs: []Instr{
			{Code: OpSubVec, Vector: c},
			{Code: OpSquare},
			{Code: OpSumAll},
			{Code: OpSqrt},
		},
	}
}

// Affine builds a program computing scale*rec + offset lane-wise.
func Affine(width int, scale, offset float64) Program {
	return Program{
		Width: width,
		Instrs: []Instr{
			{Code: OpScale, Scalar: scale},
			{Code: OpOffset, Scalar: offset},
		},
	}
}

// SquaredNorm builds a program computing sum(rec^2). Output width is 1.
func SquaredNorm(width int) Program {
	return Program{
		Width: width,
		Instrs: []Instr{
			{Code: OpSquare},
			{Code: OpSumAll},
		},
	}
}
