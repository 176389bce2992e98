package kernel

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrZeroDivide reports an OpRecip over a zero lane at apply time.
var ErrZeroDivide = errors.New("kernel: reciprocal of zero lane")

// CompileError reports that a kernel could not be compiled for a
// signature. Nothing is cached for the signature; a later call may
// retry.
type CompileError struct {
	Sig Signature
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("kernel: compile %s: %v", e.Sig, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Artifact is the compiled, directly invokable form of a kernel.
//
// Artifacts are immutable after creation and safe to invoke from any
// number of goroutines simultaneously.
type Artifact struct {
	inWidth  int
	outWidth int
	fn       func(dst, rec []float64) error
}

// NewArtifact wraps an application function into an Artifact. This is
// the hook for external kernel providers that compile by other means;
// fn must be pure and safe for concurrent invocation.
func NewArtifact(inWidth, outWidth int, fn func(dst, rec []float64) error) *Artifact {
	return &Artifact{inWidth: inWidth, outWidth: outWidth, fn: fn}
}

// InWidth returns the record width the artifact consumes.
func (a *Artifact) InWidth() int { return a.inWidth }

// OutWidth returns the record width the artifact produces.
func (a *Artifact) OutWidth() int { return a.outWidth }

// Apply evaluates the kernel on one record, writing OutWidth values
// into dst.
func (a *Artifact) Apply(dst, rec []float64) error {
	if len(rec) != a.inWidth {
		return fmt.Errorf("kernel: record width %d, artifact expects %d", len(rec), a.inWidth)
	}
	if len(dst) < a.outWidth {
		return fmt.Errorf("kernel: dst width %d, artifact produces %d", len(dst), a.outWidth)
	}
	return a.fn(dst[:a.outWidth], rec)
}

// ApplyBatch evaluates the kernel over every record in src, a flat
// row-major block of len(src)/InWidth records, writing the outputs in
// record order into dst.
func (a *Artifact) ApplyBatch(dst, src []float64) error {
	if a.inWidth == 0 || len(src)%a.inWidth != 0 {
		return fmt.Errorf("kernel: batch size %d not divisible by record width %d", len(src), a.inWidth)
	}
	rows := len(src) / a.inWidth
	if len(dst) != rows*a.outWidth {
		return fmt.Errorf("kernel: dst size %d, want %d", len(dst), rows*a.outWidth)
	}
	for i := 0; i < rows; i++ {
		rec := src[i*a.inWidth : (i+1)*a.inWidth]
		out := dst[i*a.outWidth : (i+1)*a.outWidth]
		if err := a.fn(out, rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// step transforms the scratch buffer in place and returns the live
// prefix (reduce ops shrink it to one lane).
type step func(buf []float64) ([]float64, error)

// Compile validates the program and specializes it into an Artifact.
// The instruction list is lowered to a chain of closures over the
// program's constants; a pooled scratch buffer keeps per-record
// application allocation-free in steady state.
func (p Program) Compile() (*Artifact, error) {
	if err := p.Validate(); err != nil {
		return nil, &CompileError{Sig: p.Signature(), Err: err}
	}

	steps := make([]step, len(p.Instrs))
	for i, in := range p.Instrs {
		steps[i] = lower(in)
	}

	inWidth := p.Width
	scratch := sync.Pool{
		New: func() any {
			buf := make([]float64, inWidth)
			return &buf
		},
	}

	fn := func(dst, rec []float64) error {
		bufp := scratch.Get().(*[]float64)
		defer scratch.Put(bufp)

		buf := (*bufp)[:inWidth]
		copy(buf, rec)
		var err error
		for _, s := range steps {
			if buf, err = s(buf); err != nil {
				return err
			}
		}
		copy(dst, buf)
		return nil
	}

	return NewArtifact(inWidth, p.OutWidth(), fn), nil
}

// lower specializes one instruction into a step closure.
func lower(in Instr) step {
	switch in.Code {
	case OpAddVec:
		c := append([]float64(nil), in.Vector...)
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] += c[i]
			}
			return buf, nil
		}
	case OpSubVec:
		c := append([]float64(nil), in.Vector...)
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] -= c[i]
			}
			return buf, nil
		}
	case OpMulVec:
		c := append([]float64(nil), in.Vector...)
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] *= c[i]
			}
			return buf, nil
		}
	case OpScale:
		s := in.Scalar
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] *= s
			}
			return buf, nil
		}
	case OpOffset:
		s := in.Scalar
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] += s
			}
			return buf, nil
		}
	case OpSquare:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] *= buf[i]
			}
			return buf, nil
		}
	case OpAbs:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] = math.Abs(buf[i])
			}
			return buf, nil
		}
	case OpSqrt:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] = math.Sqrt(buf[i])
			}
			return buf, nil
		}
	case OpExp:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] = math.Exp(buf[i])
			}
			return buf, nil
		}
	case OpNeg:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				buf[i] = -buf[i]
			}
			return buf, nil
		}
	case OpRecip:
		return func(buf []float64) ([]float64, error) {
			for i := range buf {
				if buf[i] == 0 {
					return nil, ErrZeroDivide
				}
				buf[i] = 1 / buf[i]
			}
			return buf, nil
		}
	case OpSumAll:
		return func(buf []float64) ([]float64, error) {
			var sum float64
			for _, v := range buf {
				sum += v
			}
			buf[0] = sum
			return buf[:1], nil
		}
	case OpMinAll:
		return func(buf []float64) ([]float64, error) {
			m := buf[0]
			for _, v := range buf[1:] {
				if v < m {
					m = v
				}
			}
			buf[0] = m
			return buf[:1], nil
		}
	case OpMaxAll:
		return func(buf []float64) ([]float64, error) {
			m := buf[0]
			for _, v := range buf[1:] {
				if v > m {
					m = v
				}
			}
			buf[0] = m
			return buf[:1], nil
		}
	default:
		// Validate rejects unknown opcodes before lowering.
		return func(buf []float64) ([]float64, error) {
			return nil, ErrUnknownOp
		}
	}
}
