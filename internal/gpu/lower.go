// Package gpu lowers kernel programs to WGSL compute shaders and runs
// them through a WebGPU device. Shader modules and compute pipelines
// are compiled once per kernel signature and cached, mirroring the CPU
// artifact cache discipline.
//
// The GPU path computes in float32; callers needing float64-exact
// results should stay on the CPU path.
package gpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kiln-ml/kiln/internal/kernel"
)

// workgroupSize is the number of threads per workgroup; each thread
// evaluates one record.
const workgroupSize = 256

// Lowering errors.
var (
	ErrUnavailable   = errors.New("gpu: webgpu backend unavailable on this platform")
	ErrUnsupportedOp = errors.New("gpu: opcode not supported on the gpu path")
)

// lit formats a float64 as a WGSL f32 expression.
func lit(v float64) string {
	return fmt.Sprintf("f32(%s)", strconv.FormatFloat(v, 'g', -1, 64))
}

// lowerWGSL generates a compute shader evaluating prog: one thread per
// record, input and output as flat row-major storage arrays.
func lowerWGSL(p kernel.Program) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	for _, in := range p.Instrs {
		if in.Code == kernel.OpRecip {
			// No error channel on the GPU; zero lanes would silently
			// produce inf instead of failing the chunk.
			return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, in.Code)
		}
	}

	var b strings.Builder
	b.WriteString("@group(0) @binding(0) var<storage, read> input: array<f32>;\n")
	b.WriteString("@group(0) @binding(1) var<storage, read_write> output: array<f32>;\n\n")
	b.WriteString("struct Params {\n    rows: u32,\n}\n")
	b.WriteString("@group(0) @binding(2) var<uniform> params: Params;\n\n")
	fmt.Fprintf(&b, "@compute @workgroup_size(%d)\n", workgroupSize)
	b.WriteString("fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {\n")
	b.WriteString("    let idx = global_id.x;\n")
	b.WriteString("    if (idx >= params.rows) {\n        return;\n    }\n")

	// Load lanes into locals.
	lanes := make([]string, p.Width)
	for i := range lanes {
		lanes[i] = fmt.Sprintf("v%d", i)
		fmt.Fprintf(&b, "    var v%d: f32 = input[idx * %du + %du];\n", i, p.Width, i)
	}

	tmp := 0
	for _, in := range p.Instrs {
		switch in.Code {
		case kernel.OpAddVec:
			for i, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s + %s;\n", l, l, lit(in.Vector[i]))
			}
		case kernel.OpSubVec:
			for i, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s - %s;\n", l, l, lit(in.Vector[i]))
			}
		case kernel.OpMulVec:
			for i, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s * %s;\n", l, l, lit(in.Vector[i]))
			}
		case kernel.OpScale:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s * %s;\n", l, l, lit(in.Scalar))
			}
		case kernel.OpOffset:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s + %s;\n", l, l, lit(in.Scalar))
			}
		case kernel.OpSquare:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = %s * %s;\n", l, l, l)
			}
		case kernel.OpAbs:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = abs(%s);\n", l, l)
			}
		case kernel.OpSqrt:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = sqrt(%s);\n", l, l)
			}
		case kernel.OpExp:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = exp(%s);\n", l, l)
			}
		case kernel.OpNeg:
			for _, l := range lanes {
				fmt.Fprintf(&b, "    %s = -%s;\n", l, l)
			}
		case kernel.OpSumAll:
			expr := strings.Join(lanes, " + ")
			name := fmt.Sprintf("r%d", tmp)
			tmp++
			fmt.Fprintf(&b, "    var %s: f32 = %s;\n", name, expr)
			lanes = []string{name}
		case kernel.OpMinAll:
			lanes = []string{reduceCall(&b, "min", lanes, &tmp)}
		case kernel.OpMaxAll:
			lanes = []string{reduceCall(&b, "max", lanes, &tmp)}
		default:
			return "", fmt.Errorf("%w: %s", ErrUnsupportedOp, in.Code)
		}
	}

	for i, l := range lanes {
		fmt.Fprintf(&b, "    output[idx * %du + %du] = %s;\n", len(lanes), i, l)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// reduceCall emits a nested builtin-call reduction over lanes and
// returns the name of the result variable.
func reduceCall(b *strings.Builder, fn string, lanes []string, tmp *int) string {
	expr := lanes[0]
	for _, l := range lanes[1:] {
		expr = fmt.Sprintf("%s(%s, %s)", fn, expr, l)
	}
	name := fmt.Sprintf("r%d", *tmp)
	*tmp++
	fmt.Fprintf(b, "    var %s: f32 = %s;\n", name, expr)
	return name
}
