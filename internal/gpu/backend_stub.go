//go:build !windows

package gpu

import (
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/kernel"
)

// Backend is a placeholder on platforms without the WebGPU build.
type Backend struct{}

// New always fails; the WebGPU backend is only built on windows.
func New() (*Backend, error) { return nil, ErrUnavailable }

// IsAvailable reports false on platforms without the WebGPU build.
func IsAvailable() bool { return false }

// Release is a no-op.
func (b *Backend) Release() {}

// Evaluate always fails; the WebGPU backend is only built on windows.
func (b *Backend) Evaluate(prog kernel.Program, data *dataset.Matrix) (*dataset.Matrix, error) {
	return nil, ErrUnavailable
}
