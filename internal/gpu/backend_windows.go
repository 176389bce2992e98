//go:build windows

package gpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/kernel"
)

// Backend evaluates kernel programs on a WebGPU device. Compiled
// shader modules and compute pipelines are cached per kernel
// signature; the caches are the only mutable state and are guarded by
// mu, so a Backend is safe for concurrent Evaluate calls (command
// submission is serialized by the device queue).
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.RWMutex
	shaders   map[kernel.Signature]*wgpu.ShaderModule
	pipelines map[kernel.Signature]*wgpu.ComputePipeline
}

// New initializes a WebGPU device.
// Returns an error if no compatible adapter is present.
func New() (backend *Backend, err error) {
	// Recover if the wgpu native library is missing.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("gpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("gpu: request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpu: request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpu: no device queue")
	}

	return &Backend{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[kernel.Signature]*wgpu.ShaderModule),
		pipelines: make(map[kernel.Signature]*wgpu.ComputePipeline),
	}, nil
}

// IsAvailable reports whether a WebGPU device can be initialized.
func IsAvailable() bool {
	b, err := New()
	if err != nil {
		return false
	}
	b.Release()
	return true
}

// Release frees GPU resources. The backend must not be used after.
func (b *Backend) Release() {
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// getOrCompile returns the cached pipeline for prog's signature,
// lowering and compiling on first use.
func (b *Backend) getOrCompile(prog kernel.Program) (*wgpu.ComputePipeline, error) {
	sig := prog.Signature()

	b.mu.RLock()
	pipeline, ok := b.pipelines[sig]
	b.mu.RUnlock()
	if ok {
		return pipeline, nil
	}

	code, err := lowerWGSL(prog)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pipeline, ok := b.pipelines[sig]; ok {
		return pipeline, nil
	}

	shader := b.device.CreateShaderModuleWGSL(code)
	pipeline = b.device.CreateComputePipelineSimple(nil, shader, "main")
	b.shaders[sig] = shader
	b.pipelines[sig] = pipeline
	return pipeline, nil
}

// Evaluate applies prog to every record of data on the GPU, returning
// outputs in record order. Data is converted to float32 on upload and
// back to float64 on readback.
func (b *Backend) Evaluate(prog kernel.Program, data *dataset.Matrix) (*dataset.Matrix, error) {
	if data.Width() != prog.Width {
		return nil, fmt.Errorf("gpu: dataset width %d, kernel expects %d", data.Width(), prog.Width)
	}
	rows := data.Rows()
	if rows == 0 {
		return dataset.Empty(), nil
	}

	pipeline, err := b.getOrCompile(prog)
	if err != nil {
		return nil, err
	}
	outWidth := prog.OutWidth()

	// Upload input as f32.
	src := data.Data()
	in32 := make([]float32, len(src))
	for i, v := range src {
		in32[i] = float32(v)
	}
	inBytes := unsafe.Slice((*byte)(unsafe.Pointer(&in32[0])), len(in32)*4)

	bufferInput := b.createBuffer(inBytes, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferInput.Release()

	resultSize := uint64(rows * outWidth * 4)
	bufferOutput := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  resultSize,
	})
	defer bufferOutput.Release()

	// Uniform params: rows as u32, padded to 16 bytes.
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(rows))
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, uint64(len(inBytes))),
		wgpu.BufferBindingEntry(1, bufferOutput, 0, resultSize),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)

	workgroups := uint32((rows + workgroupSize - 1) / workgroupSize)
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	outBytes, err := b.readBuffer(bufferOutput, resultSize)
	if err != nil {
		return nil, err
	}

	out32 := unsafe.Slice((*float32)(unsafe.Pointer(&outBytes[0])), rows*outWidth)
	result, err := dataset.New(rows, outWidth)
	if err != nil {
		return nil, err
	}
	dst := result.Data()
	for i, v := range out32 {
		dst[i] = float64(v)
	}
	return result, nil
}

// createBuffer creates a GPU buffer pre-filled with data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer creates a 16-byte-aligned uniform buffer.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()
	return buffer
}

// readBuffer copies a storage buffer back to CPU memory through a
// staging buffer.
func (b *Backend) readBuffer(srcBuffer *wgpu.Buffer, size uint64) ([]byte, error) {
	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(srcBuffer, 0, stagingBuffer, 0, size)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	if err := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("gpu: map staging buffer: %w", err)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, size)
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mappedSlice)
	stagingBuffer.Unmap()

	return result, nil
}
