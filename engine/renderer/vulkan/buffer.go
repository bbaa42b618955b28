package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

// OneShotRunner records and synchronously executes a single-use command
// buffer. present.CommandRecorder is the production implementation.
type OneShotRunner interface {
	OneShot(record func(cb present.CommandBuffer) error) error
}

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
}

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	outBuffer := &VulkanBuffer{
		Size:  vk.DeviceSize(size),
		Usage: usage,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        outBuffer.Size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	var buffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &buffer); res != vk.Success {
		err := fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	outBuffer.Handle = buffer

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer, &requirements)
	memory, err := context.allocate(requirements, memoryFlags)
	if err != nil {
		core.LogError("buffer memory: %s", err)
		outBuffer.Destroy(context)
		return nil, err
	}
	outBuffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		err := fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		outBuffer.Destroy(context)
		return nil, err
	}
	return outBuffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	vb.Size = 0
}

// LoadData copies data into host visible memory at offset.
func (vb *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) vk.Result {
	if uint64(len(data))+offset > uint64(vb.Size) {
		core.LogError("buffer write of %d bytes at %d overflows a %d byte buffer", len(data), offset, vb.Size)
		return vk.ErrorMemoryMapFailed
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		return res
	}
	n := vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	if n != len(data) {
		core.LogError("copied %d of %d bytes into buffer", n, len(data))
		return vk.ErrorMemoryMapFailed
	}
	return vk.Success
}

func (d *Driver) CreateUniformBuffer(size uint64) (present.Buffer, error) {
	buffer, err := BufferCreate(d.context, size,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return 0, err
	}
	return present.Buffer(d.buffers.add(buffer)), nil
}

func (d *Driver) DestroyBuffer(b present.Buffer) {
	if buffer, ok := d.buffers.take(present.Handle(b)); ok {
		buffer.Destroy(d.context)
	}
}

func (d *Driver) WriteBuffer(b present.Buffer, data []byte) present.Result {
	buffer, ok := d.buffers.get(present.Handle(b))
	if !ok {
		core.LogError("write to unknown buffer %d", b)
		return present.Unknown
	}
	return toResult(buffer.LoadData(d.context, 0, data))
}

// uploadDeviceLocal creates a device local buffer with usage and fills it
// through a staging buffer and a one-shot copy.
func (d *Driver) uploadDeviceLocal(runner OneShotRunner, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := uint64(len(data))
	staging, err := BufferCreate(d.context, size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(d.context)

	if res := staging.LoadData(d.context, 0, data); res != vk.Success {
		return nil, fmt.Errorf("staging write failed with %s", VulkanResultString(res, false))
	}

	buffer, err := BufferCreate(d.context, size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	err = runner.OneShot(func(cb present.CommandBuffer) error {
		vcb, err := d.commandBuffer(cb)
		if err != nil {
			return err
		}
		vk.CmdCopyBuffer(vcb.Handle, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(size),
		}})
		return nil
	})
	if err != nil {
		buffer.Destroy(d.context)
		return nil, err
	}
	return buffer, nil
}

// UploadGeometry creates the vertex and 32-bit index buffers of one mesh.
func (d *Driver) UploadGeometry(runner OneShotRunner, vertices []byte, indices []uint32) (present.Geometry, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return present.Geometry{}, fmt.Errorf("geometry needs vertices and indices, got %d bytes and %d indices", len(vertices), len(indices))
	}

	vertexBuffer, err := d.uploadDeviceLocal(runner, vertices, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return present.Geometry{}, fmt.Errorf("vertex buffer: %w", err)
	}
	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
	indexBuffer, err := d.uploadDeviceLocal(runner, indexBytes, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(d.context)
		return present.Geometry{}, fmt.Errorf("index buffer: %w", err)
	}

	core.LogDebug("geometry uploaded: %d vertex bytes, %d indices", len(vertices), len(indices))
	return present.Geometry{
		VertexBuffer: present.Buffer(d.buffers.add(vertexBuffer)),
		IndexBuffer:  present.Buffer(d.buffers.add(indexBuffer)),
		IndexCount:   uint32(len(indices)),
	}, nil
}

func (d *Driver) DestroyGeometry(g present.Geometry) {
	d.DestroyBuffer(g.VertexBuffer)
	d.DestroyBuffer(g.IndexBuffer)
}
