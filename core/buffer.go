// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/model"
)

// ErrNoMemoryType is returned when no memory type fits a resource
var ErrNoMemoryType = errors.New("suitable memory type not found")

// FindMemoryType returns the first memory type index allowed by filter
// that has every required property. The memory types must be dereferenced.
func FindMemoryType(properties vk.PhysicalDeviceMemoryProperties, filter uint32, required vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < properties.MemoryTypeCount && idx < uint32(len(properties.MemoryTypes)); idx++ {
		if filter&(1<<idx) == 0 {
			continue
		}
		if properties.MemoryTypes[idx].PropertyFlags&required == required {
			return idx, nil
		}
	}
	return 0, ErrNoMemoryType
}

func (v *VulkanRenderer) allocateMemory(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	memoryType, err := FindMemoryType(v.memoryProperties, requirements.MemoryTypeBits, vk.MemoryPropertyFlags(properties))
	if err != nil {
		return nil, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(v.logicalDevice, &mai, nil, &memory)); err != nil {
		return nil, errors.Wrap(err, "vk.AllocateMemory()")
	}
	return memory, nil
}

// createBuffer creates a buffer with its own bound memory
func (v *VulkanRenderer) createBuffer(size int, usage vk.BufferUsageFlagBits, properties vk.MemoryPropertyFlagBits) (vk.Buffer, vk.DeviceMemory, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(v.logicalDevice, &bci, nil, &buffer)); err != nil {
		return nil, nil, errors.Wrap(err, "vk.CreateBuffer()")
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.logicalDevice, buffer, &requirements)
	requirements.Deref()

	memory, err := v.allocateMemory(requirements, properties)
	if err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		return nil, nil, err
	}

	if err := vk.Error(vk.BindBufferMemory(v.logicalDevice, buffer, memory, 0)); err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		vk.FreeMemory(v.logicalDevice, memory, nil)
		return nil, nil, errors.Wrap(err, "vk.BindBufferMemory()")
	}
	return buffer, memory, nil
}

// createStagingBuffer returns a host visible buffer holding a copy of size bytes at data
func (v *VulkanRenderer) createStagingBuffer(data unsafe.Pointer, size int) (vk.Buffer, vk.DeviceMemory, error) {
	buffer, memory, err := v.createBuffer(size, vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, nil, err
	}

	var mapped unsafe.Pointer
	if err := vk.Error(vk.MapMemory(v.logicalDevice, memory, 0, vk.DeviceSize(size), 0, &mapped)); err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		vk.FreeMemory(v.logicalDevice, memory, nil)
		return nil, nil, errors.Wrap(err, "vk.MapMemory()")
	}
	copyToMapped(mapped, data, size)
	vk.UnmapMemory(v.logicalDevice, memory)
	return buffer, memory, nil
}

// uploadBuffer creates a device local buffer filled with size bytes at data
func (v *VulkanRenderer) uploadBuffer(data unsafe.Pointer, size int, usage vk.BufferUsageFlagBits) (vk.Buffer, vk.DeviceMemory, error) {
	staging, stagingMemory, err := v.createStagingBuffer(data, size)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		vk.DestroyBuffer(v.logicalDevice, staging, nil)
		vk.FreeMemory(v.logicalDevice, stagingMemory, nil)
	}()

	buffer, memory, err := v.createBuffer(size, usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, nil, err
	}

	if err := v.copyBuffer(staging, buffer, vk.DeviceSize(size)); err != nil {
		vk.DestroyBuffer(v.logicalDevice, buffer, nil)
		vk.FreeMemory(v.logicalDevice, memory, nil)
		return nil, nil, err
	}
	return buffer, memory, nil
}

func (v *VulkanRenderer) createVertexBuffer(mesh model.Mesh) error {
	buffer, memory, err := v.uploadBuffer(unsafe.Pointer(&mesh.Vertices[0]), mesh.VertexBufferSize(), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return errors.Wrap(err, "vertex buffer")
	}
	v.vertexBuffer = buffer
	v.vertexBufferMemory = memory
	return nil
}

func (v *VulkanRenderer) createIndexBuffer(mesh model.Mesh) error {
	buffer, memory, err := v.uploadBuffer(unsafe.Pointer(&mesh.Indices[0]), mesh.IndexBufferSize(), vk.BufferUsageIndexBufferBit)
	if err != nil {
		return errors.Wrap(err, "index buffer")
	}
	v.indexBuffer = buffer
	v.indexBufferMemory = memory
	v.indexCount = uint32(len(mesh.Indices))
	return nil
}

// createUniformBuffers makes one persistently mapped buffer per swapchain image
func (v *VulkanRenderer) createUniformBuffers() error {
	count := len(v.swapchainImages)
	v.uniformBuffers = make([]vk.Buffer, 0, count)
	v.uniformBuffersMemory = make([]vk.DeviceMemory, 0, count)
	v.uniformMapped = make([]unsafe.Pointer, 0, count)

	for idx := 0; idx < count; idx++ {
		buffer, memory, err := v.createBuffer(model.UniformSize, vk.BufferUsageUniformBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return errors.Wrapf(err, "uniform buffer %d", idx)
		}
		v.uniformBuffers = append(v.uniformBuffers, buffer)
		v.uniformBuffersMemory = append(v.uniformBuffersMemory, memory)

		var mapped unsafe.Pointer
		if err := vk.Error(vk.MapMemory(v.logicalDevice, memory, 0, vk.DeviceSize(model.UniformSize), 0, &mapped)); err != nil {
			v.uniformMapped = append(v.uniformMapped, nil)
			return errors.Wrap(err, "vk.MapMemory()")
		}
		v.uniformMapped = append(v.uniformMapped, mapped)
	}
	return nil
}

func (v *VulkanRenderer) updateUniformBuffer(imageIdx uint32) {
	ubo := model.NewUniform(v.clock.Elapsed(), v.configuration.RotationSpeed, v.extent.Width, v.extent.Height)
	copyToMapped(v.uniformMapped[imageIdx], unsafe.Pointer(&ubo), model.UniformSize)
}

func (v *VulkanRenderer) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        v.commandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return nil, errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}
	commandBuffer := commandBuffers[0]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		vk.FreeCommandBuffers(v.logicalDevice, v.commandPool, 1, commandBuffers)
		return nil, errors.Wrap(err, "vk.BeginCommandBuffer()")
	}
	return commandBuffer, nil
}

// endSingleTimeCommands submits the buffer and waits for the queue to drain
func (v *VulkanRenderer) endSingleTimeCommands(commandBuffer vk.CommandBuffer) error {
	commandBuffers := []vk.CommandBuffer{commandBuffer}
	defer vk.FreeCommandBuffers(v.logicalDevice, v.commandPool, 1, commandBuffers)

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return errors.Wrap(err, "vk.EndCommandBuffer()")
	}

	si := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}}
	if err := vk.Error(vk.QueueSubmit(v.graphicsQueue, 1, si, vk.NullFence)); err != nil {
		return errors.Wrap(err, "vk.QueueSubmit()")
	}
	if err := vk.Error(vk.QueueWaitIdle(v.graphicsQueue)); err != nil {
		return errors.Wrap(err, "vk.QueueWaitIdle()")
	}
	return nil
}

func (v *VulkanRenderer) copyBuffer(src, dst vk.Buffer, size vk.DeviceSize) error {
	cmd, err := v.beginSingleTimeCommands()
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cmd, src, dst, 1, []vk.BufferCopy{{Size: size}})
	return v.endSingleTimeCommands(cmd)
}

func (v *VulkanRenderer) copyBufferToImage(buf vk.Buffer, img vk.Image, width, height uint32) error {
	cmd, err := v.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	bic := vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, buf, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bic})
	return v.endSingleTimeCommands(cmd)
}
