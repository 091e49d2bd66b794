// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// frameRing tracks which frame slot is being recorded and which slot
// last submitted work for each swapchain image.
type frameRing struct {
	size    int
	current int
	owners  []int
}

func newFrameRing(size int) *frameRing {
	return &frameRing{size: size}
}

// resetImages forgets image ownership, the swapchain was (re)created
func (f *frameRing) resetImages(images int) {
	f.owners = make([]int, images)
	for i := range f.owners {
		f.owners[i] = -1
	}
}

// claim marks image as used by the current slot. It returns the slot
// that used the image before, if any, whose fence must be waited on.
func (f *frameRing) claim(image uint32) (int, bool) {
	previous := f.owners[image]
	f.owners[image] = f.current
	return previous, previous >= 0
}

func (f *frameRing) advance() {
	f.current = (f.current + 1) % f.size
}

func (v *VulkanRenderer) createSynchronization() error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	v.imageAvailableSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	v.renderFinishedSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	v.inFlightFences = make([]vk.Fence, MaxFramesInFlight)

	for i := 0; i < MaxFramesInFlight; i++ {
		if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &v.imageAvailableSemaphores[i])); err != nil {
			return errors.Wrap(err, "vk.CreateSemaphore()")
		}
		if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &v.renderFinishedSemaphores[i])); err != nil {
			return errors.Wrap(err, "vk.CreateSemaphore()")
		}
		if err := vk.Error(vk.CreateFence(v.logicalDevice, &fci, nil, &v.inFlightFences[i])); err != nil {
			return errors.Wrap(err, "vk.CreateFence()")
		}
	}
	return nil
}

func (v *VulkanRenderer) allocateCommandBuffers() error {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        v.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(v.framebuffers)),
	}

	commandBuffers := make([]vk.CommandBuffer, len(v.framebuffers))
	if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}
	v.commandBuffers = commandBuffers
	return nil
}

// buildCommandBuffers records the whole frame once for each swapchain image
func (v *VulkanRenderer) buildCommandBuffers() error {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(v.configuration.ClearColor[:])
	clearValues[1].SetDepthStencil(1, 0)

	for idx, cmd := range v.commandBuffers {
		cbbi := vk.CommandBufferBeginInfo{
			SType: vk.StructureTypeCommandBufferBeginInfo,
		}
		if err := vk.Error(vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
			return errors.Wrapf(err, "vk.BeginCommandBuffer()[%d]", idx)
		}

		rpbi := vk.RenderPassBeginInfo{
			SType:       vk.StructureTypeRenderPassBeginInfo,
			RenderPass:  v.renderPass,
			Framebuffer: v.framebuffers[idx],
			RenderArea: vk.Rect2D{
				Offset: vk.Offset2D{X: 0, Y: 0},
				Extent: v.extent,
			},
			ClearValueCount: uint32(len(clearValues)),
			PClearValues:    clearValues,
		}
		vk.CmdBeginRenderPass(cmd, &rpbi, vk.SubpassContentsInline)
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.pipeline)
		vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{v.viewport})
		vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{v.scissor})
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{v.vertexBuffer}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(cmd, v.indexBuffer, 0, vk.IndexTypeUint16)
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipelineLayout, 0, 1,
			[]vk.DescriptorSet{v.descriptorSets[idx]}, 0, nil)
		vk.CmdDrawIndexed(cmd, v.indexCount, 1, 0, 0, 0)
		vk.CmdEndRenderPass(cmd)

		if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
			return errors.Wrapf(err, "vk.EndCommandBuffer()[%d]", idx)
		}
	}
	return nil
}

// Draw implements interface
func (v *VulkanRenderer) Draw() error {
	frame := v.frames.current
	fences := []vk.Fence{v.inFlightFences[frame]}

	if err := vk.Error(vk.WaitForFences(v.logicalDevice, 1, fences, vk.True, vk.MaxUint64)); err != nil {
		return errors.Wrap(err, "vk.WaitForFences()")
	}

	result := vk.AcquireNextImage(v.logicalDevice, v.swapchain, vk.MaxUint64,
		v.imageAvailableSemaphores[frame], vk.NullFence, &v.imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return v.recreateSwapchain()
	default:
		return errors.Wrap(vk.Error(result), "vk.AcquireNextImage()")
	}

	if int(v.imageIndex) >= len(v.commandBuffers) {
		return errors.Newf("no command buffer recorded for image %d", v.imageIndex)
	}

	if previous, ok := v.frames.claim(v.imageIndex); ok && previous != frame {
		if err := vk.Error(vk.WaitForFences(v.logicalDevice, 1, []vk.Fence{v.inFlightFences[previous]}, vk.True, vk.MaxUint64)); err != nil {
			return errors.Wrap(err, "vk.WaitForFences()")
		}
	}

	v.updateUniformBuffer(v.imageIndex)

	if err := vk.Error(vk.ResetFences(v.logicalDevice, 1, fences)); err != nil {
		return errors.Wrap(err, "vk.ResetFences()")
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{v.imageAvailableSemaphores[frame]},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{v.commandBuffers[v.imageIndex]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{v.renderFinishedSemaphores[frame]},
	}}

	if err := vk.Error(vk.QueueSubmit(v.graphicsQueue, 1, submit, v.inFlightFences[frame])); err != nil {
		return errors.Wrap(err, "vk.QueueSubmit()")
	}
	v.submitted = true
	return nil
}

// Present implements interface. Nothing is presented when Draw had to
// recreate the swapchain instead of submitting.
func (v *VulkanRenderer) Present() error {
	if !v.submitted {
		return nil
	}
	v.submitted = false

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{v.renderFinishedSemaphores[v.frames.current]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{v.swapchain},
		PImageIndices:      []uint32{v.imageIndex},
	}

	result := vk.QueuePresent(v.presentQueue, &presentInfo)
	switch {
	case result == vk.ErrorOutOfDate || result == vk.Suboptimal || v.resized:
		if err := v.recreateSwapchain(); err != nil {
			return err
		}
	case result != vk.Success:
		return errors.Wrap(vk.Error(result), "vk.QueuePresent()")
	}

	v.frames.advance()
	return nil
}
