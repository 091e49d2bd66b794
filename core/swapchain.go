// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// SwapchainSupport is what a surface offers on a physical device
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(device vk.PhysicalDevice, surface vk.Surface) (SwapchainSupport, error) {
	var support SwapchainSupport
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(device, surface, &support.Capabilities)); err != nil {
		return support, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceCapabilities()")
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)); err != nil {
		return support, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	support.Formats = make([]vk.SurfaceFormat, formatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, support.Formats)); err != nil {
		return support, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	for i := range support.Formats {
		support.Formats[i].Deref()
	}

	var modeCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, nil)); err != nil {
		return support, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	support.PresentModes = make([]vk.PresentMode, modeCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(device, surface, &modeCount, support.PresentModes)); err != nil {
		return support, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	return support, nil
}

// ChooseSurfaceFormat prefers 8 bit BGRA sRGB, otherwise the first offered format
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, errors.New("surface offers no formats")
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	// A single undefined format means the surface takes anything
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{
			Format:     vk.FormatB8g8r8a8Srgb,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}, nil
	}
	return formats[0], nil
}

// ParsePresentMode maps a configuration name to a present mode
func ParsePresentMode(name string) (vk.PresentMode, error) {
	switch strings.ToLower(name) {
	case "mailbox":
		return vk.PresentModeMailbox, nil
	case "fifo", "":
		return vk.PresentModeFifo, nil
	case "fifo_relaxed":
		return vk.PresentModeFifoRelaxed, nil
	case "immediate":
		return vk.PresentModeImmediate, nil
	}
	return vk.PresentModeFifo, errors.Newf("unknown present mode %q", name)
}

// ChoosePresentMode returns preferred when offered. FIFO is always available.
func ChoosePresentMode(modes []vk.PresentMode, preferred vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless the surface
// lets the swapchain decide, then the framebuffer size is clamped into range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clampUint32(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clampUint32(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, or the requested
// count when larger, bounded by the maximum. A maximum of 0 means no limit.
func ChooseImageCount(minCount, maxCount, requested uint32) uint32 {
	count := minCount + 1
	if requested > count {
		count = requested
	}
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return count
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (v *VulkanRenderer) createSwapchain(oldSwapchain vk.Swapchain) error {
	support, err := querySwapchainSupport(v.physicalDevice, v.surface)
	if err != nil {
		return err
	}

	surfaceFormat, err := ChooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	preferred, err := ParsePresentMode(v.configuration.PresentMode)
	if err != nil {
		return err
	}
	presentMode := ChoosePresentMode(support.PresentModes, preferred)

	width, height := v.window.FramebufferSize()
	extent := ChooseExtent(support.Capabilities, width, height)
	imageCount := ChooseImageCount(support.Capabilities.MinImageCount, support.Capabilities.MaxImageCount, v.configuration.SwapchainSize)

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}

	// CompositeAlpha
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		if support.Capabilities.SupportedCompositeAlpha&alphaFlags != 0 {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          v.surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	if v.families.Graphics != v.families.Present {
		families := v.families.Unique()
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = uint32(len(families))
		scci.PQueueFamilyIndices = families
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(v.logicalDevice, &scci, nil, &swapchain)); err != nil {
		return errors.Wrap(err, "vk.CreateSwapchain()")
	}
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(v.logicalDevice, oldSwapchain, nil)
	}
	v.swapchain = swapchain
	v.imageFormat = surfaceFormat.Format
	v.imageColorspace = surfaceFormat.ColorSpace
	v.extent = extent

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(v.logicalDevice, v.swapchain, &numImages, nil)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages(num)")
	}

	v.swapchainImages = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(v.logicalDevice, v.swapchain, &numImages, v.swapchainImages)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages(images)")
	}

	log.WithFields(log.Fields{
		"images":      numImages,
		"width":       extent.Width,
		"height":      extent.Height,
		"presentMode": presentMode,
	}).Debug("Swapchain created")
	return nil
}

func (v *VulkanRenderer) createImageViews() error {
	v.swapchainImageViews = make([]vk.ImageView, 0, len(v.swapchainImages))
	for idx, image := range v.swapchainImages {
		imageView, err := v.createImageView(image, v.imageFormat, vk.ImageAspectColorBit)
		if err != nil {
			return errors.Wrapf(err, "swapchain image %d", idx)
		}
		v.swapchainImageViews = append(v.swapchainImageViews, imageView)
	}
	return nil
}

func (v *VulkanRenderer) createViewport() {
	v.viewport = vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(v.extent.Width),
		Height:   float32(v.extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	v.scissor = vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: v.extent,
	}
}

// cleanupSwapchain destroys everything that depends on the swapchain's
// images or extent. The swapchain itself is kept to be passed as the old one.
func (v *VulkanRenderer) cleanupSwapchain() {
	for _, fb := range v.framebuffers {
		vk.DestroyFramebuffer(v.logicalDevice, fb, nil)
	}
	v.framebuffers = nil

	if len(v.commandBuffers) > 0 {
		vk.FreeCommandBuffers(v.logicalDevice, v.commandPool, uint32(len(v.commandBuffers)), v.commandBuffers)
		v.commandBuffers = nil
	}

	vk.DestroyPipeline(v.logicalDevice, v.pipeline, nil)
	vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)
	vk.DestroyRenderPass(v.logicalDevice, v.renderPass, nil)

	for _, iv := range v.swapchainImageViews {
		vk.DestroyImageView(v.logicalDevice, iv, nil)
	}
	v.swapchainImageViews = nil
	// Swapchain images belong to the swapchain
	v.swapchainImages = nil

	// Depth image resources
	vk.DestroyImageView(v.logicalDevice, v.depthImageView, nil)
	vk.DestroyImage(v.logicalDevice, v.depthImage, nil)
	vk.FreeMemory(v.logicalDevice, v.depthImageMemory, nil)

	for idx := range v.uniformBuffers {
		if v.uniformMapped[idx] != nil {
			vk.UnmapMemory(v.logicalDevice, v.uniformBuffersMemory[idx])
		}
		vk.DestroyBuffer(v.logicalDevice, v.uniformBuffers[idx], nil)
		vk.FreeMemory(v.logicalDevice, v.uniformBuffersMemory[idx], nil)
	}
	v.uniformBuffers = nil
	v.uniformBuffersMemory = nil
	v.uniformMapped = nil

	// Sets are freed along with the pool
	vk.DestroyDescriptorPool(v.logicalDevice, v.descriptorPool, nil)
	v.descriptorSets = nil
}

// recreateSwapchain rebuilds the swapchain and its dependents, waiting
// while the window is minimised.
func (v *VulkanRenderer) recreateSwapchain() error {
	width, height := v.window.FramebufferSize()
	for width == 0 || height == 0 {
		v.window.WaitEvents()
		width, height = v.window.FramebufferSize()
	}

	vk.DeviceWaitIdle(v.logicalDevice)
	v.cleanupSwapchain()

	if err := v.createSwapchainResources(v.swapchain); err != nil {
		return err
	}
	v.frames.resetImages(len(v.swapchainImages))
	v.resized = false
	log.WithFields(log.Fields{
		"width":  v.extent.Width,
		"height": v.extent.Height,
	}).Info("Swapchain recreated")
	return nil
}

// createSwapchainResources creates, in order, everything cleanupSwapchain destroys
func (v *VulkanRenderer) createSwapchainResources(oldSwapchain vk.Swapchain) error {
	if err := v.createSwapchain(oldSwapchain); err != nil {
		return err
	}

	v.createViewport()

	if err := v.createImageViews(); err != nil {
		return err
	}

	if err := v.createRenderPass(); err != nil {
		return err
	}

	if err := v.createPipelineLayout(); err != nil {
		return err
	}

	if err := v.createPipeline(); err != nil {
		return err
	}

	if err := v.prepareDepthImage(); err != nil {
		return err
	}

	if err := v.createFramebuffers(); err != nil {
		return err
	}

	if err := v.createUniformBuffers(); err != nil {
		return err
	}

	if err := v.prepareDescriptorPool(); err != nil {
		return err
	}

	if err := v.createDescriptorSets(); err != nil {
		return err
	}

	if err := v.allocateCommandBuffers(); err != nil {
		return err
	}

	return v.buildCommandBuffers()
}
