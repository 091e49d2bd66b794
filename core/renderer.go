// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/model"
)

// Framebuffer is the window side of the swapchain
type Framebuffer interface {
	// FramebufferSize returns the drawable size in pixels
	FramebufferSize() (width, height uint32)

	// WaitEvents blocks until the window system has events
	WaitEvents()
}

// Clock drives the animation
type Clock interface {
	Elapsed() time.Duration
}

// SceneData is what the renderer draws
type SceneData struct {
	Mesh           model.Mesh
	Texture        model.Texture
	VertexShader   []byte
	FragmentShader []byte
}

// NewVulkanRenderer prepares a renderer for the physical device. Nothing is
// created on the GPU until Initialise is called.
func NewVulkanRenderer(instance Instance, physicalDevice vk.PhysicalDevice, window Framebuffer, clock Clock, data SceneData, cfg RendererConfiguration) (Renderer, error) {
	if err := data.Mesh.Validate(); err != nil {
		return nil, err
	}
	if err := data.Texture.Validate(); err != nil {
		return nil, err
	}
	if instance.Surface() == vk.NullSurface {
		return nil, errors.New("renderer needs a window surface")
	}
	return &VulkanRenderer{
		configuration:  cfg,
		layers:         instance.Layers(),
		surface:        instance.Surface(),
		physicalDevice: physicalDevice,
		window:         window,
		clock:          clock,
		data:           data,
		frames:         newFrameRing(MaxFramesInFlight),
	}, nil
}

// VulkanRenderer is a Vulkan API renderer
type VulkanRenderer struct {
	configuration RendererConfiguration
	layers        []string

	surface          vk.Surface
	physicalDevice   vk.PhysicalDevice
	memoryProperties vk.PhysicalDeviceMemoryProperties
	anisotropy       bool
	maxAnisotropy    float32

	window Framebuffer
	clock  Clock
	data   SceneData

	logicalDevice vk.Device
	families      QueueFamilyIndices
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	swapchain           vk.Swapchain
	swapchainImages     []vk.Image
	swapchainImageViews []vk.ImageView
	framebuffers        []vk.Framebuffer
	imageFormat         vk.Format
	imageColorspace     vk.ColorSpace
	extent              vk.Extent2D

	viewport vk.Viewport
	scissor  vk.Rect2D

	shaders             []Shader
	renderPass          vk.RenderPass
	descriptorSetLayout vk.DescriptorSetLayout
	pipelineLayout      vk.PipelineLayout
	pipeline            vk.Pipeline
	pipelineCache       vk.PipelineCache

	depthImage       vk.Image
	depthImageView   vk.ImageView
	depthImageFormat vk.Format
	depthImageMemory vk.DeviceMemory

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	vertexBuffer       vk.Buffer
	vertexBufferMemory vk.DeviceMemory
	indexBuffer        vk.Buffer
	indexBufferMemory  vk.DeviceMemory
	indexCount         uint32

	textureImage       vk.Image
	textureImageMemory vk.DeviceMemory
	textureImageView   vk.ImageView
	textureSampler     vk.Sampler

	uniformBuffers       []vk.Buffer
	uniformBuffersMemory []vk.DeviceMemory
	uniformMapped        []unsafe.Pointer

	descriptorPool vk.DescriptorPool
	descriptorSets []vk.DescriptorSet

	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []vk.Fence
	frames                   *frameRing
	imageIndex               uint32
	submitted                bool
	resized                  bool

	// stages replaces the reload steps in tests, nil means v
	stages pipelineStages
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	vk.GetPhysicalDeviceMemoryProperties(v.physicalDevice, &v.memoryProperties)
	v.memoryProperties.Deref()
	for i := uint32(0); i < v.memoryProperties.MemoryTypeCount; i++ {
		v.memoryProperties.MemoryTypes[i].Deref()
	}

	if err := v.createLogicalDevice(); err != nil {
		return err
	}

	if err := v.createCommandPool(); err != nil {
		return err
	}

	if err := v.createDescriptorSetLayout(); err != nil {
		return err
	}

	if err := v.createPipelineCache(); err != nil {
		return err
	}

	shaders, err := v.loadShaders(v.data.VertexShader, v.data.FragmentShader)
	if err != nil {
		return err
	}
	v.shaders = shaders

	if err := v.createTextureImage(v.data.Texture); err != nil {
		return err
	}

	if err := v.createTextureImageView(); err != nil {
		return err
	}

	if err := v.createTextureSampler(); err != nil {
		return err
	}

	if err := v.createVertexBuffer(v.data.Mesh); err != nil {
		return err
	}

	if err := v.createIndexBuffer(v.data.Mesh); err != nil {
		return err
	}

	if err := v.createSwapchainResources(vk.NullSwapchain); err != nil {
		return err
	}

	if err := v.createSynchronization(); err != nil {
		return err
	}
	v.frames.resetImages(len(v.swapchainImages))

	log.WithFields(log.Fields{
		"vertices": len(v.data.Mesh.Vertices),
		"indices":  v.indexCount,
		"images":   len(v.swapchainImages),
	}).Info("Renderer initialised")
	return nil
}

func (v *VulkanRenderer) createLogicalDevice() error {
	v.families = FindQueueFamilies(queueFamilies(v.physicalDevice, v.surface))
	if !v.families.IsComplete() {
		return errors.New("physical device has no graphics and present queue families")
	}

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(v.physicalDevice, &features)
	features.Deref()
	v.anisotropy = features.SamplerAnisotropy.B()
	if v.anisotropy {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(v.physicalDevice, &properties)
		properties.Deref()
		properties.Limits.Deref()
		v.maxAnisotropy = properties.Limits.MaxSamplerAnisotropy
	}

	families := v.families.Unique()
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(families))
	for _, family := range families {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	extensions := uniqueStrings(v.configuration.DeviceExtensions)
	enabled := vk.PhysicalDeviceFeatures{}
	if v.anisotropy {
		enabled.SamplerAnisotropy = vk.True
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{enabled},
	}
	// Older implementations still look at device layers
	if len(v.layers) > 0 {
		dci.EnabledLayerCount = uint32(len(v.layers))
		dci.PpEnabledLayerNames = safeStrings(v.layers)
	}

	var device vk.Device
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &device)); err != nil {
		return errors.Wrap(err, "vk.CreateDevice()")
	}
	v.logicalDevice = device

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, v.families.Graphics, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, v.families.Present, 0, &presentQueue)
	v.graphicsQueue = graphicsQueue
	v.presentQueue = presentQueue

	log.WithFields(log.Fields{
		"graphics":   v.families.Graphics,
		"present":    v.families.Present,
		"anisotropy": v.anisotropy,
	}).Debug("Logical device created")
	return nil
}

func (v *VulkanRenderer) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: v.families.Graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(v.logicalDevice, &cpci, nil, &commandPool)); err != nil {
		return errors.Wrap(err, "vk.CreateCommandPool()")
	}
	v.commandPool = commandPool
	return nil
}

// Resized implements interface
func (v *VulkanRenderer) Resized() {
	v.resized = true
}

// ErrShadersRejected marks a reload that left the running pipeline untouched
var ErrShadersRejected = errors.New("shaders rejected")

// pipelineStages are the steps of a shader reload
type pipelineStages interface {
	loadShaders(vert, frag []byte) ([]Shader, error)
	buildPipeline(shaders []Shader) (vk.Pipeline, error)
	retirePipeline(pipeline vk.Pipeline, shaders []Shader)
	buildCommandBuffers() error
}

// ReloadShaders implements interface. The new pipeline is built next to
// the running one, which is only released once the replacement exists.
// Errors marked with ErrShadersRejected leave the renderer as it was.
func (v *VulkanRenderer) ReloadShaders(vert, frag []byte) error {
	stages := v.stages
	if stages == nil {
		stages = v
	}

	shaders, err := stages.loadShaders(vert, frag)
	if err != nil {
		return errors.Mark(err, ErrShadersRejected)
	}
	pipeline, err := stages.buildPipeline(shaders)
	if err != nil {
		destroyShaders(shaders)
		return errors.Mark(err, ErrShadersRejected)
	}

	stages.retirePipeline(v.pipeline, v.shaders)
	v.pipeline, v.shaders = pipeline, shaders
	v.data.VertexShader, v.data.FragmentShader = vert, frag

	return stages.buildCommandBuffers()
}

// retirePipeline releases a replaced pipeline once the device is done with it
func (v *VulkanRenderer) retirePipeline(pipeline vk.Pipeline, shaders []Shader) {
	vk.DeviceWaitIdle(v.logicalDevice)
	vk.DestroyPipeline(v.logicalDevice, pipeline, nil)
	destroyShaders(shaders)
}

func destroyShaders(shaders []Shader) {
	for _, shader := range shaders {
		shader.Destroy()
	}
}

// Destroy implements interface
func (v *VulkanRenderer) Destroy() {
	if v.logicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(v.logicalDevice)

	v.cleanupSwapchain()
	if v.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(v.logicalDevice, v.swapchain, nil)
		v.swapchain = vk.NullSwapchain
	}

	destroyShaders(v.shaders)
	v.shaders = nil

	vk.DestroySampler(v.logicalDevice, v.textureSampler, nil)
	vk.DestroyImageView(v.logicalDevice, v.textureImageView, nil)
	vk.DestroyImage(v.logicalDevice, v.textureImage, nil)
	vk.FreeMemory(v.logicalDevice, v.textureImageMemory, nil)

	vk.DestroyBuffer(v.logicalDevice, v.indexBuffer, nil)
	vk.FreeMemory(v.logicalDevice, v.indexBufferMemory, nil)
	vk.DestroyBuffer(v.logicalDevice, v.vertexBuffer, nil)
	vk.FreeMemory(v.logicalDevice, v.vertexBufferMemory, nil)

	vk.DestroyDescriptorSetLayout(v.logicalDevice, v.descriptorSetLayout, nil)
	vk.DestroyPipelineCache(v.logicalDevice, v.pipelineCache, nil)

	for i := range v.inFlightFences {
		vk.DestroySemaphore(v.logicalDevice, v.renderFinishedSemaphores[i], nil)
		vk.DestroySemaphore(v.logicalDevice, v.imageAvailableSemaphores[i], nil)
		vk.DestroyFence(v.logicalDevice, v.inFlightFences[i], nil)
	}
	v.inFlightFences = nil

	vk.DestroyCommandPool(v.logicalDevice, v.commandPool, nil)
	vk.DestroyDevice(v.logicalDevice, nil)
	v.logicalDevice = nil
}
