// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core brings up Vulkan: instance, physical device selection,
// logical device, swapchain, pipeline, resources and the frame loop
// that draws the scene.
package core

import (
	vk "github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight bounds the number of frames the CPU may
// record and submit before waiting for the GPU to catch up.
const MaxFramesInFlight = 2

// Destroyable is implemented by anything holding API handles.
type Destroyable interface {
	// Destroy releases all handles owned by the implementation
	Destroy()
}

// Instance describes a Vulkan instance and supporting methods.
// Once created it is ready to use.
type Instance interface {
	Destroyable

	// PhysicalDevicesInfo returns a struct for each Physical Device
	// along with info about those devices
	PhysicalDevicesInfo() []PhysicalDeviceInfo

	// AvailableDevices returns handles of Physical Devices
	// from the Vulkan API
	AvailableDevices() []vk.PhysicalDevice

	// SetSurface sets the window surface for rendering
	SetSurface(vk.Surface)

	// Surface returns the window surface, if it's not set
	// it should return a valid but empty surface
	Surface() vk.Surface

	// Extensions returns enabled instance extensions
	Extensions() []string

	// Layers returns enabled instance layers
	Layers() []string

	// Instance returns the inner handle of the underlying API
	Instance() interface{}
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {
	Destroyable

	// Initialise sets up the configured rendering pipeline
	Initialise() error

	// Draw acquires a swapchain image and submits the work for it
	Draw() error

	// Present queues the drawn image for presentation
	Present() error

	// Resized marks the surface as changed in size, the swapchain
	// is recreated on the next Present
	Resized()

	// ReloadShaders replaces the shader modules and rebuilds the pipeline
	ReloadShaders(vert, frag []byte) error
}

// Shader is a compiled shader module.
type Shader interface {
	Destroyable

	// Type returns the pipeline stage of the shader
	Type() ShaderType

	// Name is the name the shader was loaded with
	Name() string

	// ShaderModule returns the API handle of the module
	ShaderModule() interface{}
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	default:
		return "unknown"
	}
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Discrete      bool
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint
}
