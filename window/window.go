// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window opens the native window the scene renders into.
// All calls must be made from the locked main thread.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/core"
)

// Window is a native window with a Vulkan surface
type Window interface {
	core.Framebuffer

	// InstanceExtensions are the instance extensions surfaces need
	InstanceExtensions() []string

	// InstanceProcAddr is the loader entry point of the window system,
	// nil lets the Vulkan binding find it.
	InstanceProcAddr() unsafe.Pointer

	// CreateSurface creates a surface for the window
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// PollEvents handles pending events without blocking
	PollEvents()

	// ShouldClose is true once the window was closed or Escape pressed
	ShouldClose() bool

	// Resized reports and clears a pending size change
	Resized() bool

	// Destroy closes the window and shuts down the window system
	Destroy()
}

// New opens a window using the configured backend
func New(cfg core.WindowConfiguration, width, height uint32) (Window, error) {
	if width == 0 || height == 0 {
		return nil, errors.Newf("invalid window size %dx%d", width, height)
	}
	switch cfg.Backend {
	case core.BackendGLFW, "":
		return newGLFW(cfg, int(width), int(height))
	case core.BackendSDL:
		return newSDL(cfg, int32(width), int32(height))
	default:
		return nil, errors.Newf("unknown window backend %q", cfg.Backend)
	}
}

// sizeOf turns a reported size into unsigned pixels, negative is empty
func sizeOf(width, height int) (uint32, uint32) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return uint32(width), uint32(height)
}
