// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/core"
)

// SDL is a window backed by SDL2
type SDL struct {
	window  *sdl.Window
	closed  bool
	resized bool
}

func newSDL(cfg core.WindowConfiguration, width, height int32) (*SDL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}

	flags := uint32(sdl.WINDOW_VULKAN | sdl.WINDOW_SHOWN)
	if cfg.Resizable {
		flags |= uint32(sdl.WINDOW_RESIZABLE)
	}
	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		width,
		height,
		flags)
	if err != nil {
		sdl.VulkanUnloadLibrary()
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &SDL{window: window}, nil
}

// InstanceExtensions implements interface
func (s *SDL) InstanceExtensions() []string {
	return s.window.VulkanGetInstanceExtensions()
}

// InstanceProcAddr implements interface
func (s *SDL) InstanceProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// CreateSurface implements interface
func (s *SDL) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := s.window.VulkanCreateSurface(instance)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return vk.SurfaceFromPointer(uintptr(surface)), nil
}

// PollEvents implements interface
func (s *SDL) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		s.handle(event)
	}
}

// WaitEvents implements interface
func (s *SDL) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		s.handle(event)
	}
	s.PollEvents()
}

func (s *SDL) handle(event sdl.Event) {
	switch et := event.(type) {
	case *sdl.KeyboardEvent:
		if et.Keysym.Sym == sdl.K_ESCAPE && et.Type == sdl.KEYDOWN {
			s.closed = true
		}
	case *sdl.QuitEvent:
		s.closed = true
	case *sdl.WindowEvent:
		if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			s.resized = true
		}
	}
}

// ShouldClose implements interface
func (s *SDL) ShouldClose() bool {
	return s.closed
}

// FramebufferSize implements interface
func (s *SDL) FramebufferSize() (uint32, uint32) {
	width, height := s.window.VulkanGetDrawableSize()
	return sizeOf(int(width), int(height))
}

// Resized implements interface
func (s *SDL) Resized() bool {
	resized := s.resized
	s.resized = false
	return resized
}

// Destroy implements interface
func (s *SDL) Destroy() {
	s.window.Destroy()
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}
