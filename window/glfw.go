// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/core"
)

// GLFW is a window backed by GLFW
type GLFW struct {
	window  *glfw.Window
	resized bool
}

func newGLFW(cfg core.WindowConfiguration, width, height int) (*GLFW, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw.Init()")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw: Vulkan is not supported")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	if cfg.Resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}

	window, err := glfw.CreateWindow(width, height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "glfw.CreateWindow()")
	}

	w := &GLFW{window: window}
	window.SetFramebufferSizeCallback(func(*glfw.Window, int, int) {
		w.resized = true
	})
	window.SetKeyCallback(func(win *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})
	return w, nil
}

// InstanceExtensions implements interface
func (g *GLFW) InstanceExtensions() []string {
	return g.window.GetRequiredInstanceExtensions()
}

// InstanceProcAddr implements interface
func (g *GLFW) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// CreateSurface implements interface
func (g *GLFW) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := g.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "glfw.CreateWindowSurface()")
	}
	return vk.SurfaceFromPointer(surface), nil
}

// PollEvents implements interface
func (g *GLFW) PollEvents() {
	glfw.PollEvents()
}

// WaitEvents implements interface
func (g *GLFW) WaitEvents() {
	glfw.WaitEvents()
}

// ShouldClose implements interface
func (g *GLFW) ShouldClose() bool {
	return g.window.ShouldClose()
}

// FramebufferSize implements interface
func (g *GLFW) FramebufferSize() (uint32, uint32) {
	return sizeOf(g.window.GetFramebufferSize())
}

// Resized implements interface
func (g *GLFW) Resized() bool {
	resized := g.resized
	g.resized = false
	return resized
}

// Destroy implements interface
func (g *GLFW) Destroy() {
	g.window.Destroy()
	glfw.Terminate()
}
