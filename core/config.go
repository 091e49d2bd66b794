// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	LogLevel string `toml:"log_level"`

	Time     TimeConfiguration     `toml:"time"`
	Instance InstanceConfiguration `toml:"instance"`
	Renderer RendererConfiguration `toml:"renderer"`
	Window   WindowConfiguration   `toml:"window"`
	Assets   AssetsConfiguration   `toml:"assets"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"fps"`

	// EventPollDelay is the delay between window event polls in milliseconds
	EventPollDelay int `toml:"event_poll_delay"`
}

// InstanceConfiguration is used to configure the Vulkan instance
type InstanceConfiguration struct {
	ApplicationName string `toml:"application_name"`

	// DebugMode enables validation layers and the debug report callback
	DebugMode bool `toml:"debug"`

	// Extensions and Layers are appended to the ones the window
	// system and debug mode require
	Extensions []string `toml:"extensions"`
	Layers     []string `toml:"layers"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32   `toml:"swapchain_size"`
	DeviceExtensions []string `toml:"device_extensions"`

	ScreenWidth  uint32 `toml:"width"`
	ScreenHeight uint32 `toml:"height"`

	// PresentMode is one of mailbox, fifo, fifo_relaxed or immediate.
	// FIFO is used when the preferred one is not available.
	PresentMode string `toml:"present_mode"`

	ClearColor [4]float32 `toml:"clear_color"`

	// RotationSpeed is in degrees per second
	RotationSpeed float32 `toml:"rotation_speed"`
}

// WindowConfiguration selects and configures the window system
type WindowConfiguration struct {
	Backend   string `toml:"backend"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

// AssetsConfiguration describes where shaders and textures come from
type AssetsConfiguration struct {
	// Source is dir, box or kar
	Source string `toml:"source"`

	// Root is the directory for dir and box sources, Archive the kar file
	Root    string `toml:"root"`
	Archive string `toml:"archive"`

	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	Texture        string `toml:"texture"`

	// Mesh is empty for the built in cube, else a collada file
	Mesh string `toml:"mesh"`

	// Watch rebuilds the pipeline when shader files change on disk
	Watch bool `toml:"watch"`
}

// Window backends
const (
	BackendGLFW = "glfw"
	BackendSDL  = "sdl"
)

// Asset sources
const (
	SourceDirectory = "dir"
	SourceBox       = "box"
	SourceArchive   = "kar"
)

var presentModes = []string{"mailbox", "fifo", "fifo_relaxed", "immediate"}

// DefaultConfiguration returns the configuration of the demo scene
func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel: "info",
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Instance: InstanceConfiguration{
			ApplicationName: "Vulkan Demo",
		},
		Renderer: RendererConfiguration{
			SwapchainSize: 3,
			DeviceExtensions: []string{
				"VK_KHR_swapchain",
			},
			ScreenWidth:   800,
			ScreenHeight:  600,
			PresentMode:   "mailbox",
			ClearColor:    [4]float32{0, 0, 0, 1},
			RotationSpeed: 90,
		},
		Window: WindowConfiguration{
			Backend:   BackendGLFW,
			Title:     "Vulkan Demo",
			Resizable: true,
		},
		Assets: AssetsConfiguration{
			Source:         SourceDirectory,
			Root:           ".",
			VertexShader:   "Assets/shaders/vert.spv",
			FragmentShader: "Assets/shaders/frag.spv",
			Texture:        "Assets/textures/tex.png",
		},
	}
}

// LoadConfiguration builds the configuration from defaults, the TOML file at path,
// the dotenv file envFile and VKSCENE_ prefixed environment variables, in that order.
// Empty path or envFile skip that step.
func LoadConfiguration(path, envFile string) (Configuration, error) {
	cfg := DefaultConfiguration()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return cfg, errors.Wrap(err, "homedir.Expand()")
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return cfg, errors.Wrap(err, "configuration file")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "toml.Unmarshal(%s)", expanded)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return cfg, errors.Wrapf(err, "godotenv.Load(%s)", envFile)
		}
	}
	envy.Reload()

	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Configuration) applyEnvironment() error {
	c.LogLevel = envy.Get("VKSCENE_LOG_LEVEL", c.LogLevel)
	c.Window.Backend = envy.Get("VKSCENE_BACKEND", c.Window.Backend)
	c.Renderer.PresentMode = envy.Get("VKSCENE_PRESENT_MODE", c.Renderer.PresentMode)
	c.Assets.Source = envy.Get("VKSCENE_ASSETS_SOURCE", c.Assets.Source)
	c.Assets.Root = envy.Get("VKSCENE_ASSETS_ROOT", c.Assets.Root)
	c.Assets.Archive = envy.Get("VKSCENE_ASSETS_ARCHIVE", c.Assets.Archive)
	c.Assets.Mesh = envy.Get("VKSCENE_MESH", c.Assets.Mesh)

	if v := envy.Get("VKSCENE_WIDTH", ""); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrap(err, "VKSCENE_WIDTH")
		}
		c.Renderer.ScreenWidth = uint32(n)
	}
	if v := envy.Get("VKSCENE_HEIGHT", ""); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrap(err, "VKSCENE_HEIGHT")
		}
		c.Renderer.ScreenHeight = uint32(n)
	}
	if v := envy.Get("VKSCENE_FPS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "VKSCENE_FPS")
		}
		c.Time.FramesPerSecond = n
	}
	if v := envy.Get("VKSCENE_DEBUG", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "VKSCENE_DEBUG")
		}
		c.Instance.DebugMode = b
	}
	return nil
}

// Validate checks the configuration for values the renderer can't work with
func (c Configuration) Validate() error {
	if c.Renderer.ScreenWidth == 0 || c.Renderer.ScreenHeight == 0 {
		return errors.Newf("invalid screen size %dx%d", c.Renderer.ScreenWidth, c.Renderer.ScreenHeight)
	}
	if c.Time.FramesPerSecond < 0 {
		return errors.Newf("invalid frames per second %d", c.Time.FramesPerSecond)
	}

	switch c.Window.Backend {
	case BackendGLFW, BackendSDL:
	default:
		return errors.Newf("unknown window backend %q", c.Window.Backend)
	}

	validMode := false
	for _, m := range presentModes {
		if strings.EqualFold(m, c.Renderer.PresentMode) {
			validMode = true
			break
		}
	}
	if !validMode {
		return errors.Newf("unknown present mode %q", c.Renderer.PresentMode)
	}

	switch c.Assets.Source {
	case SourceDirectory, SourceBox:
	case SourceArchive:
		if c.Assets.Archive == "" {
			return errors.New("kar asset source needs an archive path")
		}
	default:
		return errors.Newf("unknown asset source %q", c.Assets.Source)
	}
	return nil
}
