// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package scene runs the demo: it opens the window, brings up Vulkan,
// draws the rotating cube until the window closes and tears it all down.
package scene

import (
	"context"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/assets"
	"github.com/devblok/vkscene/core"
	"github.com/devblok/vkscene/window"
)

// Scene owns every object of a run. It must be played from the
// locked main thread.
type Scene struct {
	configuration core.Configuration

	source   assets.Source
	data     core.SceneData
	window   window.Window
	instance core.Instance
	renderer core.Renderer
	time     *core.Time
	watcher  *assets.Watcher
}

// New creates a scene, nothing is opened until Play
func New(cfg core.Configuration) *Scene {
	return &Scene{configuration: cfg}
}

// Play runs the scene until the window closes or ctx is done
func (s *Scene) Play(ctx context.Context) error {
	defer s.cleanup()

	if err := s.loadAssets(); err != nil {
		return err
	}
	if err := s.initWindow(); err != nil {
		return err
	}
	if err := s.initVulkan(); err != nil {
		return err
	}
	if err := s.watchShaders(); err != nil {
		return err
	}
	return s.mainLoop(ctx)
}

func (s *Scene) loadAssets() error {
	source, err := assets.NewSource(s.configuration.Assets)
	if err != nil {
		return err
	}
	s.source = source

	data, err := assets.LoadScene(source, s.configuration.Assets)
	if err != nil {
		return err
	}
	s.data = data
	log.WithFields(log.Fields{
		"vertices": len(data.Mesh.Vertices),
		"indices":  len(data.Mesh.Indices),
		"texture":  [2]uint32{data.Texture.Width, data.Texture.Height},
	}).Debug("Assets loaded")
	return nil
}

func (s *Scene) initWindow() error {
	w, err := window.New(s.configuration.Window,
		s.configuration.Renderer.ScreenWidth,
		s.configuration.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	s.window = w
	return nil
}

func (s *Scene) initVulkan() error {
	cfg := s.configuration.Instance
	cfg.Extensions = append(append([]string{}, cfg.Extensions...), s.window.InstanceExtensions()...)

	instance, err := core.NewVulkanInstance(core.NewApplicationInfo(cfg.ApplicationName), s.window.InstanceProcAddr(), cfg)
	if err != nil {
		return err
	}
	s.instance = instance

	surface, err := s.window.CreateSurface(instance.Instance().(vk.Instance))
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	physicalDevice, err := core.SelectPhysicalDevice(instance, s.configuration.Renderer.DeviceExtensions)
	if err != nil {
		return err
	}

	s.time = core.NewTime(s.configuration.Time)
	renderer, err := core.NewVulkanRenderer(instance, physicalDevice, s.window, s.time, s.data, s.configuration.Renderer)
	if err != nil {
		return err
	}
	s.renderer = renderer
	return renderer.Initialise()
}

// watchShaders starts hot reloading when enabled. Only files on disk can be watched.
func (s *Scene) watchShaders() error {
	if !s.configuration.Assets.Watch {
		return nil
	}
	dir, ok := s.source.(*assets.DirSource)
	if !ok {
		log.WithField("source", s.configuration.Assets.Source).Warn("Shader watching needs a directory source")
		return nil
	}
	watcher, err := assets.Watch(
		dir.Path(s.configuration.Assets.VertexShader),
		dir.Path(s.configuration.Assets.FragmentShader))
	if err != nil {
		return err
	}
	s.watcher = watcher
	return nil
}

func (s *Scene) mainLoop(ctx context.Context) error {
	var changes <-chan string
	if s.watcher != nil {
		changes = s.watcher.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("Scene stopped")
			return nil
		case <-s.time.EventTicker().C:
			s.window.PollEvents()
			if s.window.ShouldClose() {
				log.Info("Window closed")
				return nil
			}
			if s.window.Resized() {
				s.renderer.Resized()
			}
		case path := <-changes:
			if err := s.reloadShaders(path); err != nil {
				return err
			}
		case <-s.time.FpsTicker().C:
			if err := s.renderer.Draw(); err != nil {
				return err
			}
			if err := s.renderer.Present(); err != nil {
				return err
			}
			if rate, ok := s.time.Frame(); ok {
				log.WithField("fps", rate).Debug("Frame rate")
			}
		}
	}
}

// reloadShaders keeps the running pipeline when the new code is broken.
// Only a renderer left without a usable pipeline is an error.
func (s *Scene) reloadShaders(changed string) error {
	logger := log.WithFields(log.Fields{
		"changed": changed,
		"stage":   core.ShaderTypeFromPath(changed),
	})
	vert, err := assets.LoadShader(s.source, s.configuration.Assets.VertexShader)
	if err != nil {
		logger.WithError(err).Warn("Shader reload skipped")
		return nil
	}
	frag, err := assets.LoadShader(s.source, s.configuration.Assets.FragmentShader)
	if err != nil {
		logger.WithError(err).Warn("Shader reload skipped")
		return nil
	}
	if err := s.renderer.ReloadShaders(vert, frag); err != nil {
		if errors.Is(err, core.ErrShadersRejected) {
			logger.WithError(err).Warn("Shader reload failed, keeping the running pipeline")
			return nil
		}
		return errors.Wrap(err, "shader reload")
	}
	logger.Info("Shaders reloaded")
	return nil
}

func (s *Scene) cleanup() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.WithError(err).Warn("Closing shader watcher")
		}
		s.watcher = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.instance != nil {
		s.instance.Destroy()
		s.instance = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
	if s.time != nil {
		s.time.Stop()
		s.time = nil
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			log.WithError(err).Warn("Closing asset source")
		}
		s.source = nil
	}
}

// Devices lists the physical devices a headless instance can see
func Devices(cfg core.InstanceConfiguration) ([]core.PhysicalDeviceInfo, error) {
	cfg.Extensions = nil
	instance, err := core.NewVulkanInstance(core.NewApplicationInfo(cfg.ApplicationName), nil, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "headless instance")
	}
	defer instance.Destroy()
	return instance.PhysicalDevicesInfo(), nil
}
