// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devblok/vkscene/core"
	"github.com/devblok/vkscene/scene"
)

const defaultConfigFile = "vkscene.toml"

type options struct {
	configFile string
	envFile    string

	debug     bool
	backend   string
	width     uint32
	height    uint32
	source    string
	root      string
	archive   string
	mesh      string
	watch     bool
	logLevel  string
	presentAs string
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "vkscene",
		Short:         "Renders a rotating textured cube with Vulkan",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file (default ./"+defaultConfigFile+" when present)")
	flags.StringVar(&opts.envFile, "env", "", "dotenv file with VKSCENE_* overrides")
	flags.BoolVar(&opts.debug, "debug", false, "enable validation layers and debug logging")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level")

	runFlags := root.Flags()
	runFlags.StringVar(&opts.backend, "backend", "", "window backend, glfw or sdl")
	runFlags.Uint32Var(&opts.width, "width", 0, "window width")
	runFlags.Uint32Var(&opts.height, "height", 0, "window height")
	runFlags.StringVar(&opts.presentAs, "present-mode", "", "mailbox, fifo, fifo_relaxed or immediate")
	runFlags.StringVar(&opts.source, "assets", "", "asset source, dir, box or kar")
	runFlags.StringVar(&opts.root, "assets-root", "", "directory holding Assets/")
	runFlags.StringVar(&opts.archive, "archive", "", "kar archive for the kar asset source")
	runFlags.StringVar(&opts.mesh, "mesh", "", "COLLADA mesh to draw instead of the cube")
	runFlags.BoolVar(&opts.watch, "watch", false, "rebuild the pipeline when shader files change")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the scene (default)",
		Args:  cobra.NoArgs,
		RunE:  root.RunE,
	}
	run.Flags().AddFlagSet(runFlags)

	root.AddCommand(run, newDevicesCommand(opts), newPackCommand(), newListCommand())
	return root
}

// loadConfiguration layers defaults, file, environment and flags
func loadConfiguration(cmd *cobra.Command, opts *options) (core.Configuration, error) {
	path := opts.configFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := core.LoadConfiguration(path, opts.envFile)
	if err != nil {
		return core.Configuration{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Instance.DebugMode = opts.debug
		if opts.debug {
			cfg.LogLevel = "debug"
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("backend") {
		cfg.Window.Backend = opts.backend
	}
	if flags.Changed("width") {
		cfg.Renderer.ScreenWidth = opts.width
	}
	if flags.Changed("height") {
		cfg.Renderer.ScreenHeight = opts.height
	}
	if flags.Changed("present-mode") {
		cfg.Renderer.PresentMode = opts.presentAs
	}
	if flags.Changed("assets") {
		cfg.Assets.Source = opts.source
	}
	if flags.Changed("assets-root") {
		cfg.Assets.Root = opts.root
	}
	if flags.Changed("archive") {
		cfg.Assets.Archive = opts.archive
	}
	if flags.Changed("mesh") {
		cfg.Assets.Mesh = opts.mesh
	}
	if flags.Changed("watch") {
		cfg.Assets.Watch = opts.watch
	}
	if err := cfg.Validate(); err != nil {
		return core.Configuration{}, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return core.Configuration{}, errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	return cfg, nil
}

func runScene(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfiguration(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return scene.New(cfg).Play(ctx)
}
