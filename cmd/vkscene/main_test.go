// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/spf13/cobra"

	"github.com/devblok/vkscene/utility/kar"
)

func writeTree(c *qt.C, root string, files map[string]string) {
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0o755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(contents), 0o644), qt.IsNil)
	}
}

func TestPackDirectory(t *testing.T) {
	c := qt.New(t)
	root := c.TempDir()
	writeTree(c, root, map[string]string{
		"Assets/shaders/vert.spv":  "vert",
		"Assets/shaders/frag.spv":  "frag",
		"Assets/textures/tex.png": "png",
	})
	t.Chdir(root)

	var buf bytes.Buffer
	count, err := packDirectory(&buf, "Assets", kar.Header{Author: "devblok", Version: 2})
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 3)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Files(), qt.DeepEquals, []string{
		"Assets/shaders/frag.spv",
		"Assets/shaders/vert.spv",
		"Assets/textures/tex.png",
	})
	data, err := ar.ReadAll("Assets/shaders/vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "vert")

	var listing bytes.Buffer
	c.Assert(listArchive(&listing, ar), qt.IsNil)
	c.Assert(listing.String(), qt.Contains, "author devblok, version 2")
	c.Assert(strings.Count(listing.String(), "Assets/"), qt.Equals, 3)
}

func TestPackMissingDirectory(t *testing.T) {
	c := qt.New(t)
	_, err := packDirectory(&bytes.Buffer{}, filepath.Join(c.TempDir(), "missing"), kar.Header{})
	c.Assert(err, qt.ErrorMatches, "pack .*")
}

func TestPackCommandRefusesOverwrite(t *testing.T) {
	c := qt.New(t)
	root := c.TempDir()
	writeTree(c, root, map[string]string{"Assets/a.txt": "a"})
	t.Chdir(root)
	c.Assert(os.WriteFile("out.kar", []byte("keep"), 0o644), qt.IsNil)

	cmd := newRootCommand(&options{})
	cmd.SetArgs([]string{"pack", "-o", "out.kar", "Assets"})
	cmd.SetOut(&bytes.Buffer{})
	c.Assert(cmd.Execute(), qt.ErrorMatches, "out.kar exists, will not overwrite")

	kept, err := os.ReadFile("out.kar")
	c.Assert(err, qt.IsNil)
	c.Assert(string(kept), qt.Equals, "keep")

	cmd = newRootCommand(&options{})
	cmd.SetArgs([]string{"pack", "-f", "-o", "out.kar", "Assets"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(out.String(), qt.Equals, "packed 1 files into out.kar\n")

	cmd = newRootCommand(&options{})
	cmd.SetArgs([]string{"list", "out.kar"})
	out.Reset()
	cmd.SetOut(&out)
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(out.String(), qt.Contains, "Assets/a.txt")
}

func TestLoadConfigurationFlags(t *testing.T) {
	c := qt.New(t)
	t.Chdir(c.TempDir())

	opts := &options{}
	cmd := newRootCommand(opts)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfiguration(cmd, opts)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1024))
		c.Assert(cfg.Window.Backend, qt.Equals, "sdl")
		c.Assert(cfg.Instance.DebugMode, qt.IsTrue)
		c.Assert(cfg.LogLevel, qt.Equals, "debug")
		c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(600))
		return nil
	}
	c.Assert(cmd.ParseFlags([]string{"--width", "1024", "--backend", "sdl", "--debug"}), qt.IsNil)
	c.Assert(cmd.RunE(cmd, nil), qt.IsNil)
}
