// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package scene_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkscene/assets"
	"github.com/devblok/vkscene/core"
	"github.com/devblok/vkscene/scene"
)

func TestPlayFailsOnMissingAssets(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	cfg.Assets.Root = c.TempDir()

	err := scene.New(cfg).Play(context.Background())
	c.Assert(errors.Is(err, assets.ErrNotFound), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, "failed to open shader file: .*")
}

func TestPlayFailsOnMissingArchive(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	cfg.Assets.Source = core.SourceArchive
	cfg.Assets.Archive = filepath.Join(c.TempDir(), "assets.kar")

	err := scene.New(cfg).Play(context.Background())
	c.Assert(err, qt.ErrorMatches, `mmap.Open\(.*\): .*`)
}
