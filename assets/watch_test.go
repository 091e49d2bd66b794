// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkscene/assets"
)

func TestWatch(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	vert := filepath.Join(dir, "vert.spv")
	other := filepath.Join(dir, "notes.txt")
	c.Assert(os.WriteFile(vert, spirv(1), 0o644), qt.IsNil)

	w, err := assets.Watch(vert)
	c.Assert(err, qt.IsNil)
	defer w.Close()

	c.Assert(os.WriteFile(other, []byte("unrelated"), 0o644), qt.IsNil)
	c.Assert(os.WriteFile(vert, spirv(2), 0o644), qt.IsNil)

	select {
	case changed := <-w.Changes():
		c.Assert(changed, qt.Equals, filepath.Clean(vert))
	case <-time.After(5 * time.Second):
		c.Fatal("no change reported")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	c := qt.New(t)
	_, err := assets.Watch(filepath.Join(c.TempDir(), "missing", "vert.spv"))
	c.Assert(err, qt.ErrorMatches, "watch .*")
}
