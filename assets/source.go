// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets reads the demo's shaders, texture and mesh from a
// directory, the binary embedded box or a kar archive.
package assets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/packr"
	"github.com/mitchellh/go-homedir"

	"github.com/devblok/vkscene/core"
	"github.com/devblok/vkscene/utility/kar"
)

// ErrNotFound is returned when a source has no file with the name
var ErrNotFound = errors.New("asset not found")

// Source reads named asset files. Names are slash separated
// paths like Assets/textures/tex.png.
type Source interface {
	ReadFile(name string) ([]byte, error)
	Close() error
}

// NewSource opens the source the configuration asks for
func NewSource(cfg core.AssetsConfiguration) (Source, error) {
	switch cfg.Source {
	case core.SourceDirectory, "":
		return NewDirSource(cfg.Root)
	case core.SourceBox:
		return NewBoxSource(), nil
	case core.SourceArchive:
		return OpenArchive(cfg.Archive)
	default:
		return nil, errors.Newf("unknown asset source %q", cfg.Source)
	}
}

// DirSource reads assets from the file system
type DirSource struct {
	root string
}

// NewDirSource roots a source at dir, ~ is expanded
func NewDirSource(dir string) (*DirSource, error) {
	root, err := homedir.Expand(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "homedir.Expand(%s)", dir)
	}
	if root == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "asset root")
	}
	if !info.IsDir() {
		return nil, errors.Newf("asset root %s is not a directory", root)
	}
	return &DirSource{root: root}, nil
}

// Path returns the file system path of an asset
func (d *DirSource) Path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// ReadFile implements interface
func (d *DirSource) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(d.Path(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// Close implements interface
func (d *DirSource) Close() error {
	return nil
}

// BoxSource reads assets packed into the binary by packr. Without
// packing, packr falls back to the Assets directory of the source tree.
type BoxSource struct {
	box packr.Box
}

// NewBoxSource returns the box of the Assets directory
func NewBoxSource() *BoxSource {
	return &BoxSource{box: packr.NewBox("../Assets")}
}

// ReadFile implements interface
func (b *BoxSource) ReadFile(name string) ([]byte, error) {
	inBox := strings.TrimPrefix(name, "Assets/")
	if !b.box.Has(inBox) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	data, err := b.box.Find(inBox)
	if err != nil {
		return nil, errors.Wrapf(err, "box %s", name)
	}
	return data, nil
}

// Close implements interface
func (b *BoxSource) Close() error {
	return nil
}

// ArchiveSource reads assets from a memory mapped kar archive
type ArchiveSource struct {
	file *kar.File
}

// OpenArchive maps the archive at path, ~ is expanded
func OpenArchive(path string) (*ArchiveSource, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "homedir.Expand(%s)", path)
	}
	file, err := kar.OpenFile(expanded)
	if err != nil {
		return nil, err
	}
	return &ArchiveSource{file: file}, nil
}

// Files lists the archived names
func (a *ArchiveSource) Files() []string {
	return a.file.Files()
}

// ReadFile implements interface
func (a *ArchiveSource) ReadFile(name string) ([]byte, error) {
	data, err := a.file.ReadAll(name)
	if errors.Is(err, kar.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	return data, err
}

// Close implements interface
func (a *ArchiveSource) Close() error {
	return a.file.Close()
}
