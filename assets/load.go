// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package assets

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/devblok/vkscene/core"
	"github.com/devblok/vkscene/model"
)

// SPIRVMagic is the first word of every SPIR-V module
const SPIRVMagic = 0x07230203

// ErrUnsupportedImage is returned for textures that aren't PNG or BMP
var ErrUnsupportedImage = errors.New("unsupported texture format")

// ValidateSPIRV checks that code looks like a SPIR-V module
func ValidateSPIRV(code []byte) error {
	if len(code) < 4 || len(code)%4 != 0 {
		return errors.Newf("SPIR-V size %d is not a multiple of 4", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != SPIRVMagic {
		return errors.Newf("bad SPIR-V magic 0x%08x", magic)
	}
	return nil
}

// LoadShader reads and validates a SPIR-V module
func LoadShader(src Source, name string) ([]byte, error) {
	code, err := src.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open shader file")
	}
	if err := ValidateSPIRV(code); err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return code, nil
}

// DecodeTexture decodes a PNG or BMP image into tightly packed RGBA8
func DecodeTexture(data []byte) (model.Texture, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return model.Texture{}, errors.Wrap(err, "filetype.Match()")
	}

	var img image.Image
	switch kind.Extension {
	case "png":
		img, err = png.Decode(bytes.NewReader(data))
	case "bmp":
		img, err = bmp.Decode(bytes.NewReader(data))
	default:
		return model.Texture{}, errors.Wrapf(ErrUnsupportedImage, "%q", kind.MIME.Value)
	}
	if err != nil {
		return model.Texture{}, errors.Wrapf(err, "decode %s", kind.Extension)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	texture := model.Texture{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix,
	}
	if err := texture.Validate(); err != nil {
		return model.Texture{}, err
	}
	return texture, nil
}

// LoadTexture reads and decodes a texture image
func LoadTexture(src Source, name string) (model.Texture, error) {
	data, err := src.ReadFile(name)
	if err != nil {
		return model.Texture{}, errors.Wrap(err, "failed to load texture image")
	}
	texture, err := DecodeTexture(data)
	if err != nil {
		return model.Texture{}, errors.Wrapf(err, "texture %s", name)
	}
	return texture, nil
}

// LoadMesh reads a COLLADA mesh, an empty name is the built in cube
func LoadMesh(src Source, name string) (model.Mesh, error) {
	if name == "" {
		return model.Cube(), nil
	}
	data, err := src.ReadFile(name)
	if err != nil {
		return model.Mesh{}, errors.Wrap(err, "failed to load mesh")
	}
	mesh, err := model.ImportColladaMesh(data)
	if err != nil {
		return model.Mesh{}, errors.Wrapf(err, "mesh %s", name)
	}
	return mesh, nil
}

// LoadScene gathers everything the renderer draws
func LoadScene(src Source, cfg core.AssetsConfiguration) (core.SceneData, error) {
	var data core.SceneData
	var err error
	if data.VertexShader, err = LoadShader(src, cfg.VertexShader); err != nil {
		return core.SceneData{}, err
	}
	if data.FragmentShader, err = LoadShader(src, cfg.FragmentShader); err != nil {
		return core.SceneData{}, err
	}
	if data.Texture, err = LoadTexture(src, cfg.Texture); err != nil {
		return core.SceneData{}, err
	}
	if data.Mesh, err = LoadMesh(src, cfg.Mesh); err != nil {
		return core.SceneData{}, err
	}
	return data, nil
}
