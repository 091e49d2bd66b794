// Package model holds the geometry, texture and transform data that the
// renderer uploads to the GPU.
package model

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a model vertex
type Vertex struct {
	Pos      glm.Vec3
	Color    glm.Vec3
	TexCoord glm.Vec2
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// UniformSize is the size of Uniform in bytes as seen by the shader
const UniformSize = int(unsafe.Sizeof(Uniform{}))

// Mesh is an indexed triangle list
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// Validate checks that the mesh describes whole triangles over its own vertices
func (m Mesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return errors.New("mesh is empty")
	}
	if len(m.Indices)%3 != 0 {
		return errors.Newf("mesh index count %d is not a multiple of 3", len(m.Indices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Newf("mesh index %d at %d is out of range", idx, i)
		}
	}
	return nil
}

// VertexBufferSize is the size in bytes of the vertex data
func (m Mesh) VertexBufferSize() int {
	return len(m.Vertices) * int(unsafe.Sizeof(Vertex{}))
}

// IndexBufferSize is the size in bytes of the index data
func (m Mesh) IndexBufferSize() int {
	return len(m.Indices) * int(unsafe.Sizeof(uint16(0)))
}

// Texture is a decoded image in tightly packed RGBA8
type Texture struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// Size is the size of the pixel data in bytes
func (t Texture) Size() int {
	return int(t.Width) * int(t.Height) * 4
}

// Validate checks the pixel data matches the dimensions
func (t Texture) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return errors.Newf("texture has no pixels (%dx%d)", t.Width, t.Height)
	}
	if len(t.Pixels) != t.Size() {
		return errors.Newf("texture data is %d bytes, %dx%d RGBA needs %d", len(t.Pixels), t.Width, t.Height, t.Size())
	}
	return nil
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}
