package model_test

import (
	"math"
	"testing"
	"time"
	"unsafe"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/vkscene/model"
)

func TestCube(t *testing.T) {
	c := qt.New(t)
	cube := model.Cube()
	c.Assert(cube.Vertices, qt.HasLen, 24)
	c.Assert(cube.Indices, qt.HasLen, 36)
	c.Assert(cube.Validate(), qt.IsNil)
	c.Assert(cube.VertexBufferSize(), qt.Equals, 24*32)
	c.Assert(cube.IndexBufferSize(), qt.Equals, 36*2)

	for i := 0; i < len(cube.Indices); i += 3 {
		a := cube.Vertices[cube.Indices[i]].Pos
		b := cube.Vertices[cube.Indices[i+1]].Pos
		d := cube.Vertices[cube.Indices[i+2]].Pos

		normal := b.Sub(a).Cross(d.Sub(a))
		centroid := a.Add(b).Add(d).Mul(1.0 / 3)
		// Counter-clockwise seen from outside means the normal points away from the centre
		c.Assert(normal.Dot(centroid) > 0, qt.IsTrue, qt.Commentf("triangle %d faces inwards", i/3))
	}

	for _, v := range cube.Vertices {
		for _, p := range v.Pos {
			c.Assert(p == 0.5 || p == -0.5, qt.IsTrue)
		}
		c.Assert(v.TexCoord.X() >= 0 && v.TexCoord.X() <= 1, qt.IsTrue)
		c.Assert(v.TexCoord.Y() >= 0 && v.TexCoord.Y() <= 1, qt.IsTrue)
	}
}

func TestMeshValidate(t *testing.T) {
	c := qt.New(t)
	verts := []model.Vertex{{}, {}, {}}

	c.Assert(model.Mesh{}.Validate(), qt.ErrorMatches, "mesh is empty")
	c.Assert(model.Mesh{Vertices: verts, Indices: []uint16{0, 1}}.Validate(), qt.ErrorMatches, "mesh index count 2 is not a multiple of 3")
	c.Assert(model.Mesh{Vertices: verts, Indices: []uint16{0, 1, 3}}.Validate(), qt.ErrorMatches, "mesh index 3 at 2 is out of range")
	c.Assert(model.Mesh{Vertices: verts, Indices: []uint16{0, 1, 2}}.Validate(), qt.IsNil)
}

func TestTextureValidate(t *testing.T) {
	c := qt.New(t)
	c.Assert(model.Texture{}.Validate(), qt.ErrorMatches, `texture has no pixels \(0x0\)`)
	c.Assert(model.Texture{Width: 2, Height: 2, Pixels: make([]byte, 15)}.Validate(), qt.ErrorMatches, "texture data is 15 bytes, 2x2 RGBA needs 16")

	tex := model.Texture{Width: 2, Height: 2, Pixels: make([]byte, 16)}
	c.Assert(tex.Validate(), qt.IsNil)
	c.Assert(tex.Size(), qt.Equals, 16)
}

func TestVertexDescriptions(t *testing.T) {
	c := qt.New(t)
	bindings := model.VertexBindingDescriptions()
	c.Assert(bindings, qt.HasLen, 1)
	c.Assert(bindings[0].Stride, qt.Equals, uint32(unsafe.Sizeof(model.Vertex{})))
	c.Assert(bindings[0].Stride, qt.Equals, uint32(32))

	attributes := model.VertexAttributeDescriptions()
	c.Assert(attributes, qt.HasLen, 3)
	for i, attr := range attributes {
		c.Assert(attr.Location, qt.Equals, uint32(i))
		c.Assert(attr.Binding, qt.Equals, uint32(0))
	}
	c.Assert(attributes[0].Offset, qt.Equals, uint32(0))
	c.Assert(attributes[1].Offset, qt.Equals, uint32(12))
	c.Assert(attributes[2].Offset, qt.Equals, uint32(24))
	c.Assert(attributes[2].Format, qt.Equals, vk.FormatR32g32Sfloat)
}

func assertNear(c *qt.C, got, want glm.Vec4) {
	c.Helper()
	for i := range want {
		c.Assert(math.Abs(float64(got[i]-want[i])) < 1e-5, qt.IsTrue, qt.Commentf("got %v, want %v", got, want))
	}
}

func TestUniform(t *testing.T) {
	c := qt.New(t)
	c.Assert(model.UniformSize, qt.Equals, 3*16*4)

	start := model.NewUniform(0, 90, 800, 600)
	c.Assert(start.Model.ApproxEqual(glm.Ident4()), qt.IsTrue)

	second := model.NewUniform(time.Second, 90, 800, 600)
	rotated := second.Model.Mul4x1(glm.Vec4{1, 0, 0, 1})
	assertNear(c, rotated, glm.Vec4{0, 1, 0, 1})

	// +Z stays put
	up := second.Model.Mul4x1(glm.Vec4{0, 0, 1, 0})
	assertNear(c, up, glm.Vec4{0, 0, 1, 0})

	c.Assert(second.View.ApproxEqual(glm.LookAtV(glm.Vec3{2, 2, 2}, glm.Vec3{}, glm.Vec3{0, 0, 1})), qt.IsTrue)

	expected := glm.Perspective(glm.DegToRad(45), 800.0/600.0, 0.1, 10)
	c.Assert(second.Projection[5], qt.Equals, -expected[5])
	c.Assert(second.Projection[0], qt.Equals, expected[0])
	c.Assert(second.Projection[10], qt.Equals, expected[10])
}

func TestUniformZeroHeight(t *testing.T) {
	c := qt.New(t)
	u := model.NewUniform(0, 90, 800, 0)
	// Aspect falls back to 1, so X and Y scale match up to the flip
	c.Assert(u.Projection[0], qt.Equals, -u.Projection[5])
}

const quadDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Quad-mesh" name="Quad">
      <mesh>
        <source id="Quad-mesh-positions">
          <float_array id="Quad-mesh-positions-array" count="12">-1 -1 0 1 -1 0 1 1 0 -1 1 0</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-positions-array" count="4" stride="3"/>
          </technique_common>
        </source>
        <source id="Quad-mesh-map-0">
          <float_array id="Quad-mesh-map-0-array" count="8">0 0 1 0 1 1 0 1</float_array>
          <technique_common>
            <accessor source="#Quad-mesh-map-0-array" count="4" stride="2"/>
          </technique_common>
        </source>
        <vertices id="Quad-mesh-vertices">
          <input semantic="POSITION" source="#Quad-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="2">
          <input semantic="VERTEX" source="#Quad-mesh-vertices" offset="0"/>
          <input semantic="TEXCOORD" source="#Quad-mesh-map-0" offset="1" set="0"/>
          <p>0 0 1 1 2 2 2 2 3 3 0 0</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestImportColladaMesh(t *testing.T) {
	c := qt.New(t)
	mesh, err := model.ImportColladaMesh([]byte(quadDocument))
	c.Assert(err, qt.IsNil)
	c.Assert(mesh.Validate(), qt.IsNil)
	c.Assert(mesh.Vertices, qt.HasLen, 4)
	c.Assert(mesh.Indices, qt.DeepEquals, []uint16{0, 1, 2, 2, 3, 0})

	c.Assert(mesh.Vertices[1].Pos, qt.Equals, glm.Vec3{1, -1, 0})
	c.Assert(mesh.Vertices[1].Color, qt.Equals, model.DefaultColor)
	// V is flipped to a top-left origin
	c.Assert(mesh.Vertices[0].TexCoord, qt.Equals, glm.Vec2{0, 1})
	c.Assert(mesh.Vertices[2].TexCoord, qt.Equals, glm.Vec2{1, 0})
}

func TestImportColladaMeshErrors(t *testing.T) {
	c := qt.New(t)

	_, err := model.ImportColladaMesh([]byte(`<COLLADA></COLLADA>`))
	c.Assert(err, qt.ErrorMatches, "collada: document has no geometry")

	noTriangles := `<COLLADA><library_geometries><geometry><mesh></mesh></geometry></library_geometries></COLLADA>`
	_, err = model.ImportColladaMesh([]byte(noTriangles))
	c.Assert(err, qt.ErrorMatches, "collada: mesh has no triangles")

	outOfRange := `<COLLADA><library_geometries><geometry><mesh>
		<source id="p"><float_array id="pa">0 0 0</float_array>
		<technique_common><accessor stride="3"/></technique_common></source>
		<triangles count="1"><input semantic="VERTEX" source="#p" offset="0"/><p>0 0 1</p></triangles>
		</mesh></geometry></library_geometries></COLLADA>`
	_, err = model.ImportColladaMesh([]byte(outOfRange))
	c.Assert(err, qt.ErrorMatches, `collada: source "p" has no element 1`)
}
