package collada_test

import (
	"encoding/xml"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkscene/util/collada"
)

const triangleDocument = `<?xml version="1.0" encoding="utf-8"?>
<COLLADA xmlns="http://www.collada.org/2005/11/COLLADASchema" version="1.4.1">
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">
            0 0 0
            1 0 0
            0 1 0
          </float_array>
          <technique_common>
            <accessor source="#Tri-mesh-positions-array" count="3" stride="3"/>
          </technique_common>
        </source>
        <source id="Tri-mesh-map-0">
          <float_array id="Tri-mesh-map-0-array" count="6">0 0 1 0 0 1</float_array>
          <technique_common>
            <accessor source="#Tri-mesh-map-0-array" count="3" stride="2"/>
          </technique_common>
        </source>
        <vertices id="Tri-mesh-vertices">
          <input semantic="POSITION" source="#Tri-mesh-positions"/>
        </vertices>
        <triangles material="Material-material" count="1">
          <input semantic="VERTEX" source="#Tri-mesh-vertices" offset="0"/>
          <input semantic="TEXCOORD" source="#Tri-mesh-map-0" offset="1" set="0"/>
          <p>0 0 1 1 2 2</p>
        </triangles>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func TestTrianglesDecode(t *testing.T) {
	c := qt.New(t)
	data := `
		<triangles material="Material-material" count="12">
		<input semantic="VERTEX" source="#Cube-mesh-vertices" offset="0"/>
		<input semantic="NORMAL" source="#Cube-mesh-normals" offset="1"/>
		<p>0 0 2 0 3 0 7 1 5 1 4 1 4 2 1 2 0 2 5 3 2 3 1 3 2 4 7 4 3 4 0 5 7 5 4 5 0 6 1 6 2 6 7 7 6 7 5 7 4 8 5 8 1 8 5 9 6 9 2 9 2 10 6 10 7 10 0 11 3 11 7 11</p>
		</triangles>
	`
	var triangles collada.Triangles
	c.Assert(xml.Unmarshal([]byte(data), &triangles), qt.IsNil)
	c.Assert(triangles.Material, qt.Equals, "Material-material")
	c.Assert(triangles.Count, qt.Equals, 12)
	c.Assert(triangles.Inputs, qt.HasLen, 2)
	c.Assert(triangles.Index, qt.HasLen, 12*6)
	c.Assert(triangles.Stride(), qt.Equals, 2)
}

func TestTrianglesDecodeBadIndex(t *testing.T) {
	c := qt.New(t)
	data := `<triangles count="1"><p>0 1 x</p></triangles>`
	var triangles collada.Triangles
	c.Assert(xml.Unmarshal([]byte(data), &triangles), qt.ErrorMatches, `triangles index: .*`)
}

func TestInputDecode(t *testing.T) {
	c := qt.New(t)
	data := `
	<object>
		<input semantic="VERTEX" source="#Cube-mesh-vertices" offset="0" />
		<input semantic="NORMAL" source="#Cube-mesh-normals" offset="1" />
		<input semantic="TEXCOORD" source="#Cube-mesh-textures" offset="2" set="1" />
	</object>
	`

	type Object struct {
		XMLNname xml.Name        `xml:"object"`
		Inputs   []collada.Input `xml:"input"`
	}

	var obj Object
	c.Assert(xml.Unmarshal([]byte(data), &obj), qt.IsNil)
	c.Assert(obj.Inputs, qt.DeepEquals, []collada.Input{
		{Semantic: "VERTEX", Source: "#Cube-mesh-vertices", Offset: 0},
		{Semantic: "NORMAL", Source: "#Cube-mesh-normals", Offset: 1},
		{Semantic: "TEXCOORD", Source: "#Cube-mesh-textures", Offset: 2, Set: 1},
	})
}

func TestFloatsDecode(t *testing.T) {
	c := qt.New(t)
	data := `<float_array id="Cube-mesh-normals-array" count="36">0 0 -1 0 0 1 1 0 -2.38419e-7 0 -1 -4.76837e-7 -1 2.38419e-7 -1.49012e-7 2.68221e-7 1 2.38419e-7 0 0 -1 0 0 1 1 -5.96046e-7 3.27825e-7 -4.76837e-7 -1 0 -1 2.38419e-7 -1.19209e-7 2.08616e-7 1 0</float_array>`

	var floats collada.Floats
	c.Assert(xml.Unmarshal([]byte(data), &floats), qt.IsNil)
	c.Assert(floats.Data, qt.HasLen, 36)
	c.Assert(floats.ID, qt.Equals, "Cube-mesh-normals-array")
}

func TestDecodeDocument(t *testing.T) {
	c := qt.New(t)
	doc, err := collada.Decode([]byte(triangleDocument))
	c.Assert(err, qt.IsNil)
	c.Assert(doc.Geometries, qt.HasLen, 1)

	mesh := doc.Geometries[0].Mesh
	positions, ok := mesh.FindSource("#Tri-mesh-positions")
	c.Assert(ok, qt.IsTrue)
	c.Assert(positions.Stride(), qt.Equals, 3)
	c.Assert(positions.Floats.Data, qt.HasLen, 9)

	second, err := positions.Element(1)
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.DeepEquals, []float32{1, 0, 0})

	_, err = positions.Element(3)
	c.Assert(err, qt.ErrorMatches, `collada: source "Tri-mesh-positions" has no element 3`)

	uv, ok := mesh.FindSource("Tri-mesh-map-0")
	c.Assert(ok, qt.IsTrue)
	c.Assert(uv.Stride(), qt.Equals, 2)

	_, ok = mesh.FindSource("#missing")
	c.Assert(ok, qt.IsFalse)

	c.Assert(mesh.Vertices.Inputs[0].Semantic, qt.Equals, collada.SemanticPosition)
	c.Assert(mesh.Triangles.Stride(), qt.Equals, 2)
	c.Assert(mesh.Triangles.Index, qt.DeepEquals, []int{0, 0, 1, 1, 2, 2})
}

func TestDecodeWithoutGeometry(t *testing.T) {
	c := qt.New(t)
	_, err := collada.Decode([]byte(`<COLLADA></COLLADA>`))
	c.Assert(err, qt.ErrorMatches, "collada: document has no geometry")

	_, err = collada.Decode([]byte(`<COLLADA>`))
	c.Assert(err, qt.ErrorMatches, "collada: .*")
}
