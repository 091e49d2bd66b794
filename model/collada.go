package model

import (
	"math"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/vkscene/util/collada"
)

// DefaultColor is given to imported vertices that carry no colour
var DefaultColor = glm.Vec3{1, 1, 1}

// ImportColladaMesh reads the first geometry of a Collada document into
// an indexed mesh. Vertices sharing the same position, texture coordinate
// and colour indices are merged.
func ImportColladaMesh(fileContents []byte) (Mesh, error) {
	doc, err := collada.Decode(fileContents)
	if err != nil {
		return Mesh{}, err
	}

	mesh := doc.Geometries[0].Mesh
	triangles := mesh.Triangles
	stride := triangles.Stride()
	if stride == 0 || len(triangles.Index) == 0 {
		return Mesh{}, errors.New("collada: mesh has no triangles")
	}
	if len(triangles.Index)%(stride*3) != 0 {
		return Mesh{}, errors.Newf("collada: %d indices don't make whole triangles", len(triangles.Index))
	}

	var (
		positions, texCoords, colors collada.Source
		positionOffset               = -1
		texCoordOffset               = -1
		colorOffset                  = -1
	)
	for _, in := range triangles.Inputs {
		switch in.Semantic {
		case collada.SemanticVertex:
			src, err := vertexPositions(mesh, in.Source)
			if err != nil {
				return Mesh{}, err
			}
			positions, positionOffset = src, int(in.Offset)
		case collada.SemanticTexCoord:
			if texCoordOffset >= 0 {
				continue
			}
			src, ok := mesh.FindSource(in.Source)
			if !ok {
				return Mesh{}, errors.Newf("collada: texture coordinates %q not found", in.Source)
			}
			texCoords, texCoordOffset = src, int(in.Offset)
		case collada.SemanticColor:
			src, ok := mesh.FindSource(in.Source)
			if !ok {
				return Mesh{}, errors.Newf("collada: colours %q not found", in.Source)
			}
			colors, colorOffset = src, int(in.Offset)
		}
	}
	if positionOffset < 0 {
		return Mesh{}, errors.New("collada: triangles have no vertex input")
	}

	type vertexKey struct{ position, texCoord, color int }
	seen := make(map[vertexKey]uint16)

	var result Mesh
	for i := 0; i < len(triangles.Index); i += stride {
		element := triangles.Index[i : i+stride]
		key := vertexKey{position: element[positionOffset], texCoord: -1, color: -1}
		if texCoordOffset >= 0 {
			key.texCoord = element[texCoordOffset]
		}
		if colorOffset >= 0 {
			key.color = element[colorOffset]
		}

		if idx, ok := seen[key]; ok {
			result.Indices = append(result.Indices, idx)
			continue
		}
		if len(result.Vertices) > math.MaxUint16 {
			return Mesh{}, errors.New("collada: mesh has too many vertices for 16 bit indices")
		}

		vert, err := colladaVertex(key.position, key.texCoord, key.color, positions, texCoords, colors)
		if err != nil {
			return Mesh{}, err
		}
		idx := uint16(len(result.Vertices))
		seen[key] = idx
		result.Vertices = append(result.Vertices, vert)
		result.Indices = append(result.Indices, idx)
	}
	return result, nil
}

func colladaVertex(position, texCoord, color int, positions, texCoords, colors collada.Source) (Vertex, error) {
	vert := Vertex{Color: DefaultColor}

	p, err := positions.Element(position)
	if err != nil {
		return vert, err
	}
	if len(p) < 3 {
		return vert, errors.Newf("collada: source %q holds %d components, positions need 3", positions.ID, len(p))
	}
	vert.Pos = glm.Vec3{p[0], p[1], p[2]}

	if texCoord >= 0 {
		uv, err := texCoords.Element(texCoord)
		if err != nil {
			return vert, err
		}
		if len(uv) < 2 {
			return vert, errors.Newf("collada: source %q holds %d components, texture coordinates need 2", texCoords.ID, len(uv))
		}
		// Collada puts the texture origin at the bottom left
		vert.TexCoord = glm.Vec2{uv[0], 1 - uv[1]}
	}

	if color >= 0 {
		c, err := colors.Element(color)
		if err != nil {
			return vert, err
		}
		if len(c) >= 3 {
			vert.Color = glm.Vec3{c[0], c[1], c[2]}
		}
	}
	return vert, nil
}

// vertexPositions follows a VERTEX input through <vertices> to its POSITION source
func vertexPositions(mesh collada.Mesh, ref string) (collada.Source, error) {
	if src, ok := mesh.FindSource(ref); ok {
		return src, nil
	}
	for _, in := range mesh.Vertices.Inputs {
		if in.Semantic != collada.SemanticPosition {
			continue
		}
		if src, ok := mesh.FindSource(in.Source); ok {
			return src, nil
		}
		return collada.Source{}, errors.Newf("collada: positions %q not found", in.Source)
	}
	return collada.Source{}, errors.New("collada: vertices have no position input")
}
