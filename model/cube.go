package model

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

type cubeFace struct {
	corners [4]glm.Vec3
	color   glm.Vec3
}

// Corners of each face wind counter-clockwise when seen from outside
var cubeFaces = [6]cubeFace{
	{ // +X
		corners: [4]glm.Vec3{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}},
		color:   glm.Vec3{1, 0, 0},
	},
	{ // -X
		corners: [4]glm.Vec3{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}},
		color:   glm.Vec3{0, 1, 1},
	},
	{ // +Y
		corners: [4]glm.Vec3{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}},
		color:   glm.Vec3{0, 1, 0},
	},
	{ // -Y
		corners: [4]glm.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}},
		color:   glm.Vec3{1, 0, 1},
	},
	{ // +Z
		corners: [4]glm.Vec3{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}},
		color:   glm.Vec3{0, 0, 1},
	},
	{ // -Z
		corners: [4]glm.Vec3{{-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, -0.5, -0.5}},
		color:   glm.Vec3{1, 1, 0},
	},
}

var faceTexCoords = [4]glm.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// Cube returns a unit cube centred on the origin, four vertices per face
// so every face maps the whole texture.
func Cube() Mesh {
	mesh := Mesh{
		Vertices: make([]Vertex, 0, len(cubeFaces)*4),
		Indices:  make([]uint16, 0, len(cubeFaces)*6),
	}
	for _, face := range cubeFaces {
		base := uint16(len(mesh.Vertices))
		for i, corner := range face.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Pos:      corner,
				Color:    face.color,
				TexCoord: faceTexCoords[i],
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base+2, base+3, base,
		)
	}
	return mesh
}
