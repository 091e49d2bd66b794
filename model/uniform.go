package model

import (
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Camera placement of the scene
var (
	Eye    = glm.Vec3{2, 2, 2}
	Center = glm.Vec3{0, 0, 0}
	Up     = glm.Vec3{0, 0, 1}
)

// Projection parameters of the scene
const (
	FieldOfView float32 = 45
	Near        float32 = 0.1
	Far         float32 = 10
)

// NewUniform computes the transforms for the moment elapsed into the
// animation. The model spins about +Z at degreesPerSecond.
func NewUniform(elapsed time.Duration, degreesPerSecond float32, width, height uint32) Uniform {
	angle := float32(elapsed.Seconds()) * glm.DegToRad(degreesPerSecond)

	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}

	projection := glm.Perspective(glm.DegToRad(FieldOfView), aspect, Near, Far)
	// Vulkan clip space has Y pointing down
	projection[5] *= -1

	return Uniform{
		Model:      glm.HomogRotate3D(angle, glm.Vec3{0, 0, 1}),
		View:       glm.LookAtV(Eye, Center, Up),
		Projection: projection,
	}
}
