package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraViewIsLazy(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Ident4(), c.GetView())

	c.SetPosition(mgl32.Vec3{0, 0, 3})
	assert.True(t, c.IsDirty)
	view := c.GetView()
	assert.False(t, c.IsDirty)

	// the camera position maps onto the view space origin
	p := view.Mul4x1(mgl32.Vec4{0, 0, 3, 1})
	assert.InDelta(t, 0, p.Vec3().Len(), 1e-5)
}

func TestCameraMovement(t *testing.T) {
	c := NewCamera()
	c.MoveForward(2)
	assert.InDelta(t, -2, c.Position.Z(), 1e-5)

	c.Yaw(mgl32.DegToRad(-90))
	c.MoveForward(1)
	assert.InDelta(t, 1, c.Position.X(), 1e-5)

	c.Pitch(10)
	assert.InDelta(t, pitchLimit, c.EulerRotation.X(), 1e-6)
	c.Pitch(-20)
	assert.InDelta(t, -pitchLimit, c.EulerRotation.X(), 1e-6)
}

func TestSpinningModelProjection(t *testing.T) {
	s := NewSpinningModel(NewCamera())
	proj := s.Projection(present.Extent2D{Width: 1600, Height: 900})

	// y is flipped for the Vulkan clip space
	assert.Less(t, proj.At(1, 1), float32(0))

	depth := func(z float32) float32 {
		clip := proj.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip.Z() / clip.W()
	}
	assert.InDelta(t, 0, depth(-s.Near), 1e-4)
	assert.InDelta(t, 1, depth(-s.Far), 1e-4)

	// zero height does not divide by zero
	square := s.Projection(present.Extent2D{Width: 800, Height: 0})
	assert.InDelta(t, square.At(0, 0), -square.At(1, 1), 1e-6)
}

func TestSpinningModelTransform(t *testing.T) {
	camera := NewCamera()
	camera.SetPosition(mgl32.Vec3{0, 0, 3})
	s := NewSpinningModel(camera)

	first := s.Uniforms(present.Extent2D{Width: 640, Height: 480}, 0)
	second := s.Uniforms(present.Extent2D{Width: 640, Height: 480}, 1)
	assert.NotEqual(t, first.Model, second.Model, "model spins with time")
	assert.Equal(t, first.View, second.View)

	// the origin lands in the middle of the screen
	clip := second.Proj.Mul4(second.View).Mul4(second.Model).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	require.Greater(t, clip.W(), float32(0))
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)

	blob := s.Transform(present.Extent2D{Width: 640, Height: 480}, 0.016)
	assert.Len(t, blob, 192)
	assert.Equal(t, uint64(192), UniformSize)
}
