package components

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkframe/engine/math"
	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

// pitchLimit is 89 degrees; looking straight up or down flips the view.
const pitchLimit = float32(1.55334306)

// Camera is a free fly camera. The view matrix is rebuilt lazily after the
// position or rotation change.
type Camera struct {
	Position mgl32.Vec3
	// EulerRotation is pitch, yaw and roll in radians.
	EulerRotation mgl32.Vec3
	IsDirty       bool
	ViewMatrix    mgl32.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.IsDirty = false
	c.ViewMatrix = mgl32.Ident4()
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

func (c *Camera) world() mgl32.Mat4 {
	return mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).
		Mul4(mgl32.HomogRotate3DY(c.EulerRotation.Y())).
		Mul4(mgl32.HomogRotate3DX(c.EulerRotation.X())).
		Mul4(mgl32.HomogRotate3DZ(c.EulerRotation.Z()))
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = c.world().Inv()
		c.IsDirty = false
	}
	return c.ViewMatrix
}

// Forward is the direction the camera looks along, -Z in camera space.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.world().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.world().Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3().Normalize()
}

func (c *Camera) MoveForward(amount float32) {
	c.Position = c.Position.Add(c.Forward().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	c.Position = c.Position.Add(c.Right().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0]+amount, -pitchLimit, pitchLimit)
	c.IsDirty = true
}

// UniformBufferObject matches the std140 block in shader.vert.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const UniformSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

// vulkanClip flips Y and maps GL depth [-1, 1] onto [0, 1].
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SpinningModel feeds the per-frame transforms of a model turning about the
// Y axis in front of a camera.
type SpinningModel struct {
	Camera *Camera
	// FovY is in degrees.
	FovY, Near, Far float32
	// Speed is in radians per second.
	Speed float32

	angle float32
}

var _ present.TransformSource = (*SpinningModel)(nil)

func NewSpinningModel(camera *Camera) *SpinningModel {
	return &SpinningModel{
		Camera: camera,
		FovY:   45,
		Near:   0.1,
		Far:    100,
		Speed:  mgl32.DegToRad(45),
	}
}

// Projection builds the perspective matrix for extent. A degenerate extent
// falls back to a square aspect ratio.
func (s *SpinningModel) Projection(extent present.Extent2D) mgl32.Mat4 {
	aspect := float32(1)
	if extent.Width > 0 && extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}
	return vulkanClip.Mul4(mgl32.Perspective(mgl32.DegToRad(s.FovY), aspect, s.Near, s.Far))
}

func (s *SpinningModel) Uniforms(extent present.Extent2D, deltaTime float64) UniformBufferObject {
	s.angle += s.Speed * float32(deltaTime)
	return UniformBufferObject{
		Model: mgl32.HomogRotate3DY(s.angle).Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(20))),
		View:  s.Camera.GetView(),
		Proj:  s.Projection(extent),
	}
}

func (s *SpinningModel) Transform(extent present.Extent2D, deltaTime float64) []byte {
	ubo := s.Uniforms(extent, deltaTime)
	out := make([]byte, UniformSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&ubo)), UniformSize))
	return out
}
