package components

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vkframe/engine/core"
)

// KeyInput is the keyboard state a controller reads once per frame.
type KeyInput interface {
	IsKeyDown(key core.KeyCode) bool
	IsKeyPressed(key core.KeyCode) bool
}

// FlyController moves a camera from the keyboard: W/S and A/D move, Q/E
// sink and rise, the arrow keys turn, shift runs and R returns home.
type FlyController struct {
	Camera *Camera
	// MoveSpeed is in units per second, TurnSpeed in radians per second.
	MoveSpeed float32
	TurnSpeed float32
	RunFactor float32

	homePosition mgl32.Vec3
	homeRotation mgl32.Vec3
}

// NewFlyController takes the camera's current placement as home.
func NewFlyController(camera *Camera) *FlyController {
	return &FlyController{
		Camera:       camera,
		MoveSpeed:    2,
		TurnSpeed:    mgl32.DegToRad(90),
		RunFactor:    3,
		homePosition: camera.Position,
		homeRotation: camera.EulerRotation,
	}
}

func (f *FlyController) Update(input KeyInput, deltaTime float64) {
	if input.IsKeyPressed(core.KEY_R) {
		f.Camera.SetPosition(f.homePosition)
		f.Camera.SetEulerRotation(f.homeRotation)
		return
	}

	dt := float32(deltaTime)
	move := f.MoveSpeed * dt
	if input.IsKeyDown(core.KEY_LSHIFT) {
		move *= f.RunFactor
	}
	turn := f.TurnSpeed * dt

	if forward := axis(input, core.KEY_W, core.KEY_S); forward != 0 {
		f.Camera.MoveForward(forward * move)
	}
	if right := axis(input, core.KEY_D, core.KEY_A); right != 0 {
		f.Camera.MoveRight(right * move)
	}
	if up := axis(input, core.KEY_E, core.KEY_Q); up != 0 {
		f.Camera.SetPosition(f.Camera.Position.Add(mgl32.Vec3{0, up * move, 0}))
	}
	if yaw := axis(input, core.KEY_LEFT, core.KEY_RIGHT); yaw != 0 {
		f.Camera.Yaw(yaw * turn)
	}
	if pitch := axis(input, core.KEY_UP, core.KEY_DOWN); pitch != 0 {
		f.Camera.Pitch(pitch * turn)
	}
}

// axis is 1 while only positive is held, -1 while only negative is held.
func axis(input KeyInput, positive, negative core.KeyCode) float32 {
	var v float32
	if input.IsKeyDown(positive) {
		v++
	}
	if input.IsKeyDown(negative) {
		v--
	}
	return v
}
