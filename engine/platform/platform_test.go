package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/vkframe/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestProcessKeyTranslatesGLFWKeys(t *testing.T) {
	input := core.NewInputState()

	processKey(input, glfw.KeyW, glfw.Press)
	assert.True(t, input.IsKeyDown(core.KEY_W))

	processKey(input, glfw.KeyW, glfw.Repeat)
	assert.True(t, input.IsKeyDown(core.KEY_W))

	processKey(input, glfw.KeyW, glfw.Release)
	assert.False(t, input.IsKeyDown(core.KEY_W))

	processKey(input, glfw.KeyLeft, glfw.Press)
	assert.True(t, input.IsKeyDown(core.KEY_LEFT))
}

func TestProcessKeyIgnoresUnmappedKeys(t *testing.T) {
	input := core.NewInputState()
	processKey(input, glfw.KeyF12, glfw.Press)
	assert.Equal(t, core.KeyboardState{}, input.KeyboardCurrent)
}

func TestNewPlatformHasInput(t *testing.T) {
	p, err := New()
	assert.NoError(t, err)
	assert.NotNil(t, p.Input())
	assert.False(t, p.Pending())
}
