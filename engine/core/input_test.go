package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputStateTracksFrames(t *testing.T) {
	s := NewInputState()
	assert.False(t, s.IsKeyDown(KEY_W))

	s.ProcessKey(KEY_W, true)
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.True(t, s.IsKeyPressed(KEY_W))
	assert.False(t, s.WasKeyDown(KEY_W))

	s.Update()
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.True(t, s.WasKeyDown(KEY_W))
	assert.False(t, s.IsKeyPressed(KEY_W), "held keys are only pressed once")

	s.ProcessKey(KEY_W, false)
	assert.False(t, s.IsKeyDown(KEY_W))
	s.Update()
	assert.False(t, s.WasKeyDown(KEY_W))
}

func TestInputStateIgnoresOutOfRangeKeys(t *testing.T) {
	s := NewInputState()
	s.ProcessKey(KeyCode(KEYS_MAX_KEYS+4), true)
	assert.False(t, s.IsKeyDown(KeyCode(KEYS_MAX_KEYS+4)))
	assert.Equal(t, KeyboardState{}, s.KeyboardCurrent)
}
