package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputKeyTransitions(t *testing.T) {
	s := NewInputState()

	s.ProcessKey(KEY_W, true)
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.True(t, s.IsKeyPressed(KEY_W))
	assert.False(t, s.WasKeyDown(KEY_W))

	s.Update()
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.False(t, s.IsKeyPressed(KEY_W))

	s.ProcessKey(KEY_W, false)
	assert.True(t, s.IsKeyUp(KEY_W))
	assert.True(t, s.WasKeyDown(KEY_W))
}

func TestInputIgnoresOutOfRangeCodes(t *testing.T) {
	s := NewInputState()
	s.ProcessKey(KEY_MAX_KEYS, true)
	s.ProcessButton(BUTTON_MAX_BUTTONS, true)
	assert.False(t, s.IsKeyDown(KEY_MAX_KEYS))
	assert.False(t, s.IsButtonDown(BUTTON_MAX_BUTTONS))
}

func TestInputMouse(t *testing.T) {
	s := NewInputState()
	s.ProcessMouseMove(10, 20)
	s.ProcessButton(BUTTON_LEFT, true)
	s.Update()
	s.ProcessMouseMove(15, 18)

	x, y := s.MousePosition()
	px, py := s.PreviousMousePosition()
	assert.Equal(t, []float64{15, 18}, []float64{x, y})
	assert.Equal(t, []float64{10, 20}, []float64{px, py})
	assert.True(t, s.IsButtonDown(BUTTON_LEFT))
	assert.True(t, s.WasButtonDown(BUTTON_LEFT))
}
