package core

type KeyCode uint16

// Key codes follow the Win32 virtual key numbering.
const (
	KEY_ESCAPE KeyCode = 0x1B
	KEY_LEFT   KeyCode = 0x25
	KEY_UP     KeyCode = 0x26
	KEY_RIGHT  KeyCode = 0x27
	KEY_DOWN   KeyCode = 0x28
	KEY_A      KeyCode = 0x41
	KEY_D      KeyCode = 0x44
	KEY_E      KeyCode = 0x45
	KEY_Q      KeyCode = 0x51
	KEY_R      KeyCode = 0x52
	KEY_S      KeyCode = 0x53
	KEY_W      KeyCode = 0x57
	KEY_LSHIFT KeyCode = 0xA0

	KEYS_MAX_KEYS = 256
)

type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// InputState holds the keyboard state of this frame and the previous one.
// The window callbacks write it and the frame loop reads it, both on the
// main thread.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
}

func NewInputState() *InputState {
	return &InputState{}
}

// Update ends a frame: the current state becomes the previous one.
func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	s.KeyboardCurrent.Keys[key] = pressed
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardCurrent.Keys[key]
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && s.KeyboardPrevious.Keys[key]
}

// IsKeyPressed is true only in the frame the key went down.
func (s *InputState) IsKeyPressed(key KeyCode) bool {
	return s.IsKeyDown(key) && !s.WasKeyDown(key)
}
