package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_TAB    KeyCode = 0x09
	KEY_ENTER  KeyCode = 0x0D
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_A      KeyCode = 0x41
	KEY_B      KeyCode = 0x42
	KEY_C      KeyCode = 0x43
	KEY_D      KeyCode = 0x44
	KEY_E      KeyCode = 0x45
	KEY_F      KeyCode = 0x46
	KEY_G      KeyCode = 0x47
	KEY_H      KeyCode = 0x48
	KEY_I      KeyCode = 0x49
	KEY_J      KeyCode = 0x4A
	KEY_K      KeyCode = 0x4B
	KEY_L      KeyCode = 0x4C
	KEY_M      KeyCode = 0x4D
	KEY_N      KeyCode = 0x4E
	KEY_O      KeyCode = 0x4F
	KEY_P      KeyCode = 0x50
	KEY_Q      KeyCode = 0x51
	KEY_R      KeyCode = 0x52
	KEY_S      KeyCode = 0x53
	KEY_T      KeyCode = 0x54
	KEY_U      KeyCode = 0x55
	KEY_V      KeyCode = 0x56
	KEY_W      KeyCode = 0x57
	KEY_X      KeyCode = 0x58
	KEY_Y      KeyCode = 0x59
	KEY_Z      KeyCode = 0x5A
	KEY_LSHIFT KeyCode = 0xA0
	KEY_RSHIFT KeyCode = 0xA1

	KEY_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	Keys [KEY_MAX_KEYS]bool
}

type mouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// InputState is fed by the platform callbacks and polled by the camera. Update
// must be called once per frame after all consumers have read it.
type InputState struct {
	KeyboardCurrent  keyboardState
	KeyboardPrevious keyboardState
	MouseCurrent     mouseState
	MousePrevious    mouseState
}

func NewInputState() *InputState {
	return &InputState{}
}

func (s *InputState) Update() {
	s.KeyboardPrevious = s.KeyboardCurrent
	s.MousePrevious = s.MouseCurrent
}

// keyboard input
func (s *InputState) IsKeyDown(key KeyCode) bool {
	if key >= KEY_MAX_KEYS {
		return false
	}
	return s.KeyboardCurrent.Keys[key]
}

func (s *InputState) IsKeyUp(key KeyCode) bool {
	return !s.IsKeyDown(key)
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	if key >= KEY_MAX_KEYS {
		return false
	}
	return s.KeyboardPrevious.Keys[key]
}

// IsKeyPressed reports a key that went down since the previous Update.
func (s *InputState) IsKeyPressed(key KeyCode) bool {
	return s.IsKeyDown(key) && !s.WasKeyDown(key)
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEY_MAX_KEYS {
		return
	}
	s.KeyboardCurrent.Keys[key] = pressed
}

// mouse input
func (s *InputState) IsButtonDown(button Button) bool {
	if button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return s.MouseCurrent.Buttons[button]
}

func (s *InputState) WasButtonDown(button Button) bool {
	if button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return s.MousePrevious.Buttons[button]
}

func (s *InputState) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	s.MouseCurrent.Buttons[button] = pressed
}

func (s *InputState) MousePosition() (float64, float64) {
	return s.MouseCurrent.X, s.MouseCurrent.Y
}

func (s *InputState) PreviousMousePosition() (float64, float64) {
	return s.MousePrevious.X, s.MousePrevious.Y
}

func (s *InputState) ProcessMouseMove(x, y float64) {
	s.MouseCurrent.X = x
	s.MouseCurrent.Y = y
}
