package hotkey

const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

// chord tracks modifier state from raw key events and reports when
// Ctrl+Shift+Space goes down or comes back up. Repeats are ignored.
type chord struct {
	ctrl, shift, space bool
}

func (c *chord) feed(code uint16, value int32) (down, up bool) {
	if value == keyRepeat {
		return false, false
	}
	pressed := value == keyPress
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed
	case keyLShift, keyRShift:
		c.shift = pressed
	case keySpace:
		if pressed && !c.space && c.ctrl && c.shift {
			c.space = true
			return true, false
		}
		if !pressed && c.space {
			c.space = false
			return false, true
		}
	}
	return false, false
}
