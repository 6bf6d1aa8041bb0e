// Package hotkey delivers global Ctrl+Shift+Space presses.
package hotkey

const Combo = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// signal does a non-blocking send; a press that arrives while the previous
// one is still unread is dropped.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
