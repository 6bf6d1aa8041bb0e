package hotkey

import "sync/atomic"

// FakeHotkey is a Hotkey driven by tests. Presses are buffered one deep, like
// the real backends.
type FakeHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	// RegisterErr, when set, is returned by Register.
	RegisterErr error
	registered  atomic.Bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.registered.Store(true)
	return nil
}

func (f *FakeHotkey) Unregister()              { f.registered.Store(false) }
func (f *FakeHotkey) Registered() bool         { return f.registered.Load() }
func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }

// Tap presses and releases the combo.
func (f *FakeHotkey) Tap() {
	f.SimKeydown()
	f.SimKeyup()
}
