package hotkey

import (
	"context"
	"time"
)

type EventKind int

const (
	Start EventKind = iota
	Stop
)

func (k EventKind) String() string {
	if k == Start {
		return "start"
	}
	return "stop"
}

// Toggle turns raw presses into start/stop events. A press starts a recording.
// Holding past the threshold makes it push-to-talk, stopping on release;
// a shorter tap leaves it running until the next press is released.
type Toggle struct {
	events chan EventKind
}

func NewToggle(ctx context.Context, hk Hotkey, longPress time.Duration) *Toggle {
	t := &Toggle{events: make(chan EventKind, 1)}
	go t.run(ctx, hk, longPress)
	return t
}

func (t *Toggle) Events() <-chan EventKind { return t.events }

func (t *Toggle) emit(ctx context.Context, k EventKind) bool {
	select {
	case t.events <- k:
		return true
	case <-ctx.Done():
		return false
	}
}

func wait(ctx context.Context, ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Toggle) run(ctx context.Context, hk Hotkey, longPress time.Duration) {
	defer close(t.events)
	for {
		if !wait(ctx, hk.Keydown()) || !t.emit(ctx, Start) {
			return
		}

		timer := time.NewTimer(longPress)
		held := false
		select {
		case <-timer.C:
			held = true
		case <-hk.Keyup():
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		}

		if held {
			if !wait(ctx, hk.Keyup()) {
				return
			}
		} else if !wait(ctx, hk.Keydown()) || !wait(ctx, hk.Keyup()) {
			return
		}
		if !t.emit(ctx, Stop) {
			return
		}
	}
}
