package hotkey

import "testing"

type keyEvent struct {
	code  uint16
	value int32
}

func TestChord(t *testing.T) {
	tests := []struct {
		name     string
		events   []keyEvent
		wantDown int
		wantUp   int
	}{
		{
			name:     "full combo",
			events:   []keyEvent{{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keySpace, keyPress}, {keySpace, keyRelease}},
			wantDown: 1, wantUp: 1,
		},
		{
			name:   "space without modifiers",
			events: []keyEvent{{keySpace, keyPress}, {keySpace, keyRelease}},
		},
		{
			name:   "ctrl only",
			events: []keyEvent{{keyRCtrl, keyPress}, {keySpace, keyPress}, {keySpace, keyRelease}},
		},
		{
			name:     "autorepeat ignored",
			events:   []keyEvent{{keyLCtrl, keyPress}, {keyRShift, keyPress}, {keySpace, keyPress}, {keySpace, keyRepeat}, {keySpace, keyRepeat}, {keySpace, keyRelease}},
			wantDown: 1, wantUp: 1,
		},
		{
			name:     "modifier released first still ends chord",
			events:   []keyEvent{{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keySpace, keyPress}, {keyLCtrl, keyRelease}, {keySpace, keyRelease}},
			wantDown: 1, wantUp: 1,
		},
		{
			name:   "modifier released before space",
			events: []keyEvent{{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keyLShift, keyRelease}, {keySpace, keyPress}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c chord
			var downs, ups int
			for _, ev := range tt.events {
				d, u := c.feed(ev.code, ev.value)
				if d {
					downs++
				}
				if u {
					ups++
				}
			}
			if downs != tt.wantDown || ups != tt.wantUp {
				t.Errorf("downs=%d ups=%d, want %d/%d", downs, ups, tt.wantDown, tt.wantUp)
			}
		})
	}
}
