package beep

import (
	"testing"

	"studymate/recorder"
)

func TestGenerateTick(t *testing.T) {
	s := generateTick(1000, 100, 0.1, 0.5, 10)
	if len(s) != 200 {
		t.Fatalf("len = %d, want 200 interleaved samples", len(s))
	}
	for i := 0; i < len(s); i += 2 {
		if s[i] != s[i+1] {
			t.Fatalf("channels differ at frame %d", i/2)
		}
	}
	var peak int16
	for _, v := range s {
		peak = max(peak, v)
	}
	if peak == 0 || peak > 32767/2+1 {
		t.Errorf("peak %d outside volume bound", peak)
	}
}

func TestGenerateDoubleBeep(t *testing.T) {
	tick := generateTick(1000, 100, 0.1, 0.5, 10)
	s := generateDoubleBeep(1000, 100, 0.1, 0.05, 0.5, 10)
	if want := len(tick)*2 + 100; len(s) != want {
		t.Errorf("len = %d, want %d", len(s), want)
	}
}

func TestSinkPlaysAndForwards(t *testing.T) {
	var played int
	var forwarded []recorder.Status
	s := &Sink{
		Next: recorder.SinkFunc(func(_, _ string, st recorder.Status) { forwarded = append(forwarded, st) }),
		play: func(samples []int16) {
			if len(samples) > 0 {
				played++
			}
		},
	}
	for _, st := range []recorder.Status{recorder.StatusInfo, recorder.StatusSuccess, recorder.StatusError, "other"} {
		s.Notify("t", "d", st)
	}
	if played != 3 {
		t.Errorf("played = %d, want 3", played)
	}
	if len(forwarded) != 4 {
		t.Errorf("forwarded = %v", forwarded)
	}
}

func TestNewSinkNilNext(t *testing.T) {
	s := NewSink(nil)
	s.play = func([]int16) {}
	s.Notify("t", "d", recorder.StatusInfo)
}
