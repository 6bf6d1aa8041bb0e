//go:build !linux

package beep

// Cues are only played through PulseAudio.
func playSamples([]int16) {}
