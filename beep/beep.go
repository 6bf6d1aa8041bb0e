// Package beep plays short audible cues for recorder notifications.
package beep

import (
	"math"
	"sync"

	"studymate/recorder"
)

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Success: medium pitch, slightly longer
	successFreq   = 900
	successVolume = 0.5
	successDecay  = 40

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	startSamples   []int16
	successSamples []int16
	errorSamples   []int16
	soundOnce      sync.Once
)

func initSound() {
	startSamples = generateTick(sampleRate, startFreq, 0.2, startVolume, startDecay)
	successSamples = generateTick(sampleRate, successFreq, 0.2, successVolume, successDecay)
	errorSamples = generateDoubleBeep(sampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// generateTick returns interleaved stereo samples of a decaying sine.
func generateTick(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n*2)
	for i := range n {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

func generateDoubleBeep(sampleRate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	tick := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur)*2)
	result := make([]int16, 0, len(tick)*2+len(gap))
	result = append(result, tick...)
	result = append(result, gap...)
	result = append(result, tick...)
	return result
}

func samplesFor(status recorder.Status) []int16 {
	soundOnce.Do(initSound)
	switch status {
	case recorder.StatusInfo:
		return startSamples
	case recorder.StatusSuccess:
		return successSamples
	case recorder.StatusError:
		return errorSamples
	default:
		return nil
	}
}

// Sink plays a cue for each notification and then forwards it.
type Sink struct {
	Next recorder.NotificationSink
	play func([]int16)
}

func NewSink(next recorder.NotificationSink) *Sink {
	if next == nil {
		next = recorder.NopSink
	}
	return &Sink{Next: next, play: playAsync}
}

func (s *Sink) Notify(title, description string, status recorder.Status) {
	if samples := samplesFor(status); len(samples) > 0 {
		s.play(samples)
	}
	s.Next.Notify(title, description, status)
}

func playAsync(samples []int16) { go playSamples(samples) }
