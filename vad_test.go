package main

import (
	"encoding/binary"
	"math"
	"testing"
)

func genTone(freq float64, durationMs int) []byte {
	n := 16000 * durationMs / 1000
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func genSilence(durationMs int) []byte {
	return make([]byte, 16000*durationMs/1000*2)
}

func TestVADSilence(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genSilence(200))
	if vp.VoiceDetected() {
		t.Error("expected no voice on silence")
	}
	total, speech := vp.Stats()
	if total != 10 || speech != 0 {
		t.Errorf("stats = %d/%d, want 10 frames, 0 speech", total, speech)
	}
}

func TestVADOddChunkSizes(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	// 200ms of silence in 100-byte chunks, not aligned to 640-byte frames
	silence := genSilence(200)
	for i := 0; i < len(silence); i += 100 {
		end := min(i+100, len(silence))
		vp.Process(silence[i:end])
	}
	if vp.VoiceDetected() {
		t.Error("expected no voice on silence with odd chunks")
	}
	if total, _ := vp.Stats(); total != 10 {
		t.Errorf("frames = %d, want 10", total)
	}
}

func TestVADReset(t *testing.T) {
	vp, err := newVADProcessor()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genTone(440, 200))
	vp.Reset()
	if vp.VoiceDetected() {
		t.Error("expected no voice after reset")
	}
	if total, _ := vp.Stats(); total != 0 {
		t.Errorf("frames after reset = %d", total)
	}
}

func TestChunkLevel(t *testing.T) {
	if got := chunkLevel(nil); got != 0 {
		t.Errorf("empty = %v", got)
	}
	if got := chunkLevel(genSilence(20)); got != 0 {
		t.Errorf("silence = %v", got)
	}
	// 16000/32768 amplitude sine has RMS amp/sqrt(2)
	want := 16000.0 / 32768 / math.Sqrt2
	if got := chunkLevel(genTone(440, 100)); math.Abs(got-want) > 0.01 {
		t.Errorf("tone = %.3f, want %.3f", got, want)
	}
}

func TestMonitor(t *testing.T) {
	m := newMonitor()
	m.Observe(genTone(440, 100))
	if m.Level() <= 0 || m.Peak() <= 0 {
		t.Errorf("level=%v peak=%v", m.Level(), m.Peak())
	}
	m.Reset()
	if m.Level() != 0 || m.Peak() != 0 || m.Voice() {
		t.Error("Reset did not clear monitor")
	}
}
