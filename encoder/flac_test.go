package encoder

import (
	"testing"
)

func sineBlock(n int) []int16 {
	block := make([]int16, n)
	for i := range block {
		block[i] = int16(i % 1000)
	}
	return block
}

func TestFlacEncoder(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	samples := sineBlock(BlockSize*3 + BlockSize/2)
	var totalFed uint64
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			t.Fatalf("EncodeBlock at offset %d: %v", i, err)
		}
		totalFed += uint64(end - i)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if enc.TotalFrames() != totalFed {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), totalFed)
	}
	data := enc.Bytes()
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
	if enc.MediaType() != "audio/flac" {
		t.Errorf("MediaType = %q", enc.MediaType())
	}
}

func TestFlacEncoderEmpty(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if len(enc.Bytes()) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestFlacEncoderRejectsAfterClose(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := enc.EncodeBlock(sineBlock(16)); err == nil {
		t.Error("expected error encoding after Close")
	}
}
