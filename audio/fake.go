package audio

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"studymate/encoder"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays fixed PCM instead of opening a microphone. It counts
// opened and released captures so tests can check the device discipline.
type FakeContext struct {
	pcm      []byte
	realtime bool

	mu      sync.Mutex
	denyErr error

	opened   atomic.Int32
	released atomic.Int32
}

// NewFakeContext loads a WAV file. In realtime mode chunks are paced at the
// capture sample rate and silence follows the file; otherwise the whole file
// is delivered synchronously from Start.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if _, pcm, err := encoder.ParseWAV(data); err == nil {
		data = pcm
	} else if len(data) > encoder.WAVHeaderSize {
		data = data[encoder.WAVHeaderSize:]
	}
	return NewFakePCMContext(data, realtime), nil
}

func NewFakePCMContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// Deny makes every following NewCapture fail with err; nil re-allows access.
func (f *FakeContext) Deny(err error) {
	f.mu.Lock()
	f.denyErr = err
	f.mu.Unlock()
}

func (f *FakeContext) Opened() int   { return int(f.opened.Load()) }
func (f *FakeContext) Released() int { return int(f.released.Load()) }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	err := f.denyErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.opened.Add(1)
	return &FakeCapture{
		pcm:       f.pcm,
		realtime:  f.realtime,
		audioDone: make(chan struct{}),
		onClose:   func() { f.released.Add(1) },
	}, nil
}

type FakeCapture struct {
	pcm       []byte
	realtime  bool
	audioDone chan struct{}
	onClose   func()

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	stopOnce sync.Once
	closed   sync.Once
}

// AudioDone is closed once the whole PCM payload has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) feedChunk(cb DataCallback, pos int) int {
	end := min(pos+fakeFrameSize*fakeBytesPerFrame, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos)
			}
		}
		close(f.audioDone)
		close(f.feedDone)
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, fakeFrameSize*fakeBytesPerFrame)
		finished := false
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos)
				continue
			}
			if !finished {
				finished = true
				close(f.audioDone)
			}
			cb(silence, fakeFrameSize)
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	f.stopOnce.Do(func() { close(f.stopCh) })
	<-f.feedDone
}

func (f *FakeCapture) Close() {
	f.closed.Do(func() {
		f.Stop()
		if f.onClose != nil {
			f.onClose()
		}
	})
}
