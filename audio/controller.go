package audio

import (
	"bytes"
	"context"
	"sync"

	"studymate/encoder"
	"studymate/log"
)

// Controller owns the microphone for one recording at a time. Start opens the
// capture device and buffers PCM chunks in arrival order; Stop closes the
// device and hands back the concatenated recording as an immutable Capture.
type Controller struct {
	ctx     Context
	config  CaptureConfig
	onChunk func(pcm []byte)

	mu     sync.Mutex
	device *DeviceInfo
	active *captureSession
}

type ControllerOption func(*Controller)

// WithChunkObserver registers fn to see every chunk as it arrives. fn runs on
// the audio callback and must not block or retain the slice.
func WithChunkObserver(fn func(pcm []byte)) ControllerOption {
	return func(c *Controller) { c.onChunk = fn }
}

func NewController(ctx Context, device *DeviceInfo, opts ...ControllerOption) *Controller {
	c := &Controller{
		ctx:    ctx,
		device: device,
		config: CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// captureSession holds the buffer of a single Start/Stop cycle.
type captureSession struct {
	dev CaptureDevice

	mu      sync.Mutex
	chunks  [][]byte
	size    int
	frames  uint64
	stopped bool

	releaseOnce sync.Once
}

func (s *captureSession) append(data []byte, frameCount uint32) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.chunks = append(s.chunks, chunk)
	s.size += len(chunk)
	s.frames += uint64(frameCount)
}

// release stops every track of the device. Safe to call more than once.
func (s *captureSession) release() {
	s.releaseOnce.Do(func() {
		s.dev.Stop()
		s.dev.ClearCallback()
		s.dev.Close()
		log.Info("microphone_released")
	})
}

func (s *captureSession) finalize() Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true

	var pcm bytes.Buffer
	pcm.Grow(s.size)
	for _, chunk := range s.chunks {
		pcm.Write(chunk)
	}
	s.chunks = nil
	return Capture{
		data:      encoder.WrapPCM(pcm.Bytes()),
		mediaType: "audio/wav",
		frames:    s.frames,
	}
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// SetDevice selects the device used by the next Start. nil means system default.
func (c *Controller) SetDevice(device *DeviceInfo) {
	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
}

func (c *Controller) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}

// Start acquires the microphone. It is a no-op while a capture is active.
// Any failure is returned as *PermissionError and leaves nothing held.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		log.Warn("capture_start_ignored: already active")
		return nil
	}

	name := ""
	if c.device != nil {
		name = c.device.Name
	}
	if err := ctx.Err(); err != nil {
		return &PermissionError{Device: name, Err: err}
	}

	dev, err := c.ctx.NewCapture(c.device, c.config)
	if err != nil {
		return &PermissionError{Device: name, Err: err}
	}

	sess := &captureSession{dev: dev}
	onChunk := c.onChunk
	dev.SetCallback(func(data []byte, frameCount uint32) {
		sess.append(data, frameCount)
		if onChunk != nil {
			onChunk(data)
		}
	})

	if err := dev.Start(); err != nil {
		sess.release()
		return &PermissionError{Device: name, Err: err}
	}

	c.active = sess
	log.Info("microphone_acquired: " + dev.DeviceName())
	return nil
}

// Stop ends the active capture and returns it. The device is released before
// Stop returns. With no active capture it returns false.
func (c *Controller) Stop() (Capture, bool) {
	c.mu.Lock()
	sess := c.active
	c.active = nil
	c.mu.Unlock()

	if sess == nil {
		return Capture{}, false
	}
	defer sess.release()

	// Stopping the device first guarantees every buffered chunk has been
	// delivered before the buffer is sealed.
	sess.dev.Stop()
	return sess.finalize(), true
}

// Close releases the microphone if a capture is still running and discards it.
func (c *Controller) Close() {
	c.mu.Lock()
	sess := c.active
	c.active = nil
	c.mu.Unlock()

	if sess != nil {
		sess.release()
	}
}
