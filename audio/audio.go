package audio

import (
	"fmt"
	"strings"

	"studymate/log"
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether the microphone is a
// headset profile, which records at reduced quality.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice delivers PCM through the callback between Start and Stop.
// Stop must not return until the last callback has finished.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Unavailable returns a Context whose captures always fail with err. It stands
// in for the platform backend when no audio server could be reached, so the
// failure surfaces when recording starts instead of at process start.
func Unavailable(err error) Context {
	return unavailableContext{err: err}
}

type unavailableContext struct{ err error }

func (u unavailableContext) Devices() ([]DeviceInfo, error) { return nil, u.err }
func (u unavailableContext) Close()                         {}

func (u unavailableContext) NewCapture(*DeviceInfo, CaptureConfig) (CaptureDevice, error) {
	return nil, fmt.Errorf("audio backend unavailable: %w", u.err)
}

// FindDevice looks a capture device up by name. An empty name selects the
// system default and returns nil.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

type stoppable interface {
	IsStarted() bool
	Stop() error
}

// stopDevice stops d if it is running. A failure is logged; the capture is
// released regardless.
func stopDevice(d stoppable, name string) {
	if !d.IsStarted() {
		return
	}
	if err := d.Stop(); err != nil {
		log.Warnf("capture_stop_failed: %s: %v", name, err)
	}
}
