// Package audiocapture provides microphone capture using PortAudio.
package audiocapture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// ErrNoDevice is returned when no matching input device exists.
var ErrNoDevice = errors.New("audiocapture: no matching input device")

// ErrDeviceLost is returned when the device disappears mid-stream.
// The frame sequence is infinite, so any read failure is a lost device,
// never a normal end-of-stream.
var ErrDeviceLost = errors.New("audiocapture: input device lost")

// ErrRunning is returned when trying to open a stream while one is already open.
var ErrRunning = errors.New("audiocapture: stream already open")

// PortAudio is initialized once per process and terminated when the last
// user is done.
var (
	initMu    sync.Mutex
	initCount int
)

func initialize() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
	}
	initCount++
	return nil
}

func terminate() {
	initMu.Lock()
	defer initMu.Unlock()
	initCount--
	if initCount == 0 {
		_ = portaudio.Terminate()
	}
}

// Device describes an available audio input device.
type Device struct {
	ID      string // Stable identifier, usable with Open
	Name    string // Human-readable name
	Default bool   // Whether this is the system default input
}

// Devices enumerates the available audio input devices.
func Devices() ([]Device, error) {
	if err := initialize(); err != nil {
		return nil, err
	}
	defer terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	def, _ := portaudio.DefaultInputDevice()

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			ID:      strconv.Itoa(info.Index),
			Name:    info.Name,
			Default: def != nil && info.Index == def.Index,
		})
	}
	return devices, nil
}

// Config holds configuration for audio capture.
type Config struct {
	SampleRate int // Samples per second, default 16000 Hz
	FrameSize  int // Samples per frame, default 8000 (half a second at 16 kHz)
}

// DefaultConfig returns the default capture configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  8000,
	}
}

// Capture opens microphone streams. At most one stream may be open per
// Capture at a time.
type Capture struct {
	cfg Config

	mu      sync.Mutex
	running bool
}

// New creates a new capture instance.
func New(cfg Config) *Capture {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = 8000
	}
	return &Capture{cfg: cfg}
}

// SampleRate returns the configured sample rate.
func (c *Capture) SampleRate() int {
	return c.cfg.SampleRate
}

// Open opens an input stream on the given device, or on the system default
// input when deviceID is empty. The returned stream produces mono int16
// frames of the configured size until Close is called.
func (c *Capture) Open(deviceID string) (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil, ErrRunning
	}

	if err := initialize(); err != nil {
		return nil, err
	}

	dev, err := findInputDevice(deviceID)
	if err != nil {
		terminate()
		return nil, err
	}

	buf := make([]int16, c.cfg.FrameSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultHighInputLatency,
		},
		SampleRate:      float64(c.cfg.SampleRate),
		FramesPerBuffer: len(buf),
	}

	pa, err := portaudio.OpenStream(params, buf)
	if err != nil {
		terminate()
		return nil, fmt.Errorf("open stream on %q: %w", dev.Name, err)
	}

	if err := pa.Start(); err != nil {
		pa.Close()
		terminate()
		return nil, fmt.Errorf("start stream on %q: %w", dev.Name, err)
	}

	c.running = true
	return &Stream{owner: c, pa: pa, buf: buf, device: dev.Name}, nil
}

func findInputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		return dev, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		if strconv.Itoa(info.Index) == deviceID || info.Name == deviceID {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDevice, deviceID)
}

// Stream is an open microphone stream. It is read by a single goroutine.
type Stream struct {
	owner  *Capture
	pa     *portaudio.Stream
	buf    []int16
	device string

	mu     sync.Mutex
	closed bool
}

// Device returns the name of the device backing the stream.
func (s *Stream) Device() string {
	return s.device
}

// ReadFrame blocks until a full frame is captured and returns a copy of it.
// Overflowed frames are still delivered; the dropped samples only cost a
// moment of context. Any other failure means the device is gone and maps
// to ErrDeviceLost.
func (s *Stream) ReadFrame() ([]int16, error) {
	if err := s.pa.Read(); err != nil && err != portaudio.InputOverflowed {
		return nil, fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}

	frame := make([]int16, len(s.buf))
	copy(frame, s.buf)
	return frame, nil
}

// Close stops the stream and releases the device. It is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.pa.Stop()
	if cerr := s.pa.Close(); err == nil {
		err = cerr
	}

	s.owner.mu.Lock()
	s.owner.running = false
	s.owner.mu.Unlock()
	terminate()

	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
