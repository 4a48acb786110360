package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// CaptureChannelCapacity is the fixed single-producer channel capacity
// spec.md §5 assigns the Audio capture task: back-pressure drops the
// oldest frame on overflow rather than blocking, to preserve real-time
// behaviour.
const CaptureChannelCapacity = 4

// CaptureConfig configures the PortAudio input stream. Grounded on the
// teacher's voiceassistant/audio.CaptureConfig, narrowed to the fixed
// mono 16kHz/20ms frame the dictation engine always uses.
type CaptureConfig struct {
	DeviceName string // empty = default input device
}

// Capture reads microphone input through PortAudio and emits fixed
// 20ms/320-sample frames tagged with a monotonic sequence number.
type Capture struct {
	mu         sync.RWMutex
	stream     *portaudio.Stream
	deviceName string
	running    bool
	out        chan Frame
	seq        uint64
}

// NewCapture initializes PortAudio and returns a Capture ready to
// Start.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &Capture{
		deviceName: cfg.DeviceName,
		out:        make(chan Frame, CaptureChannelCapacity),
	}, nil
}

// Start opens the input stream and begins the capture loop. It returns
// once the stream is running; frames arrive asynchronously on Output.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}

	buffer := make([]int16, SamplesPerFrame)

	stream, err := c.openStream(buffer)
	if err != nil {
		return fmt.Errorf("open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start audio stream: %w", err)
	}

	c.stream = stream
	c.running = true

	go c.captureLoop(ctx, buffer)

	return nil
}

func (c *Capture) openStream(buffer []int16) (*portaudio.Stream, error) {
	if c.deviceName != "" && c.deviceName != "default" {
		device, err := findDeviceByName(c.deviceName)
		if err == nil {
			params := portaudio.StreamParameters{
				Input: portaudio.StreamDeviceParameters{
					Device:   device,
					Channels: 1,
					Latency:  device.DefaultLowInputLatency,
				},
				SampleRate:      SampleRate,
				FramesPerBuffer: SamplesPerFrame,
			}
			return portaudio.OpenStream(params, buffer)
		}
	}
	return portaudio.OpenDefaultStream(1, 0, SampleRate, SamplesPerFrame, buffer)
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

func (c *Capture) captureLoop(ctx context.Context, buffer []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		stream, running := c.stream, c.running
		c.mu.RUnlock()
		if !running || stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			c.mu.RLock()
			stillRunning := c.running
			c.mu.RUnlock()
			if !stillRunning {
				return
			}
			continue
		}

		samples := make([]int16, len(buffer))
		copy(samples, buffer)

		c.seq++
		frame := NewFrame(c.seq, samples)

		select {
		case c.out <- frame:
		default:
			// Capacity-4 channel full: drop the oldest queued frame
			// rather than block the real-time capture loop.
			select {
			case <-c.out:
			default:
			}
			select {
			case c.out <- frame:
			default:
			}
		}
	}
}

// Stop halts the stream but leaves PortAudio initialized.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false

	if c.stream != nil {
		_ = c.stream.Stop()
		if err := c.stream.Close(); err != nil {
			return fmt.Errorf("close audio stream: %w", err)
		}
		c.stream = nil
	}
	return nil
}

// Close stops the stream and terminates PortAudio.
func (c *Capture) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate portaudio: %w", err)
	}
	return nil
}

// Output returns the channel frames arrive on.
func (c *Capture) Output() <-chan Frame {
	return c.out
}

// IsRunning reports whether the capture stream is active.
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// DeviceInfo describes one available PortAudio input device.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices enumerates available microphone input devices.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var out []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			out = append(out, DeviceInfo{
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}
	return out, nil
}
