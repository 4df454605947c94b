// Package caption implements the real-time audio-to-caption pipeline.
//
// The pipeline owns the capture lifecycle: it opens the audio source, feeds
// frames to the recognizer in capture order on a dedicated goroutine, and
// publishes partial and final caption text to a sink. The UI never runs on
// the capture goroutine; updates cross to it through a Mailbox.
package caption

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/bizzomephisto/ClosedCaption/stt"
)

// ErrAlreadyRunning is returned by Start while the pipeline is running.
var ErrAlreadyRunning = errors.New("caption: pipeline already running")

// ErrModelMissing is returned by Start when no recognizer is configured.
var ErrModelMissing = errors.New("caption: recognizer unavailable")

// ErrErrored is returned by Start after a device loss; Stop resets the
// pipeline so it can start again.
var ErrErrored = errors.New("caption: pipeline errored, call Stop to reset")

// Status is the pipeline lifecycle state.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Source produces a live sequence of PCM frames until Close is called.
type Source interface {
	// ReadFrame blocks until a frame is available. A frame is consumed
	// exactly once and owned by the caller afterwards.
	ReadFrame() ([]int16, error)
	Close() error
}

// Recognizer consumes frames in capture order and reports partial and
// final text. It is never called concurrently.
type Recognizer interface {
	Feed(pcm []int16) (stt.Result, error)
	Reset()
}

// Sink receives caption updates. Publish is called from the capture
// goroutine; implementations must not block and must swallow display
// failures.
type Sink interface {
	Publish(Update)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Update)

func (f SinkFunc) Publish(u Update) { f(u) }

// Update is one published caption state.
type Update struct {
	Text   string
	Final  bool
	Status Status
}

// Config holds the pipeline's collaborators.
type Config struct {
	// OpenSource opens the audio source for a device id; empty means the
	// system default input.
	OpenSource func(deviceID string) (Source, error)

	Recognizer Recognizer

	// Sink receives every caption update. Optional.
	Sink Sink
}

// Pipeline coordinates audio capture, recognition, and caption publishing.
type Pipeline struct {
	openSource func(deviceID string) (Source, error)
	rec        Recognizer
	sink       Sink

	mu            sync.Mutex
	status        Status
	currentText   string
	utteranceOpen bool
	stop          chan struct{}
	done          chan struct{}
}

// New creates a pipeline. The recognizer may be nil; Start then fails with
// ErrModelMissing until SetRecognizer is called.
func New(cfg Config) (*Pipeline, error) {
	if cfg.OpenSource == nil {
		return nil, errors.New("caption: OpenSource is required")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = SinkFunc(func(Update) {})
	}
	return &Pipeline{
		openSource: cfg.OpenSource,
		rec:        cfg.Recognizer,
		sink:       sink,
	}, nil
}

// SetRecognizer replaces the recognizer. Only valid while stopped.
func (p *Pipeline) SetRecognizer(rec Recognizer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusRunning {
		return ErrAlreadyRunning
	}
	p.rec = rec
	return nil
}

// Start opens the audio source and begins the capture loop.
//
// Open failures surface synchronously and leave the pipeline stopped.
// After a device loss the pipeline stays errored until Stop resets it.
func (p *Pipeline) Start(deviceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case StatusRunning:
		return ErrAlreadyRunning
	case StatusErrored:
		return ErrErrored
	}

	if p.rec == nil {
		return ErrModelMissing
	}

	src, err := p.openSource(deviceID)
	if err != nil {
		return err
	}

	p.status = StatusRunning
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(src, p.stop, p.done)

	slog.Info("caption pipeline started", "device", deviceID)
	return nil
}

// Stop halts the capture loop, releases the audio source, and resets the
// recognizer. It is idempotent and also clears the errored state.
func (p *Pipeline) Stop() error {
	p.mu.Lock()

	if p.status == StatusStopped {
		p.mu.Unlock()
		return nil
	}

	done := p.done
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	p.mu.Unlock()

	// The loop exits within one frame's duration; source release and
	// recognizer reset happen before done is closed.
	<-done

	p.mu.Lock()
	p.status = StatusStopped
	p.mu.Unlock()

	slog.Info("caption pipeline stopped")
	return nil
}

// Status returns the current lifecycle state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Current returns the most recent caption text and whether an utterance is
// still open.
func (p *Pipeline) Current() (text string, utteranceOpen bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentText, p.utteranceOpen
}

// run is the capture loop. It owns the source and recognizer state for the
// lifetime of the run; no other goroutine touches them.
func (p *Pipeline) run(src Source, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			slog.Error("release audio source", "error", err)
		}
		p.rec.Reset()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := src.ReadFrame()
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			p.deviceLost(err)
			return
		}

		res, err := p.rec.Feed(frame)
		if err != nil {
			// A single bad decode is not worth killing the caption
			// stream; skip the frame and keep listening.
			slog.Warn("recognizer fault, skipping frame", "error", err)
			continue
		}

		p.handleResult(res)
	}
}

// handleResult applies one recognition result to the caption state and
// publishes it. Final text stays visible until superseded.
func (p *Pipeline) handleResult(res stt.Result) {
	if res.Final {
		p.mu.Lock()
		if res.Text != "" {
			p.currentText = res.Text
		}
		p.utteranceOpen = false
		p.mu.Unlock()

		// Vosk flushes empty finals on silence; nothing to show.
		if res.Text == "" {
			return
		}
		p.sink.Publish(Update{Text: res.Text, Final: true, Status: StatusRunning})
		return
	}

	if res.Text == "" {
		return
	}

	p.mu.Lock()
	p.currentText = res.Text
	p.utteranceOpen = true
	p.mu.Unlock()

	p.sink.Publish(Update{Text: res.Text, Status: StatusRunning})
}

// deviceLost transitions to the errored state and blanks the overlay. The
// device is not retried; a reattached microphone needs an explicit restart.
func (p *Pipeline) deviceLost(err error) {
	slog.Error("audio source failed", "error", err)

	p.mu.Lock()
	p.status = StatusErrored
	p.currentText = ""
	p.utteranceOpen = false
	p.mu.Unlock()

	p.sink.Publish(Update{Status: StatusErrored})
}
