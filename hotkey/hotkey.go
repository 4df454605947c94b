// Package hotkey registers global keyboard shortcuts for the overlay.
package hotkey

import (
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// Shortcuts handled by the manager.
var (
	toggleOverlayKeys = []string{"ctrl", "shift", "c"}
	toggleListenKeys  = []string{"ctrl", "shift", "l"}
)

// Manager listens for global shortcuts and invokes the registered
// callbacks. Callbacks run on the hook goroutine and should hand off any
// real work.
type Manager struct {
	onToggleOverlay func()
	onToggleListen  func()

	mu      sync.Mutex
	started bool
}

// NewManager creates a manager with the given callbacks. Either callback
// may be nil.
func NewManager(toggleOverlay, toggleListen func()) *Manager {
	return &Manager{
		onToggleOverlay: toggleOverlay,
		onToggleListen:  toggleListen,
	}
}

// Start registers the shortcuts and begins processing keyboard events in
// the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	hook.Register(hook.KeyDown, toggleOverlayKeys, func(e hook.Event) {
		if m.onToggleOverlay != nil {
			m.onToggleOverlay()
		}
	})
	hook.Register(hook.KeyDown, toggleListenKeys, func(e hook.Event) {
		if m.onToggleListen != nil {
			m.onToggleListen()
		}
	})

	events := hook.Start()
	go func() {
		<-hook.Process(events)
		slog.Info("hotkey processing stopped")
	}()

	m.started = true
	slog.Info("global hotkeys registered",
		"toggle_overlay", toggleOverlayKeys,
		"toggle_listen", toggleListenKeys)
	return nil
}

// Stop unregisters the shortcuts and ends event processing.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	hook.End()
	m.started = false
}
