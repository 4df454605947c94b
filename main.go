package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"github.com/bizzomephisto/ClosedCaption/audiocapture"
	"github.com/bizzomephisto/ClosedCaption/caption"
	"github.com/bizzomephisto/ClosedCaption/config"
	"github.com/bizzomephisto/ClosedCaption/hotkey"
	"github.com/bizzomephisto/ClosedCaption/internal/types"
	"github.com/bizzomephisto/ClosedCaption/stt"
	"github.com/bizzomephisto/ClosedCaption/transcript"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	appName       = "ClosedCaption"
	overlayWidth  = 800
	overlayHeight = 200
)

// App is the main application service bound to Wails.
type App struct {
	app    *application.App
	window application.Window

	mu       sync.Mutex
	settings *config.Settings
	rec      *stt.Vosk

	capture  *audiocapture.Capture
	pipeline *caption.Pipeline
	mailbox  *caption.Mailbox[caption.Update]
	history  *caption.History
	store    *transcript.Store
	session  string
	hotkeys  *hotkey.Manager
}

func NewApp() *App {
	return &App{}
}

// Init wires the service to the running app and window and starts the
// caption machinery. Model download and recognizer setup happen in the
// background so the overlay appears immediately.
func (a *App) Init(app *application.App, window application.Window) {
	a.app = app
	a.window = window

	settings, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		settings = config.Default()
	}
	applyFlagOverrides(settings)
	a.settings = settings

	a.capture = audiocapture.New(audiocapture.DefaultConfig())
	a.mailbox = caption.NewMailbox[caption.Update]()
	a.history = caption.NewHistory(caption.DefaultHistorySize)

	a.setupStore()

	pipeline, err := caption.New(caption.Config{
		OpenSource: func(deviceID string) (caption.Source, error) {
			return a.capture.Open(deviceID)
		},
		Sink: caption.SinkFunc(a.publish),
	})
	if err != nil {
		slog.Error("create pipeline", "error", err)
		return
	}
	a.pipeline = pipeline

	go a.consumeUpdates()
	a.setupHotkeys()

	go a.bootstrapRecognizer()
}

// Shutdown cleans up resources.
func (a *App) Shutdown() {
	if a.hotkeys != nil {
		a.hotkeys.Stop()
	}
	if a.pipeline != nil {
		if err := a.pipeline.Stop(); err != nil {
			slog.Error("stop pipeline", "error", err)
		}
	}

	a.mu.Lock()
	if a.rec != nil {
		a.rec.Close()
		a.rec = nil
	}
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("close transcript store", "error", err)
		}
	}
}

func (a *App) setupStore() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		slog.Error("get config dir for transcripts", "error", err)
		return
	}

	storePath := filepath.Join(configDir, "closedcaption", "transcripts")
	store, err := transcript.Open(storePath)
	if err != nil {
		slog.Error("open transcript store", "error", err)
		return
	}
	a.store = store
	a.session = store.NewSession()
	slog.Info("transcript store opened", "path", storePath, "session", a.session)
}

func (a *App) setupHotkeys() {
	a.hotkeys = hotkey.NewManager(
		func() {
			a.toggleOverlay()
		},
		func() {
			// Run off the hotkey goroutine; Stop waits for the capture
			// loop to drain a frame.
			go a.toggleListening()
		},
	)
	if err := a.hotkeys.Start(); err != nil {
		slog.Error("start hotkeys", "error", err)
	}
}

// bootstrapRecognizer installs the model for the configured language if
// needed, loads it, and starts listening.
func (a *App) bootstrapRecognizer() {
	a.mu.Lock()
	lang := a.settings.Language
	device := a.settings.DeviceID
	a.mu.Unlock()

	if err := a.loadRecognizer(context.Background(), lang); err != nil {
		slog.Error("bootstrap recognizer", "error", err, "language", lang)
		a.emit("model-setup-error", err.Error())
		return
	}

	if err := a.StartListening(); err != nil {
		slog.Error("start listening", "error", err, "device", device)
	}
}

// loadRecognizer ensures the model for lang is installed and swaps it into
// the pipeline. The pipeline must be stopped while the recognizer changes.
func (a *App) loadRecognizer(ctx context.Context, lang string) error {
	dir, err := a.modelDir()
	if err != nil {
		return err
	}

	m, ok := stt.Lookup(lang)
	if !ok {
		return fmt.Errorf("no model for language %q", lang)
	}

	err = stt.EnsureModel(ctx, dir, lang, func(percent int) {
		a.emit("model-setup-progress", types.SetupProgress{Model: m.Name, Percent: percent})
	})
	if err != nil {
		return err
	}

	path, err := stt.ModelPath(dir, lang)
	if err != nil {
		return err
	}

	rec, err := stt.NewVosk(path, a.capture.SampleRate())
	if err != nil {
		return err
	}

	if err := a.pipeline.SetRecognizer(rec); err != nil {
		rec.Close()
		return err
	}

	a.mu.Lock()
	old := a.rec
	a.rec = rec
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}

	a.emit("model-setup-complete", m.Name)
	slog.Info("recognizer ready", "model", m.Name)
	return nil
}

func (a *App) modelDir() (string, error) {
	a.mu.Lock()
	override := a.settings.ModelDir
	a.mu.Unlock()

	if override != "" {
		return override, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(configDir, "closedcaption", "models"), nil
}

// publish runs on the capture goroutine. Committed captions go to history
// and the transcript store; everything is handed to the UI through the
// mailbox so a slow frontend only costs stale partials, never audio.
func (a *App) publish(u caption.Update) {
	if u.Final && u.Text != "" {
		a.history.Push(u.Text)
		if a.store != nil {
			if err := a.store.Append(a.session, u.Text); err != nil {
				slog.Warn("append transcript", "error", err)
			}
		}
	}
	a.mailbox.Put(u)
}

// consumeUpdates drains the mailbox and forwards caption events to the
// frontend.
func (a *App) consumeUpdates() {
	for range a.mailbox.Ready() {
		for {
			u, ok := a.mailbox.Take()
			if !ok {
				break
			}
			a.emit("caption", types.CaptionEvent{
				Text:      u.Text,
				Final:     u.Final,
				Status:    u.Status.String(),
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}

func (a *App) emit(name string, data any) {
	if a.app != nil {
		a.app.Event.Emit(name, data)
	}
}

func (a *App) toggleOverlay() {
	if a.window == nil {
		return
	}
	if a.window.IsVisible() {
		a.window.Hide()
	} else {
		a.window.Show()
	}
}

func (a *App) toggleListening() {
	switch a.pipeline.Status() {
	case caption.StatusRunning:
		if err := a.StopListening(); err != nil {
			slog.Error("stop listening", "error", err)
		}
	default:
		if err := a.pipeline.Stop(); err != nil {
			slog.Error("reset pipeline", "error", err)
			return
		}
		if err := a.StartListening(); err != nil {
			slog.Error("start listening", "error", err)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Bound methods
// ─────────────────────────────────────────────────────────────────────────────

// StartListening opens the configured input device and begins captioning.
func (a *App) StartListening() error {
	a.mu.Lock()
	device := a.settings.DeviceID
	a.mu.Unlock()

	if err := a.pipeline.Start(device); err != nil {
		if errors.Is(err, caption.ErrAlreadyRunning) {
			return nil
		}
		return err
	}

	a.emitState()
	return nil
}

// StopListening halts captioning and releases the microphone. Also clears
// the errored state after a device loss.
func (a *App) StopListening() error {
	if err := a.pipeline.Stop(); err != nil {
		return err
	}
	a.emitState()
	return nil
}

// GetStatus returns the current pipeline state.
func (a *App) GetStatus() types.PipelineState {
	text, open := a.pipeline.Current()

	a.mu.Lock()
	device := a.settings.DeviceID
	lang := a.settings.Language
	a.mu.Unlock()

	return types.PipelineState{
		Status:        a.pipeline.Status().String(),
		Device:        device,
		Language:      lang,
		Text:          text,
		UtteranceOpen: open,
	}
}

func (a *App) emitState() {
	a.emit("state", a.GetStatus())
}

// ListDevices enumerates the available audio input devices.
func (a *App) ListDevices() ([]types.DeviceInfo, error) {
	devices, err := audiocapture.Devices()
	if err != nil {
		return nil, err
	}

	infos := make([]types.DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = types.DeviceInfo{ID: d.ID, Name: d.Name, Default: d.Default}
	}
	return infos, nil
}

// GetSettings returns the current settings.
func (a *App) GetSettings() config.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.settings
}

// ApplySettings validates and persists new settings, reshapes the overlay
// window, and restarts captioning when the device or language changed.
func (a *App) ApplySettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	old := *a.settings
	*a.settings = s
	a.mu.Unlock()

	if err := s.Save(); err != nil {
		slog.Error("save settings", "error", err)
	}

	a.applyWindowLayout(&s)
	a.emit("settings-changed", s)

	wasRunning := a.pipeline.Status() == caption.StatusRunning
	deviceChanged := old.DeviceID != s.DeviceID
	languageChanged := old.Language != s.Language || old.ModelDir != s.ModelDir

	if deviceChanged || languageChanged {
		if err := a.pipeline.Stop(); err != nil {
			return err
		}
	}

	if languageChanged {
		go func() {
			if err := a.loadRecognizer(context.Background(), s.Language); err != nil {
				slog.Error("switch recognizer", "error", err, "language", s.Language)
				a.emit("model-setup-error", err.Error())
				return
			}
			if wasRunning {
				if err := a.StartListening(); err != nil {
					slog.Error("restart after language change", "error", err)
				}
			}
		}()
		return nil
	}

	if deviceChanged && wasRunning {
		return a.StartListening()
	}
	return nil
}

// applyWindowLayout positions and sizes the overlay per the settings.
func (a *App) applyWindowLayout(s *config.Settings) {
	if a.window == nil {
		return
	}

	if s.Fullscreen {
		a.window.Fullscreen()
		return
	}
	a.window.UnFullscreen()
	a.window.SetAlwaysOnTop(true)

	screen, err := a.app.GetPrimaryScreen()
	if err != nil {
		slog.Warn("get primary screen", "error", err)
		return
	}

	switch s.Position {
	case config.PositionTop:
		a.window.SetSize(screen.Size.Width, overlayHeight)
		a.window.SetRelativePosition(0, 0)
	case config.PositionBottom:
		a.window.SetSize(screen.Size.Width, overlayHeight)
		a.window.SetRelativePosition(0, screen.Size.Height-overlayHeight)
	default:
		a.window.SetSize(overlayWidth, overlayHeight)
	}
}

// ListModels returns the model catalog with install status.
func (a *App) ListModels() ([]types.ModelInfo, error) {
	dir, err := a.modelDir()
	if err != nil {
		return nil, err
	}

	models := stt.Catalog()
	infos := make([]types.ModelInfo, len(models))
	for i, m := range models {
		infos[i] = types.ModelInfo{
			Name:        m.Name,
			Language:    m.Language,
			DisplayName: m.DisplayName(),
			SizeMB:      m.SizeMB,
			Ready:       stt.ModelReady(dir, m.Language),
		}
	}
	return infos, nil
}

// SetupModel downloads and installs the model for a language in the
// background, emitting progress events.
func (a *App) SetupModel(lang string) error {
	dir, err := a.modelDir()
	if err != nil {
		return err
	}

	m, ok := stt.Lookup(lang)
	if !ok {
		return fmt.Errorf("no model for language %q", lang)
	}

	go func() {
		err := stt.EnsureModel(context.Background(), dir, lang, func(percent int) {
			a.emit("model-setup-progress", types.SetupProgress{Model: m.Name, Percent: percent})
		})
		if err != nil {
			slog.Error("model setup failed", "model", m.Name, "error", err)
			a.emit("model-setup-error", err.Error())
			return
		}
		a.emit("model-setup-complete", m.Name)
	}()
	return nil
}

// GetHistory returns the committed captions with their faded display
// colors, newest first.
func (a *App) GetHistory() []types.HistoryEntry {
	a.mu.Lock()
	base := a.settings.TextColor
	a.mu.Unlock()

	entries := a.history.Entries()
	colors := caption.FadeColors(base, len(entries))

	out := make([]types.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = types.HistoryEntry{ID: e.ID, Text: e.Text, Color: colors[i]}
	}
	return out
}

// ClearHistory drops the on-screen caption history. The transcript store
// keeps its copy.
func (a *App) ClearHistory() {
	a.history.Clear()
}

// GetTranscript returns up to n committed captions of the current session,
// newest first.
func (a *App) GetTranscript(n int) ([]transcript.Entry, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.Recent(a.session, n)
}

func (a *App) GetVersion() string {
	return version
}

func applyFlagOverrides(s *config.Settings) {
	if v, _ := pflag.CommandLine.GetString("device"); v != "" {
		s.DeviceID = v
	}
	if v, _ := pflag.CommandLine.GetString("language"); v != "" {
		s.Language = v
	}
	if v, _ := pflag.CommandLine.GetString("model-dir"); v != "" {
		s.ModelDir = v
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Main Entry
// ─────────────────────────────────────────────────────────────────────────────

func main() {
	pflag.String("device", "", "audio input device id or name (default: system default input)")
	pflag.String("language", "", "recognition language, e.g. en-US")
	pflag.String("model-dir", "", "directory holding recognition models")
	pflag.Parse()

	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	appService := NewApp()

	app := application.New(application.Options{
		Name:        appName,
		Description: "Real-time speech captions overlay",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Keep running from the tray after the overlay is closed.
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	window := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:            appName,
		Width:            overlayWidth,
		Height:           overlayHeight,
		URL:              "/",
		AlwaysOnTop:      true,
		Frameless:        true,
		BackgroundColour: application.NewRGB(0, 0, 0),
		DevToolsEnabled:  true,
	})

	// Closing the overlay hides it; the tray brings it back.
	window.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		window.Hide()
	})

	appService.Init(app, window)

	systemTray := app.SystemTray.New()
	systemTray.SetLabel("CC")

	trayMenu := app.NewMenu()
	trayMenu.Add("Show Overlay").OnClick(func(ctx *application.Context) {
		window.Show()
	})
	trayMenu.Add("Start Listening").OnClick(func(ctx *application.Context) {
		if err := appService.StartListening(); err != nil {
			slog.Error("start from tray", "error", err)
		}
	})
	trayMenu.Add("Stop Listening").OnClick(func(ctx *application.Context) {
		go func() {
			if err := appService.StopListening(); err != nil {
				slog.Error("stop from tray", "error", err)
			}
		}()
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			app.Quit()
		})

	systemTray.SetMenu(trayMenu)

	if err := app.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
