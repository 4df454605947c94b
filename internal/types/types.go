// Package types provides shared type definitions for the application.
package types

// DeviceInfo describes an audio input device presented to the frontend.
type DeviceInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// ModelInfo describes a recognition model from the catalog.
type ModelInfo struct {
	Name        string `json:"name"`        // Model identifier, e.g. "vosk-model-small-en-us-0.15"
	Language    string `json:"language"`    // BCP-47 language code
	DisplayName string `json:"displayName"` // Human-readable language name
	SizeMB      int    `json:"sizeMB"`      // Approximate download size
	Ready       bool   `json:"ready"`       // Whether the model is installed
}

// CaptionEvent is emitted to the frontend for every caption update.
type CaptionEvent struct {
	Text      string `json:"text"`
	Final     bool   `json:"final"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// HistoryEntry is a committed caption with its display color.
type HistoryEntry struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Color string `json:"color"` // Hex color, faded by age
}

// PipelineState reports the caption pipeline status to the frontend.
type PipelineState struct {
	Status        string `json:"status"` // "stopped", "running", "errored"
	Device        string `json:"device"`
	Language      string `json:"language"`
	Text          string `json:"text"`
	UtteranceOpen bool   `json:"utteranceOpen"`
}

// SetupProgress reports model download progress to the frontend.
type SetupProgress struct {
	Model   string `json:"model"`
	Percent int    `json:"percent"`
}
