// Package stt provides offline speech-to-text recognition and model
// provisioning.
package stt

import "errors"

// ErrModelMissing is returned when the recognition model is not installed.
var ErrModelMissing = errors.New("stt: recognition model missing")

// Result is a single recognition result.
//
// A partial result is provisional and may be superseded by a later partial
// or a final for the same utterance. A final result closes the utterance.
// An empty Text means the recognizer had nothing to report for the frame.
type Result struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}
