package stt

import (
	"encoding/json"
	"fmt"
	"os"

	vosk "github.com/alphacep/vosk-api/go"
)

// Vosk is a streaming recognizer backed by a local Vosk model.
//
// It is stateful: the decoder keeps utterance context across Feed calls, so
// frames must be fed in capture order by a single goroutine.
type Vosk struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
	buf   []byte
}

// NewVosk loads the model at modelPath and creates a recognizer for the
// given sample rate. Returns ErrModelMissing if the model directory does
// not exist.
func NewVosk(modelPath string, sampleRate int) (*Vosk, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, modelPath)
	}

	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("create recognizer: %w", err)
	}

	return &Vosk{model: model, rec: rec}, nil
}

// Feed submits one frame of mono 16-bit PCM and returns the decoder's
// current result. AcceptWaveform reports whether the decoder committed the
// utterance on this frame.
func (v *Vosk) Feed(pcm []int16) (Result, error) {
	v.buf = appendPCM(v.buf[:0], pcm)

	if v.rec.AcceptWaveform(v.buf) != 0 {
		text, err := decodeFinal(v.rec.Result())
		if err != nil {
			return Result{}, err
		}
		return Result{Text: text, Final: true}, nil
	}

	text, err := decodePartial(v.rec.PartialResult())
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text}, nil
}

// Reset force-closes the current utterance and clears decoder state.
// Draining the final result flushes the decoder; the output is discarded.
func (v *Vosk) Reset() {
	_ = v.rec.FinalResult()
}

// Close releases the recognizer and model.
func (v *Vosk) Close() {
	v.rec.Free()
	v.model.Free()
}

// appendPCM encodes samples as little-endian bytes, the layout Vosk expects.
func appendPCM(dst []byte, pcm []int16) []byte {
	for _, s := range pcm {
		dst = append(dst, byte(s), byte(s>>8))
	}
	return dst
}

func decodeFinal(raw string) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("decode final result: %w", err)
	}
	return res.Text, nil
}

func decodePartial(raw string) (string, error) {
	var res struct {
		Partial string `json:"partial"`
	}
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("decode partial result: %w", err)
	}
	return res.Partial, nil
}
