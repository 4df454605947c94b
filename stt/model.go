package stt

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Model describes a downloadable recognition model.
type Model struct {
	Name     string // Archive and directory name, e.g. "vosk-model-small-en-us-0.15"
	Language string // BCP-47 language code
	URL      string // Download URL for the zip archive
	SizeMB   int    // Approximate download size, used when the server omits Content-Length
}

const modelBaseURL = "https://alphacephei.com/vosk/models/"

// catalog lists the small models suitable for real-time captioning.
var catalog = []Model{
	{Name: "vosk-model-small-en-us-0.15", Language: "en-US", SizeMB: 40},
	{Name: "vosk-model-small-fr-0.22", Language: "fr", SizeMB: 41},
	{Name: "vosk-model-small-de-0.15", Language: "de", SizeMB: 45},
	{Name: "vosk-model-small-es-0.42", Language: "es", SizeMB: 39},
	{Name: "vosk-model-small-it-0.22", Language: "it", SizeMB: 48},
	{Name: "vosk-model-small-pt-0.3", Language: "pt", SizeMB: 31},
	{Name: "vosk-model-small-ru-0.22", Language: "ru", SizeMB: 45},
	{Name: "vosk-model-small-cn-0.22", Language: "zh-CN", SizeMB: 42},
}

// Catalog returns the available models.
func Catalog() []Model {
	models := make([]Model, len(catalog))
	copy(models, catalog)
	for i := range models {
		if models[i].URL == "" {
			models[i].URL = modelBaseURL + models[i].Name + ".zip"
		}
	}
	return models
}

// DisplayName returns the English name of the model's language, falling
// back to the raw code when it cannot be parsed.
func (m Model) DisplayName() string {
	tag, err := language.Parse(m.Language)
	if err != nil {
		return m.Language
	}
	return display.English.Languages().Name(tag)
}

// Lookup finds the catalog model for a language code. An exact tag match
// wins; otherwise the first model sharing the base language is used.
func Lookup(lang string) (Model, bool) {
	want, err := language.Parse(lang)
	if err != nil {
		return Model{}, false
	}

	for _, m := range Catalog() {
		if tag, err := language.Parse(m.Language); err == nil && tag == want {
			return m, true
		}
	}

	wantBase, _ := want.Base()
	for _, m := range Catalog() {
		tag, err := language.Parse(m.Language)
		if err != nil {
			continue
		}
		if base, _ := tag.Base(); base == wantBase {
			return m, true
		}
	}
	return Model{}, false
}

// ModelPath returns the install path of the model for a language.
func ModelPath(dir, lang string) (string, error) {
	m, ok := Lookup(lang)
	if !ok {
		return "", fmt.Errorf("no model for language %q", lang)
	}
	return filepath.Join(dir, m.Name), nil
}

// ModelReady reports whether the model for a language is installed.
func ModelReady(dir, lang string) bool {
	path, err := ModelPath(dir, lang)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// EnsureModel downloads and unpacks the model for a language if it is not
// already installed. The progress callback, if non-nil, receives download
// percentages in [0, 100].
func EnsureModel(ctx context.Context, dir, lang string, progress func(percent int)) error {
	m, ok := Lookup(lang)
	if !ok {
		return fmt.Errorf("no model for language %q", lang)
	}

	target := filepath.Join(dir, m.Name)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		if progress != nil {
			progress(100)
		}
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	slog.Info("model not found, downloading", "model", m.Name)

	archivePath := target + ".zip.tmp"
	if err := downloadModel(ctx, m, archivePath, progress); err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer os.Remove(archivePath)

	slog.Info("extracting model", "model", m.Name)
	if err := unzip(archivePath, dir); err != nil {
		return fmt.Errorf("extract model: %w", err)
	}

	// The archive unpacks to a directory named after the model.
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return fmt.Errorf("archive did not contain %s", m.Name)
	}

	if progress != nil {
		progress(100)
	}
	slog.Info("model installed", "model", m.Name, "path", target)
	return nil
}

func downloadModel(ctx context.Context, m Model, dest string, progress func(percent int)) error {
	url := m.URL
	if url == "" {
		url = modelBaseURL + m.Name + ".zip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}

	expected := resp.ContentLength
	if expected <= 0 {
		expected = int64(m.SizeMB) << 20
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	var downloaded int64
	lastPercent := 0
	buf := make([]byte, 32*1024)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write archive: %w", werr)
			}
			downloaded += int64(n)

			if expected > 0 && progress != nil {
				pct := int(downloaded * 100 / expected)
				if pct > 99 {
					pct = 99
				}
				if pct > lastPercent {
					lastPercent = pct
					progress(pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func unzip(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		dest := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes target dir: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("create dir: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}
