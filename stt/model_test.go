package stt

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		wantName string
		wantOK   bool
	}{
		{"exact", "en-US", "vosk-model-small-en-us-0.15", true},
		{"base_language", "fr-CA", "vosk-model-small-fr-0.22", true},
		{"plain_base", "de", "vosk-model-small-de-0.15", true},
		{"chinese", "zh-CN", "vosk-model-small-cn-0.22", true},
		{"unknown", "xx-klingon", "", false},
		{"unsupported", "ja", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Lookup(tt.lang)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if m.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", m.Name, tt.wantName)
			}
		})
	}
}

func TestModelDisplayName(t *testing.T) {
	m, ok := Lookup("en-US")
	if !ok {
		t.Fatal("Lookup(en-US) failed")
	}
	if got := m.DisplayName(); got != "American English" {
		t.Errorf("DisplayName = %q, want %q", got, "American English")
	}
}

func TestModelPathAndReady(t *testing.T) {
	dir := t.TempDir()

	path, err := ModelPath(dir, "en-US")
	if err != nil {
		t.Fatalf("ModelPath: %v", err)
	}
	if want := filepath.Join(dir, "vosk-model-small-en-us-0.15"); path != want {
		t.Errorf("ModelPath = %q, want %q", path, want)
	}

	if ModelReady(dir, "en-US") {
		t.Error("ModelReady should be false before install")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !ModelReady(dir, "en-US") {
		t.Error("ModelReady should be true once the directory exists")
	}

	if _, err := ModelPath(dir, "xx"); err == nil {
		t.Error("expected error for unknown language")
	}
}

// modelArchive builds a zip laid out like a published model archive: a
// top-level directory named after the model containing its files.
func modelArchive(t *testing.T, modelName string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{
		modelName + "/am/final.mdl",
		modelName + "/conf/model.conf",
	} {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte("stub")); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestEnsureModelDownloadsAndExtracts(t *testing.T) {
	const modelName = "vosk-model-small-en-us-0.15"
	archive := modelArchive(t, modelName)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	dir := t.TempDir()

	// Point the catalog entry at the test server.
	old := catalog
	catalog = []Model{{Name: modelName, Language: "en-US", URL: srv.URL + "/model.zip", SizeMB: 1}}
	defer func() { catalog = old }()

	var percents []int
	err := EnsureModel(context.Background(), dir, "en-US", func(pct int) {
		percents = append(percents, pct)
	})
	if err != nil {
		t.Fatalf("EnsureModel: %v", err)
	}

	if !ModelReady(dir, "en-US") {
		t.Fatal("model not ready after EnsureModel")
	}
	if _, err := os.Stat(filepath.Join(dir, modelName, "conf", "model.conf")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}

	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress should end at 100, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress went backwards: %v", percents)
		}
	}

	// Archive must be cleaned up.
	if _, err := os.Stat(filepath.Join(dir, modelName+".zip.tmp")); !os.IsNotExist(err) {
		t.Error("temporary archive left behind")
	}

	// Second call is a no-op hitting no network.
	srv.Close()
	if err := EnsureModel(context.Background(), dir, "en-US", nil); err != nil {
		t.Fatalf("EnsureModel on installed model: %v", err)
	}
}

func TestEnsureModelUnknownLanguage(t *testing.T) {
	if err := EnsureModel(context.Background(), t.TempDir(), "xx", nil); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestEnsureModelBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	old := catalog
	catalog = []Model{{Name: "vosk-model-small-en-us-0.15", Language: "en-US", URL: srv.URL, SizeMB: 1}}
	defer func() { catalog = old }()

	if err := EnsureModel(context.Background(), t.TempDir(), "en-US", nil); err == nil {
		t.Error("expected error for HTTP 404")
	}
}
