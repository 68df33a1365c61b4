package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func setupWriter(t *testing.T) (*Writer, string) {
	t.Helper()

	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	writer, err := NewWriter(dir, logger, nil)
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	return writer, dir
}

func TestWriterRequiresDirectory(t *testing.T) {
	t.Parallel()

	if _, err := NewWriter("", nil, nil); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}

func TestWriterRoundTripsArtifact(t *testing.T) {
	t.Parallel()

	writer, dir := setupWriter(t)
	manifest := writer.Begin()

	type record struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	records := []record{{ID: 1213, Name: "Torch"}, {ID: 1925, Name: "Bucket"}}

	if err := writer.WriteArtifact(manifest, "items", records, len(records)); err != nil {
		t.Fatalf("WriteArtifact returned error: %v", err)
	}

	payload, err := os.ReadFile(filepath.Join(dir, "items.json"))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}

	var restored []record
	if err := json.Unmarshal(payload, &restored); err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if len(restored) != 2 || restored[0].Name != "Torch" {
		t.Fatalf("unexpected artifact content: %#v", restored)
	}
	if manifest.Artifacts["items.json"] != 2 {
		t.Fatalf("expected artifact booked in manifest, got %#v", manifest.Artifacts)
	}
}

func TestWriterManifestStampsRun(t *testing.T) {
	t.Parallel()

	writer, dir := setupWriter(t)

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	clock := started
	writer.now = func() time.Time {
		current := clock
		clock = finished
		return current
	}

	manifest := writer.Begin()
	if err := writer.WriteArtifact(manifest, "shops", []string{}, 0); err != nil {
		t.Fatalf("WriteArtifact returned error: %v", err)
	}
	if err := writer.Finish(manifest); err != nil {
		t.Fatalf("Finish returned error: %v", err)
	}

	payload, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}

	var restored Manifest
	if err := json.Unmarshal(payload, &restored); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	if restored.RunID == "" {
		t.Fatalf("expected run id")
	}
	if !restored.StartedAt.Equal(started) || !restored.FinishedAt.Equal(finished) {
		t.Fatalf("unexpected timestamps: %#v", restored)
	}
	if restored.Artifacts["shops.json"] != 0 {
		t.Fatalf("unexpected artifacts: %#v", restored.Artifacts)
	}
}

func TestWriterLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	writer, dir := setupWriter(t)
	manifest := writer.Begin()

	if err := writer.WriteArtifact(manifest, "sets", []int{1, 2, 3}, 3); err != nil {
		t.Fatalf("WriteArtifact returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("listing output directory: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
