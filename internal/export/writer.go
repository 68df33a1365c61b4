// Package export serializes extraction results into versioned JSON artifacts
// on disk, one file per record family plus a run manifest.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const manifestFile = "meta.json"

// Manifest records one extraction run: its identity, timing and per-artifact
// record counts. It is written last, so a present manifest marks a complete
// artifact set.
type Manifest struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Artifacts  map[string]int `json:"artifacts"`
}

// Writer emits JSON artifacts into a single output directory.
type Writer struct {
	dir    string
	logger *logrus.Logger
	hub    *sentry.Hub
	now    func() time.Time
}

func NewWriter(dir string, logger *logrus.Logger, hub *sentry.Hub) (*Writer, error) {
	if dir == "" {
		return nil, eris.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "creating output directory: %s", dir)
	}

	return &Writer{dir: dir, logger: logger, hub: hub, now: time.Now}, nil
}

// Begin opens a manifest for a new run.
func (w *Writer) Begin() *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		StartedAt: w.now().UTC(),
		Artifacts: make(map[string]int),
	}
}

// WriteArtifact serializes one record family to <name>.json and books it
// into the manifest.
func (w *Writer) WriteArtifact(manifest *Manifest, name string, records any, count int) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "encoding artifact: %s", name)
	}

	file := name + ".json"
	if err := w.writeFile(file, payload); err != nil {
		return err
	}

	manifest.Artifacts[file] = count
	w.logInfo(logrus.Fields{"artifact": file, "records": count}, "artifact written")
	return nil
}

// Finish stamps the manifest and writes it alongside the artifacts.
func (w *Writer) Finish(manifest *Manifest) error {
	manifest.FinishedAt = w.now().UTC()

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encoding manifest")
	}
	if err := w.writeFile(manifestFile, payload); err != nil {
		return err
	}

	w.logInfo(logrus.Fields{
		"run_id":    manifest.RunID,
		"artifacts": len(manifest.Artifacts),
	}, "export complete")
	return nil
}

// writeFile lands the payload via a sibling temp file and rename, so readers
// never observe a half-written artifact.
func (w *Writer) writeFile(name string, payload []byte) error {
	target := filepath.Join(w.dir, name)
	temp := target + ".tmp"

	if err := os.WriteFile(temp, payload, 0o644); err != nil {
		w.recordError(logrus.Fields{"file": name}, err, "writing artifact")
		return eris.Wrapf(err, "writing artifact: %s", name)
	}
	if err := os.Rename(temp, target); err != nil {
		w.recordError(logrus.Fields{"file": name}, err, "publishing artifact")
		return eris.Wrapf(err, "publishing artifact: %s", name)
	}
	return nil
}

func (w *Writer) logInfo(fields logrus.Fields, message string) {
	if w.logger == nil {
		return
	}
	w.logger.WithFields(fields).Info(message)
}

func (w *Writer) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}
	if w.logger != nil {
		w.logger.WithFields(fields).WithField("error", err.Error()).Error(message)
	}
	if w.hub != nil {
		w.hub.CaptureException(err)
	}
}
