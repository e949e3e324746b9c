// Package snapshot reads scheduling snapshots from YAML or JSON files.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/cellsched/core/model"
	"github.com/kilianp07/cellsched/core/scheduler"
)

// Source provides the snapshot of one run.
type Source interface {
	Load(ctx context.Context) (scheduler.Snapshot, error)
}

// FileSource reads the snapshot from a file on every Load, so edits are
// picked up by the next run.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source reading path.
func NewFileSource(path string) *FileSource { return &FileSource{Path: path} }

// Load implements Source.
func (f *FileSource) Load(ctx context.Context) (scheduler.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return scheduler.Snapshot{}, err
	}
	return LoadFile(f.Path)
}

// Static serves a fixed snapshot.
type Static scheduler.Snapshot

// Load implements Source.
func (s Static) Load(context.Context) (scheduler.Snapshot, error) { return scheduler.Snapshot(s), nil }

// LoadFile decodes the file at path, choosing the format from its extension.
func LoadFile(path string) (scheduler.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := Decode(bytes.NewReader(data), Format(path))
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Format returns "json" for .json files and "yaml" otherwise.
func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// Decode reads a snapshot from r. Omitted working days fall back to
// model.DefaultWorkingDays.
func Decode(r io.Reader, format string) (scheduler.Snapshot, error) {
	var snap scheduler.Snapshot
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil && err != io.EOF {
			return snap, err
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return snap, err
		}
	default:
		return snap, fmt.Errorf("unsupported snapshot format: %s", format)
	}
	applyWorkingDayDefaults(&snap.WorkingDays)
	return snap, nil
}

// applyWorkingDayDefaults fills the mask and the opening window independently
// when they are left unset.
func applyWorkingDayDefaults(wd *model.WorkingDaysConfig) {
	def := model.DefaultWorkingDays()
	if wd.Mask == 0 {
		wd.Mask = def.Mask
	}
	if wd.DefaultOpening == 0 && wd.DefaultClosing == 0 {
		wd.DefaultOpening = def.DefaultOpening
		wd.DefaultClosing = def.DefaultClosing
	}
}
