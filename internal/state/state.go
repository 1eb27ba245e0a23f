// Package state persists the provisioning document shared by every engine.
//
// The document is a JSON object with four well-known top-level keys
// (config, alsa_policy, pipewire_policy, identity). Keys written by other
// tools or future versions are preserved through merges, so the document is
// kept as a generic map and typed views are decoded from it on demand.
package state

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultDir is where the state document lives on a provisioned host.
const DefaultDir = "/var/lib/airplay-wyse"

const fileName = "config.json"

// Document is the on-disk JSON object. Nested objects decode as Document-like
// map[string]any values; numbers decode as float64 per encoding/json.
type Document = map[string]any

// Default returns the baseline document used when no file exists yet and as
// the substrate missing keys are defaulted against.
func Default() Document {
	return Document{
		"config": Document{
			"name":              nil,
			"device":            nil,
			"mixer":             nil,
			"interface":         nil,
			"hardware_address":  nil,
			"airplay_device_id": nil,
			"output_rate":       nil,
			"statistics":        false,
			"interpolation":     nil,
		},
		"alsa_policy":     Document{},
		"pipewire_policy": Document{},
		"identity":        Document{},
	}
}

// Merge recursively merges updates into base and returns a new document.
// Child objects merge key-wise; any other value overwrites. Neither input is
// mutated.
func Merge(base, updates Document) Document {
	out := make(Document, len(base)+len(updates))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range updates {
		uv, uok := v.(map[string]any)
		bv, bok := out[k].(map[string]any)
		if uok && bok {
			out[k] = Merge(bv, uv)
			continue
		}
		out[k] = v
	}
	return out
}

// Store reads and writes the state document. Writes go through a temp file
// and rename; that is the only crash-safety guarantee. Concurrent invocations
// of the tool are not coordinated and race on last-writer-wins terms.
type Store struct {
	path string
}

// NewStore creates a store rooted in dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

// Path returns the document file path.
func (s *Store) Path() string { return s.path }

// Load reads the document, defaulting missing keys. A missing or corrupt
// file yields the default document, never an error.
func (s *Store) Load() Document {
	base := Default()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("state: unreadable document, using defaults", "path", s.path, "err", err)
		}
		return base
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("state: corrupt document, using defaults", "path", s.path, "err", err)
		return base
	}
	return Merge(base, doc)
}

// Save writes the document atomically.
func (s *Store) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Update loads the current document, merges updates into it and saves the
// result. Engines call this independently, so a provisioning run must invoke
// them one after another rather than concurrently.
func (s *Store) Update(updates Document) (Document, error) {
	merged := Merge(s.Load(), updates)
	if err := s.Save(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Child returns the named nested object, or an empty one when absent or of
// the wrong shape.
func Child(doc Document, key string) Document {
	if m, ok := doc[key].(map[string]any); ok {
		return m
	}
	return Document{}
}
