package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "presence.json"

// FileBackend stores the state as a single JSON document, read in full at
// startup and rewritten in full on every save. There is no write-ahead log
// or partial-write protection; a crash mid-write can corrupt the file.
type FileBackend struct {
	path string
}

// NewFileBackend creates dataDir if needed and returns a backend writing
// to presence.json inside it.
func NewFileBackend(dataDir string) (*FileBackend, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileBackend{path: filepath.Join(dataDir, stateFileName)}, nil
}

// Load reads and decodes the state document. A missing file is not an
// error; it yields an empty state.
func (b *FileBackend) Load() (State, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return State{}, fmt.Errorf("reading %s: %w", b.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parsing %s: %w", b.path, err)
	}
	st.normalize()
	return st, nil
}

// Save rewrites the whole document.
func (b *FileBackend) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", b.path, err)
	}
	return nil
}
