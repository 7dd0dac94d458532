package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// HistoryStore is the REPL history persisted as a JSON array of lines,
// oldest first. Repeated lines are kept once, at their latest position.
type HistoryStore struct {
	path    string
	limit   int
	entries []string
}

// OpenHistory reads the history file at path. A missing file yields an
// empty store. limit <= 0 keeps every line.
func OpenHistory(path string, limit int) (*HistoryStore, error) {
	store := &HistoryStore{path: path, limit: limit}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return store, nil
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history: parse %s: %w", path, err)
	}
	for _, entry := range entries {
		store.Add(entry)
	}
	return store, nil
}

func (h *HistoryStore) Path() string { return h.path }

// Entries returns a copy of the stored lines.
func (h *HistoryStore) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Add appends line, dropping an earlier copy of it and the oldest lines
// beyond the limit. Blank lines are ignored.
func (h *HistoryStore) Add(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	for idx, existing := range h.entries {
		if existing == line {
			h.entries = append(h.entries[:idx], h.entries[idx+1:]...)
			break
		}
	}
	h.entries = append(h.entries, line)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.limit:]...)
	}
}

// Save writes the history file, creating its directory.
func (h *HistoryStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("history: create %s: %w", filepath.Dir(h.path), err)
	}
	entries := h.entries
	if entries == nil {
		entries = []string{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(h.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", h.path, err)
	}
	return nil
}
