package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lu-zhengda/appsweep/internal/utils"
)

// Removal methods recorded in Entry.Method.
const (
	MethodUninstall = "uninstall"
	MethodOrphans   = "orphans"
)

const recentLimit = 5

// Entry represents a single removal recorded in the history.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	App        string    `json:"app"`
	BundleID   string    `json:"bundle_id,omitempty"`
	Items      int       `json:"items"`
	Failed     int       `json:"failed"`
	BytesFreed int64     `json:"bytes_freed"`
	Method     string    `json:"method"`
}

// MethodStats holds aggregate statistics for a single removal method.
type MethodStats struct {
	BytesFreed int64 `json:"bytes_freed"`
	Removals   int   `json:"removals"`
}

// Stats holds aggregate removal statistics.
type Stats struct {
	TotalFreed    int64                  `json:"total_freed"`
	TotalRemovals int                    `json:"total_removals"`
	TotalFailed   int                    `json:"total_failed"`
	ByMethod      map[string]MethodStats `json:"by_method"`
	Recent        []Entry                `json:"recent"`
}

// History manages the removal history file.
type History struct {
	path string
}

// New creates a new History that reads/writes the given file path.
func New(path string) *History {
	return &History{path: path}
}

// DefaultPath returns the default history file location:
// ~/.local/share/appsweep/history.json
func DefaultPath() string {
	return filepath.Join(utils.HomeDir(), ".local", "share", "appsweep", "history.json")
}

// Record appends an entry to the history file. A missing or corrupt file
// is replaced rather than blocking the write.
func (h *History) Record(e Entry) error {
	entries, err := h.Load()
	if err != nil {
		entries = nil
	}

	entries = append(entries, e)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// Load reads all entries from the history file. A missing file returns an
// error satisfying os.IsNotExist.
func (h *History) Load() ([]Entry, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	return entries, nil
}

// Stats computes aggregate statistics from the history.
func (h *History) Stats() Stats {
	s := Stats{ByMethod: make(map[string]MethodStats)}

	entries, err := h.Load()
	if err != nil || len(entries) == 0 {
		return s
	}

	s.TotalRemovals = len(entries)
	for _, e := range entries {
		s.TotalFreed += e.BytesFreed
		s.TotalFailed += e.Failed

		ms := s.ByMethod[e.Method]
		ms.BytesFreed += e.BytesFreed
		ms.Removals++
		s.ByMethod[e.Method] = ms
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	s.Recent = sorted[:min(recentLimit, len(sorted))]
	return s
}
