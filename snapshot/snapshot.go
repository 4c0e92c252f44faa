// Package snapshot implements rimtrans.lock — a YAML file that tracks MD5
// checksums of the extracted source values behind every output file. The
// extractor consults it to report which translation files actually changed
// between runs, instead of logging every rewrite.
//
// The file lives in the language folder next to DefInjected/ and Keyed/.
package snapshot

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the snapshot file name.
const FileName = "rimtrans.lock"

// Version is the snapshot format version.
const Version = 1

// Snapshot maps output-file relative paths to per-key source checksums.
type Snapshot struct {
	Version int                          `yaml:"version"`
	Files   map[string]map[string]string `yaml:"files"` // rel path -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty snapshot rooted at dir.
func New(dir string) *Snapshot {
	return &Snapshot{
		Version: Version,
		Files:   make(map[string]map[string]string),
		path:    filepath.Join(dir, FileName),
	}
}

// Load reads the snapshot from dir. A missing file yields an empty
// snapshot at the same path.
func Load(dir string) (*Snapshot, error) {
	path := filepath.Join(dir, FileName)
	s := &Snapshot{
		Version: Version,
		Files:   make(map[string]map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.path = path
	if s.Files == nil {
		s.Files = make(map[string]map[string]string)
	}
	return s, nil
}

// Save writes the snapshot back to disk.
func (s *Snapshot) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return fmt.Errorf("snapshot path not set")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// FileKey normalizes an output path for use as a snapshot key.
func FileKey(relPath string) string {
	return filepath.ToSlash(relPath)
}

// Changed reports whether the given key/value set differs from what was
// recorded for the file: any new, changed, or removed key counts.
func (s *Snapshot) Changed(file string, entries map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded, ok := s.Files[file]
	if !ok {
		return true
	}
	if len(recorded) != len(entries) {
		return true
	}
	for key, value := range entries {
		if recorded[key] != Hash(value) {
			return true
		}
	}
	return false
}

// Update replaces the recorded checksums for a file.
func (s *Snapshot) Update(file string, entries map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]string, len(entries))
	for key, value := range entries {
		m[key] = Hash(value)
	}
	s.Files[file] = m
}

// RemoveFile drops the record for an output file.
func (s *Snapshot) RemoveFile(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Files, file)
}

// Stats returns the number of recorded files and total keys.
func (s *Snapshot) Stats() (files, keys int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files = len(s.Files)
	for _, m := range s.Files {
		keys += len(m)
	}
	return
}

// FileKeys returns the recorded output paths, sorted.
func (s *Snapshot) FileKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
