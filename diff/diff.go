// Package diff reports key-level differences between two translation
// collections, and tree-level differences between two language folders.
// It is read-only: nothing here writes files.
package diff

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rimtrans/rimtrans/langfile"
)

// NoDifferences is the report body when two trees are identical.
const NoDifferences = "No differences found."

// Diff compares an existing collection against a fresh one and returns
// human-readable difference lines: additions first, then removals, then
// modifications, each group sorted by key. Identical collections yield nil.
func Diff(existing, fresh *langfile.File) []string {
	var added, removed, modified []string

	for _, key := range sortedKeys(fresh) {
		ne, _ := fresh.Get(key)
		ex, ok := existing.Get(key)
		if !ok {
			added = append(added, fmt.Sprintf("New key added: %s => %s", key, ne.Value()))
			continue
		}
		if strings.TrimSpace(ex.Value()) != strings.TrimSpace(ne.Value()) {
			modified = append(modified,
				fmt.Sprintf("Key modified: %s", key),
				fmt.Sprintf("    Existing: %s", ex.Value()),
				fmt.Sprintf("    New: %s", ne.Value()))
		}
	}

	for _, key := range sortedKeys(existing) {
		if _, ok := fresh.Get(key); !ok {
			ex, _ := existing.Get(key)
			removed = append(removed, fmt.Sprintf("Key removed: %s (was: %s)", key, ex.Value()))
		}
	}

	var out []string
	out = append(out, added...)
	out = append(out, removed...)
	out = append(out, modified...)
	return out
}

// DiffFiles compares two translation files on disk. A missing or unparsable
// file is treated as empty, so the comparison is always best-effort.
func DiffFiles(existingPath, freshPath string) []string {
	return Diff(parseOrEmpty(existingPath), parseOrEmpty(freshPath))
}

// CompareTrees compares every translation file under two language folders
// and returns a combined report. Files present only in freshDir are listed
// as new, files present only in existingDir as removed.
func CompareTrees(existingDir, freshDir string) (string, error) {
	var b strings.Builder

	err := walkXML(freshDir, func(path, rel string) {
		counterpart := filepath.Join(existingDir, rel)
		if _, err := os.Stat(counterpart); err != nil {
			fmt.Fprintf(&b, "New file: %s\n", rel)
			return
		}
		if lines := DiffFiles(counterpart, path); len(lines) > 0 {
			fmt.Fprintf(&b, "Diff: %s\n", rel)
			for _, ln := range lines {
				b.WriteString("  " + ln + "\n")
			}
		}
	})
	if err != nil {
		return "", err
	}

	err = walkXML(existingDir, func(path, rel string) {
		if _, err := os.Stat(filepath.Join(freshDir, rel)); err != nil {
			fmt.Fprintf(&b, "File removed: %s\n", rel)
		}
	})
	if err != nil {
		return "", err
	}

	if b.Len() == 0 {
		return NoDifferences, nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// walkXML visits every .xml file under root with its slash-normalized
// relative path, in walk order. A missing root is not an error.
func walkXML(root string, visit func(path, rel string)) error {
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = filepath.Base(path)
		}
		visit(path, filepath.ToSlash(rel))
		return nil
	})
}

func parseOrEmpty(path string) *langfile.File {
	f, err := langfile.ParseFile(path)
	if err != nil {
		return langfile.NewFile()
	}
	return f
}

func sortedKeys(f *langfile.File) []string {
	keys := f.Keys()
	sort.Strings(keys)
	return keys
}
