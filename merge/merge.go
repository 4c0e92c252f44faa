// Package merge reconciles freshly extracted entries against an existing
// translation file, equivalent to re-running extraction without losing
// human edits.
package merge

import (
	"strings"

	"github.com/rimtrans/rimtrans/langfile"
)

// Merge combines an existing translation file with freshly extracted
// entries.
//   - Keys in both: in TODO mode the existing value wins unless it is still
//     the placeholder token (then the fresh value is adopted, falling back
//     to existing when fresh is placeholder too). In Original mode an
//     unchanged value keeps the existing entry; a changed source value wins
//     (extraction refreshes stale text). The comment follows the kept value.
//   - Keys only in fresh: included unless placeholder-equivalent, so merge
//     never seeds pure TODO stubs into an existing file.
//   - Keys only in existing: always retained — merge never deletes.
func Merge(existing, fresh *langfile.File, mode langfile.PlaceholderMode) *langfile.File {
	result := langfile.NewFile()

	for _, ne := range fresh.Entries {
		newVal := strings.TrimSpace(ne.Value())

		ex, ok := existing.Get(ne.Key)
		if !ok {
			if newVal != langfile.Placeholder {
				result.Add(copyEntry(ne))
			}
			continue
		}

		exVal := strings.TrimSpace(ex.Value())
		keepExisting := false
		if mode == langfile.PlaceholderTODO {
			keepExisting = exVal != langfile.Placeholder || newVal == langfile.Placeholder
		} else {
			keepExisting = exVal == newVal
		}

		if keepExisting {
			result.Add(copyEntry(ex))
		} else {
			result.Add(copyEntry(ne))
		}
	}

	// Entries a prior extraction or the user created are never dropped.
	for _, ex := range existing.Entries {
		if _, ok := result.Get(ex.Key); !ok {
			result.Add(copyEntry(ex))
		}
	}

	return result
}

// copyEntry clones an entry with a normalized comment and re-split value,
// so merge output never aliases either input collection.
func copyEntry(e *langfile.Entry) *langfile.Entry {
	value := strings.TrimSpace(e.Value())
	var lines []string
	if value != "" {
		lines = strings.Split(value, "\n")
	}
	return &langfile.Entry{
		Comment: langfile.FixComment(e.Comment),
		Key:     e.Key,
		Lines:   lines,
	}
}
