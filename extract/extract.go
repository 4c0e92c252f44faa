// Package extract orchestrates translation extraction for a whole mod
// tree: the Defs pass, English Keyed replication, and bundled sub-mods,
// with merge-or-write output and run-scoped conflict and cancellation
// state.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rimtrans/rimtrans/config"
	"github.com/rimtrans/rimtrans/defs"
	"github.com/rimtrans/rimtrans/langfile"
	"github.com/rimtrans/rimtrans/merge"
	"github.com/rimtrans/rimtrans/snapshot"
)

// ErrCancelled is returned when the user aborts the run, either through
// the conflict prompt or by interrupting the process. It is a clean halt,
// not a failure: files already written stay intact.
var ErrCancelled = errors.New("extraction cancelled by user")

// Options configures one extraction run. All state is run-scoped; Run
// never touches globals.
type Options struct {
	// Placeholder selects the value mode for written files.
	Placeholder langfile.PlaceholderMode
	// UpdateMode selects merge-into or replace-prior-output behavior.
	UpdateMode config.UpdateMode
	// Naming decorates sub-mod output filenames.
	Naming config.NamingPolicy
	// OnConflict is consulted when a sub-mod output file already exists.
	// Nil means collisions are skipped.
	OnConflict ConflictFunc
	// DetailedLogs enables per-file written/unchanged messages.
	DetailedLogs bool

	// Progress reporting. Nil callbacks are ignored.
	OnLog     func(format string, args ...any)
	OnSuccess func(format string, args ...any)
	OnWarn    func(format string, args ...any)
	OnError   func(format string, args ...any)
}

// run carries the state of one extraction invocation.
type run struct {
	opts        Options
	resolver    *resolver
	langDir     string
	defInjected string
	keyed       string
	snap        *snapshot.Snapshot
}

// Run extracts translations from modDir into langDir. File-level failures
// are reported and skipped; only cancellation or a failure to prepare the
// top-level output folders aborts the run.
func Run(ctx context.Context, modDir, langDir string, opts Options) error {
	r := &run{
		opts:     opts,
		resolver: &resolver{prompt: opts.OnConflict},
		langDir:  langDir,
	}

	if err := os.MkdirAll(langDir, 0755); err != nil {
		return fmt.Errorf("creating language folder: %w", err)
	}

	// Legacy folder names from old RimWorld versions.
	r.defInjected = r.renameIfExists(langDir, "DefLinked", "DefInjected")
	r.keyed = r.renameIfExists(langDir, "CodeLinked", "Keyed")
	if err := os.MkdirAll(r.defInjected, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", r.defInjected, err)
	}
	if err := os.MkdirAll(r.keyed, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", r.keyed, err)
	}

	if opts.UpdateMode == config.UpdateReplace {
		r.clearXML(r.defInjected)
		r.clearXML(r.keyed)
	} else {
		r.logf("Update mode: Merge. Existing translations will be merged.")
	}

	snap, err := snapshot.Load(langDir)
	if err != nil {
		r.warnf("Snapshot unreadable, starting fresh: %v", err)
		snap = snapshot.New(langDir)
	}
	r.snap = snap

	defsDir := config.FindDefsDir(modDir)
	if defsDir == "" {
		r.warnf("No 'Defs' folder found in %s. Skipping definition extraction.", modDir)
	} else if err := r.extractDefs(ctx, defsDir, ""); err != nil {
		return err
	}

	if err := r.replicateKeyed(ctx, filepath.Join(modDir, "Languages", "English", "Keyed")); err != nil {
		return err
	}
	r.successf("Main mod extraction finished.")

	if err := r.extractSubmods(ctx, modDir); err != nil {
		return err
	}

	if err := r.snap.Save(); err != nil {
		r.warnf("Saving snapshot: %v", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Defs pass
// ---------------------------------------------------------------------------

// extractDefs walks one Defs tree and writes a translation file per source
// file. subName is empty for the main mod; for sub-mods it drives filename
// decoration and conflict resolution.
func (r *run) extractDefs(ctx context.Context, defsDir, subName string) error {
	return filepath.WalkDir(defsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.errorf("Walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		if err := checkCancelled(ctx); err != nil {
			return err
		}

		defType, entries, perr := defs.ParseFile(path)
		if perr != nil {
			r.errorf("Error parsing %s: %v", path, perr)
			return nil
		}
		if defType == "" || len(entries) == 0 {
			return nil
		}

		name := filepath.Base(path)
		if subName != "" {
			switch r.opts.Naming {
			case config.NamingPrefix:
				name = subName + "_" + name
			case config.NamingSuffix:
				ext := filepath.Ext(name)
				name = strings.TrimSuffix(name, ext) + "_" + subName + ext
			}
		}

		outPath := filepath.Join(r.defInjected, defType, name)
		forceMerge := false
		if subName != "" {
			final, doMerge, cerr := r.resolver.resolve(outPath, subName)
			if cerr != nil {
				return cerr
			}
			if final == "" {
				r.logf("Skipping %q due to conflict.", filepath.Base(outPath))
				return nil
			}
			outPath, forceMerge = final, doMerge
		}

		r.writeEntries(outPath, entries, forceMerge)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Keyed replication
// ---------------------------------------------------------------------------

// replicateKeyed mirrors the English Keyed tree into the output Keyed
// folder, re-keying nothing: flat files are parsed and rewritten (or
// merged) in place.
func (r *run) replicateKeyed(ctx context.Context, srcKeyed string) error {
	if !isDir(srcKeyed) {
		r.warnf("No English Keyed folder at: %s. Skipping.", srcKeyed)
		return nil
	}
	r.logf("Replicating keyed files from %s", srcKeyed)

	return filepath.WalkDir(srcKeyed, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.errorf("Walking %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		if err := checkCancelled(ctx); err != nil {
			return err
		}

		src, perr := langfile.ParseFile(path)
		if perr != nil {
			r.errorf("Error parsing keyed file %s: %v", path, perr)
			return nil
		}
		if src.Len() == 0 {
			return nil
		}

		rel, rerr := filepath.Rel(srcKeyed, path)
		if rerr != nil {
			rel = filepath.Base(path)
		}
		r.writeEntries(filepath.Join(r.keyed, rel), src.Entries, false)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Sub-mods
// ---------------------------------------------------------------------------

func (r *run) extractSubmods(ctx context.Context, modDir string) error {
	subRoot := config.FindSubmodsDir(modDir)
	if subRoot == "" {
		return nil
	}
	r.logf("Processing sub-mods in: %s", subRoot)

	subs, err := os.ReadDir(subRoot)
	if err != nil {
		r.errorf("Reading %s: %v", subRoot, err)
		return nil
	}

	for _, sub := range subs {
		if !sub.IsDir() {
			continue
		}
		if err := checkCancelled(ctx); err != nil {
			return err
		}

		name := sub.Name()
		subDir := filepath.Join(subRoot, name)
		r.logf("Processing sub-mod: %s", name)

		subDefs := config.FindDefsDir(subDir)
		if subDefs == "" {
			r.warnf("No 'Defs' folder for sub-mod %q. Skipping.", name)
		} else if err := r.extractDefs(ctx, subDefs, name); err != nil {
			return err
		}

		if err := r.replicateKeyed(ctx, filepath.Join(subDir, "Languages", "English", "Keyed")); err != nil {
			return err
		}
		r.successf("Finished processing sub-mod: %s", name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// writeEntries writes one output file, merging with existing content when
// the update mode (or a conflict decision) asks for it. Write failures are
// reported and skipped; the run continues.
//
// In TODO placeholder mode the fresh entries get the placeholder token as
// their value before merging; the source text lives on in the reference
// comment. The merged collection is then serialized from its actual
// values, so translations an earlier run preserved stay on disk.
func (r *run) writeEntries(path string, entries []*langfile.Entry, forceMerge bool) {
	// Source-text checksums for change reporting, taken before any
	// placeholder substitution.
	values := make(map[string]string, len(entries))
	for _, e := range entries {
		values[e.Key] = strings.TrimSpace(e.Value())
	}

	fresh := langfile.NewFile()
	for _, e := range entries {
		if r.opts.Placeholder == langfile.PlaceholderTODO {
			e = &langfile.Entry{
				Comment: e.Comment,
				Key:     e.Key,
				Lines:   []string{langfile.Placeholder},
			}
		}
		fresh.Add(e)
	}

	out := fresh
	if (forceMerge || r.opts.UpdateMode == config.UpdateMerge) && fileExists(path) {
		existing, err := langfile.ParseFile(path)
		if err != nil {
			r.errorf("Error reading existing %s: %v", path, err)
			existing = langfile.NewFile()
		}
		out = merge.Merge(existing, fresh, r.opts.Placeholder)
	}

	rel, err := filepath.Rel(r.langDir, path)
	if err != nil {
		rel = path
	}
	fileKey := snapshot.FileKey(rel)
	changed := r.snap.Changed(fileKey, values)

	if err := out.WriteFile(path, langfile.PlaceholderOriginal); err != nil {
		r.errorf("Error writing %s: %v", path, err)
		return
	}
	r.snap.Update(fileKey, values)

	if r.opts.DetailedLogs {
		if changed {
			r.successf("Created translation file: %s", path)
		} else {
			r.logf("Unchanged source: %s", path)
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// renameIfExists renames a legacy folder when the old name exists and the
// new one does not, and returns the new path either way.
func (r *run) renameIfExists(parent, old, new string) string {
	oldPath := filepath.Join(parent, old)
	newPath := filepath.Join(parent, new)
	if fileExists(oldPath) && !fileExists(newPath) {
		r.logf("Renaming %q to %q", oldPath, newPath)
		if err := os.Rename(oldPath, newPath); err != nil {
			r.errorf("Renaming %s: %v", oldPath, err)
		}
	}
	return newPath
}

// clearXML removes all .xml files under dir, keeping the directory layout.
func (r *run) clearXML(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			r.errorf("Error removing %s: %v", path, err)
		}
		return nil
	})
}

// checkCancelled polls the run context. Called between files and records
// so a long extraction can be aborted promptly.
func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (r *run) logf(format string, args ...any) {
	if r.opts.OnLog != nil {
		r.opts.OnLog(format, args...)
	}
}

func (r *run) successf(format string, args ...any) {
	if r.opts.OnSuccess != nil {
		r.opts.OnSuccess(format, args...)
	}
}

func (r *run) warnf(format string, args ...any) {
	if r.opts.OnWarn != nil {
		r.opts.OnWarn(format, args...)
	}
}

func (r *run) errorf(format string, args ...any) {
	if r.opts.OnError != nil {
		r.opts.OnError(format, args...)
	}
}
