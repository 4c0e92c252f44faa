// Package convert runs OpenCC Chinese-variant conversion over translation
// trees, mirroring the input layout into an output folder.
package convert

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/longbridgeapp/opencc"
)

// Transformer converts one text payload. The OpenCC implementation is the
// only one shipped; tests substitute their own.
type Transformer interface {
	Convert(text string) (string, error)
}

// Profiles lists the supported OpenCC conversion profiles.
var Profiles = []string{"s2t", "t2s", "s2tw", "tw2s", "s2hk", "hk2s", "s2twp", "tw2sp"}

// NewOpenCC returns a Transformer for an OpenCC profile such as "s2t"
// (Simplified to Traditional) or "s2twp" (Simplified to Taiwan standard
// with phrase conversion).
func NewOpenCC(profile string) (Transformer, error) {
	cc, err := opencc.New(profile)
	if err != nil {
		return nil, fmt.Errorf("opening OpenCC profile %q: %w", profile, err)
	}
	return cc, nil
}

// Options configures a tree conversion.
type Options struct {
	// Extensions limits conversion to these file extensions (with dot,
	// case-insensitive). Empty means convert every file.
	Extensions []string
	// DetailedLogs enables per-file messages.
	DetailedLogs bool

	OnLog     func(format string, args ...any)
	OnSuccess func(format string, args ...any)
	OnError   func(format string, args ...any)
}

// Tree converts every matching file under inDir and writes the result to
// the same relative path under outDir. Per-file failures are reported and
// skipped; only cancellation or an unwalkable tree aborts.
func Tree(ctx context.Context, inDir, outDir string, tr Transformer, opts Options) error {
	converted := 0
	err := filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !matchExt(path, opts.Extensions) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, rerr := filepath.Rel(inDir, path)
		if rerr != nil {
			rel = filepath.Base(path)
		}
		outPath := filepath.Join(outDir, rel)

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			errorf(opts, "Error reading %s: %v", path, rerr)
			return nil
		}
		out, cerr := tr.Convert(string(data))
		if cerr != nil {
			errorf(opts, "Error converting %s: %v", rel, cerr)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			errorf(opts, "Error creating %s: %v", filepath.Dir(outPath), err)
			return nil
		}
		if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
			errorf(opts, "Error writing %s: %v", outPath, err)
			return nil
		}

		converted++
		if opts.DetailedLogs && opts.OnLog != nil {
			opts.OnLog("Converted: %s", rel)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.OnSuccess != nil {
		opts.OnSuccess("Converted %d file(s) into %s", converted, outDir)
	}
	return nil
}

// matchExt reports whether the file extension is in the allow list.
func matchExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func errorf(opts Options, format string, args ...any) {
	if opts.OnError != nil {
		opts.OnError(format, args...)
	}
}
