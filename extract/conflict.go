package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decision is one resolution of an output filename collision.
type Decision int

const (
	// DecisionAsk means no decision has been made yet.
	DecisionAsk Decision = iota
	// DecisionMerge merges the colliding entries into the existing file.
	DecisionMerge
	// DecisionPrefix prepends the sub-mod name to the filename.
	DecisionPrefix
	// DecisionSuffix appends the sub-mod name to the filename.
	DecisionSuffix
	// DecisionSkip abandons writing this one file.
	DecisionSkip
	// DecisionCancel aborts the whole extraction run.
	DecisionCancel
)

// String returns the decision name as shown to the user.
func (d Decision) String() string {
	switch d {
	case DecisionMerge:
		return "Merge"
	case DecisionPrefix:
		return "Prefix"
	case DecisionSuffix:
		return "Suffix"
	case DecisionSkip:
		return "Skip"
	case DecisionCancel:
		return "Cancel"
	}
	return "Ask"
}

// ParseDecision converts a user-supplied name into a Decision. "ask" is
// valid and means: prompt on each collision.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ask":
		return DecisionAsk, nil
	case "merge":
		return DecisionMerge, nil
	case "prefix":
		return DecisionPrefix, nil
	case "suffix":
		return DecisionSuffix, nil
	case "skip":
		return DecisionSkip, nil
	case "cancel":
		return DecisionCancel, nil
	}
	return DecisionAsk, fmt.Errorf("invalid conflict decision %q (valid: ask, merge, prefix, suffix, skip, cancel)", s)
}

// ConflictFunc is called when a sub-mod output file already exists. It
// returns the decision and whether it is sticky (applies to all later
// collisions in the same run).
type ConflictFunc func(candidate string) (Decision, bool)

// resolver holds the per-run conflict state.
type resolver struct {
	prompt ConflictFunc
	sticky Decision
}

// resolve handles a filename collision for a sub-mod output file. It
// returns the final path to write ("" to skip this file) and whether the
// caller must merge into it. DecisionCancel surfaces as ErrCancelled.
func (r *resolver) resolve(candidate, subName string) (string, bool, error) {
	for fileExists(candidate) {
		choice := r.sticky
		if choice == DecisionAsk {
			if r.prompt == nil {
				return "", false, nil
			}
			var sticky bool
			choice, sticky = r.prompt(filepath.Base(candidate))
			if sticky && choice != DecisionAsk {
				r.sticky = choice
			}
		}

		switch choice {
		case DecisionCancel:
			return "", false, ErrCancelled
		case DecisionSkip:
			return "", false, nil
		case DecisionMerge:
			return candidate, true, nil
		case DecisionPrefix:
			candidate = decorateCandidate(candidate, subName, true)
		case DecisionSuffix:
			candidate = decorateCandidate(candidate, subName, false)
		default:
			return "", false, nil
		}
	}
	return candidate, false, nil
}

// decorateCandidate builds the next candidate filename for a prefix or
// suffix decision. If the name already carries the decoration, a numeric
// counter is appended instead and incremented until a free name is found.
func decorateCandidate(candidate, subName string, prefix bool) string {
	dir := filepath.Dir(candidate)
	base := filepath.Base(candidate)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if prefix {
		if !strings.HasPrefix(name, subName+"_") {
			return filepath.Join(dir, subName+"_"+name+ext)
		}
	} else {
		if !strings.HasSuffix(name, "_"+subName) {
			return filepath.Join(dir, name+"_"+subName+ext)
		}
	}

	for i := 2; ; i++ {
		next := filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, i, ext))
		if !fileExists(next) {
			return next
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
