// Package config holds rimtrans settings and RimWorld mod-tree discovery.
//
// Settings come from an optional .rimtrans.yaml in the working directory;
// command-line flags override individual fields. Discovery helpers locate
// workshop mods, their Defs folders (directly or under the highest
// versioned subfolder), and bundled sub-mods.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Option enums
// ---------------------------------------------------------------------------

// UpdateMode controls what happens when output files already exist.
type UpdateMode string

const (
	// UpdateMerge reconciles fresh extraction with existing files.
	UpdateMerge UpdateMode = "Merge"
	// UpdateReplace deletes prior output before re-extraction.
	UpdateReplace UpdateMode = "Replace"
)

// NamingPolicy controls how sub-mod output filenames are decorated.
type NamingPolicy string

const (
	// NamingNone keeps the source filename unchanged.
	NamingNone NamingPolicy = "None"
	// NamingPrefix prepends the sub-mod name ("Sub_Recipes.xml").
	NamingPrefix NamingPolicy = "Prefix"
	// NamingSuffix appends the sub-mod name ("Recipes_Sub.xml").
	NamingSuffix NamingPolicy = "Suffix"
)

// ---------------------------------------------------------------------------
// Settings file
// ---------------------------------------------------------------------------

// SettingsFileName is the optional per-directory settings file.
const SettingsFileName = ".rimtrans.yaml"

// Settings is the .rimtrans.yaml schema. All fields are optional.
type Settings struct {
	// ModsDir is the workshop content directory holding mod folders.
	ModsDir string `yaml:"mods_dir,omitempty"`
	// Language is the output language folder name.
	Language string `yaml:"language,omitempty"`
	// Placeholder is the value mode: "TODO" or "Original".
	Placeholder string `yaml:"placeholder,omitempty"`
	// UpdateMode is "Merge" or "Replace".
	UpdateMode string `yaml:"update_mode,omitempty"`
	// SubmodNaming is "None", "Prefix" or "Suffix".
	SubmodNaming string `yaml:"submod_naming,omitempty"`
	// ConvertTypes lists file extensions the convert command processes.
	ConvertTypes []string `yaml:"convert_types,omitempty"`
}

// DefaultSettings returns the built-in defaults, matching the tool's
// interactive defaults: merge updates, TODO placeholders, suffix naming.
func DefaultSettings() *Settings {
	return &Settings{
		Language:     "ChineseTraditional",
		Placeholder:  "TODO",
		UpdateMode:   string(UpdateMerge),
		SubmodNaming: string(NamingSuffix),
		ConvertTypes: []string{".txt", ".xml"},
	}
}

// LoadSettings reads .rimtrans.yaml from dir, filling unset fields with
// defaults. A missing file yields pure defaults; an unreadable or invalid
// file is a configuration error and aborts before any work is done.
func LoadSettings(dir string) (*Settings, error) {
	s := DefaultSettings()

	path := filepath.Join(dir, SettingsFileName)
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

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks enum fields.
func (s *Settings) Validate() error {
	switch s.Placeholder {
	case "", "TODO", "Original":
	default:
		return fmt.Errorf("invalid placeholder %q (valid: TODO, Original)", s.Placeholder)
	}
	switch UpdateMode(s.UpdateMode) {
	case "", UpdateMerge, UpdateReplace:
	default:
		return fmt.Errorf("invalid update_mode %q (valid: Merge, Replace)", s.UpdateMode)
	}
	switch NamingPolicy(s.SubmodNaming) {
	case "", NamingNone, NamingPrefix, NamingSuffix:
	default:
		return fmt.Errorf("invalid submod_naming %q (valid: None, Prefix, Suffix)", s.SubmodNaming)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mod discovery
// ---------------------------------------------------------------------------

// Mod is one installed mod folder.
type Mod struct {
	// ID is the folder name (workshop ID for Steam mods).
	ID string
	// Name is the display name from About/About.xml, or the ID when absent.
	Name string
}

// Label returns the "ID - Name" form used in listings.
func (m Mod) Label() string {
	return m.ID + " - " + m.Name
}

// aboutXML is the subset of About/About.xml we read.
type aboutXML struct {
	Name string `xml:"name"`
}

// ListMods scans a mods directory and returns its mods sorted by ID.
// Unreadable About.xml files fall back to the folder name; only a missing
// mods directory is an error.
func ListMods(modsDir string) ([]Mod, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		return nil, fmt.Errorf("reading mods directory: %w", err)
	}

	var mods []Mod
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		name := id
		aboutPath := filepath.Join(modsDir, id, "About", "About.xml")
		if data, err := os.ReadFile(aboutPath); err == nil {
			var about aboutXML
			if err := xml.Unmarshal(data, &about); err == nil && strings.TrimSpace(about.Name) != "" {
				name = strings.TrimSpace(about.Name)
			}
		}
		mods = append(mods, Mod{ID: id, Name: name})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	return mods, nil
}

// FilterMods returns the mods whose label contains term, case-insensitively.
func FilterMods(mods []Mod, term string) []Mod {
	if term == "" {
		return mods
	}
	term = strings.ToLower(term)
	var filtered []Mod
	for _, m := range mods {
		if strings.Contains(strings.ToLower(m.Label()), term) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// LanguageDir returns the translation output folder for a language.
func LanguageDir(modDir, lang string) string {
	return filepath.Join(modDir, "Languages", lang)
}

// versionDirPat matches version folders like "1.4" or "1.5.2".
var versionDirPat = regexp.MustCompile(`^\d+(\.\d+)+$`)

// FindDefsDir locates the Defs folder of a mod: directly under the mod
// root, or under the highest versioned subfolder. Returns "" when absent.
func FindDefsDir(modDir string) string {
	direct := filepath.Join(modDir, "Defs")
	if isDir(direct) {
		return direct
	}
	if v := latestVersionDir(modDir); v != "" {
		versioned := filepath.Join(modDir, v, "Defs")
		if isDir(versioned) {
			return versioned
		}
	}
	return ""
}

// FindSubmodsDir locates the bundled sub-mods folder ("Mods" under the mod
// root or under the highest versioned subfolder). Returns "" when absent.
func FindSubmodsDir(modDir string) string {
	direct := filepath.Join(modDir, "Mods")
	if isDir(direct) {
		return direct
	}
	if v := latestVersionDir(modDir); v != "" {
		versioned := filepath.Join(modDir, v, "Mods")
		if isDir(versioned) {
			return versioned
		}
	}
	return ""
}

// latestVersionDir returns the highest version-named subfolder of modDir.
func latestVersionDir(modDir string) string {
	entries, err := os.ReadDir(modDir)
	if err != nil {
		return ""
	}

	var versions []string
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name())
		if entry.IsDir() && versionDirPat.MatchString(name) {
			versions = append(versions, name)
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) < 0
	})
	return versions[len(versions)-1]
}

// compareVersions compares dotted numeric versions component-wise.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	return len(as) - len(bs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
