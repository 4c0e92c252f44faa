package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rimtrans/rimtrans/config"
	"github.com/rimtrans/rimtrans/langfile"
	"github.com/rimtrans/rimtrans/snapshot"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const thingsXML = `<?xml version="1.0" encoding="utf-8"?>
<Defs>
  <ThingDef>
    <defName>Wood</defName>
    <label>wood</label>
    <description>A sturdy piece of wood.</description>
  </ThingDef>
</Defs>`

const keyedXML = `<?xml version="1.0" encoding="utf-8"?>
<LanguageData>
  <Greeting>Hello</Greeting>
</LanguageData>`

// newMod builds a minimal mod tree with one Defs file and one English
// Keyed file.
func newMod(t *testing.T) string {
	t.Helper()
	modDir := t.TempDir()
	writeFile(t, filepath.Join(modDir, "Defs", "ThingDefs", "Things.xml"), thingsXML)
	writeFile(t, filepath.Join(modDir, "Languages", "English", "Keyed", "Common.xml"), keyedXML)
	return modDir
}

func defaultOptions() Options {
	return Options{
		Placeholder: langfile.PlaceholderTODO,
		UpdateMode:  config.UpdateMerge,
		Naming:      config.NamingSuffix,
	}
}

func TestRun(t *testing.T) {
	modDir := newMod(t)
	langDir := config.LanguageDir(modDir, "Test")

	if err := Run(context.Background(), modDir, langDir, defaultOptions()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outPath := filepath.Join(langDir, "DefInjected", "ThingDef", "Things.xml")
	out, err := langfile.ParseFile(outPath)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	label, ok := out.Get("Wood.label")
	if !ok {
		t.Fatalf("Wood.label missing from %s", outPath)
	}
	if !label.IsPlaceholder() {
		t.Fatalf("value = %q, want placeholder", label.Value())
	}
	if label.Comment != "<!-- EN: wood -->" {
		t.Fatalf("comment = %q", label.Comment)
	}
	if _, ok := out.Get("Wood.description"); !ok {
		t.Fatal("Wood.description missing")
	}

	keyed, err := langfile.ParseFile(filepath.Join(langDir, "Keyed", "Common.xml"))
	if err != nil {
		t.Fatalf("ParseFile keyed: %v", err)
	}
	if _, ok := keyed.Get("Greeting"); !ok {
		t.Fatal("Greeting missing from replicated keyed file")
	}

	if _, err := os.Stat(filepath.Join(langDir, snapshot.FileName)); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
}

func TestRunPreservesTranslationsOnMerge(t *testing.T) {
	modDir := newMod(t)
	langDir := config.LanguageDir(modDir, "Test")

	if err := Run(context.Background(), modDir, langDir, defaultOptions()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Translate one value by hand.
	outPath := filepath.Join(langDir, "DefInjected", "ThingDef", "Things.xml")
	out, err := langfile.ParseFile(outPath)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	label, _ := out.Get("Wood.label")
	label.Lines = []string{"木材"}
	if err := out.WriteFile(outPath, langfile.PlaceholderOriginal); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Run(context.Background(), modDir, langDir, defaultOptions()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	out, err = langfile.ParseFile(outPath)
	if err != nil {
		t.Fatalf("ParseFile after rerun: %v", err)
	}
	label, _ = out.Get("Wood.label")
	if label.Value() != "木材" {
		t.Fatalf("translation lost on re-extraction: %q", label.Value())
	}
}

func TestRunReplaceClearsPriorOutput(t *testing.T) {
	modDir := newMod(t)
	langDir := config.LanguageDir(modDir, "Test")

	stale := filepath.Join(langDir, "DefInjected", "OldType", "Stale.xml")
	writeFile(t, stale, keyedXML)
	notes := filepath.Join(langDir, "DefInjected", "notes.txt")
	writeFile(t, notes, "keep me")

	opts := defaultOptions()
	opts.UpdateMode = config.UpdateReplace
	if err := Run(context.Background(), modDir, langDir, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale .xml not removed in Replace mode")
	}
	if _, err := os.Stat(notes); err != nil {
		t.Fatal("non-xml file removed in Replace mode")
	}
}

func TestRunRenamesLegacyFolders(t *testing.T) {
	modDir := newMod(t)
	langDir := config.LanguageDir(modDir, "Test")

	writeFile(t, filepath.Join(langDir, "DefLinked", "ThingDef", "Old.xml"), keyedXML)
	writeFile(t, filepath.Join(langDir, "CodeLinked", "Old.xml"), keyedXML)

	if err := Run(context.Background(), modDir, langDir, defaultOptions()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(langDir, "DefLinked")); !os.IsNotExist(err) {
		t.Fatal("DefLinked not renamed")
	}
	if _, err := os.Stat(filepath.Join(langDir, "DefInjected", "ThingDef", "Old.xml")); err != nil {
		t.Fatalf("renamed content missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(langDir, "Keyed", "Old.xml")); err != nil {
		t.Fatalf("CodeLinked content missing: %v", err)
	}
}

func TestRunSubmods(t *testing.T) {
	recipeXML := func(defName string) string {
		return `<Defs>
  <RecipeDef>
    <defName>` + defName + `</defName>
    <label>` + strings.ToLower(defName) + `</label>
  </RecipeDef>
</Defs>`
	}

	t.Run("suffix naming keeps sub-mod files apart", func(t *testing.T) {
		modDir := newMod(t)
		writeFile(t, filepath.Join(modDir, "Mods", "SubA", "Defs", "Recipes.xml"), recipeXML("BrewAle"))
		writeFile(t, filepath.Join(modDir, "Mods", "SubB", "Defs", "Recipes.xml"), recipeXML("BrewMead"))
		langDir := config.LanguageDir(modDir, "Test")

		if err := Run(context.Background(), modDir, langDir, defaultOptions()); err != nil {
			t.Fatalf("Run: %v", err)
		}

		for _, name := range []string{"Recipes_SubA.xml", "Recipes_SubB.xml"} {
			if _, err := os.Stat(filepath.Join(langDir, "DefInjected", "RecipeDef", name)); err != nil {
				t.Fatalf("%s missing: %v", name, err)
			}
		}
	})

	t.Run("collision resolved by a suffix decision", func(t *testing.T) {
		modDir := newMod(t)
		writeFile(t, filepath.Join(modDir, "Mods", "SubA", "Defs", "Recipes.xml"), recipeXML("BrewAle"))
		writeFile(t, filepath.Join(modDir, "Mods", "SubB", "Defs", "Recipes.xml"), recipeXML("BrewMead"))
		langDir := config.LanguageDir(modDir, "Test")

		prompts := 0
		opts := defaultOptions()
		opts.Naming = config.NamingNone
		opts.OnConflict = func(candidate string) (Decision, bool) {
			prompts++
			return DecisionSuffix, false
		}

		if err := Run(context.Background(), modDir, langDir, opts); err != nil {
			t.Fatalf("Run: %v", err)
		}

		if prompts != 1 {
			t.Fatalf("prompted %d times, want 1", prompts)
		}
		if _, err := os.Stat(filepath.Join(langDir, "DefInjected", "RecipeDef", "Recipes.xml")); err != nil {
			t.Fatalf("first sub-mod file missing: %v", err)
		}
		decorated := filepath.Join(langDir, "DefInjected", "RecipeDef", "Recipes_SubB.xml")
		out, err := langfile.ParseFile(decorated)
		if err != nil {
			t.Fatalf("decorated file missing: %v", err)
		}
		if _, ok := out.Get("BrewMead.label"); !ok {
			t.Fatal("decorated file has wrong content")
		}
	})

	t.Run("merge decision combines entries", func(t *testing.T) {
		modDir := newMod(t)
		writeFile(t, filepath.Join(modDir, "Mods", "SubA", "Defs", "Recipes.xml"), recipeXML("BrewAle"))
		writeFile(t, filepath.Join(modDir, "Mods", "SubB", "Defs", "Recipes.xml"), recipeXML("BrewMead"))
		langDir := config.LanguageDir(modDir, "Test")

		opts := defaultOptions()
		opts.Placeholder = langfile.PlaceholderOriginal
		opts.Naming = config.NamingNone
		opts.OnConflict = func(candidate string) (Decision, bool) {
			return DecisionMerge, false
		}

		if err := Run(context.Background(), modDir, langDir, opts); err != nil {
			t.Fatalf("Run: %v", err)
		}

		out, err := langfile.ParseFile(filepath.Join(langDir, "DefInjected", "RecipeDef", "Recipes.xml"))
		if err != nil {
			t.Fatalf("ParseFile: %v", err)
		}
		for _, key := range []string{"BrewAle.label", "BrewMead.label"} {
			if _, ok := out.Get(key); !ok {
				t.Fatalf("%s missing from merged file", key)
			}
		}
	})

	t.Run("cancel decision aborts the run", func(t *testing.T) {
		modDir := newMod(t)
		writeFile(t, filepath.Join(modDir, "Mods", "SubA", "Defs", "Recipes.xml"), recipeXML("BrewAle"))
		writeFile(t, filepath.Join(modDir, "Mods", "SubB", "Defs", "Recipes.xml"), recipeXML("BrewMead"))
		langDir := config.LanguageDir(modDir, "Test")

		opts := defaultOptions()
		opts.Naming = config.NamingNone
		opts.OnConflict = func(candidate string) (Decision, bool) {
			return DecisionCancel, false
		}

		err := Run(context.Background(), modDir, langDir, opts)
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("Run = %v, want ErrCancelled", err)
		}
	})
}

func TestRunCancelledContext(t *testing.T) {
	modDir := newMod(t)
	langDir := config.LanguageDir(modDir, "Test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, modDir, langDir, defaultOptions())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run = %v, want ErrCancelled", err)
	}
}

func TestRunWithoutDefs(t *testing.T) {
	modDir := t.TempDir()
	writeFile(t, filepath.Join(modDir, "Languages", "English", "Keyed", "Common.xml"), keyedXML)
	langDir := config.LanguageDir(modDir, "Test")

	var warned bool
	opts := defaultOptions()
	opts.OnWarn = func(format string, args ...any) { warned = true }

	if err := Run(context.Background(), modDir, langDir, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !warned {
		t.Fatal("expected a warning for the missing Defs folder")
	}
	if _, err := os.Stat(filepath.Join(langDir, "Keyed", "Common.xml")); err != nil {
		t.Fatalf("keyed replication skipped: %v", err)
	}
}

func TestParseDecision(t *testing.T) {
	cases := map[string]Decision{
		"ask":    DecisionAsk,
		"":       DecisionAsk,
		"Merge":  DecisionMerge,
		"PREFIX": DecisionPrefix,
		"suffix": DecisionSuffix,
		"skip":   DecisionSkip,
		"cancel": DecisionCancel,
	}
	for in, want := range cases {
		got, err := ParseDecision(in)
		if err != nil {
			t.Fatalf("ParseDecision(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDecision(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseDecision("explode"); err == nil {
		t.Fatal("expected error for unknown decision")
	}
}

func TestDecorateCandidate(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "Recipes.xml")

	if got := decorateCandidate(base, "Sub", false); got != filepath.Join(dir, "Recipes_Sub.xml") {
		t.Fatalf("suffix = %q", got)
	}
	if got := decorateCandidate(base, "Sub", true); got != filepath.Join(dir, "Sub_Recipes.xml") {
		t.Fatalf("prefix = %q", got)
	}

	// Already decorated: fall back to a numeric counter.
	decorated := filepath.Join(dir, "Recipes_Sub.xml")
	if got := decorateCandidate(decorated, "Sub", false); got != filepath.Join(dir, "Recipes_Sub_2.xml") {
		t.Fatalf("counter = %q", got)
	}
}
