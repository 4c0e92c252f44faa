package merge

import (
	"testing"

	"github.com/rimtrans/rimtrans/langfile"
)

func file(entries ...*langfile.Entry) *langfile.File {
	f := langfile.NewFile()
	for _, e := range entries {
		f.Add(e)
	}
	return f
}

func entry(key, value string) *langfile.Entry {
	return &langfile.Entry{
		Comment: langfile.BuildComment(value),
		Key:     key,
		Lines:   []string{value},
	}
}

func TestMergeTODOMode(t *testing.T) {
	t.Run("translated values survive re-extraction", func(t *testing.T) {
		existing := file(entry("Wood.label", "木材"))
		fresh := file(entry("Wood.label", "TODO"))

		got := Merge(existing, fresh, langfile.PlaceholderTODO)
		e, ok := got.Get("Wood.label")
		if !ok || e.Value() != "木材" {
			t.Fatalf("translated value lost: %v", e)
		}
	})

	t.Run("placeholder is refreshed from fresh", func(t *testing.T) {
		existing := file(entry("Wood.label", "TODO"))
		fresh := file(entry("Wood.label", "wood"))

		got := Merge(existing, fresh, langfile.PlaceholderTODO)
		e, _ := got.Get("Wood.label")
		if e.Value() != "wood" {
			t.Fatalf("value = %q, want wood", e.Value())
		}
	})

	t.Run("both placeholder keeps existing", func(t *testing.T) {
		existing := file(&langfile.Entry{Comment: "<!-- EN: old -->", Key: "K", Lines: []string{"TODO"}})
		fresh := file(&langfile.Entry{Comment: "<!-- EN: new -->", Key: "K", Lines: []string{"TODO"}})

		got := Merge(existing, fresh, langfile.PlaceholderTODO)
		e, _ := got.Get("K")
		if e.Comment != "<!-- EN: old -->" {
			t.Fatalf("comment = %q, want existing kept", e.Comment)
		}
	})

	t.Run("fresh placeholder-only keys are not seeded", func(t *testing.T) {
		existing := file(entry("A", "done"))
		fresh := file(entry("A", "TODO"), entry("B", "TODO"))

		got := Merge(existing, fresh, langfile.PlaceholderTODO)
		if _, ok := got.Get("B"); ok {
			t.Fatal("placeholder-only key B should not be added")
		}
	})

	t.Run("fresh keys with content are added", func(t *testing.T) {
		existing := file(entry("A", "done"))
		fresh := file(entry("B", "new value"))

		got := Merge(existing, fresh, langfile.PlaceholderTODO)
		e, ok := got.Get("B")
		if !ok || e.Value() != "new value" {
			t.Fatalf("new key missing: %v", e)
		}
	})
}

func TestMergeOriginalMode(t *testing.T) {
	t.Run("changed source text is refreshed", func(t *testing.T) {
		existing := file(entry("Wood.label", "wood"))
		fresh := file(entry("Wood.label", "fine wood"))

		got := Merge(existing, fresh, langfile.PlaceholderOriginal)
		e, _ := got.Get("Wood.label")
		if e.Value() != "fine wood" {
			t.Fatalf("value = %q, want fine wood", e.Value())
		}
	})

	t.Run("unchanged source keeps existing entry", func(t *testing.T) {
		existing := file(&langfile.Entry{Comment: "<!-- EN: wood -->", Key: "K", Lines: []string{"wood"}})
		fresh := file(&langfile.Entry{Comment: "<!-- EN: wood! -->", Key: "K", Lines: []string{"wood"}})

		got := Merge(existing, fresh, langfile.PlaceholderOriginal)
		e, _ := got.Get("K")
		if e.Comment != "<!-- EN: wood -->" {
			t.Fatalf("comment = %q, want existing kept", e.Comment)
		}
	})
}

func TestMergeNeverDeletes(t *testing.T) {
	existing := file(entry("Gone.label", "still here"), entry("Wood.label", "木材"))
	fresh := file(entry("Wood.label", "wood"))

	got := Merge(existing, fresh, langfile.PlaceholderTODO)
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	e, ok := got.Get("Gone.label")
	if !ok || e.Value() != "still here" {
		t.Fatalf("orphaned key lost: %v", e)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	ex := entry("K", "value")
	existing := file(ex)
	fresh := file(entry("K", "TODO"))

	got := Merge(existing, fresh, langfile.PlaceholderTODO)
	e, _ := got.Get("K")
	e.Lines[0] = "mutated"

	if ex.Lines[0] != "value" {
		t.Fatal("merge output aliases input entry")
	}
}
