// Package langfile implements reading and writing of RimWorld LanguageData
// translation files.
//
// A translation file is a flat XML document with a single <LanguageData>
// root. Each entry is one child element whose tag is the lookup key, preceded
// by a reference comment carrying the original English value:
//
//	<!-- EN: Wood -->
//	<Wood.label>TODO</Wood.label>
//
// Multi-line values are emitted as one indented line per line inside the
// element; lines containing markup are wrapped in CDATA on write.
package langfile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Placeholder is the literal token written for untranslated values.
const Placeholder = "TODO"

// PlaceholderMode selects what the value element body contains on write.
type PlaceholderMode string

const (
	// PlaceholderTODO writes the placeholder token for every entry.
	PlaceholderTODO PlaceholderMode = "TODO"
	// PlaceholderOriginal writes the extracted source text as the value.
	PlaceholderOriginal PlaceholderMode = "Original"
)

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// Entry is a single translatable unit: a reference comment, a unique key,
// and the value as an ordered sequence of lines.
type Entry struct {
	// Comment is the canonical source-language reference comment,
	// including the <!-- --> markers.
	Comment string
	// Key is the lookup key, unique within one file.
	Key string
	// Lines holds the value, one element per line.
	Lines []string
}

// Value returns the entry value as a single string.
func (e *Entry) Value() string {
	return strings.Join(e.Lines, "\n")
}

// IsPlaceholder reports whether the value is the untranslated placeholder.
func (e *Entry) IsPlaceholder() bool {
	return strings.TrimSpace(e.Value()) == Placeholder
}

// File is an entry collection. Entries keeps document order; serialization
// always sorts by key.
type File struct {
	Entries []*Entry

	// byKey maps entry key to index in Entries.
	byKey map[string]int
}

// NewFile returns an empty collection.
func NewFile() *File {
	return &File{byKey: make(map[string]int)}
}

// Add appends an entry, replacing any existing entry with the same key.
func (f *File) Add(e *Entry) {
	if idx, ok := f.byKey[e.Key]; ok {
		f.Entries[idx] = e
		return
	}
	f.byKey[e.Key] = len(f.Entries)
	f.Entries = append(f.Entries, e)
}

// Get returns the entry for key.
func (f *File) Get(key string) (*Entry, bool) {
	idx, ok := f.byKey[key]
	if !ok {
		return nil, false
	}
	return f.Entries[idx], true
}

// Keys returns all keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Len returns the number of entries.
func (f *File) Len() int { return len(f.Entries) }

// Sorted returns the entries ordered by key, ascending.
func (f *File) Sorted() []*Entry {
	sorted := append([]*Entry(nil), f.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return sorted
}

// ---------------------------------------------------------------------------
// Reference comments
// ---------------------------------------------------------------------------

// BuildComment wraps a source-language value in the canonical reference
// comment. Single-line values produce "<!-- EN: value -->"; multi-line
// values keep one line per line with indentation stripped:
//
//	<!-- EN:
//	line one
//	line two
//	-->
func BuildComment(text string) string {
	text = strings.Trim(text, "\r\n")
	if !strings.Contains(text, "\n") {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return "<!-- EN: -->"
		}
		return "<!-- EN: " + trimmed + " -->"
	}
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimLeft(ln, " \t")
	}
	return "<!-- EN:\n" + strings.Join(lines, "\n") + "\n-->"
}

// FixComment normalizes a comment or raw string to the canonical reference
// comment form. Input already shaped like <!-- ... --> passes through
// unchanged, so the fix-up is idempotent.
func FixComment(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "<!--") && strings.HasSuffix(trimmed, "-->") {
		return trimmed
	}
	return BuildComment(trimmed)
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a LanguageData translation file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Parse parses LanguageData XML. Each depth-1 element becomes one entry:
// key = tag name, value = trimmed inner text. A comment immediately before
// an element is normalized and attached; entries without one get a comment
// built from their own value.
func Parse(data []byte) (*File, error) {
	f := NewFile()
	dec := xml.NewDecoder(bytes.NewReader(data))

	inRoot := false
	pending := ""

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding language data: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inRoot {
				if t.Name.Local != "LanguageData" {
					return nil, fmt.Errorf("unexpected root element <%s>, want <LanguageData>", t.Name.Local)
				}
				inRoot = true
				continue
			}

			var inner strings.Builder
			if err := readInner(dec, &inner); err != nil {
				return nil, fmt.Errorf("reading <%s>: %w", t.Name.Local, err)
			}
			value := strings.TrimSpace(inner.String())

			comment := pending
			if comment == "" {
				comment = BuildComment(value)
			}
			f.Add(&Entry{
				Comment: comment,
				Key:     t.Name.Local,
				Lines:   valueLines(value),
			})
			pending = ""

		case xml.Comment:
			if inRoot {
				pending = FixComment("<!--" + string(t) + "-->")
			}

		case xml.EndElement:
			if t.Name.Local == "LanguageData" {
				inRoot = false
			}
		}
	}

	return f, nil
}

// readInner consumes tokens until the matching close tag, concatenating
// character data and reconstructing nested elements as raw text. CDATA
// sections are already unwrapped by the decoder.
func readInner(dec *xml.Decoder, b *strings.Builder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
			b.WriteString("<")
			b.WriteString(t.Name.Local)
			for _, attr := range t.Attr {
				fmt.Fprintf(b, ` %s="%s"`, attr.Name.Local, attr.Value)
			}
			b.WriteString(">")
		case xml.EndElement:
			depth--
			if depth > 0 {
				b.WriteString("</" + t.Name.Local + ">")
			}
		}
	}
	return nil
}

// valueLines splits a trimmed value into individually trimmed, non-blank
// lines. This is the inverse of the indented multi-line write format.
func valueLines(value string) []string {
	if value == "" {
		return nil
	}
	var lines []string
	for _, ln := range strings.Split(value, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}
