package langfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFile writes the collection to path, creating parent directories as
// needed.
func (f *File) WriteFile(path string, mode PlaceholderMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, f.Marshal(mode), 0644)
}

// Marshal renders the collection as a LanguageData document. Entries are
// emitted sorted by key, ascending, each as its reference comment followed
// by one value element.
func (f *File) Marshal(mode PlaceholderMode) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<LanguageData>\n")
	for _, e := range f.Sorted() {
		b.WriteString("  " + e.Comment + "\n")
		writeValue(&b, e, mode)
	}
	b.WriteString("</LanguageData>\n")
	return []byte(b.String())
}

// writeValue emits the value element for one entry.
//
// In TODO mode the body is always the placeholder token. In Original mode
// the extracted text is written back: a single line inline, several lines
// as one indented line each. Lines containing markup characters are wrapped
// in CDATA so the document stays well-formed.
func writeValue(b *strings.Builder, e *Entry, mode PlaceholderMode) {
	if mode == PlaceholderTODO {
		fmt.Fprintf(b, "  <%s>%s</%s>\n", e.Key, Placeholder, e.Key)
		return
	}

	lines := cleanLines(e.Lines)
	if len(lines) == 0 {
		fmt.Fprintf(b, "  <%s>%s</%s>\n", e.Key, Placeholder, e.Key)
		return
	}

	needsCDATA := false
	for _, ln := range lines {
		if strings.ContainsAny(ln, "<>") {
			needsCDATA = true
			break
		}
	}

	if len(lines) == 1 {
		content := lines[0]
		if needsCDATA {
			content = "<![CDATA[" + content + "]]>"
		}
		fmt.Fprintf(b, "  <%s>%s</%s>\n", e.Key, content, e.Key)
		return
	}

	fmt.Fprintf(b, "  <%s>\n", e.Key)
	for _, ln := range lines {
		if needsCDATA {
			fmt.Fprintf(b, "    <![CDATA[%s]]>\n", ln)
		} else {
			fmt.Fprintf(b, "    %s\n", ln)
		}
	}
	fmt.Fprintf(b, "  </%s>\n", e.Key)
}

// cleanLines trims each line and drops blank ones.
func cleanLines(lines []string) []string {
	var cleaned []string
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			cleaned = append(cleaned, ln)
		}
	}
	return cleaned
}
