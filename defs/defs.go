// Package defs extracts translatable entries from RimWorld Defs XML files.
//
// A Defs file has a <Defs> root whose children are records. Each record is
// typed by its tag (ThingDef, RecipeDef, …) and identified by the text of
// its <defName> child. Every descendant whose tag looks human-readable
// (label, description, or anything containing "string") yields one entry
// keyed by the defName plus the dotted tag path inside the record.
package defs

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rimtrans/rimtrans/langfile"
)

// ShouldExtract reports whether a tag names a translatable field. The check
// is a content-type heuristic, not a schema: label, description, or any tag
// containing "string", case-insensitively.
func ShouldExtract(tag string) bool {
	lower := strings.ToLower(tag)
	return lower == "label" || lower == "description" || strings.Contains(lower, "string")
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// node is one element of a parsed definition tree.
type node struct {
	tag      string
	attrs    []xml.Attr
	text     string // concatenated character data
	inner    string // raw inner markup, children included
	children []*node
}

// markup reconstructs the element's full markup, open and close tags included.
func (n *node) markup() string {
	var b strings.Builder
	b.WriteString("<" + n.tag)
	for _, attr := range n.attrs {
		fmt.Fprintf(&b, ` %s="%s"`, attr.Name.Local, attr.Value)
	}
	b.WriteString(">")
	b.WriteString(n.inner)
	b.WriteString("</" + n.tag + ">")
	return b.String()
}

// ParseFile reads a Defs file and returns the record type of the file's
// first record plus all extracted entries. A file whose root is not <Defs>,
// or that yields no entries, returns ("", nil, nil).
func ParseFile(path string) (string, []*langfile.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defType, entries, err := Parse(data)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return defType, entries, nil
}

// Parse parses Defs XML data and extracts translation entries.
func Parse(data []byte) (string, []*langfile.Entry, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var defType string
	var entries []*langfile.Entry
	rootSeen := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("decoding defs: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			if start.Name.Local != "Defs" {
				return "", nil, nil
			}
			rootSeen = true
			continue
		}

		record, err := parseElement(dec, start)
		if err != nil {
			return "", nil, fmt.Errorf("decoding <%s>: %w", start.Name.Local, err)
		}
		if defType == "" {
			defType = record.tag
		}
		entries = append(entries, extractRecord(record)...)
	}

	if len(entries) == 0 {
		return "", nil, nil
	}
	return defType, entries, nil
}

// parseElement recursively reads an element and its subtree, keeping both
// the structured children and the raw inner markup (needed to extract
// multi-line bodies with embedded tags verbatim).
func parseElement(dec *xml.Decoder, start xml.StartElement) (*node, error) {
	n := &node{tag: start.Name.Local, attrs: start.Attr}
	var text, raw strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
			raw.Write(t)
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
			raw.WriteString(child.markup())
		case xml.EndElement:
			n.text = text.String()
			n.inner = raw.String()
			return n, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Key derivation and extraction
// ---------------------------------------------------------------------------

// extractRecord walks one record and collects entries for every extractable
// descendant. Records without a non-empty defName are skipped entirely.
func extractRecord(rec *node) []*langfile.Entry {
	defName := ""
	for _, c := range rec.children {
		if c.tag == "defName" {
			defName = strings.TrimSpace(c.text)
			break
		}
	}
	if defName == "" {
		return nil
	}

	var entries []*langfile.Entry
	var walk func(n *node, path []string)
	walk = func(n *node, path []string) {
		for _, c := range n.children {
			childPath := append(append([]string(nil), path...), c.tag)
			if ShouldExtract(c.tag) {
				value := extractValue(c)
				entries = append(entries, &langfile.Entry{
					Comment: langfile.BuildComment(value),
					Key:     defName + "." + dottedPath(childPath, rec.tag),
					Lines:   splitLines(value),
				})
			}
			walk(c, childPath)
		}
	}
	walk(rec, nil)
	return entries
}

// dottedPath joins the tag path from the record (exclusive) down to the
// extractable node. One leading occurrence of the record's own type tag is
// stripped; a single remaining segment stands alone.
func dottedPath(segs []string, defType string) string {
	if len(segs) > 1 && segs[0] == defType {
		segs = segs[1:]
	}
	return strings.Join(segs, ".")
}

// extractValue returns the translatable text of a candidate node. Leaf
// nodes yield their trimmed text (internal newlines preserved); nodes with
// child elements yield the raw multi-line markup body.
func extractValue(n *node) string {
	if len(n.children) == 0 && strings.TrimSpace(n.text) != "" {
		return strings.TrimSpace(n.text)
	}
	return html.UnescapeString(removeOuterTag(n.markup(), n.tag))
}

// removeOuterTag strips the element's own opening and closing tag lines
// from serialized markup: leading/trailing blank lines are discarded first,
// then the first and last lines are dropped when they match the tag.
func removeOuterTag(raw, tag string) string {
	openPat := regexp.MustCompile(`<\s*` + regexp.QuoteMeta(tag) + `(\s|>)`)
	closePat := regexp.MustCompile(`</\s*` + regexp.QuoteMeta(tag) + `\s*>`)

	lines := strings.Split(raw, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	if openPat.MatchString(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) > 0 && closePat.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	return strings.Trim(strings.Join(lines, "\n"), "\r\n")
}

// splitLines splits an extracted value into lines. Empty values yield nil.
func splitLines(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, "\n")
}
