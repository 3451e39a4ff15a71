// Package source provides the byte-addressed source text and the Location
// ranges that every token in an AST refers back to.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// lineSpan records the byte offset and length of one line, excluding its
// terminator (so callers printing a line don't reproduce the newline).
type lineSpan struct {
	start, length int
}

// Source is the immutable backing text for a compilation unit, plus an
// index of line boundaries used to translate byte offsets into line/column
// pairs.
type Source struct {
	origin   string
	contents string
	lines    []lineSpan
}

// Load reads a file from disk into a Source, validating that it is UTF-8
// (stripping a leading BOM if present) and recording its path relative to
// the working directory as the origin.
func Load(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading source %q: %w", path, err)
	}

	clean, err := stripBOMAndValidate(raw)
	if err != nil {
		return nil, fmt.Errorf("loading source %q: %w", path, err)
	}

	origin := path
	if rel, err := filepath.Rel(".", path); err == nil {
		origin = rel
	}

	s := &Source{origin: origin, contents: string(clean)}
	s.findLines()
	return s, nil
}

// Synthetic builds a Source directly from in-memory contents, with an empty
// origin. Used for fixture text, fuzzer-generated programs, and tests.
func Synthetic(contents string) *Source {
	s := &Source{contents: contents}
	s.findLines()
	return s
}

func stripBOMAndValidate(raw []byte) ([]byte, error) {
	bom := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, err := bom.Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid UTF-8: %w", err)
	}
	return decoded, nil
}

// Origin returns the source's relative file path, or "" for synthetic
// sources.
func (s *Source) Origin() string {
	return s.origin
}

// View returns the full underlying text.
func (s *Source) View() string {
	return s.contents
}

// LineCol translates a byte offset into a zero-based (line, column) pair.
func (s *Source) LineCol(pos int) (line, col int) {
	if len(s.lines) == 0 {
		return 0, pos
	}

	// Find the first line starting after pos, then back up one: the
	// line containing pos is the last one whose start is <= pos.
	idx := sort.Search(len(s.lines), func(i int) bool {
		return s.lines[i].start > pos
	})
	if idx > 0 {
		idx--
	}

	return idx, pos - s.lines[idx].start
}

// LinePos returns the (start, length) of the given zero-based line,
// excluding its line terminator. Out-of-range lines are reported as a
// zero-length span at the end of the contents.
func (s *Source) LinePos(line int) (start, length int) {
	if line >= len(s.lines) {
		return len(s.contents), 0
	}
	return s.lines[line].start, s.lines[line].length
}

func (s *Source) findLines() {
	contents := s.contents
	cursor := 0
	lineStart := 0

	tryMatch := func(part string) bool {
		if strings.HasPrefix(contents[cursor:], part) {
			cursor += len(part)
			return true
		}
		return false
	}

	for cursor < len(contents) {
		last := cursor
		if tryMatch("\r\n") || tryMatch("\n") || tryMatch("\r") {
			s.lines = append(s.lines, lineSpan{start: lineStart, length: last - lineStart})
			lineStart = cursor
		} else {
			cursor++
		}
	}

	if lineStart < len(contents) {
		s.lines = append(s.lines, lineSpan{start: lineStart, length: len(contents) - lineStart})
	}
}

// Location is a byte range into a Source.
type Location struct {
	Source *Source
	Pos    int
	Len    int
}

// New builds a Location directly. A nil Source is valid and denotes an
// absent location (View returns "").
func New(src *Source, pos, length int) Location {
	return Location{Source: src, Pos: pos, Len: length}
}

// FromString builds a synthetic Location covering the whole of s.
func FromString(s string) Location {
	src := Synthetic(s)
	return Location{Source: src, Pos: 0, Len: len(s)}
}

// View returns the text the location spans.
func (l Location) View() string {
	if l.Source == nil {
		return ""
	}
	text := l.Source.View()
	if l.Pos > len(text) {
		return ""
	}
	end := l.Pos + l.Len
	if end > len(text) {
		end = len(text)
	}
	return text[l.Pos:end]
}

// LineCol returns the zero-based (line, column) of the location's start.
func (l Location) LineCol() (line, col int) {
	if l.Source == nil {
		return 0, 0
	}
	return l.Source.LineCol(l.Pos)
}

// OriginLineCol renders "origin:line:col" (1-based) for diagnostics, or ""
// if the location has no source or the source has no origin.
func (l Location) OriginLineCol() string {
	if l.Source == nil || l.Source.Origin() == "" {
		return ""
	}
	line, col := l.LineCol()
	return fmt.Sprintf("%s:%d:%d", l.Source.Origin(), line+1, col+1)
}

// Str renders the location as an underlined excerpt of its source line(s),
// suitable for printing beneath an error message.
func (l Location) Str() string {
	if l.Source == nil {
		return ""
	}

	var b strings.Builder
	line, col := l.LineCol()
	linePos, lineLen := l.Source.LinePos(line)

	if strings.ContainsRune(l.View(), '\n') {
		cover := lineLen - col
		if l.Len < cover {
			cover = l.Len
		}
		b.WriteString(strings.Repeat(" ", col))
		b.WriteString(strings.Repeat("~", cover))

		line2, col2 := l.Source.LineCol(l.Pos + l.Len)
		linePos2, lineLen2 := l.Source.LinePos(line2)
		lineLen = (linePos2 - linePos) + lineLen2

		b.WriteByte('\n')
		b.WriteString(l.Source.View()[linePos : linePos+lineLen])
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("~", col2))
		b.WriteByte('\n')
	} else {
		b.WriteString(l.Source.View()[linePos : linePos+lineLen])
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", col))
		b.WriteString(strings.Repeat("~", l.Len))
		b.WriteByte('\n')
	}

	return b.String()
}

// Union returns the smallest Location spanning both l and that. If the two
// locations belong to different sources, l is returned unchanged (there is
// no meaningful union across sources).
func (l Location) Union(that Location) Location {
	if l.Source != that.Source {
		return l
	}

	lo := l.Pos
	if that.Pos < lo {
		lo = that.Pos
	}
	hi := l.Pos + l.Len
	if that.Pos+that.Len > hi {
		hi = that.Pos + that.Len
	}
	return Location{Source: l.Source, Pos: lo, Len: hi - lo}
}

// Equal compares locations by their textual content, not their position —
// matching the original's view-based equality.
func (l Location) Equal(that Location) bool {
	return l.View() == that.View()
}

// Less orders locations lexicographically by their textual content.
func (l Location) Less(that Location) bool {
	return l.View() < that.View()
}
