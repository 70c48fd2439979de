// Package report renders diff entries as structured records or as a compact
// text report with one line per change.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
	"github.com/gh-nvat/mapdiff/src/pkg/diff"
)

// Line prefixes, padded so that beats line up in a column
const (
	PrefixAdded    = "+ Added    "
	PrefixRemoved  = "- Removed  "
	PrefixModified = "/ Modified "
)

// Prefix returns the line prefix of a diff type
func Prefix(t diff.Type) string {
	switch t {
	case diff.Removed:
		return PrefixRemoved
	case diff.Modified:
		return PrefixModified
	default:
		return PrefixAdded
	}
}

// Structured returns the records serialized for the structured output
func Structured(entries []diff.Entry) []diff.Entry {
	if entries == nil {
		return []diff.Entry{}
	}
	return entries
}

// MarshalJSON encodes the structured output as indented JSON
func MarshalJSON(entries []diff.Entry) ([]byte, error) {
	data, err := json.MarshalIndent(Structured(entries), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entries: %w", err)
	}
	return data, nil
}

// Header renders the summary line without its trailing newline
func Header(s diff.Summary) string {
	return fmt.Sprintf("Changes --- Total: %d | Added: %d | Removed: %d | Modified: %d", s.Total, s.Added, s.Removed, s.Modified)
}

// RenderText renders the header followed by one line per entry, in list order
func RenderText(entries []diff.Entry) string {
	var b strings.Builder
	b.WriteString(Header(diff.CalcChanges(entries)))
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(Line(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// Line renders a single entry without its trailing newline
func Line(e diff.Entry) string {
	return Prefix(e.Type) + Body(e)
}

// Body renders an entry without its prefix, the layout depends on the object's shape
func Body(e diff.Entry) string {
	obj := e.Object
	beats := FormatBeats(obj.Beats)
	switch obj.Shape {
	case beatmap.ShapeColorGrid:
		return fmt.Sprintf("%s at x%d y%d (%s in %s)", beats, obj.X, obj.Y, obj.ColorName(), e.CollectionType)
	case beatmap.ShapeGrid:
		return fmt.Sprintf("%s at x %d y %d (in %s)", beats, obj.X, obj.Y, e.CollectionType)
	default:
		return fmt.Sprintf("%s (in %s)", beats, e.CollectionType)
	}
}

// FormatBeats renders beats in their shortest exact form, e.g. 4 or 4.5
func FormatBeats(beats float64) string {
	return strconv.FormatFloat(beats, 'f', -1, 64)
}
