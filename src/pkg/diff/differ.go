package diff

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
)

// DifficultyDiffer defines the interface for comparing two versions of a difficulty
type DifficultyDiffer interface {
	// Diff compares two difficulties and returns one entry per changed object
	Diff(newData, oldData *beatmap.Difficulty) ([]Entry, error)
}

// Differ handles difficulty diffing
type Differ struct{}

// Ensure Differ implements DifficultyDiffer
var _ DifficultyDiffer = (*Differ)(nil)

// NewDiffer creates a new differ
func NewDiffer() *Differ {
	return &Differ{}
}

// Diff compares two difficulties and returns one entry per changed object
func (d *Differ) Diff(newData, oldData *beatmap.Difficulty) ([]Entry, error) {
	return GenerateDifficultyDiff(newData, oldData)
}

// GenerateDifficultyDiff matches objects of both versions collection by collection.
//
// Objects are matched by an identity key made of the collection, the beat, the
// grid position for grid objects and the collection's identity attributes.
// Matched objects whose payload differs are reported as Modified, unmatched
// ones as Added or Removed. A moved note therefore shows up as Removed plus
// Added. Objects sharing a key are paired in their original order.
func GenerateDifficultyDiff(newData, oldData *beatmap.Difficulty) ([]Entry, error) {
	if newData == nil {
		return nil, &MissingDifficultyError{Side: beatmap.SideNew}
	}
	if oldData == nil {
		return nil, &MissingDifficultyError{Side: beatmap.SideOld}
	}

	var entries []Entry
	for _, collection := range collectionsOf(newData, oldData) {
		entries = append(entries, diffCollection(collection, newData.Objects(collection), oldData.Objects(collection))...)
	}
	return entries, nil
}

func diffCollection(collection beatmap.CollectionType, newObjs, oldObjs []beatmap.Object) []Entry {
	schema, _ := beatmap.SchemaFor(collection)

	newKeys := make([]string, len(newObjs))
	newCount := make(map[string]int, len(newObjs))
	for i, obj := range newObjs {
		newKeys[i] = identityKey(schema, obj)
		newCount[newKeys[i]]++
	}

	var entries []Entry

	// old occurrences beyond what the new side still has are removals
	oldByKey := make(map[string][]int, len(oldObjs))
	for i, obj := range oldObjs {
		key := identityKey(schema, obj)
		oldByKey[key] = append(oldByKey[key], i)
		if len(oldByKey[key]) > newCount[key] {
			entries = append(entries, Entry{Type: Removed, CollectionType: obj.Collection, Object: obj})
		}
	}

	seen := make(map[string]int, len(newObjs))
	for i, obj := range newObjs {
		key := newKeys[i]
		n := seen[key]
		seen[key]++

		matches := oldByKey[key]
		if n >= len(matches) {
			entries = append(entries, Entry{Type: Added, CollectionType: obj.Collection, Object: obj})
			continue
		}
		if !oldObjs[matches[n]].SamePayload(obj) {
			entries = append(entries, Entry{Type: Modified, CollectionType: obj.Collection, Object: obj})
		}
	}

	return entries
}

// identityKey builds the key recognizing the same placed object across versions.
// Color and non-identity attributes are left out so that changing them is a modification.
func identityKey(schema beatmap.Schema, obj beatmap.Object) string {
	var b strings.Builder
	b.WriteString(string(obj.Collection))
	b.WriteByte('|')
	b.WriteString(keyFloat(obj.Beats))
	if obj.IsGrid() {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(obj.X))
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(obj.Y))
	}
	for _, name := range schema.Identity {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		v, _ := obj.Attribute(name)
		b.WriteString(keyFloat(v))
	}
	return b.String()
}

// keyFloat formats a key component, an absent attribute counts as 0 and -0 as 0
func keyFloat(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// collectionsOf returns the known collections in canonical order followed by
// any other collection present on either side, sorted by name
func collectionsOf(difficulties ...*beatmap.Difficulty) []beatmap.CollectionType {
	out := beatmap.Collections()
	known := make(map[beatmap.CollectionType]bool, len(out))
	for _, c := range out {
		known[c] = true
	}

	var extra []beatmap.CollectionType
	for _, d := range difficulties {
		for _, c := range d.CollectionTypes() {
			if !known[c] {
				known[c] = true
				extra = append(extra, c)
			}
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
