package diff

import "github.com/gh-nvat/mapdiff/src/pkg/beatmap"

// Summary holds change counts of a diff
type Summary struct {
	Total    int `json:"total"`
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`

	// ByCollection counts entries per collection type
	ByCollection map[beatmap.CollectionType]int `json:"byCollection,omitempty"`
}

// CalcChanges counts the added, removed and modified entries of a diff.
// The result does not depend on the order of entries.
func CalcChanges(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		}
		if s.ByCollection == nil {
			s.ByCollection = make(map[beatmap.CollectionType]int)
		}
		s.ByCollection[e.CollectionType]++
	}
	return s
}

// HasGameplayChanges reports whether any entry touches a non-lighting collection
func HasGameplayChanges(entries []Entry) bool {
	for _, e := range entries {
		if !IsLighting(e.CollectionType) {
			return true
		}
	}
	return false
}
