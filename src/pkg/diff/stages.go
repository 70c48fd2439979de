package diff

import (
	"cmp"
	"slices"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
)

// lightingCollections are dropped by FilterLights when lights are excluded
var lightingCollections = map[beatmap.CollectionType]struct{}{
	beatmap.Lights:                         {},
	beatmap.ColorBoostEvents:               {},
	beatmap.LightColorEventBoxGroups:       {},
	beatmap.LightRotationEventBoxGroups:    {},
	beatmap.LightTranslationEventBoxGroups: {},
}

// IsLighting reports whether a collection belongs to the light show
func IsLighting(collection beatmap.CollectionType) bool {
	_, ok := lightingCollections[collection]
	return ok
}

// FilterLights returns a copy of entries, without lighting entries unless includeLights is set
func FilterLights(entries []Entry, includeLights bool) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !includeLights && IsLighting(e.CollectionType) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortByBeats returns a copy of entries stably sorted by beat
func SortByBeats(entries []Entry) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return cmp.Compare(a.Object.Beats, b.Object.Beats)
	})
	return out
}
