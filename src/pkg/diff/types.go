package diff

import (
	"fmt"

	"github.com/gh-nvat/mapdiff/src/pkg/beatmap"
)

// Type classifies a diff entry
type Type uint8

const (
	Added Type = iota
	Removed
	Modified
)

func (t Type) String() string {
	switch t {
	case Added:
		return "Added"
	case Removed:
		return "Removed"
	case Modified:
		return "Modified"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// MarshalText encodes the type by name
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name
func (t *Type) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Added":
		*t = Added
	case "Removed":
		*t = Removed
	case "Modified":
		*t = Modified
	default:
		return fmt.Errorf("unknown diff type %q", string(text))
	}
	return nil
}

// Entry is one change between two versions of a difficulty.
// Removed entries carry the old object, Added and Modified the new one.
type Entry struct {
	Type           Type                   `json:"type"`
	CollectionType beatmap.CollectionType `json:"collectionType"`
	Object         beatmap.Object         `json:"object"`
}

// MissingDifficultyError is returned when one side of a comparison is absent
type MissingDifficultyError struct {
	Side beatmap.Side
}

func (e *MissingDifficultyError) Error() string {
	return fmt.Sprintf("%s difficulty is missing", e.Side)
}
