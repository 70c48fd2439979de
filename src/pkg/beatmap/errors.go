package beatmap

import "fmt"

// Side tells which version of a comparison an input belongs to
type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

// ResolutionError is returned when a map has no difficulty for the requested
// characteristic and label
type ResolutionError struct {
	Side           Side
	Characteristic string
	Difficulty     string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s map has no %s difficulty for characteristic %s", e.Side, e.Difficulty, e.Characteristic)
}

// EmptyInputError is returned when a map failed to materialize
type EmptyInputError struct {
	Side Side
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s map is empty or could not be parsed", e.Side)
}

// Resolve finds the requested difficulty on a map version
func Resolve(m *Beatmap, side Side, characteristic, label string) (*Difficulty, error) {
	if m == nil {
		return nil, &EmptyInputError{Side: side}
	}
	d, ok := m.Difficulty(characteristic, label)
	if !ok {
		return nil, &ResolutionError{Side: side, Characteristic: characteristic, Difficulty: label}
	}
	return d, nil
}
