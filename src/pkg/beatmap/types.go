package beatmap

import (
	"encoding/json"
	"fmt"
	"maps"
)

// CollectionType names the collection a placed object belongs to
type CollectionType string

const (
	Notes                          CollectionType = "Notes"
	Bombs                          CollectionType = "Bombs"
	Obstacles                      CollectionType = "Obstacles"
	Arcs                           CollectionType = "Arcs"
	Chains                         CollectionType = "Chains"
	Waypoints                      CollectionType = "Waypoints"
	BpmEvents                      CollectionType = "BpmEvents"
	RotationEvents                 CollectionType = "RotationEvents"
	Lights                         CollectionType = "Lights"
	ColorBoostEvents               CollectionType = "ColorBoostEvents"
	LightColorEventBoxGroups       CollectionType = "LightColorEventBoxGroups"
	LightRotationEventBoxGroups    CollectionType = "LightRotationEventBoxGroups"
	LightTranslationEventBoxGroups CollectionType = "LightTranslationEventBoxGroups"
)

// Shape discriminates the payload carried by an Object
type Shape uint8

const (
	// ShapeBasic objects only carry beats and attributes
	ShapeBasic Shape = iota
	// ShapeGrid objects are placed on the x/y grid
	ShapeGrid
	// ShapeColorGrid objects are placed on the grid and have a saber color
	ShapeColorGrid
)

func (s Shape) String() string {
	switch s {
	case ShapeGrid:
		return "grid"
	case ShapeColorGrid:
		return "colorGrid"
	default:
		return "basic"
	}
}

// MarshalText encodes the shape by name
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a shape name
func (s *Shape) UnmarshalText(text []byte) error {
	switch string(text) {
	case "basic":
		*s = ShapeBasic
	case "grid":
		*s = ShapeGrid
	case "colorGrid":
		*s = ShapeColorGrid
	default:
		return fmt.Errorf("unknown shape %q", string(text))
	}
	return nil
}

// Object is a single placed map object. Objects are values: constructors copy
// the attribute map and nothing in this package mutates an Object afterwards.
type Object struct {
	Beats      float64
	Collection CollectionType
	Shape      Shape

	// X and Y are meaningful for ShapeGrid and ShapeColorGrid
	X int
	Y int
	// Color is meaningful for ShapeColorGrid only
	Color int

	// Attributes holds the remaining numeric payload, nested fields use dotted paths
	Attributes map[string]float64
}

// NewObject creates an object without grid placement
func NewObject(collection CollectionType, beats float64, attrs map[string]float64) Object {
	return Object{
		Beats:      beats,
		Collection: collection,
		Shape:      ShapeBasic,
		Attributes: maps.Clone(attrs),
	}
}

// NewGridObject creates an object placed on the grid
func NewGridObject(collection CollectionType, beats float64, x, y int, attrs map[string]float64) Object {
	return Object{
		Beats:      beats,
		Collection: collection,
		Shape:      ShapeGrid,
		X:          x,
		Y:          y,
		Attributes: maps.Clone(attrs),
	}
}

// NewColorGridObject creates a colored object placed on the grid
func NewColorGridObject(collection CollectionType, beats float64, x, y, color int, attrs map[string]float64) Object {
	return Object{
		Beats:      beats,
		Collection: collection,
		Shape:      ShapeColorGrid,
		X:          x,
		Y:          y,
		Color:      color,
		Attributes: maps.Clone(attrs),
	}
}

// IsGrid reports whether the object has grid coordinates
func (o Object) IsGrid() bool {
	return o.Shape == ShapeGrid || o.Shape == ShapeColorGrid
}

// IsColorGrid reports whether the object has grid coordinates and a color
func (o Object) IsColorGrid() bool {
	return o.Shape == ShapeColorGrid
}

// ColorName maps the binary color attribute to its display name
func (o Object) ColorName() string {
	if o.Color == 0 {
		return "Red"
	}
	return "Blue"
}

// Attribute returns a payload attribute and whether it is present
func (o Object) Attribute(name string) (float64, bool) {
	v, ok := o.Attributes[name]
	return v, ok
}

// SamePayload reports whether both objects carry identical payloads
func (o Object) SamePayload(other Object) bool {
	return o.Beats == other.Beats &&
		o.Collection == other.Collection &&
		o.Shape == other.Shape &&
		o.X == other.X &&
		o.Y == other.Y &&
		o.Color == other.Color &&
		maps.Equal(o.Attributes, other.Attributes)
}

type objectJSON struct {
	Beats      float64            `json:"beats"`
	Collection CollectionType     `json:"collection"`
	Shape      Shape              `json:"shape"`
	X          *int               `json:"x,omitempty"`
	Y          *int               `json:"y,omitempty"`
	Color      *int               `json:"color,omitempty"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
}

// MarshalJSON only emits the fields the object's shape carries
func (o Object) MarshalJSON() ([]byte, error) {
	out := objectJSON{
		Beats:      o.Beats,
		Collection: o.Collection,
		Shape:      o.Shape,
		Attributes: o.Attributes,
	}
	if o.IsGrid() {
		x, y := o.X, o.Y
		out.X, out.Y = &x, &y
	}
	if o.IsColorGrid() {
		c := o.Color
		out.Color = &c
	}
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON
func (o *Object) UnmarshalJSON(data []byte) error {
	var in objectJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*o = Object{
		Beats:      in.Beats,
		Collection: in.Collection,
		Shape:      in.Shape,
		Attributes: in.Attributes,
	}
	if in.X != nil {
		o.X = *in.X
	}
	if in.Y != nil {
		o.Y = *in.Y
	}
	if in.Color != nil {
		o.Color = *in.Color
	}
	return nil
}

// Difficulty holds every object of one difficulty, partitioned by collection
type Difficulty struct {
	Characteristic string
	Label          string

	collections map[CollectionType][]Object
}

// NewDifficulty groups objects by their collection, keeping their relative order
func NewDifficulty(characteristic, label string, objects ...Object) *Difficulty {
	d := &Difficulty{
		Characteristic: characteristic,
		Label:          label,
		collections:    make(map[CollectionType][]Object),
	}
	for _, obj := range objects {
		d.collections[obj.Collection] = append(d.collections[obj.Collection], obj)
	}
	return d
}

// Objects returns the objects of a collection. The returned slice must not be modified.
func (d *Difficulty) Objects(collection CollectionType) []Object {
	if d == nil {
		return nil
	}
	return d.collections[collection]
}

// CollectionTypes returns the collections holding at least one object, in no particular order
func (d *Difficulty) CollectionTypes() []CollectionType {
	if d == nil {
		return nil
	}
	out := make([]CollectionType, 0, len(d.collections))
	for c, objs := range d.collections {
		if len(objs) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the total number of objects across all collections
func (d *Difficulty) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, objs := range d.collections {
		n += len(objs)
	}
	return n
}

// Beatmap is one version of a map with all of its difficulties
type Beatmap struct {
	SongName     string
	Difficulties []*Difficulty
}

// Difficulty looks up a difficulty by characteristic and label
func (m *Beatmap) Difficulty(characteristic, label string) (*Difficulty, bool) {
	if m == nil {
		return nil, false
	}
	for _, d := range m.Difficulties {
		if d.Characteristic == characteristic && d.Label == label {
			return d, true
		}
	}
	return nil, false
}
