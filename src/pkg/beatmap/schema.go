package beatmap

// Schema describes how a collection is stored in a v3 difficulty file and
// which attributes, besides beats and grid position, identify one of its objects.
type Schema struct {
	Collection CollectionType
	// Key is the array name in the difficulty file
	Key   string
	Shape Shape
	// Identity lists attributes that tell two objects at the same beat apart
	Identity []string
	// Fields are the numeric top-level fields read as 0 when a file omits them.
	// b, x, y and c are handled by the shape.
	Fields []string
}

var schemas = []Schema{
	{Collection: Notes, Key: "colorNotes", Shape: ShapeColorGrid, Fields: []string{"d", "a"}},
	{Collection: Bombs, Key: "bombNotes", Shape: ShapeGrid},
	{Collection: Obstacles, Key: "obstacles", Shape: ShapeGrid, Fields: []string{"d", "w", "h"}},
	{Collection: Arcs, Key: "sliders", Shape: ShapeColorGrid, Fields: []string{"d", "mu", "tb", "tx", "ty", "tc", "tmu", "m"}},
	{Collection: Chains, Key: "burstSliders", Shape: ShapeColorGrid, Fields: []string{"d", "tb", "tx", "ty", "sc", "s"}},
	{Collection: Waypoints, Key: "waypoints", Shape: ShapeGrid, Fields: []string{"d"}},
	{Collection: BpmEvents, Key: "bpmEvents", Shape: ShapeBasic, Fields: []string{"m"}},
	{Collection: RotationEvents, Key: "rotationEvents", Shape: ShapeBasic, Identity: []string{"e"}, Fields: []string{"e", "r"}},
	{Collection: Lights, Key: "basicBeatmapEvents", Shape: ShapeBasic, Identity: []string{"et"}, Fields: []string{"et", "i", "f"}},
	{Collection: ColorBoostEvents, Key: "colorBoostBeatmapEvents", Shape: ShapeBasic, Fields: []string{"o"}},
	{Collection: LightColorEventBoxGroups, Key: "lightColorEventBoxGroups", Shape: ShapeBasic, Identity: []string{"g"}, Fields: []string{"g"}},
	{Collection: LightRotationEventBoxGroups, Key: "lightRotationEventBoxGroups", Shape: ShapeBasic, Identity: []string{"g"}, Fields: []string{"g"}},
	{Collection: LightTranslationEventBoxGroups, Key: "lightTranslationEventBoxGroups", Shape: ShapeBasic, Identity: []string{"g"}, Fields: []string{"g"}},
}

var schemaByCollection = func() map[CollectionType]Schema {
	m := make(map[CollectionType]Schema, len(schemas))
	for _, s := range schemas {
		m[s.Collection] = s
	}
	return m
}()

// Collections returns every known collection in its canonical order
func Collections() []CollectionType {
	out := make([]CollectionType, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s.Collection)
	}
	return out
}

// SchemaFor returns the schema of a collection
func SchemaFor(collection CollectionType) (Schema, bool) {
	s, ok := schemaByCollection[collection]
	return s, ok
}
