package beatmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

const testInfo = `{
  "_songName": "Test Song",
  "_difficultyBeatmapSets": [
    {
      "_beatmapCharacteristicName": "Standard",
      "_difficultyBeatmaps": [
        {"_difficulty": "Expert", "_beatmapFilename": "ExpertStandard.dat"},
        {"_difficulty": "ExpertPlus", "_beatmapFilename": "ExpertPlusStandard.dat"}
      ]
    }
  ]
}`

const testDifficulty = `{
  "version": "3.2.0",
  "colorNotes": [
    {"b": 4, "x": 1, "y": 0, "c": 0, "d": 1, "a": 0},
    {"b": 4.5, "x": 2, "y": 1, "c": 1, "d": 0, "a": 0, "customData": {"coordinates": [1, 2]}}
  ],
  "bombNotes": [{"b": 8, "x": 3, "y": 2}],
  "basicBeatmapEvents": [{"b": 2, "et": 1, "i": 3, "f": 1}],
  "colorBoostBeatmapEvents": [{"b": 6, "o": true}],
  "lightColorEventBoxGroups": [
    {"b": 10, "g": 2, "e": [{"f": {"f": 1, "p": 0}, "w": 1, "d": 1}]}
  ]
}`

func writeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDifficulty(t *testing.T) {
	d, err := DecodeDifficulty("ExpertPlusStandard.dat", []byte(testDifficulty), "Standard", "ExpertPlus")
	if err != nil {
		t.Fatalf("DecodeDifficulty() error = %v", err)
	}

	if d.Characteristic != "Standard" || d.Label != "ExpertPlus" {
		t.Errorf("DecodeDifficulty() pair = (%s, %s)", d.Characteristic, d.Label)
	}
	if d.Len() != 6 {
		t.Errorf("Len() = %d, want 6", d.Len())
	}

	notes := d.Objects(Notes)
	if len(notes) != 2 {
		t.Fatalf("Objects(Notes) = %d objects, want 2", len(notes))
	}
	first := notes[0]
	if first.Beats != 4 || first.X != 1 || first.Y != 0 || first.Color != 0 || !first.IsColorGrid() {
		t.Errorf("first note = %+v", first)
	}
	if v, ok := first.Attribute("d"); !ok || v != 1 {
		t.Errorf("first note direction = %v (%v), want 1", v, ok)
	}
	if _, ok := first.Attribute("b"); ok {
		t.Error("beats should not be kept as an attribute")
	}
	if _, ok := notes[1].Attribute("customData.coordinates.0"); ok {
		t.Error("customData should be skipped")
	}

	bombs := d.Objects(Bombs)
	if len(bombs) != 1 || !bombs[0].IsGrid() || bombs[0].IsColorGrid() {
		t.Errorf("Objects(Bombs) = %+v", bombs)
	}

	boost := d.Objects(ColorBoostEvents)
	if v, _ := boost[0].Attribute("o"); v != 1 {
		t.Errorf("boost attribute o = %v, want 1", v)
	}

	groups := d.Objects(LightColorEventBoxGroups)
	if v, ok := groups[0].Attribute("e.0.f.f"); !ok || v != 1 {
		t.Errorf("nested attribute e.0.f.f = %v (%v), want 1", v, ok)
	}
}

func TestDecodeDifficulty_OmittedFields(t *testing.T) {
	doc := `{"version": "3.2.0",
  "colorNotes": [{"b": 4, "x": 1}],
  "basicBeatmapEvents": [{"b": 2, "i": 1}],
  "lightRotationEventBoxGroups": [{"b": 3}]}`
	d, err := DecodeDifficulty("Hard.dat", []byte(doc), "Standard", "Hard")
	if err != nil {
		t.Fatalf("DecodeDifficulty() error = %v", err)
	}

	tests := []struct {
		name       string
		collection CollectionType
		want       map[string]float64
	}{
		{name: "note", collection: Notes, want: map[string]float64{"d": 0, "a": 0}},
		{name: "light", collection: Lights, want: map[string]float64{"et": 0, "i": 1, "f": 0}},
		{name: "box group", collection: LightRotationEventBoxGroups, want: map[string]float64{"g": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objs := d.Objects(tt.collection)
			if len(objs) != 1 {
				t.Fatalf("Objects(%s) = %d objects, want 1", tt.collection, len(objs))
			}
			if !maps.Equal(objs[0].Attributes, tt.want) {
				t.Errorf("Attributes = %v, want %v", objs[0].Attributes, tt.want)
			}
		})
	}
}

func TestDecodeDifficulty_V2(t *testing.T) {
	v2 := `{"_version": "2.2.0",
  "_notes": [
    {"_time": 4, "_lineIndex": 1, "_lineLayer": 0, "_type": 1, "_cutDirection": 1},
    {"_time": 5, "_lineIndex": 2, "_lineLayer": 2, "_type": 3, "_cutDirection": 0}
  ],
  "_obstacles": [{"_time": 6, "_lineIndex": 0, "_type": 1, "_duration": 2, "_width": 1}],
  "_events": [
    {"_time": 2, "_type": 1, "_value": 3},
    {"_time": 3, "_type": 5, "_value": 1},
    {"_time": 3, "_type": 15, "_value": 4}
  ]}`
	v3 := `{"version": "3.2.0",
  "colorNotes": [{"b": 4, "x": 1, "y": 0, "c": 1, "d": 1, "a": 0}],
  "bombNotes": [{"b": 5, "x": 2, "y": 2}],
  "obstacles": [{"b": 6, "x": 0, "y": 2, "d": 2, "w": 1, "h": 3}],
  "basicBeatmapEvents": [{"b": 2, "et": 1, "i": 3, "f": 1}],
  "colorBoostBeatmapEvents": [{"b": 3, "o": true}],
  "rotationEvents": [{"b": 3, "e": 1, "r": 15}]}`

	got, err := DecodeDifficulty("Expert.dat", []byte(v2), "Standard", "Expert")
	if err != nil {
		t.Fatalf("DecodeDifficulty(v2) error = %v", err)
	}
	want, err := DecodeDifficulty("Expert.dat", []byte(v3), "Standard", "Expert")
	if err != nil {
		t.Fatalf("DecodeDifficulty(v3) error = %v", err)
	}

	for _, c := range Collections() {
		g, w := got.Objects(c), want.Objects(c)
		if len(g) != len(w) {
			t.Errorf("Objects(%s) = %d objects, want %d", c, len(g), len(w))
			continue
		}
		for i := range g {
			if !g[i].SamePayload(w[i]) {
				t.Errorf("Objects(%s)[%d] = %+v, want %+v", c, i, g[i], w[i])
			}
		}
	}
}

func TestDecodeDifficulty_YAML(t *testing.T) {
	doc := `
version: "3.2.0"
colorNotes:
  - {b: 1, x: 0, y: 0, c: 1, d: 8}
obstacles:
  - {b: 2, x: 0, y: 0, d: 1.5, w: 1, h: 5}
`
	d, err := DecodeDifficulty("Easy.yaml", []byte(doc), "Standard", "Easy")
	if err != nil {
		t.Fatalf("DecodeDifficulty() error = %v", err)
	}
	notes := d.Objects(Notes)
	if len(notes) != 1 || notes[0].Color != 1 {
		t.Errorf("Objects(Notes) = %+v", notes)
	}
	walls := d.Objects(Obstacles)
	if v, _ := walls[0].Attribute("d"); v != 1.5 {
		t.Errorf("obstacle duration = %v, want 1.5", v)
	}
}

func TestDecodeDifficulty_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "invalid json", file: "a.dat", data: "{"},
		{name: "non-object entry", file: "a.dat", data: `{"version": "3.0.0", "colorNotes": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDifficulty(tt.file, []byte(tt.data), "Standard", "Easy"); err == nil {
				t.Error("DecodeDifficulty() expected error, got nil")
			}
		})
	}
}

func TestReadBundle(t *testing.T) {
	data := writeZip(t, map[string]string{
		"Info.dat":               testInfo,
		"ExpertPlusStandard.dat": testDifficulty,
	})

	m, err := ReadBundle(data)
	if err != nil {
		t.Fatalf("ReadBundle() error = %v", err)
	}
	if m.SongName != "Test Song" {
		t.Errorf("SongName = %q", m.SongName)
	}
	// Expert is listed in Info.dat but missing from the archive
	if len(m.Difficulties) != 1 {
		t.Fatalf("Difficulties = %d, want 1", len(m.Difficulties))
	}
	if _, ok := m.Difficulty("Standard", "ExpertPlus"); !ok {
		t.Error("Difficulty(Standard, ExpertPlus) not found")
	}
	if _, ok := m.Difficulty("Standard", "Expert"); ok {
		t.Error("Difficulty(Standard, Expert) should be missing")
	}
}

func TestReadBundle_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		if _, err := ReadBundle([]byte("hello")); err == nil {
			t.Error("ReadBundle() expected error")
		}
	})
	t.Run("missing info", func(t *testing.T) {
		data := writeZip(t, map[string]string{"ExpertPlusStandard.dat": testDifficulty})
		if _, err := ReadBundle(data); err == nil {
			t.Error("ReadBundle() expected error")
		}
	})
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "info.dat"), []byte(testInfo), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ExpertPlusStandard.dat"), []byte(testDifficulty), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	d, ok := m.Difficulty("Standard", "ExpertPlus")
	if !ok {
		t.Fatal("Difficulty(Standard, ExpertPlus) not found")
	}
	if len(d.Objects(Notes)) != 2 {
		t.Errorf("Objects(Notes) = %d, want 2", len(d.Objects(Notes)))
	}
}

func TestResolve(t *testing.T) {
	m := &Beatmap{Difficulties: []*Difficulty{NewDifficulty("Standard", "ExpertPlus")}}

	if _, err := Resolve(m, SideOld, "Standard", "ExpertPlus"); err != nil {
		t.Errorf("Resolve() error = %v", err)
	}

	_, err := Resolve(m, SideNew, "OneSaber", "ExpertPlus")
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("Resolve() error = %v, want ResolutionError", err)
	}
	if resErr.Side != SideNew || resErr.Characteristic != "OneSaber" {
		t.Errorf("ResolutionError = %+v", resErr)
	}

	_, err = Resolve(nil, SideOld, "Standard", "ExpertPlus")
	var emptyErr *EmptyInputError
	if !errors.As(err, &emptyErr) {
		t.Errorf("Resolve(nil) error = %v, want EmptyInputError", err)
	}
}

func TestObject_Capabilities(t *testing.T) {
	tests := []struct {
		name      string
		obj       Object
		grid      bool
		colorGrid bool
	}{
		{name: "basic", obj: NewObject(Lights, 1, nil)},
		{name: "grid", obj: NewGridObject(Bombs, 1, 0, 0, nil), grid: true},
		{name: "color grid", obj: NewColorGridObject(Notes, 1, 0, 0, 1, nil), grid: true, colorGrid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.obj.IsGrid() != tt.grid {
				t.Errorf("IsGrid() = %v, want %v", tt.obj.IsGrid(), tt.grid)
			}
			if tt.obj.IsColorGrid() != tt.colorGrid {
				t.Errorf("IsColorGrid() = %v, want %v", tt.obj.IsColorGrid(), tt.colorGrid)
			}
		})
	}

	if got := NewColorGridObject(Notes, 1, 0, 0, 0, nil).ColorName(); got != "Red" {
		t.Errorf("ColorName(0) = %s, want Red", got)
	}
	if got := NewColorGridObject(Notes, 1, 0, 0, 1, nil).ColorName(); got != "Blue" {
		t.Errorf("ColorName(1) = %s, want Blue", got)
	}
}

func TestObject_ConstructorCopiesAttributes(t *testing.T) {
	attrs := map[string]float64{"d": 1}
	obj := NewColorGridObject(Notes, 1, 0, 0, 0, attrs)
	attrs["d"] = 5

	if v, _ := obj.Attribute("d"); v != 1 {
		t.Errorf("Attribute(d) = %v, want 1", v)
	}
}

func TestObject_JSON(t *testing.T) {
	obj := NewColorGridObject(Notes, 4, 0, 0, 1, map[string]float64{"d": 1})
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"beats":4,"collection":"Notes","shape":"colorGrid","x":0,"y":0,"color":1,"attributes":{"d":1}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	basic, err := json.Marshal(NewObject(Lights, 2, nil))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"beats":2,"collection":"Lights","shape":"basic"}`; string(basic) != want {
		t.Errorf("Marshal() = %s, want %s", basic, want)
	}

	var back Object
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.SamePayload(obj) {
		t.Errorf("Unmarshal() = %+v, want %+v", back, obj)
	}
}

func TestCollections(t *testing.T) {
	cols := Collections()
	if len(cols) != len(schemas) {
		t.Fatalf("Collections() = %d, want %d", len(cols), len(schemas))
	}
	if cols[0] != Notes {
		t.Errorf("first collection = %s, want Notes", cols[0])
	}
	for _, c := range cols {
		if _, ok := SchemaFor(c); !ok {
			t.Errorf("SchemaFor(%s) missing", c)
		}
	}
}
