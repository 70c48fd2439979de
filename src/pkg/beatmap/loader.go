package beatmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var logger = log.WithField("package", "beatmap")

const (
	// InfoFileName is the lower-cased name of the map info file
	InfoFileName = "info.dat"

	// MaxFileSize caps every file read from a map bundle (64MB)
	MaxFileSize = 64 << 20
)

// infoFile is the part of a v2 Info.dat needed to locate difficulty files
type infoFile struct {
	SongName string `json:"_songName"`
	Sets     []struct {
		Characteristic string `json:"_beatmapCharacteristicName"`
		Difficulties   []struct {
			Difficulty string `json:"_difficulty"`
			Filename   string `json:"_beatmapFilename"`
		} `json:"_difficultyBeatmaps"`
	} `json:"_difficultyBeatmapSets"`
}

// bundle maps lower-cased file names to readers of their content
type bundle map[string]func() ([]byte, error)

// ReadBundle parses a zipped map (Info.dat plus difficulty files)
func ReadBundle(data []byte) (*Beatmap, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open map archive: %w", err)
	}

	files := make(bundle, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		f := f
		files[strings.ToLower(path.Base(f.Name))] = func() ([]byte, error) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer func() {
				_ = rc.Close()
			}()
			return readLimited(rc)
		}
	}
	return files.read()
}

// ReadDir parses an unpacked map folder
func ReadDir(dir string) (*Beatmap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read map directory: %w", err)
	}

	files := make(bundle, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		files[strings.ToLower(entry.Name())] = func() ([]byte, error) {
			f, err := os.Open(p)
			if err != nil {
				return nil, err
			}
			defer func() {
				_ = f.Close()
			}()
			return readLimited(f)
		}
	}
	return files.read()
}

func (b bundle) read() (*Beatmap, error) {
	open, ok := b[InfoFileName]
	if !ok {
		return nil, fmt.Errorf("map has no Info.dat")
	}
	raw, err := open()
	if err != nil {
		return nil, fmt.Errorf("failed to read Info.dat: %w", err)
	}

	var info infoFile
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse Info.dat: %w", err)
	}

	m := &Beatmap{SongName: info.SongName}
	for _, set := range info.Sets {
		for _, diff := range set.Difficulties {
			open, ok := b[strings.ToLower(diff.Filename)]
			if !ok {
				logger.WithField("file", diff.Filename).WithField("characteristic", set.Characteristic).Warn("Difficulty file missing from map, skipping")
				continue
			}
			data, err := open()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", diff.Filename, err)
			}
			d, err := DecodeDifficulty(diff.Filename, data, set.Characteristic, diff.Difficulty)
			if err != nil {
				return nil, err
			}
			m.Difficulties = append(m.Difficulties, d)
		}
	}

	logger.WithField("song", m.SongName).WithField("difficulties", len(m.Difficulties)).Debug("Read map")
	return m, nil
}

// DecodeDifficulty parses a difficulty file, v2 files are converted to the v3
// layout first. Files ending in .yaml or .yml are decoded as YAML, anything
// else as JSON.
func DecodeDifficulty(name string, data []byte, characteristic, label string) (*Difficulty, error) {
	var doc map[string]any
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse difficulty %s: %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse difficulty %s: %w", name, err)
		}
	}

	if isV2(doc) {
		logger.WithField("file", name).Debug("Converting v2 difficulty")
		doc = convertV2(doc)
	}

	var objects []Object
	for _, s := range schemas {
		items, ok := doc[s.Key].([]any)
		if !ok {
			continue
		}
		for i, item := range items {
			fields, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("difficulty %s: %s[%d] is not an object", name, s.Key, i)
			}
			objects = append(objects, s.decode(fields))
		}
	}

	return NewDifficulty(characteristic, label, objects...), nil
}

func (s Schema) decode(fields map[string]any) Object {
	attrs := make(map[string]float64, len(fields))
	flatten("", fields, attrs)

	obj := Object{
		Beats:      pop(attrs, "b"),
		Collection: s.Collection,
		Shape:      s.Shape,
	}
	if obj.IsGrid() {
		obj.X = int(pop(attrs, "x"))
		obj.Y = int(pop(attrs, "y"))
	}
	if obj.IsColorGrid() {
		obj.Color = int(pop(attrs, "c"))
	}
	for _, f := range s.Fields {
		if _, ok := attrs[f]; !ok {
			attrs[f] = 0
		}
	}
	if len(attrs) > 0 {
		obj.Attributes = attrs
	}
	return obj
}

// flatten collects numeric leaves, nested keys are joined with dots.
// customData and non-numeric values are skipped.
func flatten(prefix string, v any, out map[string]float64) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if k == "customData" {
				continue
			}
			flatten(join(prefix, k), child, out)
		}
	case []any:
		for i, child := range val {
			flatten(join(prefix, strconv.Itoa(i)), child, out)
		}
	case float64:
		out[prefix] = val
	case int:
		out[prefix] = float64(val)
	case int64:
		out[prefix] = float64(val)
	case uint64:
		out[prefix] = float64(val)
	case bool:
		if val {
			out[prefix] = 1
		} else {
			out[prefix] = 0
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func pop(attrs map[string]float64, key string) float64 {
	v := attrs[key]
	delete(attrs, key)
	return v
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", MaxFileSize)
	}
	return data, nil
}
