package models

import (
	"time"

	"github.com/gh-nvat/mapdiff/src/pkg/diff"
)

// CompareRequest identifies the two maps and the difficulty to compare
type CompareRequest struct {
	OldRef         string `json:"oldRef"`
	NewRef         string `json:"newRef"`
	Difficulty     string `json:"difficulty"`
	Characteristic string `json:"characteristic"`
	IncludeLights  bool   `json:"includeLights"`
}

// Comparison is the outcome of comparing one difficulty across two map versions
type Comparison struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	OldRef         string       `json:"oldRef,omitempty"`
	NewRef         string       `json:"newRef,omitempty"`
	OldSongName    string       `json:"oldSongName,omitempty"`
	NewSongName    string       `json:"newSongName,omitempty"`
	Difficulty     string       `json:"difficulty"`
	Characteristic string       `json:"characteristic"`
	IncludeLights  bool         `json:"includeLights"`
	Summary        diff.Summary `json:"summary"`
	Entries        []diff.Entry `json:"entries"`
	Text           string       `json:"-"`
}

// GameplayChanged reports whether any change touches a non-lighting collection
func (c *Comparison) GameplayChanged() bool {
	return diff.HasGameplayChanges(c.Entries)
}
