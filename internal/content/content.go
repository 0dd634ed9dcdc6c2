// Package content serves the informational sections of the site. Sections
// not marked public are shown only to verified guests.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSection is returned for a section id that does not exist.
var ErrUnknownSection = errors.New("unknown section")

// Item is a labelled detail such as a venue or a dress code.
type Item struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Section is one block of content.
type Section struct {
	ID     string   `yaml:"-" json:"id"`
	Title  string   `yaml:"title" json:"title"`
	Public bool     `yaml:"public" json:"public"`
	Body   []string `yaml:"body,omitempty" json:"body,omitempty"`
	Items  []Item   `yaml:"items,omitempty" json:"items,omitempty"`
}

// Sections is the full set keyed by id.
type Sections map[string]Section

type file struct {
	Sections map[string]Section `yaml:"sections"`
}

// Load reads sections from a YAML file. A missing file yields Defaults.
func Load(path string) (Sections, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, rejecting unknown fields.
func Parse(data []byte) (Sections, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	out := make(Sections, len(f.Sections))
	for id, s := range f.Sections {
		if s.Title == "" {
			return nil, fmt.Errorf("section %q: title is required", id)
		}
		s.ID = id
		out[id] = s
	}
	return out, nil
}

// Get returns a section by id.
func (s Sections) Get(id string) (Section, error) {
	sec, ok := s[id]
	if !ok {
		return Section{}, fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	return sec, nil
}

// IDs returns section ids in sorted order.
func (s Sections) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Defaults is used when no content file is present.
func Defaults() Sections {
	return Sections{
		"ceremony": {
			ID:    "ceremony",
			Title: "Ceremony Details",
			Items: []Item{
				{Label: "Date", Value: "Monday, September 8, 2025"},
				{Label: "Venue", Value: "The Strand Hotel"},
				{Label: "Colours", Value: "Blush Pink & Navy Blue"},
			},
		},
		"travel": {
			ID:    "travel",
			Title: "Travel & Accommodation",
			Body:  []string{"Room blocks and directions are shared with verified guests."},
		},
		"faq": {
			ID:     "faq",
			Title:  "Frequently Asked Questions",
			Public: true,
			Body:   []string{"Please RSVP by the date on your invitation."},
		},
	}
}
