// Package content holds the shipped episode, date characters and setup
// options, embedded into the binary.
package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/date-engine/pkg/character"
	"github.com/jwebster45206/date-engine/pkg/episode"
	"github.com/jwebster45206/date-engine/pkg/prompts"
)

//go:embed characters.yaml setup.yaml episodes/*.json
var files embed.FS

// DefaultEpisodeID is the episode played when setup does not name one.
const DefaultEpisodeID = "episode-1"

// Catalog is everything a player can pick from during setup.
type Catalog struct {
	Characters       []character.DateCharacter   `json:"characters" yaml:"characters"`
	PlayerAppearance map[character.Gender]string `json:"player_appearance" yaml:"player_appearance"`
	Tones            []character.Tone            `json:"tones" yaml:"tones"`
	Locations        []character.Location        `json:"locations" yaml:"locations"`
	DateIdeas        []character.DateIdea        `json:"date_ideas" yaml:"date_ideas"`
}

// LoadCatalog parses the embedded characters and setup options.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	for _, name := range []string{"characters.yaml", "setup.yaml"} {
		data, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}
	return &c, nil
}

// MustCatalog is LoadCatalog for program start and tests.
func MustCatalog() *Catalog {
	c, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Character looks up a preset date character.
func (c *Catalog) Character(id string) (character.DateCharacter, bool) {
	for _, ch := range c.Characters {
		if ch.CharacterID == id {
			return ch, true
		}
	}
	return character.DateCharacter{}, false
}

// Location looks up a location.
func (c *Catalog) Location(id string) (*character.Location, bool) {
	for i := range c.Locations {
		if c.Locations[i].LocationID == id {
			return &c.Locations[i], true
		}
	}
	return nil, false
}

// Tone looks up a tone.
func (c *Catalog) Tone(id string) (*character.Tone, bool) {
	for i := range c.Tones {
		if c.Tones[i].ToneID == id {
			return &c.Tones[i], true
		}
	}
	return nil, false
}

// DateIdea looks up a date idea.
func (c *Catalog) DateIdea(id string) (*character.DateIdea, bool) {
	for i := range c.DateIdeas {
		if c.DateIdeas[i].DateIdeaID == id {
			return &c.DateIdeas[i], true
		}
	}
	return nil, false
}

// DateCharacterFor returns the date character a setup selected. Unknown
// preset ids fall back to the default character.
func (c *Catalog) DateCharacterFor(s character.Setup) character.DateCharacter {
	if s.DateCharacterID == character.CustomID && s.CustomCharacter != nil {
		return *s.CustomCharacter
	}
	if ch, ok := c.Character(s.DateCharacterID); ok {
		return ch
	}
	ch, _ := c.Character(character.DefaultCharacterID)
	return ch
}

// PromptConfig resolves a setup into video prompt inputs. Unknown location
// or tone ids resolve to nil.
func (c *Catalog) PromptConfig(s character.Setup) prompts.Config {
	loc, _ := c.Location(s.LocationID)
	tone, _ := c.Tone(s.ToneID)
	idea, _ := c.DateIdea(s.DateIdeaID)
	return prompts.Config{
		Location:      loc,
		Tone:          tone,
		DateIdea:      idea,
		DateCharacter: c.DateCharacterFor(s),
	}
}

// Episodes parses every embedded episode, keyed by episode id.
func Episodes() (map[string]*episode.Episode, error) {
	entries, err := fs.ReadDir(files, "episodes")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded episodes: %w", err)
	}
	out := make(map[string]*episode.Episode, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := files.ReadFile(path.Join("episodes", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read episode %s: %w", entry.Name(), err)
		}
		ep, err := ParseEpisode(data)
		if err != nil {
			return nil, fmt.Errorf("episode %s: %w", entry.Name(), err)
		}
		out[ep.EpisodeID] = ep
	}
	return out, nil
}

// ParseEpisode strictly decodes and validates episode JSON.
func ParseEpisode(data []byte) (*episode.Episode, error) {
	var ep episode.Episode
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ep); err != nil {
		return nil, fmt.Errorf("failed strict JSON unmarshaling: %w", err)
	}
	if err := episode.Validate(&ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// SortedIDs returns the keys of an episode map in order.
func SortedIDs(eps map[string]*episode.Episode) []string {
	ids := make([]string, 0, len(eps))
	for id := range eps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
