// Package voice holds the catalog of narration voices mathvoice can speak with.
//
// The catalog is built once at startup from a literal table and is read-only
// afterwards, so a single Registry is shared by every request without locking.
package voice

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a voice id is empty or not in the registry.
var ErrNotFound = errors.New("voice not found")

// Voice is a named, language-tagged synthesis persona.
type Voice struct {
	// ID is the identifier passed to the speech synthesizer (ElevenLabs voice id).
	ID string `json:"id"`

	// Name is the human-readable label shown to callers.
	Name string `json:"name"`

	// Language is the lowercase English name of the narration language (e.g., "english").
	// The summary prompt asks for the script in this language.
	Language string `json:"language"`
}

// supportedVoices is the fixed narration catalog. All voices are used with
// ElevenLabs' multilingual model, so the language tag decides the script language.
var supportedVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Language: "english"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Language: "english"},
	{ID: "JBFqnCBsd6RMkjVDRZzb", Name: "George", Language: "english"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah", Language: "english"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Language: "spanish"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Language: "french"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam", Language: "german"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Language: "hindi"},
}

// DefaultID is the voice used when a caller does not name one.
const DefaultID = "JBFqnCBsd6RMkjVDRZzb"

// Registry is an immutable, ordered voice catalog.
type Registry struct {
	voices []Voice
	byID   map[string]int
}

// NewRegistry builds a registry from the given table. Ids must be non-empty
// and unique.
func NewRegistry(voices []Voice) (*Registry, error) {
	r := &Registry{
		voices: make([]Voice, len(voices)),
		byID:   make(map[string]int, len(voices)),
	}
	for i, v := range voices {
		if v.ID == "" {
			return nil, fmt.Errorf("voice at index %d has an empty id", i)
		}
		if _, dup := r.byID[v.ID]; dup {
			return nil, fmt.Errorf("duplicate voice id %q", v.ID)
		}
		r.voices[i] = v
		r.byID[v.ID] = i
	}
	return r, nil
}

// Default returns the registry built from the supported voice table.
func Default() *Registry {
	r, err := NewRegistry(supportedVoices)
	if err != nil {
		panic(fmt.Sprintf("voice: invalid built-in table: %v", err))
	}
	return r
}

// All returns the voices in catalog order. The returned slice is a copy.
func (r *Registry) All() []Voice {
	out := make([]Voice, len(r.voices))
	copy(out, r.voices)
	return out
}

// ByID looks a voice up by exact id.
func (r *Registry) ByID(id string) (Voice, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Voice{}, false
	}
	return r.voices[i], true
}

// Resolve maps a requested voice id to a supported voice. Matching is exact:
// no case folding and no fuzzy lookup. An empty or unknown id yields ErrNotFound.
func (r *Registry) Resolve(id string) (Voice, error) {
	if id == "" {
		return Voice{}, fmt.Errorf("%w: no voice id given", ErrNotFound)
	}
	v, ok := r.ByID(id)
	if !ok {
		return Voice{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return v, nil
}

// Len returns the number of voices in the catalog.
func (r *Registry) Len() int { return len(r.voices) }
