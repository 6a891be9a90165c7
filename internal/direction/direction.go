// Package direction defines the two supported translation directions.
package direction

import (
	"errors"

	"golang.org/x/text/language"
)

// Direction is a source→target language pair as sent by clients.
type Direction string

const (
	FrenchToBasaa Direction = "fr→bs"
	BasaaToFrench Direction = "bs→fr"
)

// Basaa (ISO 639-3 "bas"). The model itself selects it with the ">>bs<<" token.
var Basaa = language.MustParse("bas")

type info struct {
	source   language.Tag
	target   language.Tag
	marker   string
	fallback string
}

var known = map[Direction]info{
	FrenchToBasaa: {
		source:   language.French,
		target:   Basaa,
		marker:   ">>bs<<",
		fallback: "[Erreur de traduction]",
	},
	BasaaToFrench: {
		source:   Basaa,
		target:   language.French,
		marker:   ">>fr<<",
		fallback: "[Translation error]",
	},
}

// ErrInvalid is returned by Parse for anything but the two literal tags.
var ErrInvalid = errors.New("Direction invalide. Utiliser 'fr→bs' ou 'bs→fr'.")

// Parse validates s against the recognised tags. No normalisation is applied.
func Parse(s string) (Direction, error) {
	d := Direction(s)
	if _, ok := known[d]; !ok {
		return "", ErrInvalid
	}
	return d, nil
}

func (d Direction) Valid() bool {
	_, ok := known[d]
	return ok
}

// Source is the language of the input text.
func (d Direction) Source() language.Tag {
	return known[d].source
}

// Target is the language the model is asked to produce.
func (d Direction) Target() language.Tag {
	return known[d].target
}

// Marker is the target-language token the model expects in front of the input.
func (d Direction) Marker() string {
	return known[d].marker
}

// Prefix is Marker followed by the separating space.
func (d Direction) Prefix() string {
	if m := known[d].marker; m != "" {
		return m + " "
	}
	return ""
}

// Fallback is the placeholder translation returned when the model fails.
func (d Direction) Fallback() string {
	return known[d].fallback
}

func (d Direction) String() string {
	return string(d)
}

// All returns the supported directions.
func All() []Direction {
	return []Direction{FrenchToBasaa, BasaaToFrench}
}
