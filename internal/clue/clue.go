// Package clue enforces the house rules on clue text: no naming colors, no
// simple shading words, no profanity, nothing absurdly long.
package clue

import (
	"errors"
	"strings"

	goaway "github.com/TwiN/go-away"
)

const maxWordLength = 64

var ErrDirectColorWord = errors.New("no direct color words allowed")
var ErrShadeWord = errors.New("no simple shading words / comparisons allowed")
var ErrTooLong = errors.New("no more than 64 characters in your color name")
var ErrProfanity = errors.New("keep it family friendly")
var ErrEmpty = errors.New("clue must not be empty")

var directColorWords = []string{
	"red", "black", "white", "purple", "orange", "green", "blue", "yellow",
	"pink", "brown", "gray", "grey", "beige", "tan", "cyan", "magenta",
	"teal", "maroon", "navy", "azure", "chartreuse", "crimson", "fuchsia",
	"indigo", "ivory", "lavender", "mauve", "ochre", "peach", "periwinkle",
	"salmon", "sapphire", "scarlet", "turquoise", "vermilion", "violet",
	"viridian",
}

var shadeWords = map[string]bool{
	"light": true, "lighter": true, "lightest": true,
	"dark": true, "darker": true, "darkest": true,
	"bright": true, "brighter": true, "brightest": true,
	"pale": true, "paler": true, "palest": true,
}

// Validate checks a whole clue, word by word. A nil return means the clue is
// acceptable.
func Validate(text string) error {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ErrEmpty
	}
	for _, w := range words {
		if err := validateWord(w); err != nil {
			return err
		}
	}
	if goaway.IsProfane(text) {
		return ErrProfanity
	}
	return nil
}

func validateWord(word string) error {
	lower := strings.ToLower(word)
	if shadeWords[lower] {
		return ErrShadeWord
	}
	if len(word) > maxWordLength {
		return ErrTooLong
	}
	// Substring match on purpose: "reddish" and "bluebird" are both cheating.
	for _, c := range directColorWords {
		if strings.Contains(lower, c) {
			return ErrDirectColorWord
		}
	}
	return nil
}
