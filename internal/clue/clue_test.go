package clue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsEvocativeClues(t *testing.T) {
	for _, text := range []string{
		"ocean whisper",
		"grandma's couch",
		"overripe banana peel",
		"the feeling of a monday",
	} {
		assert.NoError(t, Validate(text), "clue %q should be allowed", text)
	}
}

func TestValidateRejectsDirectColorWords(t *testing.T) {
	cases := []string{
		"deep blue sea",
		"Crimson tide",
		"REDDISH",   // substring still counts
		"bluebird",  // so does an embedded color
		"navy beans",
	}
	for _, text := range cases {
		assert.ErrorIs(t, Validate(text), ErrDirectColorWord, "clue %q", text)
	}
}

func TestValidateRejectsShadeWords(t *testing.T) {
	for _, text := range []string{"a lighter shade", "the darkest hour", "Pale moonlight"} {
		assert.ErrorIs(t, Validate(text), ErrShadeWord, "clue %q", text)
	}
}

func TestValidateShadeWordsAreWholeWordsOnly(t *testing.T) {
	// "lightning" contains "light" but is not a shading comparison.
	assert.NoError(t, Validate("lightning storm"))
}

func TestValidateRejectsOverlongWords(t *testing.T) {
	assert.ErrorIs(t, Validate(strings.Repeat("z", 65)), ErrTooLong)
	assert.NoError(t, Validate(strings.Repeat("z", 64)))
}

func TestValidateRejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, Validate(""), ErrEmpty)
	assert.ErrorIs(t, Validate("   \t  "), ErrEmpty)
}

func TestValidateRejectsProfanity(t *testing.T) {
	assert.ErrorIs(t, Validate("what the fuck"), ErrProfanity)
}
