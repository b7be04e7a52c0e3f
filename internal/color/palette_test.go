package color

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePaletteDeterministic(t *testing.T) {
	first := GeneratePalette(42, 6)
	second := GeneratePalette(42, 6)
	assert.Equal(t, first, second, "identical (seed, count) must yield the identical sequence")

	other := GeneratePalette(43, 6)
	assert.NotEqual(t, first, other, "different seeds should diverge")
}

func TestGeneratePaletteLength(t *testing.T) {
	for _, count := range []int{1, 2, 4, 6, 9, 12} {
		assert.Len(t, GeneratePalette(7, count), count)
	}
	assert.Empty(t, GeneratePalette(7, 0))
}

func TestGeneratePaletteGamutSafe(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		for _, c := range GeneratePalette(seed, 6) {
			require.True(t, IsGamutSafe(c), "seed %d produced out-of-gamut %+v", seed, c)
		}
	}
}

func minPairwiseDistance(colors []Color) float64 {
	min := math.Inf(1)
	for i := range colors {
		for j := i + 1; j < len(colors); j++ {
			if d := Distance(colors[i], colors[j]); d < min {
				min = d
			}
		}
	}
	return min
}

func TestGeneratePaletteSpacing(t *testing.T) {
	// Every selected color comes from a pool whose members are at least
	// poolSpacing apart.
	for seed := int64(1); seed <= 10; seed++ {
		got := minPairwiseDistance(GeneratePalette(seed, 6))
		assert.GreaterOrEqual(t, got, float64(poolSpacing), "seed %d", seed)
	}
}

func TestGeneratePaletteBeatsNaiveSampling(t *testing.T) {
	const count = 6
	const seeds = 30

	var generated, naive float64
	for seed := int64(1); seed <= seeds; seed++ {
		generated += minPairwiseDistance(GeneratePalette(seed, count))

		r := newRNG(seed)
		raw := make([]Color, count)
		for i := range raw {
			raw[i] = sampleCandidate(r)
		}
		naive += minPairwiseDistance(raw)
	}

	assert.Greater(t, generated/seeds, naive/seeds,
		"diverse selection should beat unfiltered sampling on average")
}

func TestRNGReproducible(t *testing.T) {
	a := newRNG(99)
	b := newRNG(99)
	for i := 0; i < 100; i++ {
		va, vb := a.next(), b.next()
		require.Equal(t, va, vb)
		require.GreaterOrEqual(t, va, 0.0)
		require.Less(t, va, 1.0)
	}
}

func TestFallbackColorAlwaysRenders(t *testing.T) {
	for i := 0; i < 25; i++ {
		assert.True(t, IsGamutSafe(fallbackColor(i)))
	}
}
