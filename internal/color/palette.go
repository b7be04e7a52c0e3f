package color

import "math"

// Palette generation tuning. Pool and attempt budgets scale with the request
// so small counts stay cheap and large counts still find diverse colors.
const (
	minCandidateLightness = 8
	maxCandidateLightness = 94
	chromaFloorFraction   = 0.55
	poolSpacing           = 6    // minimum Lab distance between pooled candidates
	lightnessWeight       = 0.45 // weight of lightness spread in the diversity objective
	goldenAngleDeg        = 137.508
)

// rng is a mulberry32 stream: 32-bit state, one [0,1) draw per call,
// bit-for-bit reproducible for a given seed.
type rng struct {
	state uint32
}

func newRNG(seed int64) *rng {
	return &rng{state: uint32(seed)}
}

func (r *rng) next() float64 {
	r.state += 0x6D2B79F5
	z := r.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return float64(z^(z>>14)) / 4294967296.0
}

// maxChromaFor is a tent over lightness: chroma headroom peaks around L=50
// and tapers toward the extremes, where sRGB has little room left.
func maxChromaFor(lightness float64) float64 {
	return 20 + 70*(1-math.Abs(lightness-50)/50)
}

// GeneratePalette deterministically produces count visually diverse,
// display-safe colors. Identical (seed, count) pairs always yield the
// identical sequence; there is no wall-clock or hidden entropy.
func GeneratePalette(seed int64, count int) []Color {
	if count <= 0 {
		return []Color{}
	}

	r := newRNG(seed)

	poolTarget := 36 * count
	if poolTarget < 60 {
		poolTarget = 60
	}
	attemptBudget := 260 * count
	if attemptBudget < 300 {
		attemptBudget = 300
	}

	pool := make([]Color, 0, poolTarget)
	for attempts := 0; attempts < attemptBudget && len(pool) < poolTarget; attempts++ {
		c := sampleCandidate(r)
		if !IsGamutSafe(c) {
			continue
		}
		if tooClose(pool, c) {
			continue
		}
		pool = append(pool, c)
	}

	selected := make([]Color, 0, count)
	if len(pool) > 0 {
		first := int(r.next() * float64(len(pool)))
		if first >= len(pool) {
			first = len(pool) - 1
		}
		selected = append(selected, pool[first])
		pool = append(pool[:first], pool[first+1:]...)
	}

	// Greedy maximin: each step takes the candidate farthest from everything
	// already chosen, with a bonus for spreading lightness.
	for len(selected) < count && len(pool) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, c := range pool {
			score := diversityScore(selected, c)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, pool[bestIdx])
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}

	// Pathological seeds can leave the pool short. Fill the remaining slots
	// with a golden-angle hue sweep over fixed lightness steps.
	for i := 0; len(selected) < count; i++ {
		selected = append(selected, fallbackColor(i))
	}

	return selected
}

func sampleCandidate(r *rng) Color {
	lightness := minCandidateLightness + r.next()*(maxCandidateLightness-minCandidateLightness)
	maxChroma := maxChromaFor(lightness)
	chroma := maxChroma * (chromaFloorFraction + (1-chromaFloorFraction)*r.next())
	hue := r.next() * 2 * math.Pi
	return Color{
		Lightness: lightness,
		A:         chroma * math.Cos(hue),
		B:         chroma * math.Sin(hue),
	}
}

func tooClose(pool []Color, c Color) bool {
	for _, p := range pool {
		if Distance(p, c) < poolSpacing {
			return true
		}
	}
	return false
}

func diversityScore(selected []Color, c Color) float64 {
	minDist := math.Inf(1)
	minLight := math.Inf(1)
	for _, s := range selected {
		if d := Distance(s, c); d < minDist {
			minDist = d
		}
		if dl := math.Abs(s.Lightness - c.Lightness); dl < minLight {
			minLight = dl
		}
	}
	return minDist + lightnessWeight*minLight
}

var fallbackLightnessSteps = []float64{25, 40, 55, 70, 85}

func fallbackColor(i int) Color {
	lightness := fallbackLightnessSteps[i%len(fallbackLightnessSteps)]
	hue := float64(i) * goldenAngleDeg * math.Pi / 180
	const chroma = 40
	c := Color{
		Lightness: lightness,
		A:         chroma * math.Cos(hue),
		B:         chroma * math.Sin(hue),
	}
	if IsGamutSafe(c) {
		return c
	}
	return Color{Lightness: lightness} // neutral gray always renders
}
