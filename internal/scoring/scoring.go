// Package scoring maps perceptual distance to points. Guessers score on a
// smooth S-curve: a near-plateau for very close guesses, a steep middle drop,
// and a soft tail to zero. The picker earns half the average guesser score,
// rewarding clues that are guessable but not trivial.
package scoring

import (
	"math"
	"sort"

	"colornamer/internal/color"
)

const (
	MaxScore    = 500
	MaxDistance = 55

	curveMidpoint  = 17
	curveSteepness = 5.5
)

func sigmoid(distance float64) float64 {
	return 1 / (1 + math.Exp((distance-curveMidpoint)/curveSteepness))
}

// GuesserScoreContinuous returns the unrounded score for a guess at the given
// Lab distance from the target. Monotonically non-increasing; exactly MaxScore
// at distance 0 and 0 at MaxDistance and beyond.
func GuesserScoreContinuous(distance float64) float64 {
	if distance >= MaxDistance {
		return 0
	}
	top := sigmoid(0)
	bottom := sigmoid(MaxDistance)
	t := (sigmoid(math.Max(0, distance)) - bottom) / (top - bottom)
	return MaxScore * math.Max(0, math.Min(1, t))
}

// GuesserScore is the rounded score actually awarded.
func GuesserScore(distance float64) int {
	return int(math.Round(GuesserScoreContinuous(distance)))
}

// DistanceForGuesserScore inverts the curve by bisection, for visualization
// rings (score -> distance). Not used for scoring itself.
func DistanceForGuesserScore(points float64) float64 {
	target := math.Max(0, math.Min(MaxScore, points))
	if target >= MaxScore {
		return 0
	}
	if target <= 0 {
		return MaxDistance
	}

	low, high := 0.0, float64(MaxDistance)
	for i := 0; i < 28; i++ {
		mid := (low + high) / 2
		if GuesserScoreContinuous(mid) > target {
			low = mid
		} else {
			high = mid
		}
	}
	return (low + high) / 2
}

// PickerScore is half the mean of the guesser scores, rounded; 0 when nobody
// guessed.
func PickerScore(guesserScores []int) int {
	if len(guesserScores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range guesserScores {
		sum += s
	}
	avg := float64(sum) / float64(len(guesserScores))
	return int(math.Round(avg / 2))
}

// RoundResult is one guesser's outcome for a revealed round. Derived on
// demand, never persisted.
type RoundResult struct {
	PlayerID     string      `json:"playerId"`
	GuessedColor color.Color `json:"guessedColor"`
	Distance     float64     `json:"distance"`
	PointsEarned int         `json:"pointsEarned"`
}

// ComputeResults scores every recorded guess against the target, excluding
// the picker's own entry (the picker does not guess). Results are sorted by
// ascending distance, closest guess first.
func ComputeResults(target color.Color, guesses map[string]color.Color, pickerID string) []RoundResult {
	results := make([]RoundResult, 0, len(guesses))
	for playerID, guess := range guesses {
		if playerID == pickerID {
			continue
		}
		dist := color.Distance(guess, target)
		results = append(results, RoundResult{
			PlayerID:     playerID,
			GuessedColor: guess,
			Distance:     dist,
			PointsEarned: GuesserScore(dist),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].PlayerID < results[j].PlayerID
	})
	return results
}
