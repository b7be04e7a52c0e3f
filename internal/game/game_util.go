package game

import (
	"fmt"
	"math"

	"colornamer/internal/color"
	"colornamer/internal/scoring"
)

// NewState returns a fresh lobby-phase session document.
func NewState(id string, now int64) State {
	return State{
		ID:           id,
		Phase:        PhaseLobby,
		Players:      []Player{},
		Guesses:      map[string]color.Color{},
		LastActivity: now,
	}
}

func clone(s State) State {
	next := s
	next.Players = append([]Player(nil), s.Players...)
	next.Guesses = make(map[string]color.Color, len(s.Guesses))
	for id, c := range s.Guesses {
		next.Guesses[id] = c
	}
	if s.PickedColor != nil {
		c := *s.PickedColor
		next.PickedColor = &c
	}
	if s.Target != nil {
		c := *s.Target
		next.Target = &c
	}
	return next
}

func clearRound(s *State) {
	s.Clue = ""
	s.PickedColor = nil
	s.Target = nil
	s.Guesses = map[string]color.Color{}
}

func findPlayer(s State, id string) (int, bool) {
	for i, p := range s.Players {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// pickerID is the identity of the current picker, or "" for an empty roster.
func pickerID(s State) string {
	if len(s.Players) == 0 || s.PickerIndex >= len(s.Players) {
		return ""
	}
	return s.Players[s.PickerIndex].ID
}

// skipToConnected advances PickerIndex to the next connected player. Returns
// false when nobody is connected; the pointer is left where it was.
func skipToConnected(s *State) bool {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		idx := (s.PickerIndex + step) % n
		if s.Players[idx].Connected {
			s.PickerIndex = idx
			return true
		}
	}
	return false
}

// Results derives the round outcome from a revealed session. Nil until the
// target is set.
func Results(s State) []scoring.RoundResult {
	if s.Target == nil {
		return nil
	}
	return scoring.ComputeResults(*s.Target, s.Guesses, pickerID(s))
}

// AvatarColorFor spreads avatar hues by the golden angle so consecutive
// joiners land far apart on the wheel.
func AvatarColorFor(order int) string {
	hue := int(math.Round(math.Mod(float64(order)*137.508, 360)))
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", hue)
}

func avatarColorFromLab(c color.Color) string {
	r, g, b := color.LabToRGB(c.Lightness, c.A, c.B)
	h, s, l := color.RGBToHSL(r, g, b)
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", int(math.Round(h)), int(math.Round(s*100)), int(math.Round(l*100)))
}

// ContainsEvent reports whether events carries an event of the given type.
func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
