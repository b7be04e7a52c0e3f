package game

import (
	"colornamer/internal/color"
	"colornamer/internal/scoring"
)

// Apply validates cmd against s and returns the resulting events and state.
// s is never mutated; the returned state is a deep copy. Duplicate client
// messages are safe: resubmitting a guess overwrites the prior one, and a
// reveal that already happened is a no-op.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd)
	case CmdLeave:
		return applyLeave(s, cmd)
	case CmdStart:
		return applyStart(s, cmd)
	case CmdSetColor:
		return applySetColor(s, cmd)
	case CmdSubmitGuess:
		return applySubmitGuess(s, cmd)
	case CmdNextRound:
		return applyNextRound(s, cmd)
	case CmdReconnect:
		return applyReconnect(s, cmd)
	case CmdHeartbeat:
		return applyHeartbeat(s, cmd)
	case CmdDisconnect:
		return applyDisconnect(s, cmd)
	case CmdSweepIdle:
		return applySweepIdle(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyJoin(s State, cmd Command) ([]Event, State, error) {
	// A known id joining again is a reconnect, not a duplicate.
	if _, ok := findPlayer(s, cmd.PlayerID); ok {
		return applyReconnect(s, cmd)
	}
	if s.Phase != PhaseLobby {
		return nil, s, ErrGameStarted
	}
	if cmd.Name == "" {
		return nil, s, ErrMissingName
	}

	next := clone(s)
	order := len(next.Players)
	next.Players = append(next.Players, Player{
		ID:          cmd.PlayerID,
		Name:        cmd.Name,
		AvatarColor: AvatarColorFor(order),
		Order:       order,
		Connected:   true,
		LastSeen:    cmd.Now,
	})
	if next.HostID == "" {
		next.HostID = cmd.PlayerID
	}
	next.LastActivity = cmd.Now

	return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID}}, next, nil
}

func applyLeave(s State, cmd Command) ([]Event, State, error) {
	idx, ok := findPlayer(s, cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	next := clone(s)
	wasPicker := idx == next.PickerIndex
	next.Players = append(next.Players[:idx], next.Players[idx+1:]...)
	delete(next.Guesses, cmd.PlayerID)

	// Keep the pointer on the same logical turn: entries before it shift down
	// by one, and removing the picker itself leaves the pointer on whoever
	// came next.
	if idx < next.PickerIndex {
		next.PickerIndex--
	}
	if len(next.Players) > 0 && next.PickerIndex >= len(next.Players) {
		next.PickerIndex = 0
	}
	if next.HostID == cmd.PlayerID && len(next.Players) > 0 {
		next.HostID = next.Players[0].ID
	}
	next.LastActivity = cmd.Now

	events := []Event{{Type: EvtPlayerLeft, PlayerID: cmd.PlayerID}}
	if len(next.Players) == 0 {
		next.PickerIndex = 0
		next.HostID = ""
		return append(events, Event{Type: EvtSessionEmptied}), next, nil
	}
	// Removal already handed the turn to whoever came next; skip onward only
	// when that player is gone too.
	if wasPicker && (next.Phase == PhasePicking || next.Phase == PhaseGuessing) &&
		!next.Players[next.PickerIndex].Connected {
		if skipToConnected(&next) {
			events = append(events, Event{Type: EvtTurnSkipped, PlayerID: cmd.PlayerID})
		}
	}
	if next.Phase == PhaseGuessing {
		events = append(events, maybeReveal(&next)...)
	}
	return events, next, nil
}

func applyStart(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseLobby {
		return nil, s, ErrWrongPhase
	}
	if cmd.PlayerID != s.HostID {
		return nil, s, ErrNotHost
	}
	if len(s.Players) < 2 {
		return nil, s, ErrNeedMorePlayers
	}

	next := clone(s)
	next.Phase = PhasePicking
	next.PickerIndex = 0
	next.RoundNumber = 1
	next.RoundSeed = cmd.Seed
	clearRound(&next)
	next.LastActivity = cmd.Now

	return []Event{{Type: EvtGameStarted, PlayerID: cmd.PlayerID}}, next, nil
}

func applySetColor(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhasePicking {
		return nil, s, ErrWrongPhase
	}
	if cmd.PlayerID != pickerID(s) {
		return nil, s, ErrNotPicker
	}
	if cmd.Color == nil {
		return nil, s, ErrMissingColor
	}
	if !cmd.Color.InRange() {
		return nil, s, ErrColorOutOfRange
	}

	next := clone(s)
	c := *cmd.Color
	next.PickedColor = &c
	next.LastActivity = cmd.Now

	// A bare color is just the picker saving progress; the clue is what
	// commits the round and opens guessing.
	if cmd.Clue == "" {
		return []Event{{Type: EvtColorPicked, PlayerID: cmd.PlayerID}}, next, nil
	}

	next.Clue = cmd.Clue
	next.Phase = PhaseGuessing
	next.Guesses = map[string]color.Color{}
	next.Target = nil
	return []Event{{Type: EvtClueGiven, PlayerID: cmd.PlayerID}}, next, nil
}

func applySubmitGuess(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseGuessing {
		return nil, s, ErrWrongPhase
	}
	if _, ok := findPlayer(s, cmd.PlayerID); !ok {
		return nil, s, ErrUnknownPlayer
	}
	if cmd.PlayerID == pickerID(s) {
		return nil, s, ErrPickerCannotGuess
	}
	if cmd.Color == nil {
		return nil, s, ErrMissingColor
	}
	if !cmd.Color.InRange() {
		return nil, s, ErrColorOutOfRange
	}

	next := clone(s)
	next.Guesses[cmd.PlayerID] = *cmd.Color
	next.LastActivity = cmd.Now

	events := []Event{{Type: EvtGuessRecorded, PlayerID: cmd.PlayerID}}
	events = append(events, maybeReveal(&next)...)
	return events, next, nil
}

func applyNextRound(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseReveal {
		return nil, s, ErrWrongPhase
	}
	if cmd.PlayerID != s.HostID {
		return nil, s, ErrNotHost
	}

	next := clone(s)
	next.PickerIndex = (next.PickerIndex + 1) % len(next.Players)
	next.RoundNumber++
	next.RoundSeed = cmd.Seed
	next.Phase = PhasePicking
	clearRound(&next)
	next.LastActivity = cmd.Now

	events := []Event{{Type: EvtRoundAdvanced, PlayerID: cmd.PlayerID}}
	// The rotation can land on someone who dropped earlier; hand the turn to
	// the next connected player instead of stalling the round.
	if !next.Players[next.PickerIndex].Connected {
		skipped := pickerID(next)
		if skipToConnected(&next) {
			events = append(events, Event{Type: EvtTurnSkipped, PlayerID: skipped})
		}
	}
	return events, next, nil
}

func applyReconnect(s State, cmd Command) ([]Event, State, error) {
	idx, ok := findPlayer(s, cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	next := clone(s)
	p := &next.Players[idx]
	p.Connected = true
	p.LastSeen = cmd.Now
	if cmd.Name != "" {
		p.Name = cmd.Name
	}
	if cmd.Color != nil && cmd.Color.InRange() {
		p.AvatarColor = avatarColorFromLab(*cmd.Color)
	}
	next.LastActivity = cmd.Now

	return []Event{{Type: EvtPlayerReconnected, PlayerID: cmd.PlayerID}}, next, nil
}

func applyHeartbeat(s State, cmd Command) ([]Event, State, error) {
	idx, ok := findPlayer(s, cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	next := clone(s)
	next.Players[idx].LastSeen = cmd.Now
	next.LastActivity = cmd.Now
	// No events: heartbeats are liveness bookkeeping, not something to fan out.
	return nil, next, nil
}

func applyDisconnect(s State, cmd Command) ([]Event, State, error) {
	idx, ok := findPlayer(s, cmd.PlayerID)
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	next := clone(s)
	next.Players[idx].Connected = false
	next.LastActivity = cmd.Now

	events := []Event{{Type: EvtPlayerDisconnected, PlayerID: cmd.PlayerID}}
	events = append(events, afterDisconnect(&next, cmd.PlayerID)...)
	return events, next, nil
}

func applySweepIdle(s State, cmd Command) ([]Event, State, error) {
	next := clone(s)
	var events []Event
	for i := range next.Players {
		p := &next.Players[i]
		if p.Connected && p.LastSeen < cmd.IdleCutoff {
			p.Connected = false
			events = append(events, Event{Type: EvtPlayerDisconnected, PlayerID: p.ID})
			events = append(events, afterDisconnect(&next, p.ID)...)
		}
	}
	// Deliberately no LastActivity refresh: a sweep must not keep an idle
	// session alive.
	return events, next, nil
}

// afterDisconnect handles the side-channel turn skip: a player who drops
// while holding the active picker turn forfeits it to the next connected
// player, without otherwise changing phase. During guessing the reveal gate
// is re-checked so a vanished guesser cannot stall the round.
func afterDisconnect(s *State, playerID string) []Event {
	var events []Event
	if pickerID(*s) == playerID && (s.Phase == PhasePicking || s.Phase == PhaseGuessing) {
		if skipToConnected(s) {
			events = append(events, Event{Type: EvtTurnSkipped, PlayerID: playerID})
		}
	}
	if s.Phase == PhaseGuessing {
		events = append(events, maybeReveal(s)...)
	}
	return events
}

// maybeReveal transitions guessing -> reveal the instant every non-picker who
// can still act has a recorded guess, applying score deltas atomically with
// the transition. Already-revealed states are left alone.
func maybeReveal(s *State) []Event {
	if s.Phase != PhaseGuessing || !allGuessed(*s) {
		return nil
	}
	if s.PickedColor == nil {
		return nil
	}

	target := *s.PickedColor
	picker := pickerID(*s)
	results := scoring.ComputeResults(target, s.Guesses, picker)

	guessScores := make([]int, 0, len(results))
	for _, r := range results {
		guessScores = append(guessScores, r.PointsEarned)
		if idx, ok := findPlayer(*s, r.PlayerID); ok {
			s.Players[idx].Score += r.PointsEarned
		}
	}
	if idx, ok := findPlayer(*s, picker); ok {
		s.Players[idx].Score += scoring.PickerScore(guessScores)
	}

	s.Target = &target
	s.Phase = PhaseReveal
	return []Event{{Type: EvtRoundRevealed}}
}

// allGuessed reports whether the reveal gate is open: at least one guess is
// recorded, and every non-picker is accounted for, either by a guess or by
// being disconnected. Exclusion is by current-picker identity, never by list
// position.
func allGuessed(s State) bool {
	if len(s.Guesses) == 0 {
		return false
	}
	picker := pickerID(s)
	for _, p := range s.Players {
		if p.ID == picker {
			continue
		}
		if _, guessed := s.Guesses[p.ID]; guessed {
			continue
		}
		if p.Connected {
			return false
		}
	}
	return true
}
