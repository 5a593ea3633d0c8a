package app

import (
	"strconv"

	"frenchdomino/internal/domain"
)

// EventKind identifies emitted domain events for Nakama dispatch.
type EventKind string

const (
	EventGameStarted       EventKind = "game_started"
	EventRoundSubmitted    EventKind = "round_submitted"
	EventPenaltyApplied    EventKind = "penalty_applied"
	EventPlayerBusted      EventKind = "player_busted"
	EventGameCompleted     EventKind = "game_completed"
	EventTournamentCreated EventKind = "tournament_created"
	EventTournamentUpdated EventKind = "tournament_updated"
	EventTournamentEnded   EventKind = "tournament_ended"
)

// Event is an app event. Properties are flat strings so any sink can carry them.
type Event struct {
	Kind       EventKind
	Properties map[string]string
}

func gameEvent(kind EventKind, game *domain.GameState, extra ...string) Event {
	props := map[string]string{
		"game_id": game.ID,
		"round":   strconv.Itoa(game.CurrentRoundNumber),
	}
	if game.TournamentID != "" {
		props["tournament_id"] = game.TournamentID
	}
	for i := 0; i+1 < len(extra); i += 2 {
		props[extra[i]] = extra[i+1]
	}
	return Event{Kind: kind, Properties: props}
}

func tournamentEvent(kind EventKind, t *domain.Tournament) Event {
	return Event{Kind: kind, Properties: map[string]string{
		"tournament_id": t.ID,
		"games":         strconv.Itoa(len(t.GameIDs)),
	}}
}

// bustEvents reports players busted by the transition from before to after.
func bustEvents(before, after *domain.GameState) []Event {
	var out []Event
	for _, p := range after.Players {
		prev, ok := before.Player(p.ID)
		if p.IsBusted && ok && !prev.IsBusted {
			out = append(out, gameEvent(EventPlayerBusted, after,
				"player_id", p.ID,
				"score", strconv.Itoa(p.CurrentScore)))
		}
	}
	return out
}
