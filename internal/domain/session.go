package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StartGame creates a new active game for the given player names.
// Each player receives a fresh id; seat order follows the order of names.
func StartGame(names []string, targetScore int) (*GameState, error) {
	players := make([]Player, 0, len(names))
	for _, name := range names {
		players = append(players, Player{ID: uuid.NewString(), Name: name})
	}
	return StartGameWithPlayers(players, targetScore)
}

// StartGameWithPlayers creates a new active game for players whose ids are already known,
// e.g. tournament roster members.
func StartGameWithPlayers(players []Player, targetScore int) (*GameState, error) {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, invalid("players", "need between %d and %d players, got %d", MinPlayers, MaxPlayers, len(players))
	}
	if targetScore <= 0 {
		return nil, invalid("targetScore", "must be positive, got %d", targetScore)
	}

	seen := make(map[string]bool, len(players))
	game := &GameState{
		ID:                 uuid.NewString(),
		Players:            make([]PlayerInGame, 0, len(players)),
		PlayerOrder:        make([]string, 0, len(players)),
		TargetScore:        targetScore,
		Rounds:             []GameRound{},
		PenaltyLog:         []PenaltyLogEntry{},
		CurrentRoundNumber: 1,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
		AIGameRecords:      []AIGameRecord{},
	}
	for i, p := range players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, invalid("players", "player %d has an empty name", i+1)
		}
		if p.ID == "" || seen[p.ID] {
			return nil, invalid("players", "player %d has a missing or duplicate id", i+1)
		}
		seen[p.ID] = true
		game.Players = append(game.Players, PlayerInGame{
			ID:          p.ID,
			Name:        name,
			RoundScores: []int{},
		})
		game.PlayerOrder = append(game.PlayerOrder, p.ID)
	}
	return game, nil
}

// SubmitRoundScores applies one round of scores and returns the next game state.
// scores must hold exactly one non-negative entry per player that has not busted.
// The input state is never modified.
func SubmitRoundScores(game *GameState, scores map[string]int) (*GameState, error) {
	if !game.IsActive {
		return nil, blocked(RuleGameCompleted, "")
	}

	for id := range scores {
		p, ok := game.Player(id)
		if !ok {
			return nil, invalid("scores", "unknown player %q", id)
		}
		if p.IsBusted {
			return nil, invalid("scores", "player %q is busted and takes no further scores", id)
		}
	}
	for _, p := range game.Players {
		if p.IsBusted {
			continue
		}
		s, ok := scores[p.ID]
		if !ok {
			return nil, invalid("scores", "missing score for %s", p.Name)
		}
		if s < 0 {
			return nil, invalid("scores", "score for %s must not be negative", p.Name)
		}
	}

	next := game.Clone()
	round := GameRound{RoundNumber: next.CurrentRoundNumber, Scores: make(map[string]int, len(scores))}
	for i := range next.Players {
		p := &next.Players[i]
		if p.IsBusted {
			continue
		}
		s := scores[p.ID]
		p.CurrentScore += s
		p.RoundScores = append(p.RoundScores, s)
		p.IsBusted = p.CurrentScore >= next.TargetScore
		round.Scores[p.ID] = s
	}
	next.Rounds = append(next.Rounds, round)

	record := AIGameRecord{RoundNumber: round.RoundNumber, PlayerScores: make([]int, len(next.PlayerOrder))}
	for i, id := range next.PlayerOrder {
		// Players busted before this round have no entry and contribute 0.
		record.PlayerScores[i] = round.Scores[id]
	}
	next.AIGameRecords = append(next.AIGameRecords, record)
	next.CurrentRoundNumber++

	active := next.ActivePlayers()
	if len(active) <= 1 && len(next.Players) > 1 {
		next.IsActive = false
		if len(active) == 1 {
			next.WinnerID = active[0].ID
		}
	}
	return next, nil
}

// ApplyPenalty adds points to a single player outside the round flow.
// A penalty may never bust a player: when it would, the call is blocked and nothing changes.
func ApplyPenalty(game *GameState, playerID string, points int) (*GameState, error) {
	if points <= 0 {
		return nil, invalid("points", "must be positive, got %d", points)
	}
	p, ok := game.Player(playerID)
	if !ok {
		return nil, invalid("playerId", "unknown player %q", playerID)
	}
	if !game.IsActive {
		return nil, blocked(RuleGameCompleted, playerID)
	}
	if p.IsBusted {
		return nil, blocked(RulePlayerBusted, playerID)
	}
	if p.CurrentScore+points >= game.TargetScore {
		return nil, blocked(RulePenaltyWouldBust, playerID)
	}

	next := game.Clone()
	np, _ := next.Player(playerID)
	np.CurrentScore += points
	next.PenaltyLog = append(next.PenaltyLog, PenaltyLogEntry{
		PlayerID:    playerID,
		RoundNumber: next.CurrentRoundNumber,
		Points:      points,
	})
	return next, nil
}

// ShufflePlayer returns the player holding the strictly highest score.
// There is no shuffle player when the top score is shared.
func ShufflePlayer(game *GameState) (PlayerInGame, bool) {
	var top PlayerInGame
	found, tied := false, false
	for _, p := range game.Players {
		switch {
		case !found || p.CurrentScore > top.CurrentScore:
			top, found, tied = p, true, false
		case p.CurrentScore == top.CurrentScore:
			tied = true
		}
	}
	if !found || tied {
		return PlayerInGame{}, false
	}
	return top, true
}

// NearingBust returns the active players within margin points below the target.
func NearingBust(game *GameState, margin int) []PlayerInGame {
	var out []PlayerInGame
	for _, p := range game.Players {
		if p.IsBusted {
			continue
		}
		if p.CurrentScore < game.TargetScore && p.CurrentScore >= game.TargetScore-margin {
			out = append(out, p)
		}
	}
	return out
}

// Winner returns the player matching the game's winner id.
func Winner(game *GameState) (PlayerInGame, bool) {
	if game.WinnerID == "" {
		return PlayerInGame{}, false
	}
	p, ok := game.Player(game.WinnerID)
	if !ok {
		return PlayerInGame{}, false
	}
	return *p, true
}

// IsPerfectGame reports whether the game was won with a final score of exactly zero.
func IsPerfectGame(game *GameState) bool {
	w, ok := Winner(game)
	return ok && w.CurrentScore == 0
}
