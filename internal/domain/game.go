package domain

import (
	"maps"
	"slices"
	"time"
)

const (
	// MinPlayers is the smallest table a game can be started with.
	MinPlayers = 2
	// MaxPlayers is the largest table a game can be started with.
	MaxPlayers = 4

	// DefaultPenaltyPoints is the fixed amount a penalty adds to a player's score.
	DefaultPenaltyPoints = 10
	// DefaultNearingBustMargin is how close to the target a player must be to be flagged.
	DefaultNearingBustMargin = 10
)

// Player is a participant identity.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerInGame holds the scoring state of one player inside a game.
type PlayerInGame struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentScore int    `json:"currentScore"`
	IsBusted     bool   `json:"isBusted"`
	RoundScores  []int  `json:"roundScores"`
}

// GameRound records the scores submitted for one round.
// Only players that were still in the game at submission time have an entry.
type GameRound struct {
	RoundNumber int            `json:"roundNumber"`
	Scores      map[string]int `json:"scores"`
}

// PenaltyLogEntry is an out-of-band score addition keyed to the round it was applied in.
type PenaltyLogEntry struct {
	PlayerID    string `json:"playerId"`
	RoundNumber int    `json:"roundNumber"`
	Points      int    `json:"points"`
}

// AIGameRecord is one row of the read-only export consumed by collusion analysis.
// PlayerScores is aligned to the game's PlayerOrder.
type AIGameRecord struct {
	RoundNumber  int   `json:"roundNumber"`
	PlayerScores []int `json:"playerScores"`
}

// GameState is the full record of a single French Domino game.
type GameState struct {
	ID                     string            `json:"id"`
	Players                []PlayerInGame    `json:"players"`
	PlayerOrder            []string          `json:"playerOrder"`
	TargetScore            int               `json:"targetScore"`
	Rounds                 []GameRound       `json:"rounds"`
	PenaltyLog             []PenaltyLogEntry `json:"penaltyLog"`
	CurrentRoundNumber     int               `json:"currentRoundNumber"`
	IsActive               bool              `json:"isActive"`
	CreatedAt              time.Time         `json:"createdAt"`
	WinnerID               string            `json:"winnerId,omitempty"`
	AIGameRecords          []AIGameRecord    `json:"aiGameRecords"`
	TournamentID           string            `json:"tournamentId,omitempty"`
	GameNumberInTournament int               `json:"gameNumberInTournament,omitempty"`
}

// Clone returns a deep copy so that operations never mutate their input.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := *g

	out.Players = slices.Clone(g.Players)
	for i := range out.Players {
		out.Players[i].RoundScores = slices.Clone(g.Players[i].RoundScores)
	}
	out.PlayerOrder = slices.Clone(g.PlayerOrder)

	out.Rounds = slices.Clone(g.Rounds)
	for i := range out.Rounds {
		out.Rounds[i].Scores = maps.Clone(g.Rounds[i].Scores)
	}
	out.PenaltyLog = slices.Clone(g.PenaltyLog)

	out.AIGameRecords = slices.Clone(g.AIGameRecords)
	for i := range out.AIGameRecords {
		out.AIGameRecords[i].PlayerScores = slices.Clone(g.AIGameRecords[i].PlayerScores)
	}
	return &out
}

// Player returns the player with the given id.
func (g *GameState) Player(id string) (*PlayerInGame, bool) {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i], true
		}
	}
	return nil, false
}

// ActivePlayers returns the players that have not busted, in seat order.
func (g *GameState) ActivePlayers() []PlayerInGame {
	active := make([]PlayerInGame, 0, len(g.Players))
	for _, p := range g.Players {
		if !p.IsBusted {
			active = append(active, p)
		}
	}
	return active
}

// IsCompleted reports whether the game has ended.
func (g *GameState) IsCompleted() bool {
	return !g.IsActive
}
