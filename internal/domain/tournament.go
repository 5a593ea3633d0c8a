package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// ParticipationMode controls how tournament players are seated for each game.
type ParticipationMode string

const (
	// ModeFixedRoster seats the whole roster in every game.
	ModeFixedRoster ParticipationMode = "fixed_roster"
	// ModeRotateOnBust keeps survivors seated and rotates waiting players into busted seats.
	ModeRotateOnBust ParticipationMode = "rotate_on_bust"
)

// Valid reports whether m is a known participation mode.
func (m ParticipationMode) Valid() bool {
	return m == ModeFixedRoster || m == ModeRotateOnBust
}

// TournamentPlayerStats accumulates one player's results across tournament games.
type TournamentPlayerStats struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	GamesPlayed       int     `json:"gamesPlayed"`
	Wins              int     `json:"wins"`
	Busts             int     `json:"busts"`
	PerfectGames      int     `json:"perfectGames"`
	SumWeightedPlaces float64 `json:"sumWeightedPlaces"`
}

// Tournament is a sequence of linked games ranked with a fixed set of parameters.
type Tournament struct {
	ID                      string                  `json:"id"`
	Name                    string                  `json:"name"`
	Players                 []TournamentPlayerStats `json:"players"`
	TargetScore             int                     `json:"targetScore"`
	PlayerParticipationMode ParticipationMode       `json:"playerParticipationMode"`
	GameIDs                 []string                `json:"gameIds"`
	// GamesStarted counts every game started, including ones still in progress.
	GamesStarted            int                     `json:"gamesStarted"`
	WinBonusK               float64                 `json:"winBonusK"`
	BustPenaltyK            float64                 `json:"bustPenaltyK"`
	PGKickerK               float64                 `json:"pgKickerK"`
	MinGamesPct             float64                 `json:"minGamesPct"`
	IsActive                bool                    `json:"isActive"`
	CreatedAt               time.Time               `json:"createdAt"`
}

// TournamentSetup is the input for creating a tournament.
type TournamentSetup struct {
	Name         string
	PlayerNames  []string
	Mode         ParticipationMode
	TargetScore  int
	WinBonusK    float64
	BustPenaltyK float64
	PGKickerK    float64
	MinGamesPct  float64
}

// Params returns the ranking weights of the tournament.
func (t *Tournament) Params() RankingParams {
	return RankingParams{WinBonusK: t.WinBonusK, BustPenaltyK: t.BustPenaltyK, PGKickerK: t.PGKickerK}
}

// Player returns the roster entry with the given id.
func (t *Tournament) Player(id string) (*TournamentPlayerStats, bool) {
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i], true
		}
	}
	return nil, false
}

// HasGame reports whether the game's result has already been folded into the tournament.
func (t *Tournament) HasGame(gameID string) bool {
	for _, id := range t.GameIDs {
		if id == gameID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the tournament.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	out := *t
	out.Players = slices.Clone(t.Players)
	out.GameIDs = slices.Clone(t.GameIDs)
	return &out
}

// NewTournament validates the setup and returns a tournament with zeroed player stats.
func NewTournament(setup TournamentSetup) (*Tournament, error) {
	name := strings.TrimSpace(setup.Name)
	if name == "" {
		return nil, invalid("name", "tournament name is required")
	}
	if !setup.Mode.Valid() {
		return nil, invalid("playerParticipationMode", "unknown mode %q", setup.Mode)
	}
	if len(setup.PlayerNames) < MinPlayers {
		return nil, invalid("players", "need at least %d players, got %d", MinPlayers, len(setup.PlayerNames))
	}
	if setup.Mode == ModeFixedRoster && len(setup.PlayerNames) > MaxPlayers {
		return nil, invalid("players", "a fixed roster seats at most %d players, got %d", MaxPlayers, len(setup.PlayerNames))
	}
	if setup.TargetScore <= 0 {
		return nil, invalid("targetScore", "must be positive, got %d", setup.TargetScore)
	}
	if setup.WinBonusK < 0 || setup.BustPenaltyK < 0 || setup.PGKickerK < 0 {
		return nil, invalid("k", "ranking factors must not be negative")
	}
	if setup.MinGamesPct < 0 || setup.MinGamesPct > 1 {
		return nil, invalid("minGamesPct", "must be within [0, 1], got %v", setup.MinGamesPct)
	}

	fold := cases.Fold()
	seen := make(map[string]bool, len(setup.PlayerNames))
	players := make([]TournamentPlayerStats, 0, len(setup.PlayerNames))
	for i, raw := range setup.PlayerNames {
		n := strings.TrimSpace(raw)
		if n == "" {
			return nil, invalid("players", "player %d has an empty name", i+1)
		}
		key := fold.String(n)
		if seen[key] {
			return nil, invalid("players", "player name %q is not unique", n)
		}
		seen[key] = true
		players = append(players, TournamentPlayerStats{ID: uuid.NewString(), Name: n})
	}

	return &Tournament{
		ID:                      uuid.NewString(),
		Name:                    name,
		Players:                 players,
		TargetScore:             setup.TargetScore,
		PlayerParticipationMode: setup.Mode,
		GameIDs:                 []string{},
		WinBonusK:               setup.WinBonusK,
		BustPenaltyK:            setup.BustPenaltyK,
		PGKickerK:               setup.PGKickerK,
		MinGamesPct:             setup.MinGamesPct,
		IsActive:                true,
		CreatedAt:               time.Now().UTC(),
	}, nil
}

// NextLineup picks the players seated in the next tournament game.
// previous is the last completed game of the tournament, or nil for the first game.
func NextLineup(t *Tournament, previous *GameState) []Player {
	if t.PlayerParticipationMode != ModeRotateOnBust {
		return rosterPlayers(t.Players, MaxPlayers)
	}

	seated := make(map[string]bool, MaxPlayers)
	lineup := make([]Player, 0, MaxPlayers)
	if previous != nil {
		for _, p := range previous.Players {
			if p.IsBusted {
				continue
			}
			if stats, ok := t.Player(p.ID); ok {
				lineup = append(lineup, Player{ID: stats.ID, Name: stats.Name})
				seated[stats.ID] = true
			}
		}
	}

	waiting := make([]TournamentPlayerStats, 0, len(t.Players))
	for _, p := range t.Players {
		if !seated[p.ID] {
			waiting = append(waiting, p)
		}
	}
	// Fewest games first, roster order otherwise.
	for len(lineup) < MaxPlayers && len(waiting) > 0 {
		best := 0
		for i := 1; i < len(waiting); i++ {
			if waiting[i].GamesPlayed < waiting[best].GamesPlayed {
				best = i
			}
		}
		lineup = append(lineup, Player{ID: waiting[best].ID, Name: waiting[best].Name})
		waiting = append(waiting[:best], waiting[best+1:]...)
	}
	return lineup
}

func rosterPlayers(stats []TournamentPlayerStats, limit int) []Player {
	out := make([]Player, 0, limit)
	for _, p := range stats {
		if len(out) == limit {
			break
		}
		out = append(out, Player{ID: p.ID, Name: p.Name})
	}
	return out
}
