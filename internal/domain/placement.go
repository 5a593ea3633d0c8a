package domain

import "sort"

// Placement is a player's finishing position in a completed game.
// Tied players share the average of the positions they span.
type Placement struct {
	PlayerID      string  `json:"playerId"`
	Place         float64 `json:"place"`
	WeightedPlace float64 `json:"weightedPlace"`
	Won           bool    `json:"won"`
	Busted        bool    `json:"busted"`
	Perfect       bool    `json:"perfect"`
}

// WeightedPlace maps a place at a table of n players onto the 1..4 scale,
// so results from 2, 3 and 4 player games average together.
func WeightedPlace(place float64, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 + 3*(place-1)/float64(n-1)
}

// Placements orders the players of a completed game: the winner first, then players
// that busted later, then lower final score.
func Placements(game *GameState) []Placement {
	type standing struct {
		p      PlayerInGame
		winner bool
		rounds int
	}
	rows := make([]standing, 0, len(game.Players))
	for _, p := range game.Players {
		rows = append(rows, standing{p: p, winner: p.ID == game.WinnerID && game.WinnerID != "", rounds: len(p.RoundScores)})
	}

	key := func(a, b standing) int {
		switch {
		case a.winner != b.winner:
			if a.winner {
				return -1
			}
			return 1
		case a.p.IsBusted != b.p.IsBusted:
			if !a.p.IsBusted {
				return -1
			}
			return 1
		case a.rounds != b.rounds:
			if a.rounds > b.rounds {
				return -1
			}
			return 1
		case a.p.CurrentScore != b.p.CurrentScore:
			if a.p.CurrentScore < b.p.CurrentScore {
				return -1
			}
			return 1
		}
		return 0
	}
	sort.SliceStable(rows, func(i, j int) bool { return key(rows[i], rows[j]) < 0 })

	n := len(rows)
	out := make([]Placement, n)
	for start := 0; start < n; {
		end := start
		for end+1 < n && key(rows[start], rows[end+1]) == 0 {
			end++
		}
		place := float64(start+1+end+1) / 2
		for i := start; i <= end; i++ {
			r := rows[i]
			out[i] = Placement{
				PlayerID:      r.p.ID,
				Place:         place,
				WeightedPlace: WeightedPlace(place, n),
				Won:           r.winner,
				Busted:        r.p.IsBusted,
				Perfect:       r.winner && r.p.CurrentScore == 0,
			}
		}
		start = end + 1
	}
	return out
}

// FoldGameResult adds a completed tournament game to the players' statistics.
// A game already recorded in the tournament is not counted twice; folded reports
// whether the result was applied.
func FoldGameResult(t *Tournament, game *GameState) (next *Tournament, folded bool, err error) {
	if game.TournamentID != t.ID {
		return nil, false, invalid("tournamentId", "game %s does not belong to tournament %s", game.ID, t.ID)
	}
	if game.IsActive {
		return nil, false, invalid("game", "game %s is still in progress", game.ID)
	}
	if t.HasGame(game.ID) {
		return t, false, nil
	}
	for _, p := range game.Players {
		if _, ok := t.Player(p.ID); !ok {
			return nil, false, invalid("players", "player %s is not on the tournament roster", p.ID)
		}
	}

	next = t.Clone()
	for _, pl := range Placements(game) {
		stats, _ := next.Player(pl.PlayerID)
		stats.GamesPlayed++
		if pl.Won {
			stats.Wins++
		}
		if pl.Busted {
			stats.Busts++
		}
		if pl.Perfect {
			stats.PerfectGames++
		}
		stats.SumWeightedPlaces += pl.WeightedPlace
	}
	next.GameIDs = append(next.GameIDs, game.ID)
	return next, true, nil
}
