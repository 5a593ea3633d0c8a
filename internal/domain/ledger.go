package domain

import "sort"

// LedgerCell is one player's line for one period of the ledger.
type LedgerCell struct {
	PlayerID      string `json:"playerId"`
	RoundScore    int    `json:"roundScore"`
	HasRoundScore bool   `json:"hasRoundScore"`
	Penalty       int    `json:"penalty"`
	Cumulative    int    `json:"cumulative"`
	// Display is Cumulative capped at the target score for players that busted.
	Display int `json:"display"`
}

// LedgerPeriod groups every score movement recorded against one round number.
type LedgerPeriod struct {
	RoundNumber int          `json:"roundNumber"`
	Cells       []LedgerCell `json:"cells"`
}

// Ledger is the chronological cumulative-score table of a game.
type Ledger struct {
	GameID      string         `json:"gameId"`
	TargetScore int            `json:"targetScore"`
	PlayerOrder []string       `json:"playerOrder"`
	Periods     []LedgerPeriod `json:"periods"`
}

// BuildLedger reconstructs the per-period cumulative scores from rounds and the penalty log alone.
// It holds no state and can be recomputed at any time.
func BuildLedger(game *GameState) Ledger {
	order := game.PlayerOrder
	if len(order) == 0 {
		for _, p := range game.Players {
			order = append(order, p.ID)
		}
	}

	busted := make(map[string]bool, len(game.Players))
	for _, p := range game.Players {
		busted[p.ID] = p.IsBusted
	}

	roundsByNumber := make(map[int]GameRound, len(game.Rounds))
	penalties := make(map[int]map[string]int)
	periodSet := make(map[int]struct{})
	for _, r := range game.Rounds {
		roundsByNumber[r.RoundNumber] = r
		periodSet[r.RoundNumber] = struct{}{}
	}
	for _, e := range game.PenaltyLog {
		if penalties[e.RoundNumber] == nil {
			penalties[e.RoundNumber] = make(map[string]int)
		}
		penalties[e.RoundNumber][e.PlayerID] += e.Points
		periodSet[e.RoundNumber] = struct{}{}
	}

	periods := make([]int, 0, len(periodSet))
	for n := range periodSet {
		periods = append(periods, n)
	}
	sort.Ints(periods)

	ledger := Ledger{
		GameID:      game.ID,
		TargetScore: game.TargetScore,
		PlayerOrder: append([]string(nil), order...),
		Periods:     make([]LedgerPeriod, 0, len(periods)),
	}
	running := make(map[string]int, len(order))
	for _, n := range periods {
		period := LedgerPeriod{RoundNumber: n, Cells: make([]LedgerCell, 0, len(order))}
		round, hasRound := roundsByNumber[n]
		for _, id := range order {
			cell := LedgerCell{PlayerID: id}
			if hasRound {
				if s, ok := round.Scores[id]; ok {
					cell.RoundScore = s
					cell.HasRoundScore = true
					running[id] += s
				}
			}
			cell.Penalty = penalties[n][id]
			running[id] += cell.Penalty
			cell.Cumulative = running[id]
			cell.Display = cell.Cumulative
			if busted[id] && cell.Display > game.TargetScore {
				cell.Display = game.TargetScore
			}
			period.Cells = append(period.Cells, cell)
		}
		ledger.Periods = append(ledger.Periods, period)
	}
	return ledger
}

// Totals folds the ledger into each player's final raw cumulative score.
func (l Ledger) Totals() map[string]int {
	totals := make(map[string]int, len(l.PlayerOrder))
	for _, id := range l.PlayerOrder {
		totals[id] = 0
	}
	if len(l.Periods) == 0 {
		return totals
	}
	for _, c := range l.Periods[len(l.Periods)-1].Cells {
		totals[c.PlayerID] = c.Cumulative
	}
	return totals
}
