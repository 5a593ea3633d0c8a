package domain

import (
	"math"
	"math/big"
	"sort"
	"strconv"
)

// RankingParams are the weighting factors fixed when a tournament is created.
type RankingParams struct {
	WinBonusK    float64 `json:"winBonusK"`
	BustPenaltyK float64 `json:"bustPenaltyK"`
	PGKickerK    float64 `json:"pgKickerK"`
}

// ScoreBreakdown reports the rounded terms of a player's final ranking score.
type ScoreBreakdown struct {
	Base        float64 `json:"base"`
	WinBonus    float64 `json:"winBonus"`
	BustPenalty float64 `json:"bustPenalty"`
	PGBonus     float64 `json:"pgBonus"`
	Final       float64 `json:"final"`
}

// RankedPlayer is one line of the tournament leaderboard.
type RankedPlayer struct {
	Position  int                   `json:"position"`
	Stats     TournamentPlayerStats `json:"stats"`
	Breakdown ScoreBreakdown        `json:"breakdown"`
	// Ranked is false for players without games; they always sort last.
	Ranked bool `json:"ranked"`

	finalMilli int64
}

// decimalRat reads v as the shortest decimal that round-trips, so 0.1 is 1/10 exactly.
func decimalRat(v float64) *big.Rat {
	if r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'g', -1, 64)); ok {
		return r
	}
	return new(big.Rat)
}

// thousandths rounds r to an integer count of thousandths, halves away from zero.
func thousandths(r *big.Rat) int64 {
	num := new(big.Int).Mul(r.Num(), big.NewInt(1000))
	num.Abs(num)
	q, m := new(big.Int).QuoRem(num, r.Denom(), new(big.Int))
	if m.Lsh(m, 1).Cmp(r.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}
	return q.Int64()
}

func milliFloat(m int64) float64 {
	return float64(m) / 1000
}

// Round3 rounds the decimal value of v to three places, halves away from zero.
func Round3(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return milliFloat(thousandths(decimalRat(v)))
}

// ScorePlayer computes the finalized ranking score of a single player.
// Lower is better. Players with no games get +Inf and ok=false.
// Terms are computed exactly on the counts so equal scores compare equal.
func ScorePlayer(stats TournamentPlayerStats, params RankingParams) (ScoreBreakdown, float64, bool) {
	b, final, ok := scoreExact(stats, params)
	if !ok {
		return b, math.Inf(1), false
	}
	raw, _ := final.Float64()
	return b, raw, true
}

func scoreExact(stats TournamentPlayerStats, params RankingParams) (ScoreBreakdown, *big.Rat, bool) {
	if stats.GamesPlayed <= 0 {
		return ScoreBreakdown{}, nil, false
	}
	gp := big.NewRat(int64(stats.GamesPlayed), 1)
	perGame := func(k *big.Rat, count int) *big.Rat {
		r := new(big.Rat).Mul(k, big.NewRat(int64(count), 1))
		return r.Quo(r, gp)
	}

	base := new(big.Rat).Quo(decimalRat(stats.SumWeightedPlaces), gp)
	winBonus := perGame(decimalRat(params.WinBonusK), stats.Wins)
	winBonus.Neg(winBonus)
	bustPenalty := perGame(decimalRat(params.BustPenaltyK), stats.Busts)
	pgBonus := perGame(decimalRat(params.PGKickerK), stats.PerfectGames)
	pgBonus.Neg(pgBonus)

	final := new(big.Rat).Add(base, winBonus)
	final.Add(final, bustPenalty)
	final.Add(final, pgBonus)

	return ScoreBreakdown{
		Base:        milliFloat(thousandths(base)),
		WinBonus:    milliFloat(thousandths(winBonus)),
		BustPenalty: milliFloat(thousandths(bustPenalty)),
		PGBonus:     milliFloat(thousandths(pgBonus)),
		Final:       milliFloat(thousandths(final)),
	}, final, true
}

// RankPlayers orders tournament players by final score ascending.
// Ties go to fewer busts, then more wins; remaining ties keep input order.
// Eligibility filtering (minimum games played) is the caller's job.
func RankPlayers(players []TournamentPlayerStats, params RankingParams) []RankedPlayer {
	out := make([]RankedPlayer, 0, len(players))
	for _, p := range players {
		breakdown, final, ok := scoreExact(p, params)
		rp := RankedPlayer{Stats: p, Breakdown: breakdown, Ranked: ok}
		if ok {
			// Compare on the reported three-decimal value.
			rp.finalMilli = thousandths(final)
		}
		out = append(out, rp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ranked != b.Ranked {
			return a.Ranked
		}
		if a.finalMilli != b.finalMilli {
			return a.finalMilli < b.finalMilli
		}
		if a.Stats.Busts != b.Stats.Busts {
			return a.Stats.Busts < b.Stats.Busts
		}
		return a.Stats.Wins > b.Stats.Wins
	})

	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
