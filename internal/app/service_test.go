package app

import (
	"context"
	"errors"
	"testing"

	"frenchdomino/internal/domain"
)

func TestStartGameUsesDefaultTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	game, evs, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, nil)
	if err != nil {
		t.Fatalf("start game error: %v", err)
	}
	if game.TargetScore != 100 {
		t.Fatalf("target = %d, want 100", game.TargetScore)
	}
	if countEvents(evs, EventGameStarted) != 1 {
		t.Fatalf("events = %+v", evs)
	}

	games, next, err := svc.ListActiveGames(ctx, "")
	if err != nil || next != "" || len(games) != 1 || games[0].ID != game.ID {
		t.Fatalf("ListActiveGames() = %v, %v", games, err)
	}
}

func TestStartGameRejectsSinglePlayer(t *testing.T) {
	svc, store := newTestService(t)
	if _, _, err := svc.StartGame(context.Background(), []string{"Solo"}, intPtr(100)); !domain.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(store.data) != 0 {
		t.Fatalf("store written on rejected start: %v", store.data)
	}
}

func TestStartGameRejectsNonPositiveTarget(t *testing.T) {
	svc, store := newTestService(t)
	for _, target := range []int{0, -5} {
		if _, _, err := svc.StartGame(context.Background(), []string{"Ann", "Ben"}, intPtr(target)); !domain.IsValidation(err) {
			t.Fatalf("target %d: error = %v, want ValidationError", target, err)
		}
	}
	if len(store.data) != 0 {
		t.Fatalf("store written on rejected start: %v", store.data)
	}
}

func TestListActiveGamesPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < MaxListedRecords+1; i++ {
		if _, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, nil); err != nil {
			t.Fatal(err)
		}
	}

	first, next, err := svc.ListActiveGames(ctx, "")
	if err != nil || len(first) != MaxListedRecords || next != "100" {
		t.Fatalf("first page = %d games, cursor %q, err %v", len(first), next, err)
	}
	second, next, err := svc.ListActiveGames(ctx, next)
	if err != nil || len(second) != 1 || next != "" {
		t.Fatalf("second page = %d games, cursor %q, err %v", len(second), next, err)
	}
	if second[0].ID == first[0].ID {
		t.Fatalf("pages overlap")
	}

	for _, cursor := range []string{"abc", "-1", "500"} {
		if _, _, err := svc.ListActiveGames(ctx, cursor); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: error = %v, want ErrInvalidCursor", cursor, err)
		}
	}
}

func TestSubmitRoundCompletesGame(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(50))
	if err != nil {
		t.Fatal(err)
	}
	ann, ben := game.Players[0].ID, game.Players[1].ID

	next, evs, err := svc.SubmitRound(ctx, game.ID, map[string]int{ann: 10, ben: 20})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if !next.IsActive || countEvents(evs, EventRoundSubmitted) != 1 || countEvents(evs, EventPlayerBusted) != 0 {
		t.Fatalf("unexpected result: active=%v events=%+v", next.IsActive, evs)
	}

	next, evs, err = svc.SubmitRound(ctx, game.ID, map[string]int{ann: 5, ben: 40})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if next.IsActive || next.WinnerID != ann {
		t.Fatalf("game not completed for %s: %+v", ann, next)
	}
	if countEvents(evs, EventPlayerBusted) != 1 || countEvents(evs, EventGameCompleted) != 1 {
		t.Fatalf("events = %+v", evs)
	}

	games, _, _ := svc.ListActiveGames(ctx, "")
	if len(games) != 0 {
		t.Fatalf("completed game still listed: %d", len(games))
	}

	_, _, err = svc.SubmitRound(ctx, game.ID, map[string]int{ann: 0})
	if b, ok := domain.AsBlocked(err); !ok || b.Rule != domain.RuleGameCompleted {
		t.Fatalf("submit after completion error = %v, want game_completed", err)
	}
}

func TestSubmitRoundValidationLeavesStateUnchanged(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(50))
	if err != nil {
		t.Fatal(err)
	}
	before := string(store.data[gameKey(game.ID)])

	_, _, err = svc.SubmitRound(ctx, game.ID, map[string]int{game.Players[0].ID: -1, game.Players[1].ID: 3})
	if !domain.IsValidation(err) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if string(store.data[gameKey(game.ID)]) != before {
		t.Fatal("stored game changed after rejected submit")
	}
}

func TestSubmitRoundUnknownGame(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.SubmitRound(context.Background(), "nope", map[string]int{}); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("error = %v, want ErrGameNotFound", err)
	}
}

func TestApplyPenalty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(15))
	if err != nil {
		t.Fatal(err)
	}
	ann := game.Players[0].ID

	next, evs, err := svc.ApplyPenalty(ctx, game.ID, ann)
	if err != nil {
		t.Fatalf("penalty error: %v", err)
	}
	if p, _ := next.Player(ann); p.CurrentScore != 10 {
		t.Fatalf("score = %d, want 10", p.CurrentScore)
	}
	if next.CurrentRoundNumber != 1 || countEvents(evs, EventPenaltyApplied) != 1 {
		t.Fatalf("penalty consumed a round or missed event: %+v", next)
	}

	_, _, err = svc.ApplyPenalty(ctx, game.ID, ann)
	if b, ok := domain.AsBlocked(err); !ok || b.Rule != domain.RulePenaltyWouldBust {
		t.Fatalf("second penalty error = %v, want penalty_would_bust", err)
	}

	ledger, err := svc.GetLedger(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ledger.Totals()[ann] != 10 {
		t.Fatalf("ledger total = %d, want 10", ledger.Totals()[ann])
	}
}

func TestGetGameView(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(100))
	if err != nil {
		t.Fatal(err)
	}
	ann, ben := game.Players[0].ID, game.Players[1].ID
	if _, _, err := svc.SubmitRound(ctx, game.ID, map[string]int{ann: 92, ben: 30}); err != nil {
		t.Fatal(err)
	}

	view, err := svc.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.ShufflePlayerID != ann {
		t.Fatalf("shuffle player = %q, want %q", view.ShufflePlayerID, ann)
	}
	if len(view.NearingBust) != 1 || view.NearingBust[0].ID != ann {
		t.Fatalf("nearing bust = %+v", view.NearingBust)
	}
	if view.Winner != nil {
		t.Fatalf("winner on active game: %+v", view.Winner)
	}
}

func TestTournamentFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	target := 50

	tour, _, err := svc.CreateTournament(ctx, CreateTournamentInput{
		Name:        "Friday",
		PlayerNames: []string{"Ann", "Ben", "Cat"},
		TargetScore: &target,
	})
	if err != nil {
		t.Fatalf("create tournament error: %v", err)
	}
	if tour.PlayerParticipationMode != domain.ModeFixedRoster || tour.WinBonusK != 0.5 {
		t.Fatalf("defaults not applied: %+v", tour)
	}

	game, _, err := svc.StartTournamentGame(ctx, tour.ID)
	if err != nil {
		t.Fatalf("start tournament game error: %v", err)
	}
	if game.TournamentID != tour.ID || game.GameNumberInTournament != 1 || game.TargetScore != 50 {
		t.Fatalf("unexpected game: %+v", game)
	}

	scores := map[string]int{}
	for i, p := range game.Players {
		scores[p.ID] = i * 60
	}
	_, evs, err := svc.SubmitRound(ctx, game.ID, scores)
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	if countEvents(evs, EventTournamentUpdated) != 1 {
		t.Fatalf("events = %+v", evs)
	}

	got, err := svc.GetTournament(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.GameIDs) != 1 || got.GameIDs[0] != game.ID {
		t.Fatalf("GameIDs = %v", got.GameIDs)
	}

	standings, err := svc.TournamentStandings(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings.Ranking) != 3 || standings.Ranking[0].Stats.ID != game.Players[0].ID {
		t.Fatalf("standings = %+v", standings.Ranking)
	}
	if standings.Ranking[0].Stats.PerfectGames != 1 {
		t.Fatalf("perfect game not counted: %+v", standings.Ranking[0].Stats)
	}

	ended, evs, err := svc.EndTournament(ctx, tour.ID)
	if err != nil || ended.IsActive || countEvents(evs, EventTournamentEnded) != 1 {
		t.Fatalf("EndTournament() = %+v, %+v, %v", ended, evs, err)
	}
	list, _, _ := svc.ListActiveTournaments(ctx, "")
	if len(list) != 0 {
		t.Fatalf("ended tournament still listed")
	}

	_, _, err = svc.StartTournamentGame(ctx, tour.ID)
	if b, ok := domain.AsBlocked(err); !ok || b.Rule != domain.RuleTournamentClosed {
		t.Fatalf("start after end error = %v, want tournament_closed", err)
	}
}

func TestTournamentGameNumbersCountUnfinishedGames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tour, _, err := svc.CreateTournament(ctx, CreateTournamentInput{Name: "T", PlayerNames: []string{"Ann", "Ben"}})
	if err != nil {
		t.Fatal(err)
	}

	for want := 1; want <= 2; want++ {
		game, _, err := svc.StartTournamentGame(ctx, tour.ID)
		if err != nil {
			t.Fatal(err)
		}
		if game.GameNumberInTournament != want {
			t.Fatalf("game number = %d, want %d", game.GameNumberInTournament, want)
		}
	}
	got, err := svc.GetTournament(ctx, tour.ID)
	if err != nil || got.GamesStarted != 2 || len(got.GameIDs) != 0 {
		t.Fatalf("tournament = %+v, %v", got, err)
	}
}

func TestSubmitRoundFoldFailureKeepsCompletedGame(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	tour, _, err := svc.CreateTournament(ctx, CreateTournamentInput{Name: "T", PlayerNames: []string{"Ann", "Ben"}})
	if err != nil {
		t.Fatal(err)
	}
	game, _, err := svc.StartTournamentGame(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	store.data[tournamentKey(tour.ID)] = []byte(`{"id": "` + tour.ID + `", "name": "T", "players": []}`)

	done, evs, err := svc.SubmitRound(ctx, game.ID, map[string]int{game.Players[0].ID: 0, game.Players[1].ID: 150})
	if !errors.Is(err, ErrTournamentFold) || domain.IsValidation(err) {
		t.Fatalf("error = %v, want ErrTournamentFold", err)
	}
	if done == nil || done.IsActive || countEvents(evs, EventGameCompleted) != 1 {
		t.Fatalf("game = %+v, events = %+v", done, evs)
	}
	stored, err := svc.GetGame(ctx, game.ID)
	if err != nil || stored.Game.IsActive || stored.Game.WinnerID != game.Players[0].ID {
		t.Fatalf("stored game = %+v, %v", stored.Game, err)
	}
}

func TestTournamentStandingsEligibility(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	store.data["tournament/t"] = []byte(`{
		"id": "t", "name": "T", "minGamesPct": 0.5,
		"gameIds": ["g1", "g2", "g3"],
		"players": [
			{"id": "a", "name": "A", "gamesPlayed": 3, "wins": 2, "sumWeightedPlaces": 5},
			{"id": "b", "name": "B", "gamesPlayed": 2, "wins": 1, "sumWeightedPlaces": 5},
			{"id": "c", "name": "C", "gamesPlayed": 1, "wins": 0, "sumWeightedPlaces": 4}
		]}`)

	standings, err := svc.TournamentStandings(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if standings.MinGames != 2 {
		t.Fatalf("MinGames = %d, want 2", standings.MinGames)
	}
	if len(standings.Ranking) != 2 || len(standings.Ineligible) != 1 || standings.Ineligible[0].ID != "c" {
		t.Fatalf("standings = %+v", standings)
	}
}

func TestMinGamesRequired(t *testing.T) {
	tests := []struct {
		pct   float64
		games int
		want  int
	}{
		{0, 10, 0},
		{0.5, 3, 2},
		{0.3, 10, 3},
		{1, 4, 4},
	}
	for _, tt := range tests {
		if got := MinGamesRequired(tt.pct, tt.games); got != tt.want {
			t.Fatalf("MinGamesRequired(%v, %d) = %d, want %d", tt.pct, tt.games, got, tt.want)
		}
	}
}

func TestAnalysisExportWithToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(100))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SubmitRound(ctx, game.ID, map[string]int{game.Players[0].ID: 4, game.Players[1].ID: 9}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.IssueAnalysisToken(ctx, "missing"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("token for missing game error = %v", err)
	}
	token, err := svc.IssueAnalysisToken(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	export, err := svc.ExportWithToken(ctx, token)
	if err != nil {
		t.Fatalf("export error: %v", err)
	}
	if export.GameID != game.ID || len(export.Records) != 1 {
		t.Fatalf("export = %+v", export)
	}
	if rec := export.Records[0].PlayerScores; rec[0] != 4 || rec[1] != 9 {
		t.Fatalf("record = %v, want [4 9]", rec)
	}
}

func TestSubmitRoundStoreFailure(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	game, _, err := svc.StartGame(ctx, []string{"Ann", "Ben"}, intPtr(100))
	if err != nil {
		t.Fatal(err)
	}
	store.failSet = errStoreDown
	_, _, err = svc.SubmitRound(ctx, game.ID, map[string]int{game.Players[0].ID: 1, game.Players[1].ID: 2})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("error = %v, want store failure", err)
	}
}
