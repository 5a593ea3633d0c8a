package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"frenchdomino/internal/config"
	"frenchdomino/internal/domain"
	"frenchdomino/internal/ports"
)

// Service contains the French Domino use-cases: it loads records, runs the
// domain operation, persists the result and reports the events to publish.
type Service struct {
	repo   *Repository
	cfg    config.EngineConfig
	tokens *AnalysisTokenService
}

// NewService constructs a Service over the given store.
func NewService(store ports.Store, cfg config.EngineConfig) *Service {
	return &Service{
		repo:   NewRepository(store, cfg),
		cfg:    cfg,
		tokens: NewAnalysisTokenService(cfg.AnalysisSecret, cfg.AnalysisIssuer, cfg.AnalysisTokenTTL()),
	}
}

// Repository exposes the underlying repository.
func (s *Service) Repository() *Repository { return s.repo }

// GameView is a game plus the derived queries a scoreboard needs.
type GameView struct {
	Game            *domain.GameState     `json:"game"`
	ShufflePlayerID string                `json:"shufflePlayerId,omitempty"`
	NearingBust     []domain.PlayerInGame `json:"nearingBust"`
	Winner          *domain.PlayerInGame  `json:"winner,omitempty"`
	PerfectGame     bool                  `json:"perfectGame"`
}

// ViewGame derives the scoreboard queries for game.
func (s *Service) ViewGame(game *domain.GameState) GameView {
	view := GameView{
		Game:        game,
		NearingBust: domain.NearingBust(game, s.cfg.NearingBustMargin),
		PerfectGame: domain.IsPerfectGame(game),
	}
	if view.NearingBust == nil {
		view.NearingBust = []domain.PlayerInGame{}
	}
	if p, ok := domain.ShufflePlayer(game); ok {
		view.ShufflePlayerID = p.ID
	}
	if w, ok := domain.Winner(game); ok {
		view.Winner = &w
	}
	return view
}

// StartGame creates a standalone game. A nil targetScore selects the configured default.
func (s *Service) StartGame(ctx context.Context, names []string, targetScore *int) (*domain.GameState, []Event, error) {
	target := s.cfg.DefaultTargetScore
	if targetScore != nil {
		target = *targetScore
	}
	game, err := domain.StartGame(names, target)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persistNewGame(ctx, game); err != nil {
		return nil, nil, err
	}
	return game, []Event{gameEvent(EventGameStarted, game, "players", strconv.Itoa(len(game.Players)))}, nil
}

// StartTournamentGame creates the next game of a tournament with the lineup its mode selects.
func (s *Service) StartTournamentGame(ctx context.Context, tournamentID string) (*domain.GameState, []Event, error) {
	t, err := s.repo.LoadTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsActive {
		return nil, nil, &domain.BlockedError{Rule: domain.RuleTournamentClosed}
	}

	var previous *domain.GameState
	if n := len(t.GameIDs); n > 0 {
		previous, err = s.repo.LoadGame(ctx, t.GameIDs[n-1])
		if err != nil && !errors.Is(err, ErrGameNotFound) {
			return nil, nil, err
		}
	}

	game, err := domain.StartGameWithPlayers(domain.NextLineup(t, previous), t.TargetScore)
	if err != nil {
		return nil, nil, err
	}
	next := t.Clone()
	next.GamesStarted = max(t.GamesStarted, len(t.GameIDs)) + 1
	game.TournamentID = t.ID
	game.GameNumberInTournament = next.GamesStarted

	if err := s.persistNewGame(ctx, game); err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveTournament(ctx, next); err != nil {
		return nil, nil, err
	}
	return game, []Event{gameEvent(EventGameStarted, game,
		"players", strconv.Itoa(len(game.Players)),
		"game_number", strconv.Itoa(game.GameNumberInTournament))}, nil
}

func (s *Service) persistNewGame(ctx context.Context, game *domain.GameState) error {
	if err := s.repo.SaveGame(ctx, game); err != nil {
		return err
	}
	return s.repo.MarkGameActive(ctx, game.ID)
}

// ErrTournamentFold reports a completed game that could not be added to its tournament.
// The round itself has been recorded.
var ErrTournamentFold = errors.New("failed to fold game into tournament")

// SubmitRound records one round of scores. When the round completes the game,
// the game leaves the active index and its result is folded into its tournament.
func (s *Service) SubmitRound(ctx context.Context, gameID string, scores map[string]int) (*domain.GameState, []Event, error) {
	game, err := s.repo.LoadGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	roundNumber := game.CurrentRoundNumber

	next, err := domain.SubmitRoundScores(game, scores)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveGame(ctx, next); err != nil {
		return nil, nil, err
	}

	events := []Event{gameEvent(EventRoundSubmitted, next, "submitted_round", strconv.Itoa(roundNumber))}
	events = append(events, bustEvents(game, next)...)

	if next.IsActive {
		return next, events, nil
	}

	completed, err := s.completeGame(ctx, next)
	return next, append(events, completed...), err
}

// ApplyPenalty adds the configured penalty to a player without consuming a round.
func (s *Service) ApplyPenalty(ctx context.Context, gameID, playerID string) (*domain.GameState, []Event, error) {
	game, err := s.repo.LoadGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	next, err := domain.ApplyPenalty(game, playerID, s.cfg.PenaltyPoints)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveGame(ctx, next); err != nil {
		return nil, nil, err
	}
	return next, []Event{gameEvent(EventPenaltyApplied, next,
		"player_id", playerID,
		"points", strconv.Itoa(s.cfg.PenaltyPoints))}, nil
}

func (s *Service) completeGame(ctx context.Context, game *domain.GameState) ([]Event, error) {
	events := []Event{gameEvent(EventGameCompleted, game,
		"winner_id", game.WinnerID,
		"perfect", strconv.FormatBool(domain.IsPerfectGame(game)))}

	if err := s.repo.MarkGameInactive(ctx, game.ID); err != nil {
		return events, err
	}
	if game.TournamentID == "" {
		return events, nil
	}

	t, err := s.repo.LoadTournament(ctx, game.TournamentID)
	if errors.Is(err, ErrTournamentNotFound) {
		// The game keeps its weak reference; there is nothing to fold into.
		return events, nil
	}
	if err != nil {
		return events, err
	}
	folded, changed, err := domain.FoldGameResult(t, game)
	if err != nil {
		return events, fmt.Errorf("%w: game %s into %s: %v", ErrTournamentFold, game.ID, t.ID, err)
	}
	if !changed {
		return events, nil
	}
	if err := s.repo.SaveTournament(ctx, folded); err != nil {
		return events, err
	}
	return append(events, tournamentEvent(EventTournamentUpdated, folded)), nil
}

// GetGame loads a game with its derived queries.
func (s *Service) GetGame(ctx context.Context, gameID string) (GameView, error) {
	game, err := s.repo.LoadGame(ctx, gameID)
	if err != nil {
		return GameView{}, err
	}
	return s.ViewGame(game), nil
}

// GetLedger builds the round-by-round ledger of a game.
func (s *Service) GetLedger(ctx context.Context, gameID string) (domain.Ledger, error) {
	game, err := s.repo.LoadGame(ctx, gameID)
	if err != nil {
		return domain.Ledger{}, err
	}
	return domain.BuildLedger(game), nil
}

// ErrInvalidCursor reports a list cursor that was not issued by a previous page.
var ErrInvalidCursor = errors.New("invalid list cursor")

// pageBounds resolves a cursor into the index window [start, end) and the cursor of the next page.
func pageBounds(total int, cursor string) (start, end int, next string, err error) {
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 || start > total {
			return 0, 0, "", ErrInvalidCursor
		}
	}
	end = min(start+MaxListedRecords, total)
	if end < total {
		next = strconv.Itoa(end)
	}
	return start, end, next, nil
}

// ListActiveGames loads one page of the active game index. Stale entries are skipped.
// nextCursor is empty on the last page.
func (s *Service) ListActiveGames(ctx context.Context, cursor string) (games []*domain.GameState, nextCursor string, err error) {
	ids, err := s.repo.ActiveGameIDs(ctx)
	if err != nil {
		return nil, "", err
	}
	start, end, nextCursor, err := pageBounds(len(ids), cursor)
	if err != nil {
		return nil, "", err
	}
	games = make([]*domain.GameState, 0, end-start)
	for _, id := range ids[start:end] {
		game, err := s.repo.LoadGame(ctx, id)
		if errors.Is(err, ErrGameNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		games = append(games, game)
	}
	return games, nextCursor, nil
}

// CreateTournamentInput carries tournament setup. Nil optional fields take configured defaults.
type CreateTournamentInput struct {
	Name         string                   `json:"name"`
	PlayerNames  []string                 `json:"playerNames"`
	Mode         domain.ParticipationMode `json:"playerParticipationMode"`
	TargetScore  *int                     `json:"targetScore"`
	WinBonusK    *float64                 `json:"winBonusK"`
	BustPenaltyK *float64                 `json:"bustPenaltyK"`
	PGKickerK    *float64                 `json:"pgKickerK"`
	MinGamesPct  *float64                 `json:"minGamesPct"`
}

func (in CreateTournamentInput) setup(cfg config.EngineConfig) domain.TournamentSetup {
	setup := domain.TournamentSetup{
		Name:         in.Name,
		PlayerNames:  in.PlayerNames,
		Mode:         in.Mode,
		TargetScore:  cfg.DefaultTargetScore,
		WinBonusK:    cfg.WinBonusK,
		BustPenaltyK: cfg.BustPenaltyK,
		PGKickerK:    cfg.PGKickerK,
		MinGamesPct:  cfg.MinGamesPct,
	}
	if setup.Mode == "" {
		setup.Mode = domain.ModeFixedRoster
	}
	if in.TargetScore != nil {
		setup.TargetScore = *in.TargetScore
	}
	if in.WinBonusK != nil {
		setup.WinBonusK = *in.WinBonusK
	}
	if in.BustPenaltyK != nil {
		setup.BustPenaltyK = *in.BustPenaltyK
	}
	if in.PGKickerK != nil {
		setup.PGKickerK = *in.PGKickerK
	}
	if in.MinGamesPct != nil {
		setup.MinGamesPct = *in.MinGamesPct
	}
	return setup
}

// CreateTournament validates and stores a new tournament.
func (s *Service) CreateTournament(ctx context.Context, in CreateTournamentInput) (*domain.Tournament, []Event, error) {
	t, err := domain.NewTournament(in.setup(s.cfg))
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveTournament(ctx, t); err != nil {
		return nil, nil, err
	}
	if err := s.repo.MarkTournamentActive(ctx, t.ID); err != nil {
		return nil, nil, err
	}
	return t, []Event{tournamentEvent(EventTournamentCreated, t)}, nil
}

// GetTournament loads a tournament.
func (s *Service) GetTournament(ctx context.Context, tournamentID string) (*domain.Tournament, error) {
	return s.repo.LoadTournament(ctx, tournamentID)
}

// ListActiveTournaments loads one page of the active tournament index. Stale entries are skipped.
// nextCursor is empty on the last page.
func (s *Service) ListActiveTournaments(ctx context.Context, cursor string) (tournaments []*domain.Tournament, nextCursor string, err error) {
	ids, err := s.repo.ActiveTournamentIDs(ctx)
	if err != nil {
		return nil, "", err
	}
	start, end, nextCursor, err := pageBounds(len(ids), cursor)
	if err != nil {
		return nil, "", err
	}
	tournaments = make([]*domain.Tournament, 0, end-start)
	for _, id := range ids[start:end] {
		t, err := s.repo.LoadTournament(ctx, id)
		if errors.Is(err, ErrTournamentNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, nextCursor, nil
}

// Standings is the ranked leaderboard of a tournament.
type Standings struct {
	TournamentID string                         `json:"tournamentId"`
	GamesPlayed  int                            `json:"gamesPlayed"`
	MinGames     int                            `json:"minGames"`
	Params       domain.RankingParams           `json:"params"`
	Ranking      []domain.RankedPlayer          `json:"ranking"`
	Ineligible   []domain.TournamentPlayerStats `json:"ineligible"`
}

// MinGamesRequired is the eligibility threshold: ceil(pct * games) games played.
func MinGamesRequired(pct float64, games int) int {
	return int(math.Ceil(pct*float64(games) - 1e-9))
}

// TournamentStandings ranks the eligible players of a tournament.
func (s *Service) TournamentStandings(ctx context.Context, tournamentID string) (Standings, error) {
	t, err := s.repo.LoadTournament(ctx, tournamentID)
	if err != nil {
		return Standings{}, err
	}

	minGames := MinGamesRequired(t.MinGamesPct, len(t.GameIDs))
	eligible := make([]domain.TournamentPlayerStats, 0, len(t.Players))
	ineligible := []domain.TournamentPlayerStats{}
	for _, p := range t.Players {
		if p.GamesPlayed >= minGames {
			eligible = append(eligible, p)
		} else {
			ineligible = append(ineligible, p)
		}
	}

	return Standings{
		TournamentID: t.ID,
		GamesPlayed:  len(t.GameIDs),
		MinGames:     minGames,
		Params:       t.Params(),
		Ranking:      domain.RankPlayers(eligible, t.Params()),
		Ineligible:   ineligible,
	}, nil
}

// EndTournament closes a tournament to new games. Ending a closed tournament is a no-op.
func (s *Service) EndTournament(ctx context.Context, tournamentID string) (*domain.Tournament, []Event, error) {
	t, err := s.repo.LoadTournament(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsActive {
		return t, nil, nil
	}
	next := t.Clone()
	next.IsActive = false
	if err := s.repo.SaveTournament(ctx, next); err != nil {
		return nil, nil, err
	}
	if err := s.repo.MarkTournamentInactive(ctx, next.ID); err != nil {
		return nil, nil, err
	}
	return next, []Event{tournamentEvent(EventTournamentEnded, next)}, nil
}

// AnalysisExport is the payload handed to an external collusion analysis consumer.
type AnalysisExport struct {
	GameID      string                `json:"gameId"`
	PlayerOrder []string              `json:"playerOrder"`
	Records     []domain.AIGameRecord `json:"records"`
}

// AnalysisResult is what an external analysis consumer reports back.
type AnalysisResult struct {
	CollusionDetected bool   `json:"collusionDetected"`
	Rationale         string `json:"rationale"`
}

// ExportAIRecords returns the per-round score vectors of a game, aligned to its player order.
func (s *Service) ExportAIRecords(ctx context.Context, gameID string) (AnalysisExport, error) {
	game, err := s.repo.LoadGame(ctx, gameID)
	if err != nil {
		return AnalysisExport{}, err
	}
	return AnalysisExport{
		GameID:      game.ID,
		PlayerOrder: game.PlayerOrder,
		Records:     game.AIGameRecords,
	}, nil
}

// IssueAnalysisToken returns a signed token granting export of one game's records.
func (s *Service) IssueAnalysisToken(ctx context.Context, gameID string) (string, error) {
	if _, err := s.repo.LoadGame(ctx, gameID); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(gameID)
	if err != nil {
		return "", fmt.Errorf("failed to issue analysis token: %w", err)
	}
	return token, nil
}

// ExportWithToken verifies token and exports the records of the game it is bound to.
func (s *Service) ExportWithToken(ctx context.Context, token string) (AnalysisExport, error) {
	gameID, err := s.tokens.Verify(token)
	if err != nil {
		return AnalysisExport{}, err
	}
	return s.ExportAIRecords(ctx, gameID)
}

// RebuildIndexes rescans the store and rewrites the active indexes.
func (s *Service) RebuildIndexes(ctx context.Context) (games, tournaments, skipped int, err error) {
	return s.repo.RebuildIndexes(ctx)
}
