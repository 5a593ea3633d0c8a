package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"frenchdomino/internal/config"
	"frenchdomino/internal/domain"
	"frenchdomino/internal/ports"
)

const (
	gameKeyPrefix       = "game/"
	tournamentKeyPrefix = "tournament/"

	activeGamesIndexKey       = "index/active_games"
	activeTournamentsIndexKey = "index/active_tournaments"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrTournamentNotFound = errors.New("tournament not found")
)

// Repository maps engine records onto the key-value store.
type Repository struct {
	store    ports.Store
	defaults config.EngineConfig
}

// NewRepository constructs a Repository. defaults supply values for fields missing from stored records.
func NewRepository(store ports.Store, defaults config.EngineConfig) *Repository {
	return &Repository{store: store, defaults: defaults}
}

func gameKey(id string) string       { return gameKeyPrefix + id }
func tournamentKey(id string) string { return tournamentKeyPrefix + id }

// gameRecord is the stored shape of a game. Pointer fields distinguish "absent" from zero.
type gameRecord struct {
	domain.GameState
	TargetScore        *int  `json:"targetScore"`
	CurrentRoundNumber *int  `json:"currentRoundNumber"`
	IsActive           *bool `json:"isActive"`
}

// tournamentRecord is the stored shape of a tournament. Pointer fields distinguish "absent" from zero.
type tournamentRecord struct {
	domain.Tournament
	TargetScore  *int     `json:"targetScore"`
	WinBonusK    *float64 `json:"winBonusK"`
	BustPenaltyK *float64 `json:"bustPenaltyK"`
	PGKickerK    *float64 `json:"pgKickerK"`
	MinGamesPct  *float64 `json:"minGamesPct"`
	IsActive     *bool    `json:"isActive"`
}

type indexRecord struct {
	IDs []string `json:"ids"`
}

// LoadGame reads a game. A missing or unparseable record is reported as ErrGameNotFound.
func (r *Repository) LoadGame(ctx context.Context, id string) (*domain.GameState, error) {
	data, found, err := r.store.Get(ctx, gameKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read game %s: %w", id, err)
	}
	if !found {
		return nil, ErrGameNotFound
	}
	game, err := r.decodeGame(data)
	if err != nil {
		return nil, fmt.Errorf("%w: game %s is unreadable: %v", ErrGameNotFound, id, err)
	}
	return game, nil
}

func (r *Repository) decodeGame(data []byte) (*domain.GameState, error) {
	var rec gameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	game := rec.GameState
	if game.ID == "" || len(game.Players) == 0 {
		return nil, errors.New("record has no id or players")
	}

	game.TargetScore = r.defaults.DefaultTargetScore
	if rec.TargetScore != nil && *rec.TargetScore > 0 {
		game.TargetScore = *rec.TargetScore
	}
	if game.Rounds == nil {
		game.Rounds = []domain.GameRound{}
	}
	for i := range game.Rounds {
		if game.Rounds[i].Scores == nil {
			game.Rounds[i].Scores = map[string]int{}
		}
	}
	if game.PenaltyLog == nil {
		game.PenaltyLog = []domain.PenaltyLogEntry{}
	}
	if game.AIGameRecords == nil {
		game.AIGameRecords = []domain.AIGameRecord{}
	}
	for i := range game.Players {
		if game.Players[i].RoundScores == nil {
			game.Players[i].RoundScores = []int{}
		}
	}
	if len(game.PlayerOrder) == 0 {
		for _, p := range game.Players {
			game.PlayerOrder = append(game.PlayerOrder, p.ID)
		}
	}
	game.CurrentRoundNumber = len(game.Rounds) + 1
	if rec.CurrentRoundNumber != nil && *rec.CurrentRoundNumber > 0 {
		game.CurrentRoundNumber = *rec.CurrentRoundNumber
	}
	game.IsActive = game.WinnerID == "" && len(game.ActivePlayers()) > 1
	if rec.IsActive != nil {
		game.IsActive = *rec.IsActive
	}
	return &game, nil
}

// SaveGame writes the whole game record.
func (r *Repository) SaveGame(ctx context.Context, game *domain.GameState) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game %s: %w", game.ID, err)
	}
	if err := r.store.Set(ctx, gameKey(game.ID), data); err != nil {
		return fmt.Errorf("failed to write game %s: %w", game.ID, err)
	}
	return nil
}

// LoadTournament reads a tournament, applying defaults for missing optional fields.
// A missing or unparseable record is reported as ErrTournamentNotFound.
func (r *Repository) LoadTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	data, found, err := r.store.Get(ctx, tournamentKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read tournament %s: %w", id, err)
	}
	if !found {
		return nil, ErrTournamentNotFound
	}
	t, err := r.decodeTournament(data)
	if err != nil {
		return nil, fmt.Errorf("%w: tournament %s is unreadable: %v", ErrTournamentNotFound, id, err)
	}
	return t, nil
}

func (r *Repository) decodeTournament(data []byte) (*domain.Tournament, error) {
	var rec tournamentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	t := rec.Tournament
	if t.ID == "" {
		return nil, errors.New("record has no id")
	}

	d := r.defaults
	t.TargetScore = d.DefaultTargetScore
	if rec.TargetScore != nil && *rec.TargetScore > 0 {
		t.TargetScore = *rec.TargetScore
	}
	t.WinBonusK = floatOr(rec.WinBonusK, d.WinBonusK)
	t.BustPenaltyK = floatOr(rec.BustPenaltyK, d.BustPenaltyK)
	t.PGKickerK = floatOr(rec.PGKickerK, d.PGKickerK)
	t.MinGamesPct = floatOr(rec.MinGamesPct, d.MinGamesPct)
	t.IsActive = true
	if rec.IsActive != nil {
		t.IsActive = *rec.IsActive
	}
	if !t.PlayerParticipationMode.Valid() {
		t.PlayerParticipationMode = domain.ModeFixedRoster
	}
	if t.Players == nil {
		t.Players = []domain.TournamentPlayerStats{}
	}
	if t.GameIDs == nil {
		t.GameIDs = []string{}
	}
	t.GamesStarted = max(t.GamesStarted, len(t.GameIDs))
	return &t, nil
}

func floatOr(v *float64, def float64) float64 {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

// SaveTournament writes the whole tournament record.
func (r *Repository) SaveTournament(ctx context.Context, t *domain.Tournament) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament %s: %w", t.ID, err)
	}
	if err := r.store.Set(ctx, tournamentKey(t.ID), data); err != nil {
		return fmt.Errorf("failed to write tournament %s: %w", t.ID, err)
	}
	return nil
}

// ActiveGameIDs returns the active game index. A missing or corrupt index reads as empty.
func (r *Repository) ActiveGameIDs(ctx context.Context) ([]string, error) {
	return r.readIndex(ctx, activeGamesIndexKey)
}

// ActiveTournamentIDs returns the active tournament index. A missing or corrupt index reads as empty.
func (r *Repository) ActiveTournamentIDs(ctx context.Context) ([]string, error) {
	return r.readIndex(ctx, activeTournamentsIndexKey)
}

func (r *Repository) readIndex(ctx context.Context, key string) ([]string, error) {
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", key, err)
	}
	if !found {
		return []string{}, nil
	}
	var idx indexRecord
	if err := json.Unmarshal(data, &idx); err != nil || idx.IDs == nil {
		return []string{}, nil
	}
	return idx.IDs, nil
}

func (r *Repository) writeIndex(ctx context.Context, key string, ids []string) error {
	data, err := json.Marshal(indexRecord{IDs: ids})
	if err != nil {
		return fmt.Errorf("failed to marshal index %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write index %s: %w", key, err)
	}
	return nil
}

func (r *Repository) addToIndex(ctx context.Context, key, id string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return r.writeIndex(ctx, key, append(ids, id))
}

func (r *Repository) removeFromIndex(ctx context.Context, key, id string) error {
	ids, err := r.readIndex(ctx, key)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, id) {
		return nil
	}
	return r.writeIndex(ctx, key, slices.DeleteFunc(ids, func(v string) bool { return v == id }))
}

// MarkGameActive adds the game to the active index.
func (r *Repository) MarkGameActive(ctx context.Context, id string) error {
	return r.addToIndex(ctx, activeGamesIndexKey, id)
}

// MarkGameInactive removes the game from the active index.
func (r *Repository) MarkGameInactive(ctx context.Context, id string) error {
	return r.removeFromIndex(ctx, activeGamesIndexKey, id)
}

// MarkTournamentActive adds the tournament to the active index.
func (r *Repository) MarkTournamentActive(ctx context.Context, id string) error {
	return r.addToIndex(ctx, activeTournamentsIndexKey, id)
}

// MarkTournamentInactive removes the tournament from the active index.
func (r *Repository) MarkTournamentInactive(ctx context.Context, id string) error {
	return r.removeFromIndex(ctx, activeTournamentsIndexKey, id)
}

// RebuildIndexes scans every stored game and tournament and rewrites both active indexes.
// Unreadable records are skipped and counted.
func (r *Repository) RebuildIndexes(ctx context.Context) (games, tournaments, skipped int, err error) {
	gameKeys, err := r.store.List(ctx, gameKeyPrefix)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list games: %w", err)
	}
	activeGames := []string{}
	for _, key := range gameKeys {
		g, err := r.LoadGame(ctx, strings.TrimPrefix(key, gameKeyPrefix))
		if err != nil {
			skipped++
			continue
		}
		if g.IsActive {
			activeGames = append(activeGames, g.ID)
		}
	}

	tournamentKeys, err := r.store.List(ctx, tournamentKeyPrefix)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to list tournaments: %w", err)
	}
	activeTournaments := []string{}
	for _, key := range tournamentKeys {
		t, err := r.LoadTournament(ctx, strings.TrimPrefix(key, tournamentKeyPrefix))
		if err != nil {
			skipped++
			continue
		}
		if t.IsActive {
			activeTournaments = append(activeTournaments, t.ID)
		}
	}

	if err := r.writeIndex(ctx, activeGamesIndexKey, activeGames); err != nil {
		return 0, 0, 0, err
	}
	if err := r.writeIndex(ctx, activeTournamentsIndexKey, activeTournaments); err != nil {
		return 0, 0, 0, err
	}
	return len(activeGames), len(activeTournaments), skipped, nil
}
