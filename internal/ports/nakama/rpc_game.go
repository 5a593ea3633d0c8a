package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"frenchdomino/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

type gameRequest struct {
	GameID string `json:"gameId"`
}

func (r gameRequest) validate() error {
	if strings.TrimSpace(r.GameID) == "" {
		return runtime.NewError("gameId required", codeInvalidArgument)
	}
	return nil
}

// RpcStartGameHandler creates a standalone game.
// Payload: {"playerNames": ["Ann", "Ben"], "targetScore": 100}
func RpcStartGameHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		PlayerNames []string `json:"playerNames"`
		TargetScore *int     `json:"targetScore"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}

	svc := newService(nk)
	game, events, err := svc.StartGame(ctx, req.PlayerNames, req.TargetScore)
	if err != nil {
		return respondErr(logger, "RpcStartGame", err)
	}
	logger.Info("RpcStartGame [Game:%s]: started with %d players", game.ID, len(game.Players))
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, svc.ViewGame(game))
}

// RpcSubmitRoundHandler records one round of scores.
// Payload: {"gameId": "...", "scores": {"<playerId>": 12, ...}}
func RpcSubmitRoundHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		gameRequest
		Scores map[string]json.Number `json:"scores"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	scores, err := integerScores(req.Scores)
	if err != nil {
		return "", err
	}

	svc := newService(nk)
	game, events, err := svc.SubmitRound(ctx, req.GameID, scores)
	if errors.Is(err, app.ErrTournamentFold) {
		// The round is recorded; only the tournament statistics are behind.
		logger.Error("RpcSubmitRound [Game:%s]: %v", req.GameID, err)
		err = nil
	}
	if err != nil {
		if game != nil {
			dispatchEvents(ctx, logger, nk, events)
		}
		return respondErr(logger, "RpcSubmitRound [Game:"+req.GameID+"]", err)
	}
	logger.Info("RpcSubmitRound [Game:%s]: round %d recorded", game.ID, game.CurrentRoundNumber-1)
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, svc.ViewGame(game))
}

func integerScores(raw map[string]json.Number) (map[string]int, error) {
	scores := make(map[string]int, len(raw))
	for id, n := range raw {
		v, err := strconv.Atoi(n.String())
		if err != nil {
			return nil, runtime.NewError("score for "+id+" must be an integer", codeInvalidArgument)
		}
		scores[id] = v
	}
	return scores, nil
}

// RpcApplyPenaltyHandler adds the configured penalty to one player.
// Payload: {"gameId": "...", "playerId": "..."}
func RpcApplyPenaltyHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		gameRequest
		PlayerID string `json:"playerId"`
	}
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	svc := newService(nk)
	game, events, err := svc.ApplyPenalty(ctx, req.GameID, req.PlayerID)
	if err != nil {
		return respondErr(logger, "RpcApplyPenalty [Game:"+req.GameID+"]", err)
	}
	logger.Info("RpcApplyPenalty [Game:%s]: penalty for %s", game.ID, req.PlayerID)
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, svc.ViewGame(game))
}

// RpcGetGameHandler returns a game with its derived scoreboard queries.
// Payload: {"gameId": "..."}
func RpcGetGameHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req gameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	view, err := newService(nk).GetGame(ctx, req.GameID)
	if err != nil {
		return respondErr(logger, "RpcGetGame [Game:"+req.GameID+"]", err)
	}
	return respond(logger, view)
}

// RpcGetLedgerHandler returns the round-by-round ledger of a game.
// Payload: {"gameId": "..."}
func RpcGetLedgerHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req gameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	ledger, err := newService(nk).GetLedger(ctx, req.GameID)
	if err != nil {
		return respondErr(logger, "RpcGetLedger [Game:"+req.GameID+"]", err)
	}
	return respond(logger, ledger)
}

// listRequest is the optional payload of the list RPCs.
type listRequest struct {
	Cursor string `json:"cursor"`
}

func decodeListRequest(payload string) (listRequest, error) {
	var req listRequest
	if payload == "" {
		return req, nil
	}
	return req, decodePayload(payload, &req)
}

// GameListResponse is one page of active games. Cursor is empty on the last page.
type GameListResponse struct {
	Games  []app.GameView `json:"games"`
	Cursor string         `json:"cursor,omitempty"`
}

// RpcListGamesHandler lists the active games, one page at a time.
// Payload: optional {"cursor": "..."}
func RpcListGamesHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req, err := decodeListRequest(payload)
	if err != nil {
		return "", err
	}
	svc := newService(nk)
	games, cursor, err := svc.ListActiveGames(ctx, req.Cursor)
	if err != nil {
		return respondErr(logger, "RpcListGames", err)
	}
	resp := GameListResponse{Games: make([]app.GameView, 0, len(games)), Cursor: cursor}
	for _, g := range games {
		resp.Games = append(resp.Games, svc.ViewGame(g))
	}
	return respond(logger, resp)
}

// RpcRebuildIndexesHandler rescans storage and rewrites the active indexes.
func RpcRebuildIndexesHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	games, tournaments, skipped, err := newService(nk).RebuildIndexes(ctx)
	if err != nil {
		return respondErr(logger, "RpcRebuildIndexes", err)
	}
	if skipped > 0 {
		logger.Warn("RpcRebuildIndexes: skipped %d unreadable records", skipped)
	}
	return respond(logger, map[string]int{
		"activeGames":       games,
		"activeTournaments": tournaments,
		"skipped":           skipped,
	})
}
