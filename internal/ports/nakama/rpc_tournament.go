package nakama

import (
	"context"
	"database/sql"
	"strings"

	"frenchdomino/internal/app"
	"frenchdomino/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

type tournamentRequest struct {
	TournamentID string `json:"tournamentId"`
}

func (r tournamentRequest) validate() error {
	if strings.TrimSpace(r.TournamentID) == "" {
		return runtime.NewError("tournamentId required", codeInvalidArgument)
	}
	return nil
}

// RpcCreateTournamentHandler creates a tournament. Omitted tuning fields take the configured defaults.
// Payload: {"name": "...", "playerNames": [...], "playerParticipationMode": "fixed_roster", "targetScore": 100,
// "winBonusK": 0.5, "bustPenaltyK": 0.5, "pgKickerK": 0.25, "minGamesPct": 0}
func RpcCreateTournamentHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req app.CreateTournamentInput
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}

	t, events, err := newService(nk).CreateTournament(ctx, req)
	if err != nil {
		return respondErr(logger, "RpcCreateTournament", err)
	}
	logger.Info("RpcCreateTournament [Tournament:%s]: created with %d players", t.ID, len(t.Players))
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, t)
}

// RpcStartTournamentGameHandler starts the next game of a tournament.
// Payload: {"tournamentId": "..."}
func RpcStartTournamentGameHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	svc := newService(nk)
	game, events, err := svc.StartTournamentGame(ctx, req.TournamentID)
	if err != nil {
		return respondErr(logger, "RpcStartTournamentGame [Tournament:"+req.TournamentID+"]", err)
	}
	logger.Info("RpcStartTournamentGame [Tournament:%s]: game %d is %s", req.TournamentID, game.GameNumberInTournament, game.ID)
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, svc.ViewGame(game))
}

// RpcGetTournamentHandler returns a tournament record.
// Payload: {"tournamentId": "..."}
func RpcGetTournamentHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	t, err := newService(nk).GetTournament(ctx, req.TournamentID)
	if err != nil {
		return respondErr(logger, "RpcGetTournament [Tournament:"+req.TournamentID+"]", err)
	}
	return respond(logger, t)
}

// TournamentListResponse is one page of active tournaments. Cursor is empty on the last page.
type TournamentListResponse struct {
	Tournaments []*domain.Tournament `json:"tournaments"`
	Cursor      string               `json:"cursor,omitempty"`
}

// RpcListTournamentsHandler lists the active tournaments, one page at a time.
// Payload: optional {"cursor": "..."}
func RpcListTournamentsHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req, err := decodeListRequest(payload)
	if err != nil {
		return "", err
	}
	list, cursor, err := newService(nk).ListActiveTournaments(ctx, req.Cursor)
	if err != nil {
		return respondErr(logger, "RpcListTournaments", err)
	}
	return respond(logger, TournamentListResponse{Tournaments: list, Cursor: cursor})
}

// RpcTournamentStandingsHandler ranks the eligible players of a tournament.
// Payload: {"tournamentId": "..."}
func RpcTournamentStandingsHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	standings, err := newService(nk).TournamentStandings(ctx, req.TournamentID)
	if err != nil {
		return respondErr(logger, "RpcTournamentStandings [Tournament:"+req.TournamentID+"]", err)
	}
	return respond(logger, standings)
}

// RpcEndTournamentHandler closes a tournament to new games.
// Payload: {"tournamentId": "..."}
func RpcEndTournamentHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req tournamentRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}
	t, events, err := newService(nk).EndTournament(ctx, req.TournamentID)
	if err != nil {
		return respondErr(logger, "RpcEndTournament [Tournament:"+req.TournamentID+"]", err)
	}
	logger.Info("RpcEndTournament [Tournament:%s]: closed after %d games", t.ID, len(t.GameIDs))
	dispatchEvents(ctx, logger, nk, events)
	return respond(logger, t)
}
