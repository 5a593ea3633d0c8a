package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"frenchdomino/internal/app"
	"frenchdomino/internal/config"
	"frenchdomino/internal/domain"
	"frenchdomino/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// engineConfig is resolved once in InitModule.
var engineConfig = config.Defaults()

type rpcFunc func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]rpcFunc{
		RpcStartGame:           RpcStartGameHandler,
		RpcSubmitRound:         RpcSubmitRoundHandler,
		RpcApplyPenalty:        RpcApplyPenaltyHandler,
		RpcGetGame:             RpcGetGameHandler,
		RpcGetLedger:           RpcGetLedgerHandler,
		RpcListGames:           RpcListGamesHandler,
		RpcCreateTournament:    RpcCreateTournamentHandler,
		RpcStartTournamentGame: RpcStartTournamentGameHandler,
		RpcGetTournament:       RpcGetTournamentHandler,
		RpcListTournaments:     RpcListTournamentsHandler,
		RpcTournamentStandings: RpcTournamentStandingsHandler,
		RpcEndTournament:       RpcEndTournamentHandler,
		RpcIssueAnalysisToken:  RpcIssueAnalysisTokenHandler,
		RpcAnalysisExport:      RpcAnalysisExportHandler,
		RpcRebuildIndexes:      RpcRebuildIndexesHandler,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func newService(nk runtime.NakamaModule) *app.Service {
	return app.NewService(NewNakamaStorageAdapter(nk), engineConfig)
}

// BlockedResponse is returned, without an RPC error, when a rule refuses a well-formed request.
type BlockedResponse struct {
	Blocked  bool   `json:"blocked"`
	Rule     string `json:"rule"`
	PlayerID string `json:"playerId,omitempty"`
	Message  string `json:"message"`
}

func decodePayload(payload string, dst any) error {
	if payload == "" {
		return runtime.NewError("Payload required", codeInvalidArgument)
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	return nil
}

func respond(logger runtime.Logger, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal RPC response: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(b), nil
}

// respondErr maps app and domain errors onto RPC results.
// Blocked actions are a normal response; everything unexpected is logged and hidden.
func respondErr(logger runtime.Logger, op string, err error) (string, error) {
	if b, ok := domain.AsBlocked(err); ok {
		logger.Info("%s: blocked by %s", op, b.Rule)
		return respond(logger, BlockedResponse{
			Blocked:  true,
			Rule:     string(b.Rule),
			PlayerID: b.PlayerID,
			Message:  b.Error(),
		})
	}

	switch {
	case domain.IsValidation(err):
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	case errors.Is(err, app.ErrGameNotFound):
		return "", runtime.NewError("Game not found", codeNotFound)
	case errors.Is(err, app.ErrTournamentNotFound):
		return "", runtime.NewError("Tournament not found", codeNotFound)
	case errors.Is(err, app.ErrInvalidCursor):
		return "", runtime.NewError("Invalid cursor", codeInvalidArgument)
	case errors.Is(err, app.ErrInvalidAnalysisToken):
		return "", runtime.NewError("Invalid analysis token", codeUnauthenticated)
	}

	logger.Error("%s: %v", op, err)
	return "", runtime.NewError("Internal error", codeInternal)
}

// dispatchEvents publishes app events. Failures are logged and never fail the RPC.
func dispatchEvents(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, events []app.Event) {
	var publisher ports.EventPublisher = NewNakamaEventAdapter(nk)
	for _, ev := range events {
		if err := publisher.Publish(ctx, string(ev.Kind), ev.Properties); err != nil {
			logger.Warn("Failed to publish %s: %v", ev.Kind, err)
		}
	}
}
