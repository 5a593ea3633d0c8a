package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"
)

// AnalysisTokenResponse carries a signed export token.
type AnalysisTokenResponse struct {
	Token string `json:"token"`
}

// RpcIssueAnalysisTokenHandler signs a token granting export of one game's AI records.
// Payload: {"gameId": "..."}
func RpcIssueAnalysisTokenHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req gameRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	token, err := newService(nk).IssueAnalysisToken(ctx, req.GameID)
	if err != nil {
		return respondErr(logger, "RpcIssueAnalysisToken [User:"+userID+"]", err)
	}
	logger.Info("RpcIssueAnalysisToken [User:%s]: issued for game %s", userID, req.GameID)
	return respond(logger, AnalysisTokenResponse{Token: token})
}

// RpcAnalysisExportHandler returns the AI records of the game a token is bound to.
// Payload: {"token": "..."}
func RpcAnalysisExportHandler(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req AnalysisTokenResponse
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	if req.Token == "" {
		return "", runtime.NewError("token required", codeInvalidArgument)
	}

	export, err := newService(nk).ExportWithToken(ctx, req.Token)
	if err != nil {
		return respondErr(logger, "RpcAnalysisExport", err)
	}
	return respond(logger, export)
}
