package nakama

// Nakama RPC ids.
const (
	RpcStartGame           = "domino_start_game"
	RpcSubmitRound         = "domino_submit_round"
	RpcApplyPenalty        = "domino_apply_penalty"
	RpcGetGame             = "domino_get_game"
	RpcGetLedger           = "domino_get_ledger"
	RpcListGames           = "domino_list_games"
	RpcCreateTournament    = "domino_create_tournament"
	RpcStartTournamentGame = "domino_start_tournament_game"
	RpcGetTournament       = "domino_get_tournament"
	RpcListTournaments     = "domino_list_tournaments"
	RpcTournamentStandings = "domino_tournament_standings"
	RpcEndTournament       = "domino_end_tournament"
	RpcIssueAnalysisToken  = "domino_issue_analysis_token"
	RpcAnalysisExport      = "domino_analysis_export"
	RpcRebuildIndexes      = "domino_rebuild_indexes"
)

const (
	// StorageCollection holds every engine record, owned by the system user.
	StorageCollection = "french_domino"

	// EventNamePrefix namespaces engine events sent through nk.Event.
	EventNamePrefix = "domino."

	// EnvConfigPath names the runtime env key pointing at an engine config file.
	EnvConfigPath = "domino_config_path"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
	codeUnauthenticated = 16
)
