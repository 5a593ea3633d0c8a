package nakama

import (
	"context"
	"database/sql"
	"strings"

	"frenchdomino/internal/config"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule resolves engine config and wires RPCs and the event handler for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	engineConfig = resolveEngineConfig(logger, env)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterEvent(logEngineEvent); err != nil {
		return err
	}

	logger.Info("French Domino Go module loaded (target %d, penalty %d).", engineConfig.DefaultTargetScore, engineConfig.PenaltyPoints)
	return nil
}

func resolveEngineConfig(logger runtime.Logger, env map[string]string) config.EngineConfig {
	if path := env[EnvConfigPath]; path != "" {
		if err := config.LoadEngineConfig(path); err != nil {
			logger.Warn("Engine config %s not loaded, using defaults: %v", path, err)
		}
	}
	cfg := config.GetEngineConfig().WithEnv(env)
	if cfg.AnalysisSecret == "" {
		logger.Warn("domino_analysis_secret missing from env, analysis tokens are disabled.")
	}
	return cfg
}

// logEngineEvent records engine events published through nk.Event.
func logEngineEvent(ctx context.Context, logger runtime.Logger, evt *api.Event) {
	if !strings.HasPrefix(evt.GetName(), EventNamePrefix) {
		return
	}
	logger.WithFields(map[string]interface{}{
		"event":      strings.TrimPrefix(evt.GetName(), EventNamePrefix),
		"properties": evt.GetProperties(),
		"at":         evt.GetTimestamp().AsTime(),
	}).Info("Engine event")
}
