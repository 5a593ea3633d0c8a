package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"frenchdomino/internal/domain"
)

// EngineConfig holds the tunable rules and defaults of the scoring engine.
type EngineConfig struct {
	PenaltyPoints      int     `json:"penalty_points"`
	NearingBustMargin  int     `json:"nearing_bust_margin"`
	DefaultTargetScore int     `json:"default_target_score"`
	WinBonusK          float64 `json:"win_bonus_k"`
	BustPenaltyK       float64 `json:"bust_penalty_k"`
	PGKickerK          float64 `json:"pg_kicker_k"`
	MinGamesPct        float64 `json:"min_games_pct"`
	// AnalysisTokenTTLSeconds bounds how long an export token for collusion analysis stays valid.
	AnalysisTokenTTLSeconds int    `json:"analysis_token_ttl_seconds"`
	AnalysisIssuer          string `json:"analysis_issuer"`
	AnalysisSecret          string `json:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() EngineConfig {
	return EngineConfig{
		PenaltyPoints:           domain.DefaultPenaltyPoints,
		NearingBustMargin:       domain.DefaultNearingBustMargin,
		DefaultTargetScore:      100,
		WinBonusK:               0.5,
		BustPenaltyK:            0.5,
		PGKickerK:               0.25,
		MinGamesPct:             0,
		AnalysisTokenTTLSeconds: 300,
		AnalysisIssuer:          "french-domino",
	}
}

var (
	cfg      *EngineConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadEngineConfig loads the engine configuration from the given path.
// Fields missing from the file keep their default values.
func LoadEngineConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read engine config: %w", err)
			return
		}

		c := Defaults()
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal engine config: %w", err)
			return
		}
		c.normalize()
		cfg = &c
	})
	return loadErr
}

// GetEngineConfig returns the loaded configuration, or the defaults if nothing was loaded.
func GetEngineConfig() EngineConfig {
	if cfg == nil {
		return Defaults()
	}
	return *cfg
}

// WithEnv applies overrides from the Nakama runtime environment.
// Unparseable values are ignored.
func (c EngineConfig) WithEnv(env map[string]string) EngineConfig {
	setInt := func(key string, dst *int) {
		if v, ok := env[key]; ok {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := env[key]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setInt("domino_penalty_points", &c.PenaltyPoints)
	setInt("domino_nearing_bust_margin", &c.NearingBustMargin)
	setInt("domino_default_target_score", &c.DefaultTargetScore)
	setFloat("domino_win_bonus_k", &c.WinBonusK)
	setFloat("domino_bust_penalty_k", &c.BustPenaltyK)
	setFloat("domino_pg_kicker_k", &c.PGKickerK)
	setFloat("domino_min_games_pct", &c.MinGamesPct)
	setInt("domino_analysis_token_ttl_sec", &c.AnalysisTokenTTLSeconds)
	if v := env["domino_analysis_issuer"]; v != "" {
		c.AnalysisIssuer = v
	}
	if v := env["domino_analysis_secret"]; v != "" {
		c.AnalysisSecret = v
	}
	c.normalize()
	return c
}

// AnalysisTokenTTL returns the export token lifetime.
func (c EngineConfig) AnalysisTokenTTL() time.Duration {
	return time.Duration(c.AnalysisTokenTTLSeconds) * time.Second
}

// normalize replaces out-of-range values with safe defaults.
func (c *EngineConfig) normalize() {
	d := Defaults()
	if c.PenaltyPoints <= 0 {
		c.PenaltyPoints = d.PenaltyPoints
	}
	if c.NearingBustMargin < 0 {
		c.NearingBustMargin = d.NearingBustMargin
	}
	if c.DefaultTargetScore <= 0 {
		c.DefaultTargetScore = d.DefaultTargetScore
	}
	if c.WinBonusK < 0 {
		c.WinBonusK = d.WinBonusK
	}
	if c.BustPenaltyK < 0 {
		c.BustPenaltyK = d.BustPenaltyK
	}
	if c.PGKickerK < 0 {
		c.PGKickerK = d.PGKickerK
	}
	if c.MinGamesPct < 0 || c.MinGamesPct > 1 {
		c.MinGamesPct = d.MinGamesPct
	}
	if c.AnalysisTokenTTLSeconds <= 0 {
		c.AnalysisTokenTTLSeconds = d.AnalysisTokenTTLSeconds
	}
	if c.AnalysisIssuer == "" {
		c.AnalysisIssuer = d.AnalysisIssuer
	}
}
