package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input to a mutating operation.
// The operation is rejected and state is left unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// BlockRule names the policy that refused a structurally valid request.
type BlockRule string

const (
	RuleGameCompleted    BlockRule = "game_completed"
	RulePlayerBusted     BlockRule = "player_busted"
	RulePenaltyWouldBust BlockRule = "penalty_would_bust"
	RuleTournamentClosed BlockRule = "tournament_closed"
)

// BlockedError is the normal negative result of a request that policy forbids right now.
type BlockedError struct {
	Rule     BlockRule
	PlayerID string
}

func (e *BlockedError) Error() string {
	if e.PlayerID == "" {
		return "action blocked: " + string(e.Rule)
	}
	return fmt.Sprintf("action blocked: %s (player %s)", e.Rule, e.PlayerID)
}

func blocked(rule BlockRule, playerID string) error {
	return &BlockedError{Rule: rule, PlayerID: playerID}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsBlocked extracts the BlockedError from err, if any.
func AsBlocked(err error) (*BlockedError, bool) {
	var be *BlockedError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
