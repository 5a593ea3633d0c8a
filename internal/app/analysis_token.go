package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// AnalysisTokenAction is the only action an analysis token grants.
const AnalysisTokenAction = "export_ai_records"

var ErrInvalidAnalysisToken = errors.New("invalid analysis token")

// AnalysisTokenService signs short-lived tokens that let an external analysis
// consumer read the AI game records of one game.
type AnalysisTokenService struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAnalysisTokenService(secret, issuer string, ttl time.Duration) *AnalysisTokenService {
	return &AnalysisTokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a token bound to gameID.
func (s *AnalysisTokenService) Issue(gameID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("analysis token service is nil")
	}
	if gameID == "" {
		return "", fmt.Errorf("game id is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("analysis token config is incomplete")
	}

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": gameID,
		"exp": s.now().Add(s.ttl).Unix(),
		"act": AnalysisTokenAction,
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks signature, issuer, action and expiry, and returns the bound game id.
func (s *AnalysisTokenService) Verify(tokenString string) (string, error) {
	if s == nil || s.secret == "" {
		return "", fmt.Errorf("analysis token config is incomplete")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidAnalysisToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidAnalysisToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return "", fmt.Errorf("%w: wrong issuer", ErrInvalidAnalysisToken)
	}
	if act, _ := claims["act"].(string); act != AnalysisTokenAction {
		return "", fmt.Errorf("%w: wrong action", ErrInvalidAnalysisToken)
	}
	gameID, _ := claims["sub"].(string)
	if gameID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidAnalysisToken)
	}
	return gameID, nil
}
