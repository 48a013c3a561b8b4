package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

// JWTClaims mirrors the login token payload: id, role, name, email.
type JWTClaims struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	CallerFromToken(tokenString string) (*auth.Caller, error)
	IssueToken(caller *auth.Caller, ttl time.Duration) (string, error)
}

type authService struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthService(log *logger.Logger, secret string) AuthService {
	return &authService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
	}
}

func (as *authService) CallerFromToken(tokenString string) (*auth.Caller, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
		return as.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	rawID := strings.TrimSpace(claims.ID)
	if rawID == "" {
		rawID = strings.TrimSpace(claims.Subject)
	}
	name := strings.TrimSpace(claims.Name)
	if rawID == "" || name == "" {
		return nil, fmt.Errorf("token missing id or name")
	}
	return &auth.Caller{ID: callerID(rawID), Name: name, Role: strings.TrimSpace(claims.Role)}, nil
}

func (as *authService) IssueToken(caller *auth.Caller, ttl time.Duration) (string, error) {
	if caller == nil {
		return "", fmt.Errorf("caller required")
	}
	now := time.Now()
	claims := JWTClaims{
		ID:   caller.ID.String(),
		Role: caller.Role,
		Name: caller.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}

// callerID accepts uuids as-is and maps legacy non-uuid ids to a stable name-based uuid.
func callerID(raw string) uuid.UUID {
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw))
}
