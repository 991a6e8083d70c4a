package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/stemkit-identity/internal/models"
	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// DefaultAccessTokenTTL is the lifetime of an access token.
const DefaultAccessTokenTTL = time.Hour

// AccessTokenIssuer signs access tokens for a subject and its roles.
type AccessTokenIssuer interface {
	IssueAccessToken(userID string, roles []string) (string, time.Time, error)
}

// TokenSignerConfig carries the signing parameters.
type TokenSignerConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenSigner issues and verifies HS256 access tokens.
type TokenSigner struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      Clock
}

// NewTokenSigner validates cfg and returns a signer. A missing secret, issuer or
// audience is a configuration error.
func NewTokenSigner(cfg TokenSignerConfig, clock Clock) (*TokenSigner, error) {
	var missing []string
	if strings.TrimSpace(cfg.Secret) == "" {
		missing = append(missing, "secret")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		missing = append(missing, "issuer")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		missing = append(missing, "audience")
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConfig, "jwt "+strings.Join(missing, ", ")+" not configured")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAccessTokenTTL
	}
	if clock == nil {
		clock = systemClock
	}
	return &TokenSigner{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      clock,
	}, nil
}

// IssueAccessToken signs a token for userID carrying roles. It returns the
// token and its expiry.
func (s *TokenSigner) IssueAccessToken(userID string, roles []string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("access token subject is empty")
	}
	if len(roles) == 0 {
		return "", time.Time{}, errors.New("access token requires at least one role")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := models.AccessClaims{
		Roles: append([]string(nil), roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks signature, expiry, issuer and audience.
func (s *TokenSigner) VerifyAccessToken(tokenString string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid access token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}
	return claims, nil
}
