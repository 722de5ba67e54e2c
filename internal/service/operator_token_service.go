package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorTokenIssuer is the iss claim of every operator token.
const OperatorTokenIssuer = "scs-recovery-server"

// DefaultOperatorTokenTTL is used when no lifetime is requested.
const DefaultOperatorTokenTTL = time.Hour

// ErrMissingSubject is returned for tokens without a sub claim.
var ErrMissingSubject = errors.New("operator token has no subject")

// OperatorTokenService mints and checks the HS256 bearer tokens accepted by
// the recovery API.
type OperatorTokenService struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewOperatorTokenService creates a new OperatorTokenService
func NewOperatorTokenService(secret string) *OperatorTokenService {
	return &OperatorTokenService{
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

// GenerateToken signs a token for subject. A non-positive ttl falls back to
// DefaultOperatorTokenTTL.
func (s *OperatorTokenService) GenerateToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("operator token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultOperatorTokenTTL
	}
	issuedAt := s.now()
	expiry := issuedAt.Add(ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    OperatorTokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign operator token: %w", err)
	}
	return tokenString, expiry, nil
}

// ParseToken verifies signature, method, expiry, issuer and subject of
// tokenString. The claims are *jwt.RegisteredClaims.
func (s *OperatorTokenService) ParseToken(tokenString string) (*jwt.Token, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(OperatorTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return token, nil
}

// ValidateToken returns the subject of a valid operator token.
func (s *OperatorTokenService) ValidateToken(tokenString string) (string, error) {
	token, err := s.ParseToken(tokenString)
	if err != nil {
		return "", err
	}
	return token.Claims.GetSubject()
}
