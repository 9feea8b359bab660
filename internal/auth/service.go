package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AnySession is the token subject that grants access to every session.
const AnySession = "*"

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Service issues and checks viewer tokens. When a passphrase hash is
// configured, tokens are only issued against the matching passphrase.
type Service struct {
	jwtSecret      []byte
	passphraseHash []byte
	now            func() time.Time
}

func NewService(jwtSecret, passphraseHash string) *Service {
	s := &Service{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
	if passphraseHash != "" {
		s.passphraseHash = []byte(passphraseHash)
	}
	return s
}

// HashPassphrase returns the bcrypt hash to configure as VIEWER_PASSPHRASE_HASH.
func HashPassphrase(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), 12)
	if err != nil {
		return "", fmt.Errorf("hash passphrase: %w", err)
	}
	return string(hash), nil
}

// CheckPassphrase accepts anything when no hash is configured.
func (s *Service) CheckPassphrase(passphrase string) error {
	if s.passphraseHash == nil {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword(s.passphraseHash, []byte(passphrase)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a token for one session, or for all with AnySession.
func (s *Service) IssueToken(sessionID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken returns the session the token was issued for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	sessionID, ok := claims["sub"].(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return sessionID, nil
}

// Allows reports whether a token subject grants access to sessionID.
func Allows(subject, sessionID string) bool {
	return subject == AnySession || sessionID == "" || subject == sessionID
}
