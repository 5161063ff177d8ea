package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xtrntr/sharktank/internal/id"
)

// Verifier checks credentials against the transaction service
type Verifier interface {
	Login(ctx context.Context, playerID int, password string) error
}

// Claims identify a session; the password never leaves the server
type Claims struct {
	PlayerID int `json:"player_id"`
	jwt.RegisteredClaims
}

// AuthService handles player login and session tokens
type AuthService struct {
	Verifier Verifier
	Sessions *SessionStore
	secret   []byte
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(verifier Verifier, sessions *SessionStore, secret []byte) *AuthService {
	return &AuthService{Verifier: verifier, Sessions: sessions, secret: secret, now: time.Now}
}

// Login verifies credentials remotely, opens a session and returns its JWT
func (s *AuthService) Login(ctx context.Context, playerID int, password string) (string, *Session, error) {
	if err := s.Verifier.Login(ctx, playerID, password); err != nil {
		return "", nil, err
	}

	sess := &Session{
		ID:        id.New(),
		PlayerID:  playerID,
		Password:  password,
		ExpiresAt: s.now().Add(s.Sessions.TTL()),
	}
	if err := s.Sessions.Put(sess); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   strconv.Itoa(playerID),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.Sessions.Delete(sess.ID)
		return "", nil, err
	}
	return tokenString, sess, nil
}

func (s *AuthService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SessionFromToken resolves a JWT to its live session
func (s *AuthService) SessionFromToken(tokenString string) (*Session, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	sess, err := s.Sessions.Get(claims.ID)
	if err != nil {
		return nil, err
	}
	if sess.PlayerID != claims.PlayerID {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Logout ends the session behind tokenString. Invalid tokens are ignored.
func (s *AuthService) Logout(tokenString string) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return
	}
	s.Sessions.Delete(claims.ID)
}
