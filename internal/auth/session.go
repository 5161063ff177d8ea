package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrNoSession is returned for unknown, expired or logged-out sessions
var ErrNoSession = errors.New("session not found or expired")

// Session is a logged-in player. The password is replayed on every
// transaction because the remote service authenticates each call.
type Session struct {
	ID        string
	PlayerID  int
	Password  string
	ExpiresAt time.Time
}

type sealedSession struct {
	playerID  int
	expiresAt time.Time
	nonce     [24]byte
	box       []byte
}

// SessionStore keeps sessions in a TTL cache with the password sealed
type SessionStore struct {
	c   *ristretto.Cache
	key [32]byte
	ttl time.Duration
}

func NewSessionStore(secret []byte, ttl time.Duration) (*SessionStore, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	s := &SessionStore{c: c, ttl: ttl}
	kdf := hkdf.New(sha256.New, secret, nil, []byte("sharktank session seal"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return s, nil
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Put stores sess until its expiry
func (s *SessionStore) Put(sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrNoSession
	}
	sealed := &sealedSession{playerID: sess.PlayerID, expiresAt: sess.ExpiresAt}
	if _, err := io.ReadFull(rand.Reader, sealed.nonce[:]); err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed.box = secretbox.Seal(nil, []byte(sess.Password), &sealed.nonce, &s.key)

	if !s.c.SetWithTTL(sess.ID, sealed, 1, ttl) {
		return errors.New("session cache rejected entry")
	}
	s.c.Wait()
	return nil
}

// Get returns the session with its password opened
func (s *SessionStore) Get(id string) (*Session, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, ErrNoSession
	}
	sealed, ok := v.(*sealedSession)
	if !ok || time.Now().After(sealed.expiresAt) {
		return nil, ErrNoSession
	}
	password, ok := secretbox.Open(nil, sealed.box, &sealed.nonce, &s.key)
	if !ok {
		return nil, ErrNoSession
	}
	return &Session{
		ID:        id,
		PlayerID:  sealed.playerID,
		Password:  string(password),
		ExpiresAt: sealed.expiresAt,
	}, nil
}

func (s *SessionStore) Delete(id string) {
	s.c.Del(id)
}

func (s *SessionStore) Close() {
	s.c.Close()
}
