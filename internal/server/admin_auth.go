package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 7 * 24 * time.Hour
)

var errBadCredentials = errors.New("invalid credentials")

// AdminAuth verifies the configured admin password and tracks cookie
// sessions in memory. The plaintext password is hashed at startup and
// discarded.
type AdminAuth struct {
	hash []byte

	mu       sync.Mutex
	sessions map[string]time.Time // session ID -> expiry
}

func NewAdminAuth(password string) (*AdminAuth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return &AdminAuth{hash: hash, sessions: make(map[string]time.Time)}, nil
}

// Login checks the password and mints a session ID.
func (a *AdminAuth) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", errBadCredentials
	}

	b := make([]byte, 16)
	rand.Read(b)
	id := hex.EncodeToString(b)

	a.mu.Lock()
	a.sessions[id] = time.Now().Add(adminSessionTTL)
	a.mu.Unlock()
	return id, nil
}

func (a *AdminAuth) Logout(id string) {
	a.mu.Lock()
	delete(a.sessions, id)
	a.mu.Unlock()
}

// Valid reports whether the session exists and has not expired; expired
// sessions are pruned on sight.
func (a *AdminAuth) Valid(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, ok := a.sessions[id]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(a.sessions, id)
		return false
	}
	return true
}
