// Package auth checks the admin credentials guarding the API. Credentials are
// set once at startup and never change; every request is checked on its own.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrDenied is returned for any failed check. It never says which part of
// the credential pair was wrong.
var ErrDenied = errors.New("access denied")

// Credentials holds the admin username digest and a bcrypt hash of the
// password.
type Credentials struct {
	userDigest [sha256.Size]byte
	hash       []byte
}

// NewCredentials hashes password with bcrypt at the given cost. A cost of 0
// uses bcrypt.DefaultCost.
func NewCredentials(username, password string, cost int) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("admin username must not be empty")
	}
	if password == "" {
		return nil, errors.New("admin password must not be empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &Credentials{userDigest: sha256.Sum256([]byte(username)), hash: hash}, nil
}

// Gate authorizes requests against a fixed set of Credentials.
type Gate struct {
	creds *Credentials
}

func NewGate(creds *Credentials) *Gate {
	return &Gate{creds: creds}
}

// Check returns nil when both username and password match, ErrDenied
// otherwise. The username is compared on fixed-size digests in constant time
// and the bcrypt comparison runs regardless of the username result.
func (g *Gate) Check(username, password string) error {
	if g == nil || g.creds == nil {
		return ErrDenied
	}
	got := sha256.Sum256([]byte(username))
	userOK := subtle.ConstantTimeCompare(got[:], g.creds.userDigest[:]) == 1
	passOK := bcrypt.CompareHashAndPassword(g.creds.hash, []byte(password)) == nil
	if userOK && passOK {
		return nil
	}
	return ErrDenied
}

// GeneratePassword returns a random URL-safe password built from n random bytes.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = 18
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
