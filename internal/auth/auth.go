package auth

import (
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a bearer token is not a three-part JWT
// with a decodable payload.
var ErrMalformedToken = errors.New("malformed token")

// Claims are the JWT payload fields the client relies on. The client never
// checks the signature; the backend does.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the payload of token without verifying it.
func ParseClaims(token string) (Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c, nil
}

// TokenExpired reports whether token is unusable at now. Malformed tokens
// count as expired; tokens without an exp claim never expire.
func TokenExpired(token string, now time.Time) bool {
	c, err := ParseClaims(token)
	if err != nil {
		return true
	}
	if c.ExpiresAt == nil {
		return false
	}
	return now.Unix() >= c.ExpiresAt.Unix()
}

// Identity is the signed-in user. The zero value means signed out.
type Identity struct {
	UserID string
	Email  string
	Token  string
}

// SignedIn reports whether the identity carries a user.
func (i Identity) SignedIn() bool { return i.UserID != "" }

// IdentityFromToken builds an Identity from a bearer token, rejecting
// malformed or expired tokens.
func IdentityFromToken(token string, now time.Time) (Identity, error) {
	c, err := ParseClaims(token)
	if err != nil {
		return Identity{}, err
	}
	if c.UserID == "" {
		return Identity{}, fmt.Errorf("token has no user id: %w", ErrMalformedToken)
	}
	if TokenExpired(token, now) {
		return Identity{}, ErrExpired
	}
	return Identity{UserID: c.UserID, Email: c.Email, Token: token}, nil
}

// Watcher holds the current identity and tells subscribers whenever it
// changes. Subscribers run synchronously on the caller's goroutine, in
// subscription order.
type Watcher struct {
	mu          gosync.Mutex
	current     Identity
	subscribers []func(Identity)
}

// NewWatcher creates a signed-out watcher.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Current returns the signed-in identity, or the zero value.
func (w *Watcher) Current() Identity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe registers fn to run on every identity change.
func (w *Watcher) Subscribe(fn func(Identity)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// SignIn replaces the current identity. Re-signing in as the same user with
// a refreshed token updates the token without notifying subscribers.
func (w *Watcher) SignIn(id Identity) {
	w.set(id)
}

// SignOut clears the identity. It is a no-op when already signed out.
func (w *Watcher) SignOut() {
	w.set(Identity{})
}

func (w *Watcher) set(id Identity) {
	w.mu.Lock()
	changed := w.current.UserID != id.UserID
	w.current = id
	subs := append([]func(Identity){}, w.subscribers...)
	w.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(id)
	}
}
