package auth

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func makeToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".sig"
}

var now = time.Unix(1_750_000_000, 0)

func TestParseClaims(t *testing.T) {
	c, err := ParseClaims(makeToken(`{"id":"u1","email":"a@b.c","exp":1750000100}`))
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.UserID != "u1" || c.Email != "a@b.c" || c.ExpiresAt == nil || c.ExpiresAt.Unix() != 1750000100 {
		t.Errorf("claims = %+v", c)
	}

	for _, bad := range []string{"", "a.b", "a.!!!.c", makeToken("not json")} {
		if _, err := ParseClaims(bad); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("ParseClaims(%q) = %v, want ErrMalformedToken", bad, err)
		}
	}
}

func TestTokenExpired(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future exp", makeToken(`{"id":"u1","exp":1750000100}`), false},
		{"past exp", makeToken(`{"id":"u1","exp":1749999999}`), true},
		{"exp equals now", makeToken(`{"id":"u1","exp":1750000000}`), true},
		{"no exp", makeToken(`{"id":"u1"}`), false},
		{"malformed", "garbage", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenExpired(tt.token, now); got != tt.want {
				t.Errorf("TokenExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentityFromToken(t *testing.T) {
	id, err := IdentityFromToken(makeToken(`{"id":"u1","exp":1750000100}`), now)
	if err != nil {
		t.Fatalf("IdentityFromToken: %v", err)
	}
	if !id.SignedIn() || id.UserID != "u1" {
		t.Errorf("identity = %+v", id)
	}

	if _, err := IdentityFromToken(makeToken(`{"exp":1750000100}`), now); err == nil {
		t.Error("expected error for token without user id")
	}
	if _, err := IdentityFromToken(makeToken(`{"id":"u1","exp":1}`), now); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestWatcherNotifiesOnUserChange(t *testing.T) {
	w := NewWatcher()
	var seen []string
	w.Subscribe(func(id Identity) { seen = append(seen, id.UserID) })

	w.SignIn(Identity{UserID: "u1", Token: "t1"})
	w.SignIn(Identity{UserID: "u1", Token: "t2"})
	w.SignIn(Identity{UserID: "u2", Token: "t3"})
	w.SignOut()
	w.SignOut()

	want := []string{"u1", "u2", ""}
	if len(seen) != len(want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
	if w.Current().SignedIn() {
		t.Error("still signed in after SignOut")
	}
}

func TestWatcherRefreshesToken(t *testing.T) {
	w := NewWatcher()
	w.SignIn(Identity{UserID: "u1", Token: "old"})
	w.SignIn(Identity{UserID: "u1", Token: "new"})
	if got := w.Current().Token; got != "new" {
		t.Errorf("Token = %q, want new", got)
	}
}

func TestSignVerify(t *testing.T) {
	token, err := Issue("u1", "a@b.c", "s3cret", time.Hour, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c, err := Verify(token, "s3cret", now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.UserID != "u1" || c.ExpiresAt == nil || c.ExpiresAt.Unix() != now.Add(time.Hour).Unix() {
		t.Errorf("claims = %+v", c)
	}

	if _, err := Verify(token, "other", now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("wrong secret = %v, want ErrInvalidSignature", err)
	}
	if _, err := Verify(token, "s3cret", now.Add(2*time.Hour)); !errors.Is(err, ErrExpired) {
		t.Errorf("late verify = %v, want ErrExpired", err)
	}

	tampered := makeToken(`{"id":"admin"}`)
	if _, err := Verify(tampered, "s3cret", now); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered token = %v, want ErrInvalidSignature", err)
	}
	if _, err := Sign(Claims{UserID: "u1"}, ""); err == nil {
		t.Error("Sign with empty secret succeeded")
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	enc := base64.RawURLEncoding
	payload := enc.EncodeToString([]byte(`{"id":"admin"}`))

	tests := []struct {
		name  string
		token string
	}{
		{"alg none", enc.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + payload + "."},
		{"hs512", func() string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "admin"}).SignedString([]byte("s3cret"))
			if err != nil {
				t.Fatalf("signing: %v", err)
			}
			return tok
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Verify(tt.token, "s3cret", now); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("Verify = %v, want ErrInvalidSignature", err)
			}
		})
	}
}
