package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-characters-long"

func testUser() *User {
	return &User{
		ID:       "usr-abc12345",
		Username: "beekeeper",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	lifespans := []string{"3600", "1d", "2h30m"}

	for _, lifespan := range lifespans {
		token, err := EncodeUser(testUser(), testSecret, lifespan)
		if err != nil {
			t.Fatalf("EncodeUser(%q): %v", lifespan, err)
		}

		identity, err := DecodeUser(token, testSecret)
		if err != nil {
			t.Fatalf("DecodeUser(%q): %v", lifespan, err)
		}

		if identity.ID != "usr-abc12345" {
			t.Errorf("identity ID: got %q, want %q", identity.ID, "usr-abc12345")
		}
		if identity.Username != "beekeeper" {
			t.Errorf("identity username: got %q, want %q", identity.Username, "beekeeper")
		}
	}
}

func TestEncodeUserEmptySecret(t *testing.T) {
	_, err := EncodeUser(testUser(), "", "3600")
	if !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("expected ErrSigningFailed, got %v", err)
	}
}

func TestEncodeUserBadLifespan(t *testing.T) {
	for _, lifespan := range []string{"", "-5", "0", "notaspan"} {
		if _, err := EncodeUser(testUser(), testSecret, lifespan); err == nil {
			t.Errorf("EncodeUser lifespan %q: expected error, got nil", lifespan)
		}
	}
}

func TestDecodeUserWrongSecret(t *testing.T) {
	token, err := EncodeUser(testUser(), testSecret, "3600")
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}

	_, err = DecodeUser(token, "another-secret-also-32-characters-x")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestDecodeUserMalformed(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := DecodeUser(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("DecodeUser(%q): expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestDecodeUserExpired(t *testing.T) {
	// Sign a token whose expiry is already in the past.
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-abc12345",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Username: "beekeeper",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}

	if _, err := DecodeUser(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestDecodeUserRejectsUnexpectedAlgorithm(t *testing.T) {
	// "none" tokens must never validate, whatever the payload claims.
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-abc12345",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "beekeeper",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	if _, err := DecodeUser(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg=none token, got %v", err)
	}
}

func TestDecodeUserMissingSubject(t *testing.T) {
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "beekeeper",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	if _, err := DecodeUser(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for missing subject, got %v", err)
	}
}
