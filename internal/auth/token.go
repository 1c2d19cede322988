package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/karrick/tparse/v2"
)

// accessClaims is the JWT claim set carried by an access token:
// subject is the user id, username is a custom claim.
type accessClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// EncodeUser creates a signed access token for a user.
//
// The token carries the user id as subject, the username as a custom
// claim, and an expiry `lifespan` in the future. Lifespan accepts a
// plain seconds count ("86400") or a human span ("1d", "2h30m").
// Tokens are stateless: validity is determined purely by signature and
// expiry, with no server-side revocation.
//
// Parameters:
//   - user: The account to issue the token for
//   - secret: HMAC-SHA-256 signing secret
//   - lifespan: Token lifetime (seconds count or human span)
//
// Returns:
//   - string: Signed compact JWT
//   - error: ErrSigningFailed if the secret is empty or signing fails
func EncodeUser(user *User, secret, lifespan string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", ErrSigningFailed)
	}

	now := time.Now()
	expiry, err := addLifespan(now, lifespan)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return signed, nil
}

// DecodeUser validates an access token and returns the identity it carries.
//
// It checks the signature (HS256 only) and expiry. Every failure mode
// (malformed token, signature mismatch, elapsed expiry) is reported as
// ErrTokenInvalid so callers cannot leak which check failed; the
// underlying cause is wrapped for diagnostic logging only.
func DecodeUser(tokenString, secret string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return &Identity{
		ID:       claims.Subject,
		Username: claims.Username,
	}, nil
}

// addLifespan resolves a lifespan spec against a base time. A spec of
// bare digits is a seconds count; anything else is parsed as a human
// span ("1d", "2h30m", "90m").
func addLifespan(base time.Time, lifespan string) (time.Time, error) {
	if lifespan == "" {
		return time.Time{}, fmt.Errorf("empty lifespan")
	}

	if seconds, err := strconv.Atoi(lifespan); err == nil {
		if seconds <= 0 {
			return time.Time{}, fmt.Errorf("lifespan must be positive, got %d", seconds)
		}
		return base.Add(time.Duration(seconds) * time.Second), nil
	}

	expiry, err := tparse.AddDuration(base, lifespan)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing lifespan %q: %w", lifespan, err)
	}
	if !expiry.After(base) {
		return time.Time{}, fmt.Errorf("lifespan %q is not positive", lifespan)
	}
	return expiry, nil
}
