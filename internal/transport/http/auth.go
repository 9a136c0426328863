package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for bad credentials or an invalid token.
var ErrUnauthorized = errors.New("unauthorized")

// AdminClaims are carried by operator tokens.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator checks the configured admin credentials and issues HS256 tokens.
type Authenticator struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthenticator(username, password, secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Authenticator{
		username: username,
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login returns a signed token when username and password match.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if a.username == "" || len(a.secret) == 0 {
		return "", time.Time{}, ErrUnauthorized
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrUnauthorized
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a token issued by Login.
func (a *Authenticator) Verify(raw string) (*AdminClaims, error) {
	if raw == "" || len(a.secret) == 0 {
		return nil, ErrUnauthorized
	}
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

type claimsKey struct{}

// RequireAdmin rejects requests without a valid "Bearer <token>" header.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeError(w, ErrUnauthorized)
			return
		}
		claims, err := a.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ClaimsFrom returns the admin claims attached by RequireAdmin.
func ClaimsFrom(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*AdminClaims)
	return claims, ok
}
