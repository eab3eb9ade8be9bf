package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"farmledger/crypto"
)

type contextKey string

const contextKeyCaller contextKey = "farm.caller"

var errAuthDisabled = errors.New("RPC authentication not configured")

// Authenticator resolves the calling account from an HS256 bearer token whose
// subject is a bech32 farm address.
type Authenticator struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{
		secret:    []byte(strings.TrimSpace(secret)),
		issuer:    strings.TrimSpace(issuer),
		clockSkew: 2 * time.Minute,
	}
}

// Enabled reports whether a signing secret is configured.
func (a *Authenticator) Enabled() bool { return a != nil && len(a.secret) > 0 }

// Middleware attaches the authenticated caller, if any, to the request
// context. Requests without a token pass through; methods that need a caller
// reject them at dispatch.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := a.Authenticate(header)
		ctx := context.WithValue(r.Context(), contextKeyCaller, callerResult{addr: caller, err: err})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type callerResult struct {
	addr [20]byte
	err  error
}

// callerFrom returns the authenticated account attached by Middleware.
func callerFrom(ctx context.Context) ([20]byte, error) {
	res, ok := ctx.Value(contextKeyCaller).(callerResult)
	if !ok {
		return [20]byte{}, errors.New("missing bearer token")
	}
	return res.addr, res.err
}

// Authenticate validates an Authorization header value.
func (a *Authenticator) Authenticate(header string) ([20]byte, error) {
	if !a.Enabled() {
		return [20]byte{}, errAuthDisabled
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return [20]byte{}, errors.New("Authorization header must use Bearer scheme")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return [20]byte{}, errors.New("missing bearer token")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.clockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return [20]byte{}, errors.New("invalid token")
	}
	addr, err := crypto.ParseAddress(claims.Subject)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid token subject: %w", err)
	}
	return addr, nil
}

// IssueToken signs a bearer token for subject valid for ttl.
func IssueToken(secret, issuer string, subject [20]byte, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errAuthDisabled
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		Subject:   crypto.FromRaw(subject).String(),
		Issuer:    strings.TrimSpace(issuer),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}
