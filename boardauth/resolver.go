// Package boardauth resolves an actor's identity from a bearer JWT using a
// JWKS endpoint, for deployments that don't want to trust a client-supplied
// actorId outright.
package boardauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Resolver validates bearer tokens against a single JWKS source and
// extracts the actor id ("sub" claim) from them. It is safe for concurrent
// use; keyfunc.Keyfunc refreshes its key set internally.
type Resolver struct {
	jwks           keyfunc.Keyfunc
	expectedIssuer string
}

// NewResolver builds a Resolver backed by the JWKS document at baseURL +
// "/.well-known/jwks.json". The issuer expected in validated tokens is
// baseURL's scheme and host.
func NewResolver(baseURL string) (*Resolver, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("boardauth: base URL is not set")
	}
	jwksURL := baseURL + "/.well-known/jwks.json"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("boardauth: invalid base URL: %w", err)
	}

	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("boardauth: fetching JWKS: %w", err)
	}

	return &Resolver{
		jwks:           jwks,
		expectedIssuer: u.Scheme + "://" + u.Host,
	}, nil
}

// ActorID validates tokenString and returns the actor id it identifies
// ("sub" claim, falling back to "id").
func (r *Resolver) ActorID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, r.jwks.Keyfunc,
		jwt.WithIssuer(r.expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return "", fmt.Errorf("boardauth: invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("boardauth: invalid token claims")
	}
	id := actorIDFromClaims(claims)
	if id == "" {
		return "", fmt.Errorf("boardauth: token has no subject claim")
	}
	return id, nil
}

// ActorIDFromHeader extracts and validates the bearer token from a raw
// Authorization header value ("Bearer <token>").
func (r *Resolver) ActorIDFromHeader(authHeader string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", fmt.Errorf("boardauth: missing bearer prefix")
	}
	return r.ActorID(strings.TrimSpace(authHeader[len(prefix):]))
}

func actorIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
