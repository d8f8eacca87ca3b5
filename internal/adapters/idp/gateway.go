package idp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"eventcheckin/internal/domain"
)

// Default endpoints (Google). All of them can be overridden via Config for
// other OpenID Connect providers or for tests.
const (
	DefaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	DefaultJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
	DefaultIssuer   = "https://accounts.google.com"
)

// jwksRefreshInterval bounds how often an unknown key id triggers a refetch.
const jwksRefreshInterval = time.Minute

// Config holds identity-provider settings for the gateway.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	JWKSURL      string
	Issuer       string
	// Audience defaults to ClientID when empty.
	Audience string
}

// Gateway implements domain.IdentityGateway over an OIDC provider: the
// authorization-code flow via golang.org/x/oauth2 and ID-token verification
// against the provider's JWKS.
type Gateway struct {
	oauth    *oauth2.Config
	jwksURL  string
	issuer   string
	audience string
	client   *http.Client

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time
}

// NewGateway creates a Gateway from config, filling in Google defaults for
// any endpoint left empty.
func NewGateway(cfg Config) *Gateway {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = DefaultJWKSURL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = cfg.ClientID
	}
	return &Gateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		jwksURL:  cfg.JWKSURL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		client:   &http.Client{Timeout: 10 * time.Second},
		keys:     make(map[string]*rsa.PublicKey),
	}
}

func (g *Gateway) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

func (g *Gateway) Exchange(ctx context.Context, code string) (*domain.Identity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", domain.ErrAuthFailed, err)
	}
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: token response carries no id_token", domain.ErrAuthFailed)
	}
	return g.VerifyIDToken(ctx, raw)
}

// idTokenClaims are the OIDC ID-token claims this application reads.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (g *Gateway) VerifyIDToken(ctx context.Context, rawToken string) (*domain.Identity, error) {
	claims := &idTokenClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(tok *jwt.Token) (any, error) {
		kid, _ := tok.Header["kid"].(string)
		return g.keyForKID(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(g.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: id token has no subject", domain.ErrAuthFailed)
	}
	return &domain.Identity{
		SubjectID: claims.Subject,
		Email:     strings.TrimSpace(claims.Email),
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

// jwksDocument is the JSON Web Key Set shape served by the provider.
type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// keyForKID returns the RSA public key for the given key id, refetching the
// JWKS when the kid is unknown (rate-limited so a bad token cannot hammer the
// provider).
func (g *Gateway) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if key, ok := g.keys[kid]; ok {
		return key, nil
	}
	if !g.lastFetch.IsZero() && time.Since(g.lastFetch) < jwksRefreshInterval {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	if err := g.fetchKeysLocked(ctx); err != nil {
		return nil, err
	}
	key, ok := g.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (g *Gateway) fetchKeysLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			return fmt.Errorf("parse jwks key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}
	g.keys = keys
	g.lastFetch = time.Now()
	return nil
}

func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exponent := 0
	for _, b := range eb {
		exponent = exponent<<8 | int(b)
	}
	if exponent == 0 {
		return nil, fmt.Errorf("exponent is zero")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: exponent}, nil
}
