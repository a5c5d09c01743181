// Package auth mints and caches the service token used to call the downstream analytics
// consumer.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	defaultTokenTTL = 10 * time.Minute
	// a cached token is refreshed once less than this much lifetime remains
	refreshMargin = 30 * time.Second
)

var errMissingSigningSecret = errors.New("signing secret must be provided")

// TokenCacheConfig configures the service token minted by a TokenCache.
type TokenCacheConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	Subject       string
	TTL           time.Duration
	Clock         func() time.Time
}

// TokenCache hands out one HS256 service token until it nears expiry or is invalidated.
// It is safe for concurrent use.
type TokenCache struct {
	cfg     TokenCacheConfig
	mu      sync.Mutex
	token   string
	expires time.Time
	minted  int
}

// NewTokenCache creates a TokenCache with defaults for TTL and clock.
func NewTokenCache(cfg TokenCacheConfig) *TokenCache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTokenTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &TokenCache{cfg: cfg}
}

// Token returns the cached token, minting a new one when none is valid.
func (c *TokenCache) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	margin := refreshMargin
	if margin > c.cfg.TTL/2 {
		margin = c.cfg.TTL / 2
	}
	if c.token != "" && now.Add(margin).Before(c.expires) {
		return c.token, nil
	}

	token, expires, err := c.mint(now)
	if err != nil {
		return "", err
	}
	c.token, c.expires = token, expires
	c.minted++
	return token, nil
}

// Invalidate drops the cached token so the next call mints a fresh one.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expires = time.Time{}
	c.mu.Unlock()
}

// Minted reports how many tokens have been minted.
func (c *TokenCache) Minted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minted
}

func (c *TokenCache) mint(now time.Time) (string, time.Time, error) {
	if len(c.cfg.SigningSecret) == 0 {
		return "", time.Time{}, errMissingSigningSecret
	}
	now = now.UTC()
	expires := now.Add(c.cfg.TTL)

	claims := jwt.RegisteredClaims{
		Subject:   c.cfg.Subject,
		Issuer:    c.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	if c.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.SigningSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign service token: %w", err)
	}
	return signed, expires, nil
}
