package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultJWKSTTL is how long fetched key sets are cached before a refetch
const DefaultJWKSTTL = 1 * time.Hour

type cachedKeySet struct {
	keys    jwk.Set
	expires time.Time
}

func (c *cachedKeySet) valid() bool {
	return c != nil && c.keys != nil && time.Now().Before(c.expires)
}

// JWKSManager fetches and caches JWKS key sets per URL. Expired entries are
// refetched on demand; a stale entry is never served.
type JWKSManager struct {
	mu     sync.RWMutex
	cache  map[string]*cachedKeySet
	ttl    time.Duration
	client *http.Client
}

// NewJWKSManager creates a new JWKS manager with the default cache TTL
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		cache:  make(map[string]*cachedKeySet),
		ttl:    DefaultJWKSTTL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetJWKS returns the key set for jwksURL, fetching it if the cached copy is
// missing or expired.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry := m.cache[jwksURL]
	m.mu.RUnlock()

	if entry.valid() {
		return entry.keys, nil
	}

	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.cache[jwksURL] = &cachedKeySet{keys: keys, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse key set: %w", err)
	}

	return keys, nil
}
