package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DiscoverJWKSURL resolves the JWKS URL for an issuer via the OIDC discovery
// document. If discovery fails, it falls back to the conventional
// /.well-known/jwks.json path under the issuer.
func DiscoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	issuer = strings.TrimRight(issuer, "/")
	if issuer == "" {
		return "", fmt.Errorf("issuer is required")
	}

	discoveryURL := issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create discovery request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err == nil {
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode == http.StatusOK {
			var discovery struct {
				JWKSURI string `json:"jwks_uri"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&discovery); err == nil && discovery.JWKSURI != "" {
				return discovery.JWKSURI, nil
			}
		}
	}

	// Fallback: conventional JWKS path (Cognito, most hosted IdPs)
	return issuer + "/.well-known/jwks.json", nil
}
