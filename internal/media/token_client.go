// Package media talks to the external media-session token service. Tokens
// are minted there; this client only fetches them.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TokenMinter fetches a time-limited media-session token for a channel and
// numeric participant id.
type TokenMinter interface {
	MintToken(ctx context.Context, channel string, uid int) (string, error)
}

// HTTPTokenClient is the default TokenMinter over the collaborator's REST
// endpoint.
type HTTPTokenClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTokenClient builds an HTTPTokenClient. baseURL may be empty, in
// which case every mint fails with ErrNotConfigured.
func NewHTTPTokenClient(baseURL string) *HTTPTokenClient {
	return &HTTPTokenClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// ErrNotConfigured marks a missing media token service endpoint.
var ErrNotConfigured = errors.New("media token service not configured")

// MintToken requests a token for the channel/uid pair.
func (c *HTTPTokenClient) MintToken(ctx context.Context, channel string, uid int) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/token?channel=%s&uid=%s",
		c.baseURL, url.QueryEscape(channel), strconv.Itoa(uid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mint token: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("empty token in response")
	}
	return body.Token, nil
}
