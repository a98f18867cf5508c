// Package identity talks to the upstream identity provider that owns user
// sign-in. The authorization layer only ever asks it one thing: whether a
// user-presented id token is genuine, and for whom.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidToken is returned when the provider rejects the token.
var ErrInvalidToken = errors.New("identity: invalid token")

// Identity is the provider's answer for a valid token.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Verifier checks user id tokens against the identity provider.
type Verifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Identity, error)
}

// Client is the HTTP implementation of Verifier.
type Client struct {
	// Endpoint is the provider's verification URL.
	Endpoint string
	HTTP     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{Endpoint: endpoint, HTTP: http.DefaultClient}
}

func (c *Client) VerifyIDToken(ctx context.Context, token string) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id Identity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return nil, fmt.Errorf("decode identity response: %w", err)
		}
		if id.UID == "" {
			return nil, fmt.Errorf("%w: response carries no uid", ErrInvalidToken)
		}
		return &id, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("identity provider responded with status code %d", resp.StatusCode)
	}
}
