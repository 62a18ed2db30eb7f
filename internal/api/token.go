package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WSTokenPath is the endpoint issuing short-lived real-time tokens.
const WSTokenPath = "/api/v1/auth/ws-token"

// wsTokenResponse is the wire format of the token endpoint.
type wsTokenResponse struct {
	Token string `json:"token"`
}

// WSToken requests a short-lived token for the real-time auth handshake.
// One attempt per call: the session retries only on its next reconnect.
func (c *Client) WSToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+WSTokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	var parsed wsTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("token response missing token")
	}

	c.logger.Debug("fetched realtime token")
	return parsed.Token, nil
}
