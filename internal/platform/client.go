// Package platform is the outbound client for the chat platform's Web API.
// Only the four calls the bot consumes are implemented: fetch a user
// profile, set a user status, open a modal form, and post a direct message.
//
// Every call either completes or returns a plain error; there are no
// retries or backoff anywhere.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Profile is the subset of a user profile the bot cares about.
type Profile struct {
	DisplayName string `json:"display_name"`
	Image       string `json:"image_512"`
}

// Client communicates with the chat platform's Web API over HTTP using a
// bot token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// envelope is the common response wrapper: every API method reports
// success through an "ok" flag and failures through an "error" code.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call POSTs a JSON payload to method and decodes the response into out.
// out may embed envelope; the ok flag is always checked.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding %s envelope: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("%s failed: %s", method, env.Error)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding %s payload: %w", method, err)
		}
	}
	return nil
}

// GetUserProfile fetches the current profile of userID.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (Profile, error) {
	var resp struct {
		envelope
		Profile Profile `json:"profile"`
	}
	err := c.call(ctx, "users.profile.get", map[string]string{"user": userID}, &resp)
	if err != nil {
		return Profile{}, err
	}
	return resp.Profile, nil
}

// SetUserStatus sets the status text, emoji, and expiration on userID's
// profile. expiration is an epoch timestamp; zero means no expiration.
func (c *Client) SetUserStatus(ctx context.Context, userID, text, emoji string, expiration int64) error {
	payload := map[string]any{
		"user": userID,
		"profile": map[string]any{
			"status_text":       text,
			"status_emoji":      emoji,
			"status_expiration": expiration,
		},
	}
	return c.call(ctx, "users.profile.set", payload, nil)
}

// PostMessage sends a direct message to userID.
func (c *Client) PostMessage(ctx context.Context, userID, text string) error {
	payload := map[string]string{
		"channel": userID,
		"text":    text,
	}
	return c.call(ctx, "chat.postMessage", payload, nil)
}
