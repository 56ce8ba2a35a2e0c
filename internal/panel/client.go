// Package panel talks to the game-server hosting panel's file API. The
// panel exposes raw file downloads and full-overwrite uploads per game
// server; rosterd uses it to edit the whitelist on hosts it has no shell
// access to.
package panel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every panel call. The panel API is the slowest
// dependency in the stack; a hung call must degrade, not wedge the caller.
const DefaultTimeout = 10 * time.Second

// Client wraps interactions with the hosting panel file API.
type Client struct {
	baseURL    string
	token      string
	serverID   string
	httpClient *http.Client
}

// NewClient constructs a client for one game server. token is the panel
// bearer token, serverID names the provisioned server instance.
func NewClient(baseURL, token, serverID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		serverID: serverID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Download fetches the raw contents of the file at path.
func (c *Client) Download(ctx context.Context, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/servers/%s/files/download?path=%s", c.baseURL, c.serverID, url.QueryEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("panel download %s returned status %d", path, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Upload overwrites the file at path with body. The panel has no partial
// write: every push replaces the whole file.
func (c *Client) Upload(ctx context.Context, path, body string) error {
	endpoint := fmt.Sprintf("%s/servers/%s/files/upload?path=%s", c.baseURL, c.serverID, url.QueryEscape(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("panel upload %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
