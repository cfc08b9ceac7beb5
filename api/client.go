// Package api talks to the game server's REST endpoints for accounts and
// table creation. Table play itself goes over the websocket channel.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const bearerPrefix = "Bearer "

// ErrUnauthorized is returned for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// Credentials are sent to login and register.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// CreateGameResponse is returned by /game/create.
type CreateGameResponse struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

// StatusError is a non-2xx response. Message is the server's "error" field
// when present.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d", e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client holds the REST base URL and the current login token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	log     *slog.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.With("tag", "api"),
	}
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register creates an account and keeps the returned token on the client.
func (c *Client) Register(ctx context.Context, creds Credentials) (AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, path, creds, &resp); err != nil {
		return AuthResponse{}, err
	}
	if resp.Token == "" {
		return AuthResponse{}, fmt.Errorf("%s: response without token", path)
	}
	if resp.Username == "" {
		resp.Username = creds.Username
	}
	c.Token = resp.Token
	c.log.Info("authenticated", "user", resp.Username)
	return resp, nil
}

// CreateGame asks the server for a new table.
func (c *Client) CreateGame(ctx context.Context, name string) (CreateGameResponse, error) {
	var resp CreateGameResponse
	if err := c.post(ctx, "/game/create", map[string]string{"name": name}, &resp); err != nil {
		return CreateGameResponse{}, err
	}
	if resp.GameID == "" {
		return CreateGameResponse{}, fmt.Errorf("/game/create: response without gameId")
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", bearerPrefix+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		c.log.Debug("request failed", "path", path, "status", res.StatusCode)
		return fmt.Errorf("%s: %w", path, &StatusError{Status: res.StatusCode, Message: e.Error})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}
