package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status   int
	Kind     gameerr.Kind
	Message  string
	Metadata map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.Status)
	}
	return e.Message
}

// Is lets callers compare remote errors with the gameerr sentinels
func (e *APIError) Is(target error) bool {
	ge, ok := target.(*gameerr.Error)
	return ok && e.Kind != "" && ge.Kind == e.Kind
}

// Client calls the REST API. It satisfies syncer.Fetcher so a replica can
// re-fetch the authoritative game.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the bearer credential sent with player actions
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of the client acting with token
func (c *Client) As(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the credential sent with each request
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if actionID := service.ActionIDFromContext(ctx); actionID != "" {
		req.Header.Set(ActionIDHeader, actionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		json.NewDecoder(resp.Body).Decode(&errResp)
		return &APIError{
			Status:   resp.StatusCode,
			Kind:     gameerr.Kind(errResp.Kind),
			Message:  errResp.Error,
			Metadata: errResp.Metadata,
		}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func gamePath(gameID string, parts ...string) string {
	p := "/api/games/" + url.PathEscape(gameID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// CreateGame creates a game on boardID; empty values use server defaults
func (c *Client) CreateGame(ctx context.Context, boardID, gameID string) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.call(ctx, http.MethodPost, "/api/games", CreateGameRequest{BoardID: boardID, GameID: gameID}, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// ListGames lists games, optionally filtered by status
func (c *Client) ListGames(ctx context.Context, status string) (*ListGamesResponse, error) {
	path := "/api/games"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp ListGamesResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetGame fetches a game with its move hints
func (c *Client) GetGame(ctx context.Context, gameID string) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.call(ctx, http.MethodGet, gamePath(gameID), nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// FetchGame returns the authoritative game record
func (c *Client) FetchGame(ctx context.Context, gameID string) (*session.Game, error) {
	info, err := c.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return info.Game, nil
}

// DeleteGame removes a game
func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.call(ctx, http.MethodDelete, gamePath(gameID), nil, nil)
}

func (c *Client) act(ctx context.Context, gameID, action string, body interface{}) (*service.ActionResult, error) {
	var result service.ActionResult
	if err := c.call(ctx, http.MethodPost, gamePath(gameID, action), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Join seats the caller
func (c *Client) Join(ctx context.Context, gameID string) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "join", nil)
}

// Start starts a waiting game
func (c *Client) Start(ctx context.Context, gameID string) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "start", nil)
}

// Roll rolls the die for the caller
func (c *Client) Roll(ctx context.Context, gameID string) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "roll", nil)
}

// Move moves one of the caller's pawns by the pending roll
func (c *Client) Move(ctx context.Context, gameID string, pawnIndex int) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "move", MoveRequest{PawnIndex: &pawnIndex})
}

// Resign leaves the game
func (c *Client) Resign(ctx context.Context, gameID string) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "resign", nil)
}

// Pass gives up a turn that has no legal move
func (c *Client) Pass(ctx context.Context, gameID string) (*service.ActionResult, error) {
	return c.act(ctx, gameID, "pass", nil)
}

// ListBoards lists the board presets
func (c *Client) ListBoards(ctx context.Context) ([]*service.BoardInfo, error) {
	var boards []*service.BoardInfo
	if err := c.call(ctx, http.MethodGet, "/api/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// Health reports whether the server answers
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}
