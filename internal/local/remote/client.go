// Package remote talks to the zange server on behalf of the local client.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SessionCookie is the cookie carrying the server session.
const SessionCookie = "zange_session"

var ErrUnauthorized = errors.New("invalid credentials")

// TokenStore persists the session token between runs.
type TokenStore interface {
	SessionToken(ctx context.Context) (string, error)
	SetSessionToken(ctx context.Context, token string) error
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenStore
}

func NewClient(baseURL string, tokens TokenStore) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Tokens:     tokens,
	}
}

type User struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

type sessionResponse struct {
	OK    bool   `json:"ok"`
	User  *User  `json:"user"`
	Error string `json:"error"`
}

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		token, err := c.Tokens.SessionToken(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		return resp, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}

func (c *Client) keepSession(ctx context.Context, resp *http.Response) error {
	if c.Tokens == nil {
		return nil
	}
	for _, ck := range resp.Cookies() {
		if ck.Name != SessionCookie {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			return c.Tokens.SetSessionToken(ctx, "")
		}
		return c.Tokens.SetSessionToken(ctx, ck.Value)
	}
	return nil
}

// Me returns the signed-in server user, or nil.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var res sessionResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/me", nil, &res); err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, nil
	}
	return res.User, nil
}

// CurrentEmail lets the client serve as the identity resolver's session
// source.
func (c *Client) CurrentEmail(ctx context.Context) (string, error) {
	u, err := c.Me(ctx)
	if err != nil || u == nil {
		return "", err
	}
	return u.Email, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.authenticate(ctx, "/api/login", map[string]string{"email": email, "password": password})
}

func (c *Client) Signup(ctx context.Context, email, password, nickname string) (*User, error) {
	return c.authenticate(ctx, "/api/signup", map[string]string{"email": email, "password": password, "nickname": nickname})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) (*User, error) {
	var res sessionResponse
	resp, err := c.do(ctx, http.MethodPost, path, body, &res)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := c.keepSession(ctx, resp); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	if err != nil {
		return err
	}
	if err := c.keepSession(ctx, resp); err != nil {
		return err
	}
	if c.Tokens != nil {
		return c.Tokens.SetSessionToken(ctx, "")
	}
	return nil
}

type FeedOwner struct {
	ID       *uint  `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

type FeedItem struct {
	ID             uint           `json:"id"`
	Text           string         `json:"text"`
	Targets        []string       `json:"targets"`
	FutureTag      string         `json:"futureTag"`
	Scope          string         `json:"scope"`
	Bg             string         `json:"bg"`
	CreatedAt      time.Time      `json:"createdAt"`
	Owner          FeedOwner      `json:"owner"`
	CommentsCount  int64          `json:"commentsCount"`
	ReactionCounts map[string]int `json:"reactionCounts"`
}

func (c *Client) Feed(ctx context.Context, limit int) ([]FeedItem, error) {
	var res struct {
		OK    bool       `json:"ok"`
		Items []FeedItem `json:"items"`
	}
	path := "/feed"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if _, err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

type ReactionSummary struct {
	Pray     int `json:"pray"`
	Laugh    int `json:"laugh"`
	Sympathy int `json:"sympathy"`
	Growth   int `json:"growth"`
	Other    int `json:"other"`
}

type ReactRequest struct {
	ZangeID      uint   `json:"zangeId"`
	Type         string `json:"type"`
	Action       string `json:"action,omitempty"`
	UserEmail    string `json:"userEmail,omitempty"`
	UserNickname string `json:"userNickname,omitempty"`
}

type ReactResponse struct {
	OK      bool            `json:"ok"`
	Summary ReactionSummary `json:"summary"`
	My      struct {
		Reacted bool `json:"reacted"`
	} `json:"my"`
}

func (c *Client) React(ctx context.Context, req ReactRequest) (*ReactResponse, error) {
	var res ReactResponse
	if _, err := c.do(ctx, http.MethodPost, "/reactions", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
