// Package client talks to the character sheet server over its JSON API.
// The session cookie issued by Login is kept in the client's cookie jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/jackknife/charsheet/internal/models"
)

var (
	ErrUnauthorized = errors.New("not authenticated")
	ErrRejected     = errors.New("wrong username or password")
)

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

// Login signs in, registering the username on first use. Bad credentials
// return ErrRejected.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp models.SuccessResponse
	if err := c.do(ctx, http.MethodPost, "/login", models.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return ErrRejected
	}
	return nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.expectSuccess(ctx, "/logout", nil)
}

// WhoAmI returns the session's username, or ErrUnauthorized.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var resp models.WhoAmIResponse
	if err := c.do(ctx, http.MethodGet, "/whoami", nil, &resp); err != nil {
		return "", err
	}
	if resp.Username == nil {
		return "", ErrUnauthorized
	}
	return *resp.Username, nil
}

func (c *Client) ChangePassword(ctx context.Context, password string) error {
	return c.expectSuccess(ctx, "/change-password", models.ChangePasswordRequest{Password: password})
}

// Save uploads doc as the session user's sheet. doc must be valid JSON.
func (c *Client) Save(ctx context.Context, doc json.RawMessage) error {
	return c.expectSuccess(ctx, "/save", models.SaveRequest{Data: doc})
}

// Load fetches the session user's sheet; {} when none was saved.
func (c *Client) Load(ctx context.Context) (json.RawMessage, error) {
	var resp models.DataResponse
	if err := c.do(ctx, http.MethodGet, "/data", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) expectSuccess(ctx context.Context, path string, body any) error {
	var resp models.SuccessResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Status: http.StatusOK, Message: resp.Error}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		var failure models.SuccessResponse
		json.NewDecoder(res.Body).Decode(&failure)
		return &APIError{Status: res.StatusCode, Message: failure.Error}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
