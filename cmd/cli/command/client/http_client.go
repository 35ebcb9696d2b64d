package client

// http_client.go talks to the cinelist REST API and implements the
// inbox's Remote and Identity on top of it.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cinelist/cmd/cli/authentication"
	"cinelist/internal/inbox"
	"cinelist/internal/microservices/http-api/dto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	creds     *authentication.StoredCredentials
	onRefresh func(*authentication.StoredCredentials)
}

var (
	_ inbox.Remote   = (*HTTPClient)(nil)
	_ inbox.Identity = (*HTTPClient)(nil)
)

// NewHTTPClient builds a client for apiURL, e.g. http://localhost:8080/api.
func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetCredentials installs the signed-in session. onRefresh, if set, is
// called with the rotated tokens after a transparent refresh.
func (c *HTTPClient) SetCredentials(creds *authentication.StoredCredentials, onRefresh func(*authentication.StoredCredentials)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
	c.onRefresh = onRefresh
}

// CurrentUserID implements inbox.Identity.
func (c *HTTPClient) CurrentUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.creds == nil {
		return ""
	}
	return c.creds.UserID
}

// AccessToken returns the current bearer token.
func (c *HTTPClient) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.creds == nil {
		return ""
	}
	return c.creds.AccessToken
}

func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Login signs in with a username or an email.
func (c *HTTPClient) Login(ctx context.Context, identifier, password string) (*authentication.StoredCredentials, error) {
	req := dto.LoginRequest{Password: password}
	if strings.Contains(identifier, "@") {
		req.Email = identifier
	} else {
		req.Username = identifier
	}

	var resp dto.AuthResponse
	if err := c.send(ctx, http.MethodPost, "/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	creds := &authentication.StoredCredentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
		Username:     resp.Username,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return creds, nil
}

func (c *HTTPClient) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	var resp dto.RegisterResponse
	if err := c.send(ctx, http.MethodPost, "/auth/register", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the refresh token server-side and forgets the session.
func (c *HTTPClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	creds := c.creds
	c.creds = nil
	c.mu.Unlock()
	if creds == nil || creds.RefreshToken == "" {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/auth/logout", dto.RevokeTokenRequest{RefreshToken: creds.RefreshToken}, nil, false)
}

// refresh rotates the token pair. Returns false when no refresh is possible.
func (c *HTTPClient) refresh(ctx context.Context) bool {
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()
	if creds == nil || creds.RefreshToken == "" {
		return false
	}

	var resp dto.RefreshResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", dto.RefreshTokenRequest{RefreshToken: creds.RefreshToken}, &resp, false); err != nil {
		return false
	}

	next := *creds
	next.AccessToken = resp.AccessToken
	next.RefreshToken = resp.RefreshToken
	next.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()

	c.mu.Lock()
	c.creds = &next
	onRefresh := c.onRefresh
	c.mu.Unlock()
	if onRefresh != nil {
		onRefresh(&next)
	}
	return true
}

// do sends an authenticated request, refreshing once on 401.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if creds := c.currentCreds(); creds != nil && creds.Expired(time.Now()) {
		c.refresh(ctx)
	}
	err := c.send(ctx, method, path, body, out, true)
	if IsStatus(err, http.StatusUnauthorized) && c.refresh(ctx) {
		err = c.send(ctx, method, path, body, out, true)
	}
	return err
}

func (c *HTTPClient) currentCreds() *authentication.StoredCredentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		if tok := c.AccessToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // Ensure the response body is closed

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) ListSent(ctx context.Context) ([]inbox.Recommendation, error) {
	var recs []inbox.Recommendation
	if err := c.do(ctx, http.MethodGet, "/recommendations/sent", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) ListReceived(ctx context.Context) ([]inbox.Recommendation, error) {
	var recs []inbox.Recommendation
	if err := c.do(ctx, http.MethodGet, "/recommendations/received", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Recommend sends a new recommendation. Not part of inbox.Remote: the
// sender's list is refreshed by the next fetch.
func (c *HTTPClient) Recommend(ctx context.Context, req dto.CreateRecommendationDTO) (*inbox.Recommendation, error) {
	var rec inbox.Recommendation
	if err := c.do(ctx, http.MethodPost, "/recommendations", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) InsertComment(ctx context.Context, recID, content string) (*inbox.Comment, error) {
	var comment inbox.Comment
	if err := c.do(ctx, http.MethodPost, recPath(recID, "comments"), dto.CreateCommentDTO{Content: content}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *HTTPClient) DeleteComment(ctx context.Context, recID, commentID string) error {
	return c.do(ctx, http.MethodDelete, recPath(recID, "comments", commentID), nil, nil)
}

func (c *HTTPClient) SoftDeleteRecommendation(ctx context.Context, recID string) (bool, error) {
	var resp dto.DeleteRecommendationResponse
	if err := c.do(ctx, http.MethodDelete, recPath(recID), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (c *HTTPClient) UpsertRating(ctx context.Context, recID string, score int) (*inbox.Rating, error) {
	var rating inbox.Rating
	if err := c.do(ctx, http.MethodPut, recPath(recID, "rating"), dto.RateRecommendationDTO{Score: &score}, &rating); err != nil {
		return nil, err
	}
	return &rating, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, recID string) error {
	return c.do(ctx, http.MethodPost, recPath(recID, "read"), nil, nil)
}

func (c *HTTPClient) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/recommendations/read-all", nil, nil)
}

func (c *HTTPClient) MarkCommentsRead(ctx context.Context, recID string) error {
	return c.do(ctx, http.MethodPost, recPath(recID, "comments", "read"), nil, nil)
}

func recPath(recID string, rest ...string) string {
	parts := append([]string{"/recommendations", url.PathEscape(recID)}, rest...)
	return strings.Join(parts, "/")
}
