package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/creditdesk/internal/config"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Client reads users from a Clerk-compatible backend API. Calls are never retried;
// a failed request fails the operation that issued it.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.Directory.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.Directory.APIURL), "/"),
		secretKey: strings.TrimSpace(cfg.Directory.SecretKey),
		http:      &http.Client{Timeout: timeout},
		log:       log.Named("directory.client"),
	}
}

func (c *Client) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var users []User
	if err := c.get(ctx, "/v1/users?"+query.Encode(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, externalID string) (User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return User{}, ErrUserNotFound
	}

	var user User
	if err := c.get(ctx, "/v1/users/"+url.PathEscape(externalID), &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.baseURL == "" || c.secretKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("directory request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("path", strings.SplitN(path, "?", 2)[0]),
		)
		return fmt.Errorf("directory responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}
