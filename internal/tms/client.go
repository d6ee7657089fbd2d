package tms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/washops/fleetbot/internal/domain"
)

// AuthCookieName is the cookie the TMS sets on sign-in and expects back on
// every authenticated request.
const AuthCookieName = "tms_v3_auth_cookie"

// DefaultPageSize matches the server-side max-count default.
const DefaultPageSize = 1500

const dateLayout = "2006-01-02"

type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticated
)

// Config carries the connection settings for one TMS account.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Client talks to the TMS HTTP API. The auth token lives here and nowhere
// else; only sign-in replaces it.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	refresh singleflight.Group

	mu    sync.Mutex
	state authState
	token string

	// OnTokenRefresh, when set, is called after each successful
	// re-authentication (not after the initial sign-in). Set it before
	// the client is shared between goroutines.
	OnTokenRefresh func()
}

func New(cfg Config, logger *zap.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// SignIn authenticates with email/password and stores the token delivered in
// the auth cookie. No retry happens here.
func (c *Client) SignIn(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("encode sign-in body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/sign-in", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign-in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sign-in status %d: %w", resp.StatusCode, ErrAuthFailed)
	}

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == AuthCookieName {
			token = ck.Value
			break
		}
	}
	if token == "" {
		return fmt.Errorf("sign-in response missing %s cookie: %w", AuthCookieName, ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = token
	c.state = stateAuthenticated
	c.mu.Unlock()

	c.logger.Info("tms signed in", zap.String("base_url", c.cfg.BaseURL))
	return nil
}

func (c *Client) currentToken() (string, authState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.state
}

// ensureAuthenticated signs in once if the client has never authenticated.
func (c *Client) ensureAuthenticated(ctx context.Context) (string, error) {
	token, state := c.currentToken()
	if state == stateAuthenticated {
		return token, nil
	}
	return c.refreshToken(ctx, token)
}

// refreshToken collapses concurrent refreshes into one sign-in. A caller
// whose stale token was already replaced by another in-flight refresh reuses
// the replacement instead of signing in again.
func (c *Client) refreshToken(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.refresh.Do("sign-in", func() (any, error) {
		token, state := c.currentToken()
		if state == stateAuthenticated && token != stale {
			return token, nil
		}
		hadToken := state == stateAuthenticated
		if err := c.SignIn(ctx); err != nil {
			return "", err
		}
		if hadToken && c.OnTokenRefresh != nil {
			c.OnTokenRefresh()
		}
		token, _ = c.currentToken()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// do issues one authenticated request, re-signing and retrying exactly once
// on 401. The body reader is rebuilt per attempt.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (*http.Response, http.Header, error) {
	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, nil, fmt.Errorf("build request %s: %w", rawURL, err)
		}
		if len(body) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
		}
		c.logger.Debug("tms request",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt))

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			if attempt > 0 {
				return nil, nil, fmt.Errorf("%s: token rejected after refresh: %w", rawURL, ErrAuthFailed)
			}
			if token, err = c.refreshToken(ctx, token); err != nil {
				return nil, nil, err
			}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			snippet := readSnippet(resp.Body)
			resp.Body.Close()
			return nil, nil, &APIError{Status: resp.StatusCode, Snippet: snippet}
		default:
			return resp, req.Header, nil
		}
	}
}

// UnitsPayload keeps the decoded snapshots together with the raw exchange so
// callers can ship the exact payload to a debug channel.
type UnitsPayload struct {
	Units       []domain.UnitSnapshot
	Raw         []byte
	URL         string
	Status      int
	RequestBody []byte
	ReqHeader   http.Header
	RespHeader  http.Header
}

// FetchUnits loads full snapshots for the given unit ids.
func (c *Client) FetchUnits(ctx context.Context, projectID int64, ids []int64) (*UnitsPayload, error) {
	reqBody, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode unit ids: %w", err)
	}
	u := fmt.Sprintf("%s/api/v1/project/%d/unit/full", c.cfg.BaseURL, projectID)

	resp, reqHeader, err := c.do(ctx, http.MethodPost, u, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read unit response: %w", err)
	}
	units, err := parseUnits(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched units",
		zap.Int("requested", len(ids)),
		zap.Int("returned", len(units)))
	return &UnitsPayload{
		Units:       units,
		Raw:         raw,
		URL:         u,
		Status:      resp.StatusCode,
		RequestBody: reqBody,
		ReqHeader:   reqHeader,
		RespHeader:  resp.Header,
	}, nil
}

// parseUnits decodes and validates the snapshot array at the boundary, so
// the rest of the system never sees half-shaped input.
func parseUnits(raw []byte) ([]domain.UnitSnapshot, error) {
	var units []domain.UnitSnapshot
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, u := range units {
		if u.ID == 0 {
			return nil, fmt.Errorf("%w: element %d has no unit id", ErrMalformedSnapshot, i)
		}
	}
	return units, nil
}

type transactionsPage struct {
	Items  []domain.TransactionRecord `json:"items"`
	NextID string                     `json:"next_id"`
}

// FetchTransactions loads every transaction page for the org between the two
// dates (inclusive), following next_id until the API stops returning one.
// There is no page ceiling here; callers wanting one should bound ctx.
func (c *Client) FetchTransactions(ctx context.Context, orgID string, from, to time.Time, pageSize int) ([]domain.TransactionRecord, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	base := fmt.Sprintf("%s/api/v1/org/%s/transactions", c.cfg.BaseURL, url.PathEscape(orgID))

	var all []domain.TransactionRecord
	nextID := ""
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("from", from.Format(dateLayout))
		q.Set("to", to.Format(dateLayout))
		q.Set("max-count", strconv.Itoa(pageSize))
		if nextID != "" {
			q.Set("next-id", nextID)
		}

		resp, _, err := c.do(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("transactions page %d: %w", page, err)
		}

		var body transactionsPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode transactions page %d: %w", page, err)
		}

		all = append(all, body.Items...)
		c.logger.Debug("fetched transactions page",
			zap.Int("page", page),
			zap.Int("items", len(body.Items)),
			zap.Bool("more", body.NextID != ""))

		if body.NextID == "" {
			return all, nil
		}
		nextID = body.NextID
	}
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
