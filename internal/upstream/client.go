// Package upstream is the client for the hosted people-management service.
// It reads and writes per-person custom field values, resolves field display
// names to the service's opaque definition ids, and routes every request
// through the rate governor.
package upstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/dshills/onboard/internal/govern"
)

// Environment variables holding the service credentials.
const (
	EnvAppID  = "ONBOARD_APP_ID"
	EnvSecret = "ONBOARD_SECRET"
)

// defaultPerPage is the fixed page size for catalog scans.
const defaultPerPage = 100

// Client talks to the people service. All requests go through the governor;
// a single Client (and its governor) is shared process-wide.
type Client struct {
	baseURL string
	auth    string // precomputed Authorization header value
	gov     *govern.Governor
	logger  *slog.Logger
	perPage int

	// upserts serializes create-or-update per (person, field) pair so two
	// concurrent first-time upserts cannot both take the create branch.
	upserts keyedMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithCredentials sets the basic-auth credentials explicitly, bypassing the
// environment. Intended for tests.
func WithCredentials(appID, secret string) ClientOption {
	return func(c *Client) { c.auth = basicAuth(appID, secret) }
}

// WithPageSize overrides the catalog scan page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) { c.perPage = n }
}

// NewClient builds a Client for the service at baseURL. Credentials are read
// from ONBOARD_APP_ID and ONBOARD_SECRET unless supplied via WithCredentials,
// and are validated at construction time.
func NewClient(baseURL string, gov *govern.Governor, opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		gov:     gov,
		logger:  slog.Default(),
		perPage: defaultPerPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == "" {
		appID := os.Getenv(EnvAppID)
		secret := os.Getenv(EnvSecret)
		if appID == "" || secret == "" {
			return nil, fmt.Errorf("%s and %s environment variables must be set", EnvAppID, EnvSecret)
		}
		c.auth = basicAuth(appID, secret)
	}
	return c, nil
}

// PersonFieldData fetches the person's current field values with the field
// definitions included, in one governed call. A missing person surfaces as a
// TransportError with status 404.
func (c *Client) PersonFieldData(ctx context.Context, personID string) (*FieldData, error) {
	u := fmt.Sprintf("%s/people/%s/field_data?include=field_definition&per_page=%d",
		c.baseURL, url.PathEscape(personID), c.perPage)
	res, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, newTransportError(res.StatusCode, res.Body)
	}
	return parseFieldData(res.Body)
}

// get issues a governed GET with auth headers set.
func (c *Client) get(ctx context.Context, u string) (*govern.Result, error) {
	return c.gov.Execute(ctx, govern.Request{
		Method: http.MethodGet,
		URL:    u,
		Header: c.headers(),
	})
}

// write issues a governed POST or PATCH carrying a JSON body.
func (c *Client) write(ctx context.Context, method, u string, body []byte) (*govern.Result, error) {
	h := c.headers()
	h.Set("Content-Type", "application/json")
	return c.gov.Execute(ctx, govern.Request{
		Method: method,
		URL:    u,
		Header: h,
		Body:   body,
	})
}

func (c *Client) headers() http.Header {
	h := make(http.Header)
	h.Set("Authorization", c.auth)
	h.Set("Accept", "application/json")
	return h
}

func basicAuth(appID, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(appID+":"+secret))
}

// keyedMutex hands out one mutex per key. Entries are retained for the life
// of the client; the key space is bounded by the persons and fields actually
// synced in a run.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
