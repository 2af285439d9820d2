// Package moddb talks to the Vintage Story ModDB catalog API.
package moddb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"vs-mods-updater/mods"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://mods.vintagestory.at/api"

	defaultTimeout    = 10 * time.Second
	defaultAttempts   = 3
	defaultRetryDelay = 1500 * time.Millisecond

	// maxJSONResponseBytes bounds catalog responses (10 MB).
	maxJSONResponseBytes = 10 << 20

	createdLayout = "2006-01-02 15:04:05"
)

// ErrModNotFound is returned when the catalog has no entry for a mod ID.
var ErrModNotFound = errors.New("mod not found in catalog")

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

type (
	// Client handles communication with the ModDB API.
	Client struct {
		httpClient     *http.Client // catalog calls, Timeout bounds the whole exchange
		downloadClient *http.Client // artifacts, no overall deadline
		timeout        time.Duration
		baseURL        string
		userAgent  string // fixed User-Agent; empty picks a random one per attempt
		attempts   int
		retryDelay time.Duration
		jitter     time.Duration // upper bound of the pause after each attempt
		log        *zap.SugaredLogger
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// Mod is the catalog entry for one mod ID.
	Mod struct {
		ModID    string
		AssetID  int64
		Name     string
		Side     string
		Releases []mods.RemoteRelease
	}

	// statusCode accepts both "200" and 200.
	statusCode string

	modResponse struct {
		StatusCode statusCode `json:"statuscode"`
		Mod        *struct {
			ModID    json.RawMessage `json:"modid"`
			AssetID  int64           `json:"assetid"`
			Name     string          `json:"name"`
			Side     string          `json:"side"`
			Releases []releaseJSON   `json:"releases"`
		} `json:"mod"`
	}

	releaseJSON struct {
		ModVersion string   `json:"modversion"`
		Tags       []string `json:"tags"`
		MainFile   string   `json:"mainfile"`
		Filename   string   `json:"filename"`
		Created    string   `json:"created"`
		Changelog  string   `json:"changelog"`
	}

	gameVersionsResponse struct {
		StatusCode   statusCode `json:"statuscode"`
		GameVersions []struct {
			Name string `json:"name"`
		} `json:"gameversions"`
	}

	// httpStatusError is a non-2xx response.
	httpStatusError struct {
		Code int
		URL  string
	}
)

func (s *statusCode) UnmarshalJSON(b []byte) error {
	*s = statusCode(strings.Trim(string(b), `"`))
	return nil
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.Code)
}

// WithBaseURL overrides the API base URL, mostly for test servers.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client for catalog calls and downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.downloadClient = hc
	}
}

// WithTimeout sets the request timeout. Catalog calls must complete within it;
// downloads must connect and receive headers within it, and then abort only
// when no data arrives for that long.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the number of attempts per request and the delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithJitter sets the upper bound of the random pause after each attempt.
// Zero disables the pause.
func WithJitter(d time.Duration) Option {
	return func(c *Client) {
		c.jitter = max(d, 0)
	}
}

// WithUserAgent pins the User-Agent header instead of rotating it.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a ModDB client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout:    defaultTimeout,
		baseURL:    DefaultBaseURL,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.downloadClient == nil {
		c.downloadClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: c.timeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   c.timeout,
			ResponseHeaderTimeout: c.timeout,
			ExpectContinueTimeout: time.Second,
		}}
	}
	return c
}

func (c *Client) pickUserAgent() string {
	if c.userAgent != "" {
		return c.userAgent
	}
	return userAgents[rand.IntN(len(userAgents))]
}

func (c *Client) backoff() retry.Backoff {
	b := retry.NewConstant(c.retryDelay)
	b = retry.WithJitter(c.retryDelay/4+1, b)
	return retry.WithMaxRetries(uint64(c.attempts-1), b)
}

// pause sleeps for a random duration up to the configured jitter.
func (c *Client) pause(ctx context.Context) {
	if c.jitter <= 0 {
		return
	}
	t := time.NewTimer(rand.N(c.jitter))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, ErrModNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// do performs a GET with retries and hands a successful response to handle.
// handle owns reading the body; the body is closed afterwards.
func (c *Client) do(ctx context.Context, rawURL, accept string, handle func(*http.Response) error) error {
	attempt := 0
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, rawURL, accept, handle)
		c.pause(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		c.log.Debugw("Request failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.attempts),
			zap.Error(err))
		return retry.RetryableError(err)
	})
}

func (c *Client) once(ctx context.Context, rawURL, accept string, handle func(*http.Response) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.pickUserAgent())
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &httpStatusError{Code: resp.StatusCode, URL: rawURL}
	}
	return handle(resp)
}

func (c *Client) getJSON(ctx context.Context, rawURL string, target any) error {
	return c.do(ctx, rawURL, "application/json", func(resp *http.Response) error {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(target); err != nil {
			return fmt.Errorf("failed to decode json response: %w", err)
		}
		return nil
	})
}

// GetMod fetches the catalog entry for modID. A missing entry yields
// ErrModNotFound and is not retried.
func (c *Client) GetMod(ctx context.Context, modID string) (*Mod, error) {
	var body modResponse
	u := c.baseURL + "/mod/" + url.PathEscape(modID)
	if err := c.getJSON(ctx, u, &body); err != nil {
		if errors.Is(err, ErrModNotFound) {
			return nil, fmt.Errorf("'%s': %w", modID, ErrModNotFound)
		}
		return nil, fmt.Errorf("failed to get mod '%s': %w", modID, err)
	}
	if body.StatusCode != "200" || body.Mod == nil {
		return nil, fmt.Errorf("'%s' (statuscode %s): %w", modID, body.StatusCode, ErrModNotFound)
	}

	m := &Mod{
		ModID:   strings.Trim(string(body.Mod.ModID), `"`),
		AssetID: body.Mod.AssetID,
		Name:    body.Mod.Name,
		Side:    body.Mod.Side,
	}
	if m.ModID == "" {
		m.ModID = modID
	}
	for _, r := range body.Mod.Releases {
		m.Releases = append(m.Releases, r.toRelease())
	}
	return m, nil
}

func (r releaseJSON) toRelease() mods.RemoteRelease {
	created, _ := time.Parse(createdLayout, strings.TrimSpace(r.Created))
	return mods.RemoteRelease{
		Version:   strings.TrimSpace(r.ModVersion),
		Tags:      r.Tags,
		MainFile:  r.MainFile,
		Filename:  r.Filename,
		CreatedAt: created,
		Changelog: r.Changelog,
	}
}

// LatestGameVersion returns the newest game version the catalog knows about,
// without a leading "v".
func (c *Client) LatestGameVersion(ctx context.Context) (string, error) {
	var body gameVersionsResponse
	if err := c.getJSON(ctx, c.baseURL+"/gameversions", &body); err != nil {
		return "", fmt.Errorf("failed to get game versions: %w", err)
	}
	if len(body.GameVersions) == 0 {
		return "", errors.New("catalog returned no game versions")
	}
	latest := body.GameVersions[len(body.GameVersions)-1].Name
	return mods.CompleteVersion(latest), nil
}

// Open starts downloading rawURL and returns the response body. Establishing
// the connection is retried; the caller owns reading and closing the body.
// Reading fails once no data has arrived for the configured timeout.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	var body io.ReadCloser
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.pickUserAgent())
		req.Header.Set("Accept", "application/octet-stream")

		resp, err := c.downloadClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("failed to execute request: %w", err))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			se := &httpStatusError{Code: resp.StatusCode, URL: rawURL}
			if retryable(se) {
				return retry.RetryableError(se)
			}
			return se
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start download from %s: %w", rawURL, err)
	}
	return newIdleTimeoutBody(body, c.timeout, cancel), nil
}

// idleTimeoutBody cancels the request when a single Read waits longer than
// timeout. Time spent by the caller between reads does not count.
type idleTimeoutBody struct {
	body     io.ReadCloser
	timeout  time.Duration
	timer    *time.Timer
	cancel   context.CancelFunc
	timedOut atomic.Bool
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{body: body, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.timedOut.Store(true)
		cancel()
	})
	b.timer.Stop()
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.timer.Reset(b.timeout)
	n, err := b.body.Read(p)
	b.timer.Stop()
	if err != nil && err != io.EOF && b.timedOut.Load() {
		return n, fmt.Errorf("download stalled for more than %s: %w", b.timeout, err)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.body.Close()
}

// FilenameFromURL derives the file name of a download pointer: the "dl" query
// parameter when present, else the last path segment. The result never
// contains a directory component; "" means no usable name.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := u.Query().Get("dl")
	if name == "" {
		name = path.Base(u.Path)
	}
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	switch name {
	case ".", "/", "..":
		return ""
	}
	return name
}
