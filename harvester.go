/*
Copyright 2024 Henri Remonen

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package grawlr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/HRemonen/ljgrawlr/internal/fetcher"
)

var (
	// ErrForbiddenURL is returned when a URL is not in the AllowedURLs setting or is in the DisallowedURLs setting.
	ErrForbiddenURL = func(u string) error {
		return fmt.Errorf("URL %s is forbidden", u)
	}
	// ErrRobotsDisallowed is returned when a URL is disallowed by robots.txt.
	ErrRobotsDisallowed = func(u string) error {
		return fmt.Errorf("URL %s is disallowed by robots.txt", u)
	}
	// ErrVisitedURL is returned when a URL has already been fetched successfully.
	ErrVisitedURL = func(u string) error {
		return fmt.Errorf("URL %s has already been visited", u)
	}
	// ErrUnexpectedStatus is wrapped by failures caused by a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const (
	// DefaultUserAgent is the browser identity sent when none is configured.
	DefaultUserAgent = fetcher.DefaultUserAgent

	robotsAgent = "Grawlr"
)

// Options is a type for functional options that can be used to configure a Harvester.
type Options func(h *Harvester)

// ReqMiddleware is a type for request middlewares that can be used to modify a Request before it is fetched.
type ReqMiddleware func(req *Request)

// ResMiddleware is a type for response middlewares that can be used to inspect a Response after it is fetched.
type ResMiddleware func(res *Response)

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Harvester fetches journal pages one at a time. It retries transient failures
// with exponential backoff and pauses for a fixed delay after every fetch.
//
// Harvester implements fetcher.Fetcher.
type Harvester struct {
	// Client is the http.Client used to fetch web pages.
	Client *http.Client
	// UserAgent is sent with every request. Can be set with the WithUserAgent functional option.
	UserAgent string
	// AllowedURLs is a list of URL prefixes that are allowed to be fetched. Can be set with the WithAllowedURLs functional option.
	AllowedURLs []string
	// DisallowedURLs is a list of URL prefixes that are never fetched. Can be set with the WithDisallowedURLs functional option.
	DisallowedURLs []string
	// AllowRevisit determines whether a URL that was already fetched successfully may be fetched again. Defaults to false.
	AllowRevisit bool
	// MaxRetries is the total number of attempts per fetch, at least 1. Can be set with the WithMaxRetries functional option.
	MaxRetries int
	// Backoff is the base of the exponential backoff between attempts. Can be set with the WithBackoff functional option.
	Backoff time.Duration
	// Delay is the pause after every fetch, successful or not. Can be set with the WithDelay functional option.
	Delay time.Duration
	// Timeout bounds a single request. Zero means no per-request timeout. Can be set with the WithTimeout functional option.
	Timeout time.Duration
	// Context is the context used to optionally cancel ALL harvester's requests. Can be set with the WithContext functional option.
	Context context.Context
	// cookies are the session credentials attached to every request.
	cookies []*http.Cookie
	// store is a Storer that is used to remember fetched URLs.
	store Storer
	// sleep waits out backoff and delay periods.
	sleep Sleeper
	// logger receives transport level debug lines.
	logger *slog.Logger
	// requestMiddlewares is a list of request middlewares that are applied to each request. Can be set with RequestDo.
	requestMiddlewares []ReqMiddleware
	// responseMiddlewares is a list of response middlewares that are applied to each response. Can be set with ResponseDo.
	responseMiddlewares []ResMiddleware
	// ignoreRobots is a flag that determines whether robots.txt should be ignored, defaults to false. Can be set with the WithIgnoreRobots functional option.
	ignoreRobots bool
	// robotsMap is a map of hostnames to robotstxt.RobotsData, which is used to cache robots.txt files.
	robotsMap map[string]*robotstxt.RobotsData
	// mu is a mutex used to synchronize access to the robotsMap and the middlewares.
	mu sync.RWMutex
}

var _ fetcher.Fetcher = (*Harvester)(nil)

// NewHarvester creates a new Harvester configured with the given options.
func NewHarvester(options ...Options) *Harvester {
	h := &Harvester{
		Client:              http.DefaultClient,
		UserAgent:           DefaultUserAgent,
		AllowedURLs:         []string{},
		DisallowedURLs:      []string{},
		AllowRevisit:        false,
		MaxRetries:          3,
		Backoff:             time.Second,
		Delay:               time.Second,
		Timeout:             30 * time.Second,
		Context:             context.Background(),
		store:               NewInMemoryStore(),
		sleep:               sleepContext,
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		requestMiddlewares:  make([]ReqMiddleware, 0, 4),
		responseMiddlewares: make([]ResMiddleware, 0, 4),
		ignoreRobots:        false,
		robotsMap:           make(map[string]*robotstxt.RobotsData),
		mu:                  sync.RWMutex{},
	}

	for _, option := range options {
		option(h)
	}

	if h.MaxRetries < 1 {
		h.MaxRetries = 1
	}

	return h
}

// WithClient is a functional option that sets the http.Client for the Harvester.
func WithClient(client *http.Client) Options {
	return func(h *Harvester) {
		h.Client = client
	}
}

// WithUserAgent is a functional option that sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Options {
	return func(h *Harvester) {
		if ua != "" {
			h.UserAgent = ua
		}
	}
}

// WithCookies is a functional option that attaches session cookies to every request.
func WithCookies(cookies []*http.Cookie) Options {
	return func(h *Harvester) {
		h.cookies = append(h.cookies, cookies...)
	}
}

// WithAllowRevisit is a functional option that sets the AllowRevisit flag for the Harvester.
func WithAllowRevisit(allow bool) Options {
	return func(h *Harvester) {
		h.AllowRevisit = allow
	}
}

// WithAllowedURLs is a functional option that sets the allowed URLs for the Harvester.
func WithAllowedURLs(urls []string) Options {
	return func(h *Harvester) {
		h.AllowedURLs = urls
	}
}

// WithDisallowedURLs is a functional option that sets the disallowed URLs for the Harvester.
func WithDisallowedURLs(urls []string) Options {
	return func(h *Harvester) {
		h.DisallowedURLs = urls
	}
}

// WithMaxRetries is a functional option that sets the total number of attempts per fetch.
func WithMaxRetries(n int) Options {
	return func(h *Harvester) {
		h.MaxRetries = n
	}
}

// WithBackoff is a functional option that sets the backoff base. The wait
// before attempt n+1 is base × 2^n.
func WithBackoff(base time.Duration) Options {
	return func(h *Harvester) {
		h.Backoff = base
	}
}

// WithDelay is a functional option that sets the politeness delay after every fetch.
func WithDelay(d time.Duration) Options {
	return func(h *Harvester) {
		h.Delay = d
	}
}

// WithTimeout is a functional option that sets the per-request timeout.
func WithTimeout(d time.Duration) Options {
	return func(h *Harvester) {
		h.Timeout = d
	}
}

// WithSleeper is a functional option that replaces how the Harvester waits.
func WithSleeper(s Sleeper) Options {
	return func(h *Harvester) {
		h.sleep = s
	}
}

// WithLogger is a functional option that sets the logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Options {
	return func(h *Harvester) {
		h.logger = logger
	}
}

// WithContext is a functional option that sets the context for the Harvester.
func WithContext(ctx context.Context) Options {
	return func(h *Harvester) {
		h.Context = ctx
	}
}

// WithStore is a functional option that sets the Storer for the Harvester.
// See the Storer interface in store.go for more information.
func WithStore(store Storer) Options {
	return func(h *Harvester) {
		h.store = store
	}
}

// WithIgnoreRobots is a functional option that sets the ignoreRobots flag for the Harvester.
func WithIgnoreRobots(ignore bool) Options {
	return func(h *Harvester) {
		h.ignoreRobots = ignore
	}
}

// RequestDo adds a request middleware to the Harvester.
// Triggers the given ReqMiddleware for each attempt before it is sent.
func (h *Harvester) RequestDo(mw ReqMiddleware) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.requestMiddlewares = append(h.requestMiddlewares, mw)
}

// ResponseDo adds a response middleware to the Harvester.
// Triggers the given ResMiddleware for each response received, whatever its status.
func (h *Harvester) ResponseDo(mw ResMiddleware) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.responseMiddlewares = append(h.responseMiddlewares, mw)
}

// Visited reports whether u has already been fetched successfully.
func (h *Harvester) Visited(u string) bool {
	return h.store.Visited(u)
}

// Fetched returns the number of distinct pages fetched successfully.
func (h *Harvester) Fetched() int {
	return h.store.Len()
}

// Fetch retrieves the page at u. Failures are reported in the Result as a
// *fetcher.Failure, never returned or raised. Every call, whatever its
// outcome, ends with the configured delay.
func (h *Harvester) Fetch(ctx context.Context, u string) fetcher.Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(h.Context, cancel)
	defer stop()

	res := h.fetch(ctx, u)

	if h.Delay > 0 {
		// A cancelled delay leaves the result intact; the caller sees ctx.
		_ = h.sleep(ctx, h.Delay)
	}

	return res
}

func (h *Harvester) fetch(ctx context.Context, u string) fetcher.Result {
	failed := func(attempts, status int, err error) fetcher.Result {
		return fetcher.Result{
			URL:        u,
			StatusCode: status,
			Error:      &fetcher.Failure{URL: u, Attempts: attempts, StatusCode: status, Err: err},
		}
	}

	parsedURL, err := url.Parse(u)
	if err != nil {
		return failed(0, 0, err)
	}

	if err := h.checkFilters(parsedURL); err != nil {
		return failed(0, 0, err)
	}

	if err := h.checkRobots(ctx, parsedURL); err != nil {
		return failed(0, 0, err)
	}

	var (
		status  int
		lastErr error
	)

	for attempt := 0; attempt < h.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := h.backoff(attempt - 1)
			h.logger.Debug("retrying fetch", "url", u, "attempt", attempt+1, "wait", wait, "error", lastErr)

			if err := h.sleep(ctx, wait); err != nil {
				return failed(attempt, status, err)
			}
		}

		var body []byte
		status, body, lastErr = h.do(ctx, parsedURL, attempt)
		if lastErr == nil {
			h.store.Visit(parsedURL.String())
			return fetcher.Result{URL: u, StatusCode: status, Body: body}
		}

		if ctx.Err() != nil {
			return failed(attempt+1, status, lastErr)
		}
	}

	return failed(h.MaxRetries, status, lastErr)
}

// backoff returns base × 2^attempt.
func (h *Harvester) backoff(attempt int) time.Duration {
	return h.Backoff * time.Duration(1<<attempt)
}

// do performs a single attempt. A non-2xx response is an error.
func (h *Harvester) do(ctx context.Context, parsedURL *url.URL, attempt int) (int, []byte, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), http.NoBody)
	if err != nil {
		return 0, nil, err
	}

	h.identify(req)

	request := &Request{
		URL:     req.URL,
		Headers: &req.Header,
		Host:    req.URL.Host,
		Method:  req.Method,
		Attempt: attempt,
	}

	h.handleRequestDo(request)

	res, err := h.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}

	defer func() {
		if err := res.Body.Close(); err != nil {
			h.logger.Debug("error closing response body", "url", req.URL.String(), "error", err)
		}
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}

	response := &Response{
		StatusCode: res.StatusCode,
		Headers:    &res.Header,
		Request:    request,
	}

	h.handleResponseDo(response, b)

	if !response.OK() {
		return res.StatusCode, nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status)
	}

	return res.StatusCode, b, nil
}

// identify attaches the browser identity and the session cookies.
func (h *Harvester) identify(req *http.Request) {
	req.Header.Set("User-Agent", h.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	for _, c := range h.cookies {
		req.AddCookie(c)
	}
}

func (h *Harvester) handleRequestDo(req *Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range h.requestMiddlewares {
		m(req)
	}
}

func (h *Harvester) handleResponseDo(res *Response, body []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range h.responseMiddlewares {
		res.Body = bytes.NewReader(body)
		m(res)
	}
}

func (h *Harvester) checkRobots(ctx context.Context, parsedURL *url.URL) error {
	if h.ignoreRobots {
		return nil
	}

	h.mu.RLock()
	robot, ok := h.robotsMap[parsedURL.Host]
	h.mu.RUnlock()

	if !ok {
		if h.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.Timeout)
			defer cancel()
		}

		robotURL := parsedURL.Scheme + "://" + parsedURL.Host + "/robots.txt"

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotURL, http.NoBody)
		if err != nil {
			return err
		}

		h.identify(req)

		res, err := h.Client.Do(req)
		if err != nil {
			return err
		}

		defer func() {
			if err := res.Body.Close(); err != nil {
				h.logger.Debug("error closing response body", "url", robotURL, "error", err)
			}
		}()

		robot, err = robotstxt.FromResponse(res)
		if err != nil {
			return err
		}

		h.mu.Lock()
		h.robotsMap[parsedURL.Host] = robot
		h.mu.Unlock()
	}

	if !robot.TestAgent(parsedURL.Path, robotsAgent) {
		return ErrRobotsDisallowed(parsedURL.String())
	}

	return nil
}

func (h *Harvester) checkFilters(parsedURL *url.URL) error {
	u := parsedURL.String()

	if !h.AllowRevisit && h.store.Visited(u) {
		return ErrVisitedURL(u)
	}

	if !h.isURLAllowed(u) {
		return ErrForbiddenURL(u)
	}

	return nil
}

// isURLAllowed checks if the given URL is allowed to be fetched.
func (h *Harvester) isURLAllowed(u string) bool {
	for _, disallowed := range h.DisallowedURLs {
		if strings.HasPrefix(u, disallowed) {
			return false
		}
	}

	if len(h.AllowedURLs) == 0 {
		return true
	}

	for _, allowed := range h.AllowedURLs {
		if strings.HasPrefix(u, allowed) {
			return true
		}
	}

	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
