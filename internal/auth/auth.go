/*
Package auth performs the platform's two-step cookie login.

A GET of the site root yields a pre-session "luid" cookie; a form POST of the
credentials to /login.bml with that cookie attached yields the two session
cookies that authenticated page fetches need.
*/
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/HRemonen/ljgrawlr/internal/fetcher"
)

// DefaultBaseURL is the platform root used for login.
const DefaultBaseURL = "https://www.livejournal.com"

const (
	PreSessionCookie = "luid"
	LoggedInCookie   = "ljloggedin"
	SessionCookie    = "ljmastersession"

	loginPath = "/login.bml"
)

// Login steps named in a Failure.
const (
	StepPreSession = "pre-session"
	StepLogin      = "login"
)

// Failure is returned when the login exchange does not produce the expected
// cookies. It is fatal: authenticated crawling cannot proceed without them.
type Failure struct {
	Step   string
	Cookie string
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("auth %s step failed: %v", f.Step, f.Err)
	}

	return fmt.Sprintf("auth %s step failed: cookie %q not set (HTTP %d)", f.Step, f.Cookie, f.Status)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Session holds the credentials established by Authenticate.
type Session struct {
	Username string
	cookies  []*http.Cookie
}

// Cookies returns the session cookies to attach to every page request.
func (s Session) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.cookies))
	for _, c := range s.cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}

	return out
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond bounds the login requests. Defaults to 1.
	RequestsPerSecond float64
}

// Client talks to the platform's login endpoints.
type Client struct {
	BaseURL *url.URL
	Http    *resty.Client
}

// NewClient returns a login client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = fetcher.DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetHeaders(map[string]string{
		"User-Agent":                opts.UserAgent,
		"Upgrade-Insecure-Requests": "1",
		"sec-ch-ua":                 `"Chromium";v="127"`,
		"sec-ch-ua-platform":        `"Windows"`,
	})

	// Session cookies are set on the login response itself, which may be a
	// redirect.
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	// burst of 1: the two login requests never go out back to back
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	return &Client{
		BaseURL: baseURL,
		Http:    client,
	}, nil
}

// Authenticate logs in and returns the session cookies. Any missing cookie is
// reported as a *Failure naming the step and the cookie.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Session, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		return Session{}, &Failure{Step: StepPreSession, Err: err}
	}

	luid := findCookie(res.Cookies(), PreSessionCookie)
	if luid == nil {
		return Session{}, &Failure{Step: StepPreSession, Cookie: PreSessionCookie, Status: res.StatusCode()}
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: luid.Name, Value: luid.Value}).
		SetFormData(map[string]string{
			"user":     username,
			"password": password,
		}).
		Post(loginPath)
	if err != nil {
		return Session{}, &Failure{Step: StepLogin, Err: err}
	}

	session := Session{Username: username}
	for _, name := range []string{LoggedInCookie, SessionCookie} {
		cookie := findCookie(res.Cookies(), name)
		if cookie == nil {
			return Session{}, &Failure{Step: StepLogin, Cookie: name, Status: res.StatusCode()}
		}

		session.cookies = append(session.cookies, cookie)
	}

	return session, nil
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return c
		}
	}

	return nil
}
