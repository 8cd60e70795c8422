package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HRemonen/ljgrawlr/internal/fetcher"
)

func newTestServer(t *testing.T, skipLUID, skipSession bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if !skipLUID {
			http.SetCookie(w, &http.Cookie{Name: PreSessionCookie, Value: "pre-123", Path: "/"})
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		luid, err := r.Cookie(PreSessionCookie)
		if err != nil || luid.Value != "pre-123" {
			http.Error(w, "no luid", http.StatusForbidden)
			return
		}

		if r.FormValue("user") != "alice" || r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: LoggedInCookie, Value: "u1:abc", Path: "/"})
		if !skipSession {
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "v1:def", Path: "/"})
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	c, err := NewClient(Options{BaseURL: server.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	return c
}

func TestAuthenticate(t *testing.T) {
	server := newTestServer(t, false, false)
	c := newTestClient(t, server)

	session, err := c.Authenticate(context.Background(), "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, "alice", session.Username)

	cookies := session.Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, LoggedInCookie, cookies[0].Name)
	assert.Equal(t, "u1:abc", cookies[0].Value)
	assert.Equal(t, SessionCookie, cookies[1].Name)
	assert.Equal(t, "v1:def", cookies[1].Value)
}

func TestAuthenticateSendsDefaultUserAgent(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: PreSessionCookie, Value: "pre-123", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server)

	_, err := c.Authenticate(context.Background(), "alice", "secret")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, agents)
	for _, agent := range agents {
		assert.Equal(t, fetcher.DefaultUserAgent, agent)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name        string
		skipLUID    bool
		skipSession bool
		password    string
		step        string
		cookie      string
	}{
		{"no pre-session cookie", true, false, "secret", StepPreSession, PreSessionCookie},
		{"wrong password", false, false, "wrong", StepLogin, LoggedInCookie},
		{"partial session", false, true, "secret", StepLogin, SessionCookie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.skipLUID, tt.skipSession)
			c := newTestClient(t, server)

			_, err := c.Authenticate(context.Background(), "alice", tt.password)

			var failure *Failure
			require.True(t, errors.As(err, &failure), "want *Failure, got %T", err)
			assert.Equal(t, tt.step, failure.Step)
			assert.Equal(t, tt.cookie, failure.Cookie)
			assert.Contains(t, err.Error(), tt.cookie)
		})
	}
}

func TestAuthenticateUnreachable(t *testing.T) {
	server := newTestServer(t, false, false)
	c := newTestClient(t, server)
	server.Close()

	_, err := c.Authenticate(context.Background(), "alice", "secret")

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StepPreSession, failure.Step)
	assert.Error(t, failure.Err)
}

func TestAuthenticateCancelled(t *testing.T) {
	server := newTestServer(t, false, false)
	c := newTestClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Authenticate(ctx, "alice", "secret")

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, StepPreSession, failure.Step)
}
