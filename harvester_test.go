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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HRemonen/ljgrawlr/internal/fetcher"
)

var helloBytes = []byte("Hello, client\n")

type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (c *hitCounter) hit(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits[path]++
	return c.hits[path]
}

func (c *hitCounter) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits[path]
}

func newUnstartedTestServer() (*httptest.Server, *hitCounter) {
	counter := &hitCounter{hits: make(map[string]int)}
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(helloBytes)
	})

	mux.HandleFunc("/heavyweight", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second * 2): // Simulate work
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("hello"))
		case <-r.Context().Done(): // Handle request cancellation
			http.Error(w, "Request canceled", http.StatusRequestTimeout)
		}
	})

	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	})

	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if counter.count("/flaky") <= 2 {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("finally"))
	})

	mux.Handle("/404", http.NotFoundHandler())

	mux.Handle("/allowed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Allowed"))
	}))

	mux.Handle("/disallowed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Disallowed"))
	}))

	mux.Handle("/robots.txt", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow: /disallowed"))
	}))

	mux.Handle("/user_agent", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(r.Header.Get("User-Agent")))
	}))

	mux.Handle("/cookies", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, name := range []string{"ljloggedin", "ljmastersession"} {
			c, err := r.Cookie(name)
			if err != nil {
				http.Error(w, "missing "+name, http.StatusForbidden)
				return
			}
			fmt.Fprintf(w, "%s=%s;", c.Name, c.Value)
		}
	}))

	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.hit(r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	return httptest.NewUnstartedServer(counted), counter
}

func newTestServer() (*httptest.Server, *hitCounter) {
	server, counter := newUnstartedTestServer()
	server.Start()

	return server, counter
}

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slept = append(s.slept, d)
	return ctx.Err()
}

func (s *sleepRecorder) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.slept...)
}

func newTestHarvester(options ...Options) (*Harvester, *sleepRecorder) {
	client := &http.Client{
		Timeout: time.Second * 10,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	sleeper := &sleepRecorder{}

	defaults := []Options{WithClient(client), WithSleeper(sleeper.Sleep)}

	return NewHarvester(append(defaults, options...)...), sleeper
}

func failureOf(t *testing.T, res fetcher.Result) *fetcher.Failure {
	t.Helper()

	var failure *fetcher.Failure
	require.True(t, errors.As(res.Error, &failure), "expected *fetcher.Failure, got %T (%v)", res.Error, res.Error)

	return failure
}

func TestHarvester_Fetch(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	RequestDoCalled := false
	ResponseDoCalled := false

	h, _ := newTestHarvester()

	h.RequestDo(func(req *Request) {
		RequestDoCalled = true
		req.Headers.Set("User-Agent", "Test User Agent")
	})

	h.ResponseDo(func(res *Response) {
		ResponseDoCalled = true

		assert.Equal(t, server.URL+"/", res.Request.URL.String())
		assert.Equal(t, "Test User Agent", res.Request.Headers.Get("User-Agent"))
		assert.Equal(t, http.StatusOK, res.StatusCode)

		bodyBytes, err := io.ReadAll(res.Body)

		assert.NoError(t, err)
		assert.Equal(t, helloBytes, bodyBytes)
	})

	res := h.Fetch(context.Background(), server.URL+"/")

	assert.True(t, res.OK())
	assert.Equal(t, helloBytes, res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, h.Visited(server.URL+"/"))
	assert.Equal(t, 1, h.Fetched())

	if !RequestDoCalled {
		t.Error("RequestDo middleware was not called")
	}

	if !ResponseDoCalled {
		t.Error("ResponseDo middleware was not called")
	}
}

func TestHarvester_FetchSendsBrowserIdentity(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester()

	res := h.Fetch(context.Background(), server.URL+"/user_agent")
	require.True(t, res.OK())
	assert.Equal(t, DefaultUserAgent, string(res.Body))
	assert.Equal(t, fetcher.DefaultUserAgent, DefaultUserAgent)

	h, _ = newTestHarvester(WithUserAgent("Custom/1.0"))

	res = h.Fetch(context.Background(), server.URL+"/user_agent")
	require.True(t, res.OK())
	assert.Equal(t, "Custom/1.0", string(res.Body))
}

func TestHarvester_FetchSendsSessionCookies(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester()

	res := h.Fetch(context.Background(), server.URL+"/cookies")
	assert.Equal(t, http.StatusForbidden, failureOf(t, res).StatusCode)

	h, _ = newTestHarvester(WithCookies([]*http.Cookie{
		{Name: "ljloggedin", Value: "u1"},
		{Name: "ljmastersession", Value: "v1"},
	}))

	res = h.Fetch(context.Background(), server.URL+"/cookies")
	require.True(t, res.OK())
	assert.Equal(t, "ljloggedin=u1;ljmastersession=v1;", string(res.Body))
}

func TestHarvester_FetchFailsAfterRetryCeiling(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, sleeper := newTestHarvester(
		WithMaxRetries(3),
		WithBackoff(time.Second),
		WithDelay(500*time.Millisecond),
	)

	responses := 0
	h.ResponseDo(func(res *Response) {
		responses++
	})

	res := h.Fetch(context.Background(), server.URL+"/error")

	failure := failureOf(t, res)
	assert.Equal(t, 3, failure.Attempts)
	assert.Equal(t, http.StatusInternalServerError, failure.StatusCode)
	assert.ErrorIs(t, res.Error, ErrUnexpectedStatus)
	assert.Nil(t, res.Body)

	assert.Equal(t, 3, counter.count("/error"))
	assert.Equal(t, 3, responses)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 500 * time.Millisecond}, sleeper.Slept())
	assert.False(t, h.Visited(server.URL+"/error"))
}

func TestHarvester_FetchRecoversWithinRetryCeiling(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, sleeper := newTestHarvester(WithMaxRetries(3), WithBackoff(100*time.Millisecond), WithDelay(0))

	res := h.Fetch(context.Background(), server.URL+"/flaky")

	require.True(t, res.OK(), "unexpected failure: %v", res.Error)
	assert.Equal(t, "finally", string(res.Body))
	assert.Equal(t, 3, counter.count("/flaky"))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.Slept())
}

func TestHarvester_FetchWithSingleAttempt(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester(WithMaxRetries(0), WithDelay(0))
	assert.Equal(t, 1, h.MaxRetries)

	res := h.Fetch(context.Background(), server.URL+"/404")

	assert.Equal(t, 1, failureOf(t, res).Attempts)
	assert.Equal(t, 1, counter.count("/404"))
}

func TestHarvester_DelayFollowsEveryFetch(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	h, sleeper := newTestHarvester(WithMaxRetries(1), WithDelay(2*time.Second), WithAllowedURLs([]string{server.URL + "/allowed"}))

	h.Fetch(context.Background(), server.URL+"/allowed")
	h.Fetch(context.Background(), server.URL+"/allowed/missing")
	h.Fetch(context.Background(), server.URL+"/forbidden")

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, sleeper.Slept())
}

func TestHarvester_FetchWithAllowedURLs(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	allowed := []string{
		server.URL + "/allowed",
		server.URL + "/faq",
	}

	h, _ := newTestHarvester(WithAllowedURLs(allowed), WithIgnoreRobots(true))

	url := server.URL + "/"
	res := h.Fetch(context.Background(), url)
	assert.EqualError(t, failureOf(t, res).Err, fmt.Sprintf("URL %s is forbidden", url))

	url = server.URL + "/disallowed"
	res = h.Fetch(context.Background(), url)
	assert.EqualError(t, failureOf(t, res).Err, fmt.Sprintf("URL %s is forbidden", url))

	assert.Equal(t, 0, counter.count("/"))
	assert.Equal(t, 0, counter.count("/disallowed"))
}

func TestHarvester_FetchWithDisallowedURLs(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	disallowed := []string{
		server.URL + "/allowed",
		server.URL + "/faq",
	}

	ResponseDoCalled := false

	h, _ := newTestHarvester(WithDisallowedURLs(disallowed))

	h.ResponseDo(func(res *Response) {
		ResponseDoCalled = true

		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	url := server.URL + "/allowed"
	res := h.Fetch(context.Background(), url)
	assert.EqualError(t, failureOf(t, res).Err, fmt.Sprintf("URL %s is forbidden", url))
	assert.Zero(t, failureOf(t, res).Attempts)

	url = server.URL + "/"
	res = h.Fetch(context.Background(), url)
	assert.NoError(t, res.Error)

	if !ResponseDoCalled {
		t.Error("ResponseDo middleware was not called")
	}
}

func TestHarvester_FetchRespectsRobots(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester(WithMaxRetries(3))

	url := server.URL + "/disallowed"
	res := h.Fetch(context.Background(), url)
	assert.EqualError(t, failureOf(t, res).Err, fmt.Sprintf("URL %s is disallowed by robots.txt", url))
	assert.Equal(t, 0, counter.count("/disallowed"))

	res = h.Fetch(context.Background(), server.URL+"/allowed")
	assert.True(t, res.OK())
	assert.Equal(t, 1, counter.count("/robots.txt"), "robots.txt is cached per host")

	h, _ = newTestHarvester(WithIgnoreRobots(true))

	res = h.Fetch(context.Background(), url)
	assert.True(t, res.OK())
	assert.Equal(t, "Disallowed", string(res.Body))
}

func TestHarvester_FetchRevisit(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester()

	url := server.URL + "/"
	require.True(t, h.Fetch(context.Background(), url).OK())

	res := h.Fetch(context.Background(), url)
	assert.EqualError(t, failureOf(t, res).Err, fmt.Sprintf("URL %s has already been visited", url))
	assert.Equal(t, 1, counter.count("/"))

	h, _ = newTestHarvester(WithAllowRevisit(true))

	require.True(t, h.Fetch(context.Background(), url).OK())
	require.True(t, h.Fetch(context.Background(), url).OK())
	assert.Equal(t, 3, counter.count("/"))
}

func TestHarvester_FetchWithContext(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	h, _ := newTestHarvester(WithContext(ctx), WithMaxRetries(5), WithIgnoreRobots(true))

	h.ResponseDo(func(res *Response) {
		t.Error("ResponseDo middleware should not be called")
	})

	res := h.Fetch(context.Background(), server.URL+"/heavyweight")

	failure := failureOf(t, res)
	assert.Equal(t, 1, failure.Attempts)
	assert.ErrorIs(t, res.Error, context.Canceled)
	assert.Equal(t, 1, counter.count("/heavyweight"))
}

func TestHarvester_FetchTimeout(t *testing.T) {
	server, counter := newTestServer()
	defer server.Close()

	h, _ := newTestHarvester(WithTimeout(50*time.Millisecond), WithMaxRetries(2), WithIgnoreRobots(true))

	res := h.Fetch(context.Background(), server.URL+"/heavyweight")

	failure := failureOf(t, res)
	assert.Equal(t, 2, failure.Attempts)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
	assert.Equal(t, 2, counter.count("/heavyweight"))
}

func TestHarvester_FetchTimeoutCoversRobots(t *testing.T) {
	counter := &hitCounter{hits: make(map[string]int)}
	mux := http.NewServeMux()

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		counter.hit(r.URL.Path)
		w.Write(helloBytes)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	h, _ := newTestHarvester(WithTimeout(100 * time.Millisecond))

	start := time.Now()
	res := h.Fetch(context.Background(), server.URL+"/entry")

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
	assert.Equal(t, 0, counter.count("/entry"))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	assert.NoError(t, sleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
