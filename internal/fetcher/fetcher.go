package fetcher

import (
	"context"
	"fmt"
	"net/http"
)

// DefaultUserAgent is a desktop browser identity shared by login and page
// fetching. The platform serves reduced markup to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

// Fetcher is an interface that defines the behavior of a web page fetcher.
// Implementations never panic and never return a bare error: a failed fetch
// is reported through Result.Error as a *Failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}

// Result is a custom response object that contains either the raw markup of
// a page or the reason it could not be retrieved.
type Result struct {
	URL        string
	StatusCode int
	Body       []byte
	Error      error
}

// OK reports whether the result carries usable markup.
func (r Result) OK() bool {
	return r.Error == nil
}

// Failure is returned when a page could not be retrieved after all attempts.
type Failure struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed after %d attempt(s): HTTP %d %s",
			f.URL, f.Attempts, f.StatusCode, http.StatusText(f.StatusCode))
	}

	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", f.URL, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Func adapts an ordinary function to the Fetcher interface.
type Func func(ctx context.Context, url string) Result

// Fetch calls f(ctx, url).
func (f Func) Fetch(ctx context.Context, url string) Result {
	return f(ctx, url)
}
