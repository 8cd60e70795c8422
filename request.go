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
	"io"
	"net/http"
	"net/url"
)

// Request is the outgoing request as seen by request middlewares. Headers
// point at the underlying http.Request, so middlewares may modify them.
type Request struct {
	URL     *url.URL
	Headers *http.Header
	Host    string
	Method  string
	// Attempt is the zero based attempt number of this request.
	Attempt int
}

// Response is a received response as seen by response middlewares. Body is
// a fresh reader over the full body for every middleware.
type Response struct {
	StatusCode int
	Headers    *http.Header
	Request    *Request
	Body       io.Reader
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
