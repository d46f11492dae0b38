package dspace

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/afero"
)

// DefaultTokenHeader is the header DSpace reads the REST token from.
const DefaultTokenHeader = "rest-dspace-token"

// ClientContext is the immutable request context handed from the session down to
// communities, collections and items. It is a value: copies never share mutable state,
// and WithHeader derives a new context instead of changing the receiver.
type ClientContext struct {
	baseURL     string
	apiURL      string
	tokenHeader string
	token       string
	header      http.Header
	transport   *transport
	fs          afero.Fs
	locks       *findLocker
}

// BaseURL returns the repository URL the client was created with.
func (c ClientContext) BaseURL() string {
	return c.baseURL
}

// APIURL returns the REST endpoint, BaseURL + "/rest".
func (c ClientContext) APIURL() string {
	return c.apiURL
}

// Token returns the session token. The second result is false before login.
func (c ClientContext) Token() (string, bool) {
	return c.token, c.token != ""
}

// Authenticated reports whether the context carries a token.
func (c ClientContext) Authenticated() bool {
	return c.token != ""
}

// Headers returns a copy of the authenticated request headers, or nil before login.
// Requests sent without them are rejected by the server as unauthenticated.
func (c ClientContext) Headers() http.Header {
	return c.header.Clone()
}

// WithHeader returns a context whose headers are a copy of c's with key set to value.
func (c ClientContext) WithHeader(key, value string) ClientContext {
	h := c.header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set(key, value)
	c.header = h
	return c
}

// endpoint joins escaped path segments onto the API URL.
func (c ClientContext) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.apiURL + "/" + strings.Join(escaped, "/")
}
