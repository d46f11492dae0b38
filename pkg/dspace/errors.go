package dspace

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrTransport indicates the request never produced an HTTP response
	ErrTransport = errors.New("transport failure")

	// ErrHTTPStatus indicates the server answered with a non-2xx status
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrAuth indicates a login or logout call was rejected
	ErrAuth = errors.New("authentication failed")

	// ErrFile indicates a bitstream source could not be read
	ErrFile = errors.New("bitstream source unreadable")

	// ErrUnexpectedResponse indicates a 2xx body that could not be decoded
	ErrUnexpectedResponse = errors.New("unexpected response body")

	// ErrInvalidBaseURL indicates the repository URL is unusable
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// TransportError wraps network, DNS and connection failures.
type TransportError struct {
	Op     string
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// HTTPStatusError carries a non-2xx response.
type HTTPStatusError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s %s returned status %d", e.Op, e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Op, e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// AuthError is returned by Login and Logout. Err is the underlying
// *HTTPStatusError or *TransportError.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// FileError reports a bitstream source that could not be opened or read.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func (e *FileError) Is(target error) bool {
	return target == ErrFile
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
