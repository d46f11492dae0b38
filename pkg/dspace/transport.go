package dspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept in HTTPStatusError.
const maxErrorBody = 4 << 10

// transport issues single requests. It never retries.
type transport struct {
	client    *http.Client
	userAgent string
	hooks     *Hooks
	progress  ProgressFunc
}

// do sends one request and returns the response when the status is 2xx. Any other
// status is turned into an *HTTPStatusError and the body is closed.
func (t *transport) do(ctx context.Context, op, method, endpoint string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	if header != nil {
		req.Header = header.Clone()
	}
	if sb, ok := body.(*streamBody); ok && sb.size >= 0 {
		req.ContentLength = sb.size
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	if err := t.hooks.executeBeforeRequest(ctx, op, req); err != nil {
		return nil, fmt.Errorf("%s: request rejected by hook: %w", op, err)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, URL: endpoint, Err: err}
	}

	info := RequestInfo{Op: op, Method: method, URL: endpoint}
	t.hooks.executeAfterResponse(ctx, info, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPStatusError{
			Op:         op,
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return resp, nil
}

// doJSON encodes in (when non-nil) as the request body and decodes the response into
// out (when non-nil).
func (t *transport) doJSON(ctx context.Context, op, method, endpoint string, header http.Header, in, out any) error {
	header, body, err := jsonBody(op, header, in)
	if err != nil {
		return err
	}
	return t.send(ctx, op, method, endpoint, header, body, out)
}

// send posts an already encoded body and decodes a JSON response into out.
func (t *transport) send(ctx context.Context, op, method, endpoint string, header http.Header, body io.Reader, out any) error {
	resp, err := t.do(ctx, op, method, endpoint, header, body)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnexpectedResponse, err)
	}
	return nil
}

// doText is doJSON for endpoints answering with plain text.
func (t *transport) doText(ctx context.Context, op, method, endpoint string, header http.Header, in any) (string, error) {
	header, body, err := jsonBody(op, header, in)
	if err != nil {
		return "", err
	}

	resp, err := t.do(ctx, op, method, endpoint, header, body)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: op, Method: method, URL: endpoint, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

func jsonBody(op string, header http.Header, in any) (http.Header, io.Reader, error) {
	header = header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if in == nil {
		return header, nil, nil
	}

	data, err := json.Marshal(in)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to marshal request body: %w", op, err)
	}
	header.Set("Content-Type", "application/json")
	return header, bytes.NewReader(data), nil
}

// failed reports err to the error hooks and returns it unchanged.
func (t *transport) failed(ctx context.Context, op string, err error) error {
	t.hooks.executeError(ctx, op, err)
	return err
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
