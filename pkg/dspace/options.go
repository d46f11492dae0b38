package dspace

import (
	"net/http"
	"time"

	"github.com/spf13/afero"
)

// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient says otherwise.
const DefaultTimeout = 60 * time.Second

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "dspace-rest-import/1.0"

// Option configures a Repository.
type Option func(*Repository)

// WithHTTPClient sets the HTTP client. Its own Timeout is kept; WithTimeout is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Repository) {
		r.httpClient = client
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Repository) {
		r.timeout = timeout
	}
}

// WithHooks adds lifecycle hooks. Calling it more than once appends.
func WithHooks(hooks Hooks) Option {
	return func(r *Repository) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithFs sets the filesystem Item.AddBitstream reads local files from.
func WithFs(fs afero.Fs) Option {
	return func(r *Repository) {
		r.fs = fs
	}
}

// WithTokenHeader overrides the header carrying the session token.
func WithTokenHeader(name string) Option {
	return func(r *Repository) {
		r.tokenHeader = name
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(r *Repository) {
		r.userAgent = userAgent
	}
}

// WithProgress reports bitstream upload progress.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Repository) {
		r.progress = fn
	}
}

// WithSerializedFindOrCreate makes FindOrCreateCommunity and FindOrCreateCollection
// mutually exclusive per parent and name for callers sharing this Repository. Without
// it, concurrent calls for the same name may both create. Other clients of the same
// server are not covered.
func WithSerializedFindOrCreate() Option {
	return func(r *Repository) {
		r.serialize = true
	}
}
