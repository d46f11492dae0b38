package dspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Repository is the entry point of the client. It embeds the Session, so Login,
// LoginStatus, Logout and the accessors are called on it directly, and adds the
// community level operations.
type Repository struct {
	*Session

	httpClient  *http.Client
	timeout     time.Duration
	hooks       Hooks
	fs          afero.Fs
	tokenHeader string
	userAgent   string
	progress    ProgressFunc
	serialize   bool
}

// New creates a Repository for the DSpace instance at baseURL, the URL up to (not
// including) /rest.
func New(baseURL string, options ...Option) (*Repository, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidBaseURL, baseURL)
	}

	r := &Repository{
		timeout:     DefaultTimeout,
		tokenHeader: DefaultTokenHeader,
		userAgent:   DefaultUserAgent,
	}
	for _, option := range options {
		option(r)
	}

	if r.tokenHeader == "" {
		return nil, fmt.Errorf("token header cannot be empty")
	}
	if r.httpClient == nil {
		if r.timeout < 0 {
			return nil, fmt.Errorf("timeout must be non-negative, got: %v", r.timeout)
		}
		r.httpClient = &http.Client{Timeout: r.timeout}
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}

	cc := ClientContext{
		baseURL:     baseURL,
		apiURL:      baseURL + "/rest",
		tokenHeader: r.tokenHeader,
		transport: &transport{
			client:    r.httpClient,
			userAgent: r.userAgent,
			hooks:     &r.hooks,
			progress:  r.progress,
		},
		fs: r.fs,
	}
	if r.serialize {
		cc.locks = newFindLocker()
	}

	r.Session = newSession(cc)
	return r, nil
}

// FindCommunityByName lists all communities and returns the one named exactly name.
// When several share the name the last one listed wins. found is false, with a nil
// error, when there is no match.
func (r *Repository) FindCommunityByName(ctx context.Context, name string) (community *Community, found bool, err error) {
	const op = "find community"
	cc := r.Context()
	t := cc.transport

	var communities []namedResource
	if err := t.doJSON(ctx, op, http.MethodGet, cc.endpoint("communities"), cc.header, nil, &communities); err != nil {
		return nil, false, t.failed(ctx, op, err)
	}

	id, ok := indexByName(communities)[name]
	if !ok {
		t.hooks.executeNotFound(ctx, KindCommunity, name)
		return nil, false, nil
	}
	return newCommunity(name, id, cc), true, nil
}

// CreateCommunity creates a top level community. It does not check whether one with the
// same name exists; the server accepts duplicates.
func (r *Repository) CreateCommunity(ctx context.Context, name string) (*Community, error) {
	const op = "create community"
	cc := r.Context()
	t := cc.transport

	var created namedResource
	body := map[string]string{"name": name}
	if err := t.doJSON(ctx, op, http.MethodPost, cc.endpoint("communities"), cc.header, body, &created); err != nil {
		return nil, t.failed(ctx, op, err)
	}

	t.hooks.executeAfterCreate(ctx, KindCommunity, name, created.ID)
	return newCommunity(name, created.ID, cc), nil
}

// FindOrCreateCommunity returns the community named name, creating it when absent.
// The lookup and the creation are separate requests: two concurrent callers may both
// miss and both create, unless the Repository was built WithSerializedFindOrCreate.
func (r *Repository) FindOrCreateCommunity(ctx context.Context, name string) (*Community, error) {
	unlock := r.Context().locks.lock("community\x00" + name)
	defer unlock()

	community, found, err := r.FindCommunityByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		return community, nil
	}
	return r.CreateCommunity(ctx, name)
}

// Item fetches an existing item by id.
func (r *Repository) Item(ctx context.Context, id ID) (*Item, error) {
	const op = "get item"
	cc := r.Context()
	t := cc.transport

	var item namedResource
	if err := t.doJSON(ctx, op, http.MethodGet, cc.endpoint("items", id.String()), cc.header, nil, &item); err != nil {
		return nil, t.failed(ctx, op, err)
	}
	return newItem(item.Name, item.ID, item.Handle, cc), nil
}
