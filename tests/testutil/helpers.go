package testutil

import (
	"context"
	"testing"

	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/stretchr/testify/require"
)

// Credentials registered by NewLoggedInRepository.
const (
	TestEmail    = "ingest@example.org"
	TestPassword = "s3cret"
)

// NewRepository creates a client for srv without logging in.
func NewRepository(t *testing.T, srv *DSpaceServer, opts ...dspace.Option) *dspace.Repository {
	t.Helper()

	repo, err := dspace.New(srv.URL, opts...)
	require.NoError(t, err)
	return repo
}

// NewLoggedInRepository registers the test user on srv and returns a client logged in
// as that user.
func NewLoggedInRepository(t *testing.T, srv *DSpaceServer, opts ...dspace.Option) *dspace.Repository {
	t.Helper()

	srv.AddUser(TestEmail, TestPassword)
	repo := NewRepository(t, srv, opts...)
	require.NoError(t, repo.Login(context.Background(), TestEmail, TestPassword))
	return repo
}

// ValuesOf returns the values stored under key, in order.
func ValuesOf(entries []MetadataEntry, key string) []string {
	var values []string
	for _, e := range entries {
		if e.Key == key {
			values = append(values, e.Value)
		}
	}
	return values
}
