package dspace_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/kosarko/dspace-rest-import/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksRunInRegistrationOrder(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	var mu sync.Mutex
	var calls []string
	record := func(name string) dspace.AfterCreateHook {
		return func(_ *dspace.HookContext, kind dspace.ResourceKind, _ string, _ dspace.ID) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name+":"+string(kind))
		}
	}

	repo := testutil.NewLoggedInRepository(t, srv,
		dspace.WithHooks(dspace.Hooks{AfterCreate: []dspace.AfterCreateHook{record("first")}}),
		dspace.WithHooks(dspace.Hooks{AfterCreate: []dspace.AfterCreateHook{record("second")}}),
	)

	_, err := repo.CreateCommunity(context.Background(), "Corpora")
	require.NoError(t, err)
	assert.Equal(t, []string{"first:community", "second:community"}, calls)
}

func TestHooksStopChain(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	var seen []string
	hooks := dspace.Hooks{
		OnNotFound: []dspace.NotFoundHook{
			func(hctx *dspace.HookContext, _ dspace.ResourceKind, name string) {
				seen = append(seen, "first")
				hctx.Metadata["name"] = name
				hctx.StopChain = true
			},
			func(*dspace.HookContext, dspace.ResourceKind, string) {
				seen = append(seen, "second")
			},
		},
	}
	repo := testutil.NewRepository(t, srv, dspace.WithHooks(hooks))

	_, found, err := repo.FindCommunityByName(context.Background(), "Missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"first"}, seen)
}

func TestBeforeRequestHook(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	t.Run("adds headers", func(t *testing.T) {
		repo := testutil.NewRepository(t, srv, dspace.WithHooks(dspace.Hooks{
			BeforeRequest: []dspace.BeforeRequestHook{
				func(_ *dspace.HookContext, op string, req *http.Request) error {
					req.Header.Set("X-Request-Op", op)
					return nil
				},
			},
		}))

		_, _, err := repo.FindCommunityByName(context.Background(), "Corpora")
		require.NoError(t, err)

		requests := srv.Requests()
		assert.Equal(t, "find community", requests[len(requests)-1].Header.Get("X-Request-Op"))
	})

	t.Run("aborts request", func(t *testing.T) {
		veto := errors.New("read only mode")
		repo := testutil.NewRepository(t, srv, dspace.WithHooks(dspace.Hooks{
			BeforeRequest: []dspace.BeforeRequestHook{
				func(*dspace.HookContext, string, *http.Request) error { return veto },
			},
		}))

		before := len(srv.Requests())
		_, err := repo.CreateCommunity(context.Background(), "Corpora")
		assert.ErrorIs(t, err, veto)
		assert.Len(t, srv.Requests(), before)
	})
}

func TestErrorHookReceivesFailures(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	srv.Fail(http.MethodGet, "/communities", http.StatusServiceUnavailable)

	var ops []string
	var errs []error
	repo := testutil.NewRepository(t, srv, dspace.WithHooks(dspace.Hooks{
		OnError: []dspace.ErrorHook{
			func(_ *dspace.HookContext, op string, err error) {
				ops = append(ops, op)
				errs = append(errs, err)
			},
		},
	}))

	_, _, err := repo.FindCommunityByName(context.Background(), "Corpora")
	require.Error(t, err)
	assert.Equal(t, []string{"find community"}, ops)
	assert.Same(t, err, errs[0])
}

func TestLogHooks(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithHooks(dspace.LogHooks(logger)))
	ctx := context.Background()

	_, err := repo.FindOrCreateCommunity(ctx, "Corpora")
	require.NoError(t, err)
	require.NoError(t, repo.Logout(ctx))

	srv.Fail(http.MethodGet, "/communities", http.StatusInternalServerError)
	_, _, err = repo.FindCommunityByName(ctx, "Corpora")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="User successfully logged in"`)
	assert.Contains(t, out, `msg="community not found" name=Corpora`)
	assert.Contains(t, out, `msg="Created community" name=Corpora`)
	assert.Contains(t, out, `msg="User successfully logged out"`)
	assert.Contains(t, out, `level=DEBUG msg="dspace request" op="find community" method=GET`)
	assert.Contains(t, out, `level=ERROR msg="dspace operation failed" op="find community"`)
	assert.NotContains(t, out, testutil.TestPassword)
}

func TestLogHooksRespectLevel(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithHooks(dspace.LogHooks(logger)))

	_, _, err := repo.FindCommunityByName(context.Background(), "Corpora")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "dspace request")
	assert.Contains(t, buf.String(), "User successfully logged in")
}
