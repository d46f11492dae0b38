package dspace_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/kosarko/dspace-rest-import/pkg/dspace"
	"github.com/kosarko/dspace-rest-import/tests/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(t *testing.T, repo *dspace.Repository, metadata ...dspace.MetadataEntry) *dspace.Item {
	t.Helper()

	collection := newCollection(t, repo, "Corpora", "Treebanks")
	if len(metadata) == 0 {
		metadata = []dspace.MetadataEntry{dspace.Entry("dc.title", "Prague Dependency Treebank")}
	}
	item, err := collection.CreateItem(context.Background(), metadata)
	require.NoError(t, err)
	return item
}

func TestCreateItem(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	repo := testutil.NewLoggedInRepository(t, srv)

	item := newItem(t, repo,
		dspace.Entry("dc.title", "Prague Dependency Treebank"),
		dspace.LangEntry("dc.description", "Czech treebank", "en_US"),
		dspace.Entry("dc.contributor.author", "Hajič, Jan"),
		dspace.Entry("dc.contributor.author", "Hajičová, Eva"),
	)

	assert.Equal(t, "Prague Dependency Treebank", item.Name)
	assert.NotEmpty(t, item.ID)
	assert.True(t, strings.HasPrefix(item.Handle, testutil.HandlePrefix+"/"))

	stored := srv.ItemMetadata(item.ID.String())
	assert.Equal(t, []string{"Hajič, Jan", "Hajičová, Eva"}, testutil.ValuesOf(stored, "dc.contributor.author"))
	require.NotNil(t, stored[1].Language)
	assert.Equal(t, "en_US", *stored[1].Language)
	assert.Nil(t, stored[0].Language)
}

func TestCreateItemInUnknownCollection(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	repo := testutil.NewLoggedInRepository(t, srv)
	ctx := context.Background()

	collection := newCollection(t, repo, "Corpora", "Treebanks")
	srv.Fail(http.MethodPost, "/collections/"+collection.ID.String()+"/items", http.StatusNotFound)

	_, err := collection.CreateItem(ctx, nil)
	var statusErr *dspace.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, http.MethodPost, statusErr.Method)
}

func TestReplaceMetadataField(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	repo := testutil.NewLoggedInRepository(t, srv)
	ctx := context.Background()

	item := newItem(t, repo,
		dspace.Entry("dc.title", "Prague Dependency Treebank"),
		dspace.Entry("dc.subject", "syntax"),
		dspace.Entry("dc.subject", "morphology"),
	)

	replacement := []dspace.MetadataEntry{
		dspace.Entry("dc.subject", "treebank"),
		dspace.Entry("dc.subject", "annotation"),
	}
	require.NoError(t, item.ReplaceMetadataField(ctx, replacement))

	once, err := item.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"treebank", "annotation"}, valuesOf(once, "dc.subject"))
	assert.Equal(t, []string{"Prague Dependency Treebank"}, valuesOf(once, "dc.title"))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, item.ReplaceMetadataField(ctx, replacement))
		twice, err := item.Metadata(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, once, twice)
	})
}

func TestUpdateIdentifier(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	repo := testutil.NewLoggedInRepository(t, srv)
	ctx := context.Background()

	item := newItem(t, repo,
		dspace.Entry("dc.title", "Prague Dependency Treebank"),
		dspace.Entry(dspace.IdentifierURIKey, "http://example.org/old-1"),
		dspace.Entry(dspace.IdentifierURIKey, "http://example.org/old-2"),
	)
	before, err := item.Metadata(ctx)
	require.NoError(t, err)
	require.Len(t, valuesOf(before, dspace.IdentifierURIKey), 3)

	handle := "http://hdl.handle.net/11234/1-1234"
	require.NoError(t, item.UpdateIdentifier(ctx, handle))

	after, err := item.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{handle}, valuesOf(after, dspace.IdentifierURIKey))
	assert.Equal(t, []string{"Prague Dependency Treebank"}, valuesOf(after, "dc.title"))

	var put *testutil.RecordedRequest
	for _, req := range srv.Requests() {
		if req.Method == http.MethodPut {
			r := req
			put = &r
		}
	}
	require.NotNil(t, put)
	assert.Equal(t, "application/json", put.Header.Get("Content-Type"))
	assert.Nil(t, after[len(after)-1].Language)
}

func TestAddBitstreamUsesBaseName(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/export/data.csv", []byte("id,value\n1,a\n"), 0o644))

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(fs))
	item := newItem(t, repo)

	bitstream, err := item.AddBitstream(context.Background(), "/data/export/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "data.csv", bitstream.Name)
	assert.NotEmpty(t, bitstream.ID)
	assert.Equal(t, "text/csv", bitstream.MimeType)

	stored := srv.Bitstreams(item.ID.String())
	require.Len(t, stored, 1)
	assert.Equal(t, "data.csv", stored[0].Name)
	assert.Equal(t, "data.csv", stored[0].FormFileName)
	assert.Equal(t, "id,value\n1,a\n", string(stored[0].Content))
	assert.Equal(t, int64(13), stored[0].SizeBytes)
}

func TestAddBitstreamEscapesName(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/read me&notes.txt", []byte("hello"), 0o644))

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(fs))
	item := newItem(t, repo)

	_, err := item.AddBitstream(context.Background(), "/in/read me&notes.txt")
	require.NoError(t, err)

	stored := srv.Bitstreams(item.ID.String())
	require.Len(t, stored, 1)
	assert.Equal(t, "read me&notes.txt", stored[0].Name)
}

func TestAddBitstreamDoesNotTouchSharedHeaders(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data.csv", []byte("a,b\n"), 0o644))

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(fs))
	item := newItem(t, repo)
	ctx := context.Background()

	before := repo.Headers()
	_, err := item.AddBitstream(ctx, "/data.csv")
	require.NoError(t, err)

	assert.Equal(t, before, repo.Headers())
	assert.Empty(t, item.Context().Headers().Get("Content-Type"))

	_, err = item.Metadata(ctx)
	require.NoError(t, err)

	requests := srv.Requests()
	upload := requests[len(requests)-2]
	next := requests[len(requests)-1]
	assert.True(t, strings.HasPrefix(upload.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.Equal(t, before.Get(dspace.DefaultTokenHeader), upload.Header.Get(dspace.DefaultTokenHeader))
	assert.Empty(t, next.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", next.Header.Get("Accept"))
}

func TestAddBitstreamStreamsLargeFiles(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	payload := make([]byte, 6<<20)
	_, err := rand.New(rand.NewSource(42)).Read(payload)
	require.NoError(t, err)
	sum := md5.Sum(payload)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/big/archive.zip", payload, 0o644))

	var mu sync.Mutex
	var progress []int64
	repo := testutil.NewLoggedInRepository(t, srv,
		dspace.WithFs(fs),
		dspace.WithProgress(func(name string, sent int64) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "archive.zip", name)
			progress = append(progress, sent)
		}),
	)
	item := newItem(t, repo)

	bitstream, err := item.AddBitstream(context.Background(), "/big/archive.zip")
	require.NoError(t, err)
	require.NotNil(t, bitstream.CheckSum)
	assert.Equal(t, hex.EncodeToString(sum[:]), bitstream.CheckSum.Value)
	assert.Equal(t, int64(len(payload)), bitstream.SizeBytes)

	stored := srv.Bitstreams(item.ID.String())
	require.Len(t, stored, 1)
	assert.Greater(t, stored[0].ContentLength, int64(len(payload)))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(len(payload)), progress[len(progress)-1])
}

func TestAddBitstreamMissingFile(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(afero.NewMemMapFs()))
	item := newItem(t, repo)
	uploadsBefore := len(srv.Requests())

	_, err := item.AddBitstream(context.Background(), "/nowhere/data.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, dspace.ErrFile)

	var fileErr *dspace.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "/nowhere/data.csv", fileErr.Path)
	assert.Equal(t, "open", fileErr.Op)
	assert.Len(t, srv.Requests(), uploadsBefore)
}

func TestAddBitstreamDirectory(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(fs))
	item := newItem(t, repo)

	_, err := item.AddBitstream(context.Background(), "/data")
	assert.ErrorIs(t, err, dspace.ErrFile)
}

func TestAddBitstreamRejected(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data.csv", []byte("a,b\n"), 0o644))

	repo := testutil.NewLoggedInRepository(t, srv, dspace.WithFs(fs))
	item := newItem(t, repo)
	srv.Fail(http.MethodPost, "/items/"+item.ID.String()+"/bitstreams", http.StatusRequestEntityTooLarge)

	_, err := item.AddBitstream(context.Background(), "/data.csv")
	assert.Equal(t, http.StatusRequestEntityTooLarge, dspace.StatusCode(err))
	assert.Empty(t, srv.Bitstreams(item.ID.String()))
}

// failingSource yields some bytes and then a read error, with an unknown size.
type failingSource struct{}

func (failingSource) Open(_ context.Context, ref string) (*dspace.Blob, error) {
	r := io.MultiReader(strings.NewReader("partial"), errReader{})
	return &dspace.Blob{Name: ref, Size: -1, Body: io.NopCloser(r)}, nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestAddBitstreamFromFailingSource(t *testing.T) {
	srv := testutil.SetupDSpaceServer()
	defer srv.Close()
	repo := testutil.NewLoggedInRepository(t, srv)
	item := newItem(t, repo)

	_, err := item.AddBitstreamFrom(context.Background(), failingSource{}, "broken.bin")
	require.Error(t, err)

	var fileErr *dspace.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, "read", fileErr.Op)
	assert.Equal(t, "broken.bin", fileErr.Path)
}

func valuesOf(entries []dspace.MetadataEntry, key string) []string {
	var values []string
	for _, e := range entries {
		if e.Key == key {
			values = append(values, e.Value)
		}
	}
	return values
}
