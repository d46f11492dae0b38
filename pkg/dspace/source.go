package dspace

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Blob is an open bitstream payload. Size is -1 when the source cannot tell.
type Blob struct {
	Name string
	Size int64
	Body io.ReadCloser
}

// BitstreamSource opens payloads for upload. Failures should be *FileError.
type BitstreamSource interface {
	Open(ctx context.Context, ref string) (*Blob, error)
}

// FileSource reads bitstreams from a filesystem. The zero value uses the OS filesystem.
type FileSource struct {
	Fs afero.Fs
}

// Open opens path and names the blob after its base name.
func (s FileSource) Open(_ context.Context, path string) (*Blob, error) {
	fs := s.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, &FileError{Op: "open", Path: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &FileError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &FileError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}

	return &Blob{
		Name: filepath.Base(path),
		Size: info.Size(),
		Body: f,
	}, nil
}
