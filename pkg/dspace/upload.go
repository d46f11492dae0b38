package dspace

import (
	"bytes"
	"io"
	"mime/multipart"
)

// bitstreamField is the multipart form field the REST API reads the payload from.
const bitstreamField = "filename"

// ProgressFunc is called during uploads with the bytes of the named bitstream sent so far.
type ProgressFunc func(name string, bytesSent int64)

// streamBody is a request body of known (or -1 for unknown) length.
type streamBody struct {
	io.ReadCloser
	size int64
}

// multipartStream encodes blob as a single-part multipart body. The payload is copied
// through a pipe while the request is being sent, so it is never held in memory.
// The returned body must be closed, which also stops the encoding goroutine.
func multipartStream(blob *Blob, progress ProgressFunc) (*streamBody, string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	size := int64(-1)
	if blob.Size >= 0 {
		overhead, err := multipartOverhead(mw.Boundary(), blob.Name)
		if err != nil {
			return nil, "", err
		}
		size = overhead + blob.Size
	}

	var src io.Reader = &fileReader{name: blob.Name, r: blob.Body}
	if progress != nil {
		src = &progressReader{reader: src, name: blob.Name, callback: progress}
	}

	go func() {
		part, err := mw.CreateFormFile(bitstreamField, blob.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return &streamBody{ReadCloser: pr, size: size}, contentType, nil
}

// multipartOverhead is the number of bytes the encoding adds around the payload.
func multipartOverhead(boundary, name string) (int64, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return 0, err
	}
	if _, err := mw.CreateFormFile(bitstreamField, name); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}

// fileReader turns read failures of the source into *FileError.
type fileReader struct {
	name string
	r    io.Reader
}

func (f *fileReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err != nil && err != io.EOF {
		return n, &FileError{Op: "read", Path: f.name, Err: err}
	}
	return n, err
}

// progressReader wraps an io.Reader to track upload progress
type progressReader struct {
	reader    io.Reader
	name      string
	bytesRead int64
	callback  ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.callback != nil && n > 0 {
		pr.callback(pr.name, pr.bytesRead)
	}
	return n, err
}
