package dspace

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// Item is a created item. Its fields reflect the server at creation time; metadata and
// bitstream calls change the server only.
type Item struct {
	Name   string
	ID     ID
	Handle string

	ctx ClientContext
}

func newItem(name string, id ID, handle string, ctx ClientContext) *Item {
	return &Item{Name: name, ID: id, Handle: handle, ctx: ctx}
}

// Context returns the request context the item was created with.
func (i *Item) Context() ClientContext {
	return i.ctx
}

// AddBitstream uploads the local file at path. The bitstream is named after the base
// name of path, which the server also uses to detect the format.
func (i *Item) AddBitstream(ctx context.Context, path string) (*Bitstream, error) {
	return i.AddBitstreamFrom(ctx, FileSource{Fs: i.ctx.fs}, path)
}

// AddBitstreamFrom uploads the payload src opens for ref. The payload is streamed, so
// arbitrarily large files can be sent.
func (i *Item) AddBitstreamFrom(ctx context.Context, src BitstreamSource, ref string) (*Bitstream, error) {
	const op = "add bitstream"
	t := i.ctx.transport

	blob, err := src.Open(ctx, ref)
	if err != nil {
		return nil, t.failed(ctx, op, err)
	}
	defer blob.Body.Close()

	body, contentType, err := multipartStream(blob, t.progress)
	if err != nil {
		return nil, t.failed(ctx, op, err)
	}
	defer body.Close()

	// Derived copy; the headers shared with the rest of the hierarchy stay untouched.
	header := i.ctx.WithHeader("Content-Type", contentType).header
	endpoint := i.ctx.endpoint("items", i.ID.String(), "bitstreams") + "?" + url.Values{"name": {blob.Name}}.Encode()

	var bitstream Bitstream
	if err := t.send(ctx, op, http.MethodPost, endpoint, header, body, &bitstream); err != nil {
		var fileErr *FileError
		if errors.As(err, &fileErr) {
			err = fileErr
		}
		return nil, t.failed(ctx, op, err)
	}
	if bitstream.Name == "" {
		bitstream.Name = blob.Name
	}

	t.hooks.executeAfterCreate(ctx, KindBitstream, blob.Name, bitstream.ID)
	return &bitstream, nil
}

// ReplaceMetadataField replaces, for every key present in entries, all values the item
// has under that key with the supplied ones. Keys absent from entries are left alone.
// Applying the same entries twice leaves the same state as applying them once.
func (i *Item) ReplaceMetadataField(ctx context.Context, entries []MetadataEntry) error {
	const op = "replace metadata"
	t := i.ctx.transport

	if entries == nil {
		entries = []MetadataEntry{}
	}
	endpoint := i.ctx.endpoint("items", i.ID.String(), "metadata")
	if err := t.doJSON(ctx, op, http.MethodPut, endpoint, i.ctx.header, entries, nil); err != nil {
		return t.failed(ctx, op, err)
	}
	return nil
}

// UpdateIdentifier replaces every dc.identifier.uri of the item with handle.
func (i *Item) UpdateIdentifier(ctx context.Context, handle string) error {
	return i.ReplaceMetadataField(ctx, []MetadataEntry{
		{Key: IdentifierURIKey, Value: handle, Language: nil},
	})
}

// Metadata reads the item's current metadata.
func (i *Item) Metadata(ctx context.Context) ([]MetadataEntry, error) {
	const op = "get metadata"
	t := i.ctx.transport

	var entries []MetadataEntry
	endpoint := i.ctx.endpoint("items", i.ID.String(), "metadata")
	if err := t.doJSON(ctx, op, http.MethodGet, endpoint, i.ctx.header, nil, &entries); err != nil {
		return nil, t.failed(ctx, op, err)
	}
	return entries, nil
}
