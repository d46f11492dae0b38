package dspace

import (
	"context"
	"net/http"
)

// Collection holds items.
type Collection struct {
	Name string
	ID   ID

	ctx ClientContext
}

func newCollection(name string, id ID, ctx ClientContext) *Collection {
	return &Collection{Name: name, ID: id, ctx: ctx}
}

// Context returns the request context the collection was created with.
func (c *Collection) Context() ClientContext {
	return c.ctx
}

// CreateItem creates an item described by metadata, sent in the given order. The
// returned Item carries the name, id and handle the server assigned.
func (c *Collection) CreateItem(ctx context.Context, metadata []MetadataEntry) (*Item, error) {
	const op = "create item"
	t := c.ctx.transport

	if metadata == nil {
		metadata = []MetadataEntry{}
	}
	body := struct {
		Metadata []MetadataEntry `json:"metadata"`
	}{Metadata: metadata}

	var created namedResource
	endpoint := c.ctx.endpoint("collections", c.ID.String(), "items")
	if err := t.doJSON(ctx, op, http.MethodPost, endpoint, c.ctx.header, body, &created); err != nil {
		return nil, t.failed(ctx, op, err)
	}

	t.hooks.executeAfterCreate(ctx, KindItem, created.Name, created.ID)
	return newItem(created.Name, created.ID, created.Handle, c.ctx), nil
}
