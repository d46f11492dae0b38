package dspace

import (
	"context"
	"net/http"
)

// Community is a top level container of collections.
type Community struct {
	Name string
	ID   ID

	ctx ClientContext
}

func newCommunity(name string, id ID, ctx ClientContext) *Community {
	return &Community{Name: name, ID: id, ctx: ctx}
}

// Context returns the request context the community was created with.
func (c *Community) Context() ClientContext {
	return c.ctx
}

// CreateCollection creates a collection in this community without checking for an
// existing one of the same name.
func (c *Community) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	const op = "create collection"
	t := c.ctx.transport

	var created namedResource
	body := map[string]string{"name": name}
	endpoint := c.ctx.endpoint("communities", c.ID.String(), "collections")
	if err := t.doJSON(ctx, op, http.MethodPost, endpoint, c.ctx.header, body, &created); err != nil {
		return nil, t.failed(ctx, op, err)
	}

	t.hooks.executeAfterCreate(ctx, KindCollection, name, created.ID)
	return newCollection(name, created.ID, c.ctx), nil
}

// FindCollectionByName returns the collection of this community named exactly name.
// found is false, with a nil error, when there is none.
func (c *Community) FindCollectionByName(ctx context.Context, name string) (collection *Collection, found bool, err error) {
	const op = "find collection"
	t := c.ctx.transport

	var collections []namedResource
	endpoint := c.ctx.endpoint("communities", c.ID.String(), "collections")
	if err := t.doJSON(ctx, op, http.MethodGet, endpoint, c.ctx.header, nil, &collections); err != nil {
		return nil, false, t.failed(ctx, op, err)
	}

	id, ok := indexByName(collections)[name]
	if !ok {
		t.hooks.executeNotFound(ctx, KindCollection, name)
		return nil, false, nil
	}
	return newCollection(name, id, c.ctx), true, nil
}

// FindOrCreateCollection returns the collection named name, creating it when absent.
// Like FindOrCreateCommunity it is not atomic.
func (c *Community) FindOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	unlock := c.ctx.locks.lock("collection\x00" + c.ID.String() + "\x00" + name)
	defer unlock()

	collection, found, err := c.FindCollectionByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		return collection, nil
	}
	return c.CreateCollection(ctx, name)
}
