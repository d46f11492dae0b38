package dspace

import (
	"context"
	"net/http"
	"time"
)

// Hooks let callers observe the client without the core operations logging anything
// themselves. Every slice runs in order; a hook may set HookContext.StopChain to skip
// the rest of its slice.
type Hooks struct {
	// Transport hooks
	BeforeRequest []BeforeRequestHook
	AfterResponse []AfterResponseHook

	// Resource hooks
	AfterCreate []AfterCreateHook
	OnNotFound  []NotFoundHook

	// Session hooks
	OnSession []SessionHook

	// Error hooks
	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// RequestInfo describes an outgoing request to hooks.
type RequestInfo struct {
	Op     string
	Method string
	URL    string
}

// SessionEvent is a change of the session's authentication state.
type SessionEvent string

const (
	SessionLogin  SessionEvent = "login"
	SessionLogout SessionEvent = "logout"
)

// BeforeRequestHook is called before a request is sent. The request is private to this
// call, so hooks may add headers. Returning an error aborts the request.
type BeforeRequestHook func(hctx *HookContext, op string, req *http.Request) error

// AfterResponseHook is called once a response status is known
type AfterResponseHook func(hctx *HookContext, req RequestInfo, statusCode int, elapsed time.Duration)

// AfterCreateHook is called after the server created a resource
type AfterCreateHook func(hctx *HookContext, kind ResourceKind, name string, id ID)

// NotFoundHook is called when a lookup by name finds nothing
type NotFoundHook func(hctx *HookContext, kind ResourceKind, name string)

// SessionHook is called after a successful login or logout
type SessionHook func(hctx *HookContext, event SessionEvent)

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Merge returns hooks running h's hooks first and other's after.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		BeforeRequest: append(append([]BeforeRequestHook(nil), h.BeforeRequest...), other.BeforeRequest...),
		AfterResponse: append(append([]AfterResponseHook(nil), h.AfterResponse...), other.AfterResponse...),
		AfterCreate:   append(append([]AfterCreateHook(nil), h.AfterCreate...), other.AfterCreate...),
		OnNotFound:    append(append([]NotFoundHook(nil), h.OnNotFound...), other.OnNotFound...),
		OnSession:     append(append([]SessionHook(nil), h.OnSession...), other.OnSession...),
		OnError:       append(append([]ErrorHook(nil), h.OnError...), other.OnError...),
	}
}

// Hook execution helpers

func (h *Hooks) executeBeforeRequest(ctx context.Context, op string, req *http.Request) error {
	if h == nil || len(h.BeforeRequest) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeRequest {
		if err := hook(hctx, op, req); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterResponse(ctx context.Context, info RequestInfo, statusCode int, elapsed time.Duration) {
	if h == nil || len(h.AfterResponse) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterResponse {
		hook(hctx, info, statusCode, elapsed)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeAfterCreate(ctx context.Context, kind ResourceKind, name string, id ID) {
	if h == nil || len(h.AfterCreate) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterCreate {
		hook(hctx, kind, name, id)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeNotFound(ctx context.Context, kind ResourceKind, name string) {
	if h == nil || len(h.OnNotFound) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnNotFound {
		hook(hctx, kind, name)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeSession(ctx context.Context, event SessionEvent) {
	if h == nil || len(h.OnSession) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnSession {
		hook(hctx, event)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeError(ctx context.Context, operation string, err error) {
	if h == nil || len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}
