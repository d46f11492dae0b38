package dspace

import (
	"log/slog"
	"net/http"
	"time"
)

// LogHooks returns hooks that report client activity to logger. Requests and responses
// are logged at debug level, created resources and session changes at info level,
// failed operations at error level.
func LogHooks(logger *slog.Logger) Hooks {
	if logger == nil {
		logger = slog.Default()
	}

	return Hooks{
		BeforeRequest: []BeforeRequestHook{
			func(hctx *HookContext, op string, req *http.Request) error {
				logger.DebugContext(hctx.Context, "dspace request", "op", op, "method", req.Method, "url", req.URL.String())
				return nil
			},
		},
		AfterResponse: []AfterResponseHook{
			func(hctx *HookContext, req RequestInfo, statusCode int, elapsed time.Duration) {
				logger.DebugContext(hctx.Context, "dspace response",
					"op", req.Op,
					"method", req.Method,
					"url", req.URL,
					"status", statusCode,
					"elapsed", elapsed,
				)
			},
		},
		AfterCreate: []AfterCreateHook{
			func(hctx *HookContext, kind ResourceKind, name string, id ID) {
				logger.InfoContext(hctx.Context, "Created "+string(kind), "name", name, "id", id)
			},
		},
		OnNotFound: []NotFoundHook{
			func(hctx *HookContext, kind ResourceKind, name string) {
				logger.InfoContext(hctx.Context, string(kind)+" not found", "name", name)
			},
		},
		OnSession: []SessionHook{
			func(hctx *HookContext, event SessionEvent) {
				switch event {
				case SessionLogin:
					logger.InfoContext(hctx.Context, "User successfully logged in")
				case SessionLogout:
					logger.InfoContext(hctx.Context, "User successfully logged out")
				}
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger.ErrorContext(hctx.Context, "dspace operation failed", "op", operation, "err", err)
			},
		},
	}
}
