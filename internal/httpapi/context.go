package httpapi

import "context"

// serverBaseCtx scopes every handler to the daemon's lifetime, so shutting
// the process down also cancels status probes already in flight. Defaults
// to Background until SetBaseContext is called.
var serverBaseCtx = context.Background()

// SetBaseContext installs the daemon-lifetime context handlers derive from.
// A nil ctx resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from base that is additionally cancelled
// when req ends. Handlers use it so a probe stops on whichever comes first:
// client disconnect or daemon shutdown. The cancel func must always be
// called.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(req, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
