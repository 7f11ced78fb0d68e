package main

import (
	"net/http"
	"time"
)

const timeoutBody = `<!doctype html>
<html lang="en">
<head><title>Timeout</title></head>
<body>
<h1>Timeout</h1>
<p>The server took too long to respond. <a href="">Try again</a>.</p>
</body>
</html>
`

// timeout responds with a 503 Service Unavailable error when the handler does not meet the deadline and cancels the
// request context.
func (app *application) timeout(next http.Handler) http.Handler {
	// The timeout is a little shorter than the server's write timeout so that the timeout handler has a chance to
	// respond before the server closes the connection.
	httpHandlerTimeout := defaultTimeout - 200*time.Millisecond //nolint:mnd // 200ms
	return http.TimeoutHandler(next, httpHandlerTimeout, timeoutBody)
}
