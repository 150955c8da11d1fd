package api

import (
	"net/http"

	"careerscope/internal/state"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SessionHeader is the backend's correlation header. Every request carries it
// once a session exists; the initial session-create call goes out without it.
const SessionHeader = "X-Session-ID"

// sessionTransport injects the current session id into every outbound
// request. Centralizing the header here keeps the per-endpoint code free of
// session plumbing.
type sessionTransport struct {
	next     http.RoundTripper
	sessions *state.SessionStore
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if id := t.sessions.ID(); id != "" {
		req = req.Clone(req.Context())
		req.Header.Set(SessionHeader, id)
	}
	return t.next.RoundTrip(req)
}

// newHTTPClient builds the instrumented client: OTel spans around every
// round trip, session header injected outermost.
func newHTTPClient(sessions *state.SessionStore) *http.Client {
	return &http.Client{
		Transport: &sessionTransport{
			next:     otelhttp.NewTransport(http.DefaultTransport),
			sessions: sessions,
		},
	}
}
