package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
)

// Request describes one outbound call. Body is encoded by the transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   any
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// The returned response body is unread; the caller owns it.
type Client interface {
	Execute(ctx context.Context, req Request) (*dispatch.Response, error)
}
