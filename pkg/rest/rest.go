// Package rest sends requests through an httpclient.Client and routes every
// response with the dispatch package.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/httpclient"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

const defaultTimeout = 30 * time.Second

// Config configures a Rest client. A nil Client uses resty with BaseURL,
// Timeout and Headers; a nil Converters uses converter.Defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Headers    map[string]string
	Converters *converter.Registry
	Client     httpclient.Client
}

// Rest builds requests and dispatches their responses.
type Rest struct {
	client     httpclient.Client
	converters *converter.Registry
}

// New creates a Rest client from cfg.
func New(cfg Config) *Rest {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = httpclient.New(httpclient.Options{
			Timeout: timeout,
			BaseURL: cfg.BaseURL,
			Headers: cfg.Headers,
		})
	}
	converters := cfg.Converters
	if converters == nil {
		converters = converter.Defaults()
	}
	return &Rest{client: client, converters: converters}
}

// Converters returns the registry responses are decoded with.
func (r *Rest) Converters() *converter.Registry { return r.converters }

// Get starts a GET request to url.
func (r *Rest) Get(url string) *Request { return r.newRequest(http.MethodGet, url) }

// Head starts a HEAD request to url.
func (r *Rest) Head(url string) *Request { return r.newRequest(http.MethodHead, url) }

// Post starts a POST request to url.
func (r *Rest) Post(url string) *Request { return r.newRequest(http.MethodPost, url) }

// Put starts a PUT request to url.
func (r *Rest) Put(url string) *Request { return r.newRequest(http.MethodPut, url) }

// Patch starts a PATCH request to url.
func (r *Rest) Patch(url string) *Request { return r.newRequest(http.MethodPatch, url) }

// Delete starts a DELETE request to url.
func (r *Rest) Delete(url string) *Request { return r.newRequest(http.MethodDelete, url) }

// Options starts a OPTIONS request to url.
func (r *Rest) Options(url string) *Request { return r.newRequest(http.MethodOptions, url) }

// Trace starts a TRACE request to url.
func (r *Rest) Trace(url string) *Request { return r.newRequest(http.MethodTrace, url) }

// Request is a request under construction. It is not safe for concurrent use.
type Request struct {
	rest   *Rest
	method string
	url    string
	header http.Header
	query  url.Values
	body   any
}

func (r *Rest) newRequest(method, target string) *Request {
	return &Request{
		rest:   r,
		method: method,
		url:    target,
		header: make(http.Header),
		query:  make(url.Values),
	}
}

// Header adds a header value.
func (q *Request) Header(key, value string) *Request {
	q.header.Add(key, value)
	return q
}

// Headers adds every value in h.
func (q *Request) Headers(h http.Header) *Request {
	for key, values := range h {
		for _, v := range values {
			q.header.Add(key, v)
		}
	}
	return q
}

// QueryParam adds a query parameter value.
func (q *Request) QueryParam(key, value string) *Request {
	q.query.Add(key, value)
	return q
}

// QueryParams adds every value in params.
func (q *Request) QueryParams(params url.Values) *Request {
	for key, values := range params {
		for _, v := range values {
			q.query.Add(key, v)
		}
	}
	return q
}

// Accept sets the Accept header to the given media types.
func (q *Request) Accept(types ...mediatype.MediaType) *Request {
	q.header.Set("Accept", strings.Join(mediatype.Strings(types), ", "))
	return q
}

// ContentType sets the Content-Type header of the request body.
func (q *Request) ContentType(mt mediatype.MediaType) *Request {
	q.header.Set("Content-Type", mt.String())
	return q
}

// Body sets the request body. Encoding is left to the transport.
func (q *Request) Body(body any) *Request {
	q.body = body
	return q
}

// Execute sends the request and returns the response with its body unread.
func (q *Request) Execute(ctx context.Context) (*dispatch.Response, error) {
	if q == nil || q.rest == nil {
		return nil, fmt.Errorf("rest: request is not initialized")
	}
	return q.rest.client.Execute(ctx, httpclient.Request{
		Method: q.method,
		URL:    q.url,
		Header: q.header.Clone(),
		Query:  q.query,
		Body:   q.body,
	})
}

// Dispatch sends req and routes the response. The response body is closed
// before Dispatch returns.
func Dispatch[K any](ctx context.Context, req *Request, selector dispatch.Selector[K], bindings ...dispatch.Binding[K]) (dispatch.Result, error) {
	resp, err := req.Execute(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Dispatch(resp, req.rest.converters, selector, bindings...)
}
