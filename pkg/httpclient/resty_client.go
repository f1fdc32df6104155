package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
)

// Options configures a RestyClient.
type Options struct {
	Timeout time.Duration
	BaseURL string
	Headers map[string]string
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return New(Options{Timeout: timeout})
}

// New creates a RestyClient from opts.
func New(opts Options) *RestyClient {
	c := newRestyBaseClient(opts.Timeout)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		c.SetBaseURL(base)
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	return &RestyClient{client: c}
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// Execute sends req and returns the response with its body left unread.
func (r *RestyClient) Execute(ctx context.Context, in Request) (*dispatch.Response, error) {
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if method == "" {
		method = http.MethodGet
	}

	req := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	for key, values := range in.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if len(in.Query) > 0 {
		req.SetQueryParamsFromValues(in.Query)
	}
	if in.Body != nil {
		req.SetBody(in.Body)
	}

	resp, err := req.Execute(method, in.URL)
	if err != nil {
		if resp != nil && resp.RawResponse != nil && resp.RawResponse.Body != nil {
			resp.RawResponse.Body.Close()
		}
		return nil, fmt.Errorf("%s %s: %w", method, in.URL, err)
	}
	if resp == nil || resp.RawResponse == nil {
		return nil, fmt.Errorf("%s %s: empty response", method, in.URL)
	}
	return dispatch.FromHTTP(resp.RawResponse), nil
}
