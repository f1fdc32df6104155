// Package dispatch routes a received HTTP response to exactly one handler
// chosen from an ordered list of bindings, decoding the body lazily and only
// when the chosen handler asks for it.
//
//	result, err := dispatch.Dispatch(resp, converter.Defaults(), dispatch.Series(),
//	    dispatch.On(dispatch.Successful, dispatch.Nest(dispatch.ContentType(),
//	        dispatch.On(mediatype.ApplicationJSON, dispatch.To[User]()),
//	    )),
//	    dispatch.On(dispatch.ClientError, dispatch.To[string]()),
//	    dispatch.AnySeries(dispatch.Fail(errUnexpected)),
//	)
package dispatch

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// Response is the read-only view of a received HTTP response. Its Body is
// consumed at most once.
type Response struct {
	// StatusCode is the numeric status, e.g. 404.
	StatusCode int
	// Status is the status line text, e.g. "404 Not Found".
	Status string
	// Header holds the response headers.
	Header http.Header
	// Body is the unconsumed response body.
	Body io.ReadCloser

	closeOnce sync.Once
	closeErr  error
}

// NewResponse builds a Response from its parts. A nil body becomes an empty one.
func NewResponse(statusCode int, header http.Header, body io.Reader) *Response {
	if header == nil {
		header = make(http.Header)
	}
	var rc io.ReadCloser
	switch b := body.(type) {
	case nil:
		rc = http.NoBody
	case io.ReadCloser:
		rc = b
	default:
		rc = io.NopCloser(b)
	}
	return &Response{
		StatusCode: statusCode,
		Status:     statusLine(statusCode),
		Header:     header,
		Body:       rc,
	}
}

// FromHTTP wraps an *http.Response. Ownership of resp.Body moves to the
// returned Response.
func FromHTTP(resp *http.Response) *Response {
	if resp == nil {
		return nil
	}
	out := NewResponse(resp.StatusCode, resp.Header, resp.Body)
	if resp.Status != "" {
		out.Status = resp.Status
	}
	return out
}

// Series classifies the status code.
func (r *Response) Series() StatusSeries {
	return SeriesOf(r.StatusCode)
}

// ContentType returns the declared media type, or mediatype.Unspecified when
// the header is absent or malformed.
func (r *Response) ContentType() mediatype.MediaType {
	if r.Header == nil {
		return mediatype.Unspecified
	}
	return mediatype.ParseOrUnspecified(r.Header.Get("Content-Type"))
}

// Reason returns the reason phrase of the status line, e.g. "Not Found".
func (r *Response) Reason() string {
	status := strings.TrimSpace(r.Status)
	if rest, ok := strings.CutPrefix(status, strconv.Itoa(r.StatusCode)); ok {
		status = strings.TrimSpace(rest)
	}
	if status == "" {
		return http.StatusText(r.StatusCode)
	}
	return status
}

// Close releases the body. It is safe to call more than once.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		if r.Body != nil {
			r.closeErr = r.Body.Close()
		}
	})
	return r.closeErr
}

func statusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + text
}
