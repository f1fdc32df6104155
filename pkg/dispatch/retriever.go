package dispatch

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

// Retriever decodes the body of one response on demand. The body is read at
// most once: the first successful converter lookup consumes it, later
// requests for the same type replay that decode (value or error), and
// requests for any other type fail with ErrBodyConsumed. A failed lookup
// leaves the body untouched.
//
// A Retriever is not safe for concurrent use.
type Retriever struct {
	resp       *Response
	converters *converter.Registry

	consumed bool
	memoType reflect.Type
	memo     reflect.Value
	memoErr  error
}

func newRetriever(resp *Response, converters *converter.Registry) *Retriever {
	return &Retriever{resp: resp, converters: converters}
}

// Response exposes the response metadata. Handlers must not read Body
// directly.
func (r *Retriever) Response() *Response { return r.resp }

// Converters returns the registry bodies are decoded with.
func (r *Retriever) Converters() *converter.Registry { return r.converters }

// Consumed reports whether the body has been handed to a converter.
func (r *Retriever) Consumed() bool { return r.consumed }

// Decode reads the body into dst, which must be a non-nil pointer.
func (r *Retriever) Decode(dst any) error {
	v := reflect.ValueOf(dst)
	if dst == nil || v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("%w: %T", ErrInvalidTarget, dst)
	}
	target := v.Type().Elem()

	if r.consumed {
		if target != r.memoType {
			return fmt.Errorf("%w: decoded as %s, requested %s", ErrBodyConsumed, r.memoType, target)
		}
		if r.memoErr != nil {
			return r.memoErr
		}
		v.Elem().Set(r.memo)
		return nil
	}

	contentType := r.resp.ContentType()
	conv, err := r.converters.Find(target, contentType)
	if err != nil {
		return err
	}
	if contentType.IsUnspecified() {
		contentType = mediatype.OctetStream
	}

	body := r.resp.Body
	if body == nil {
		body = http.NoBody
	}
	out := reflect.New(target)
	readErr := conv.Read(body, contentType, out.Interface())

	r.consumed = true
	r.memoType = target
	if readErr != nil {
		r.memoErr = fmt.Errorf("read %s body as %s: %w", contentType.Essence(), target, readErr)
		return r.memoErr
	}
	r.memo = out.Elem()
	v.Elem().Set(r.memo)
	return nil
}

// Retrieve decodes the body of r as a T.
func Retrieve[T any](r *Retriever) (T, error) {
	var out T
	err := r.Decode(&out)
	return out, err
}
