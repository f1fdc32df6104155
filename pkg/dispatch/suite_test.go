package dispatch_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
)

func TestDispatch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dispatch Suite")
}

// trackedBody records whether it was read or closed.
type trackedBody struct {
	r      io.Reader
	reads  int
	closed int
}

func (b *trackedBody) Read(p []byte) (int, error) {
	b.reads++
	return b.r.Read(p)
}

func (b *trackedBody) Close() error {
	b.closed++
	return nil
}

func newResponse(code int, contentType, body string) (*dispatch.Response, *trackedBody) {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	tb := &trackedBody{r: strings.NewReader(body)}
	return dispatch.NewResponse(code, header, tb), tb
}

// counter returns a route that counts its invocations and yields name.
func counter(name string, calls *int) dispatch.Route {
	return func(*dispatch.Retriever) (any, error) {
		*calls++
		return name, nil
	}
}
