package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/dispatchkit/internal/logger"
	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/httpclient"
)

const maxSnippetLen = 512

type httpPublisher struct {
	id         string
	method     string
	url        string
	client     httpclient.Client
	converters *converter.Registry
	log        logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.New(httpclient.Options{
		Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		Headers: cfg.HTTP.Headers,
	})

	return &httpPublisher{
		id:         cfg.ID,
		method:     cfg.HTTP.Method,
		url:        cfg.HTTP.URL,
		client:     client,
		converters: converter.Defaults(),
		log:        logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish posts the event as JSON. Any non-2xx answer from the sink is an
// error carrying the start of its body.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	resp, err := h.client.Execute(ctx, httpclient.Request{
		Method: h.method,
		URL:    h.url,
		Header: header,
		Body:   evt,
	})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	_, err = dispatch.Dispatch(resp, h.converters, dispatch.Series(),
		dispatch.On(dispatch.Successful, dispatch.Pass()),
		dispatch.AnySeries(dispatch.Call(rejected)),
	)
	if err != nil {
		return err
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
	})
	return nil
}

func rejected(r *dispatch.Retriever) error {
	body, err := dispatch.Retrieve[string](r)
	if err != nil {
		body = ""
	}
	return fmt.Errorf("http response status %d: %s", r.Response().StatusCode, snippet(body))
}

func snippet(body string) string {
	if len(body) > maxSnippetLen {
		cut := maxSnippetLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return strings.TrimSpace(body)
}
