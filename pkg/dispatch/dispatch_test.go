package dispatch_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var errUnexpected = errors.New("unexpected response")

var _ = Describe("Dispatch", func() {
	var registry *converter.Registry

	BeforeEach(func() {
		registry = converter.Defaults()
	})

	Describe("Scenario A: 200 without content type", func() {
		It("should pass without reading the body", func() {
			resp, body := newResponse(200, "", "ignored")

			result, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, dispatch.Pass()),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Path()).To(Equal([]string{"SUCCESSFUL"}))
			Expect(result.Value()).To(BeNil())
			Expect(body.reads).To(BeZero())
			Expect(body.closed).To(Equal(1))
		})
	})

	Describe("Scenario B: 404 with a client error binding and a wildcard", func() {
		It("should prefer the client error binding", func() {
			resp, _ := newResponse(404, "text/plain", "no such user")
			wildcardCalls := 0

			result, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.ClientError, dispatch.To[string]()),
				dispatch.AnySeries(func(*dispatch.Retriever) (any, error) {
					wildcardCalls++
					return nil, errUnexpected
				}),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(wildcardCalls).To(BeZero())
			Expect(result.Path()).To(Equal([]string{"CLIENT_ERROR"}))
			msg, ok := dispatch.As[string](result)
			Expect(ok).To(BeTrue())
			Expect(msg).To(Equal("no such user"))
		})
	})

	Describe("Scenario C: xml body with only a json converter", func() {
		It("should report no suitable converter", func() {
			resp, body := newResponse(200, "application/xml", "<user/>")

			_, err := dispatch.Dispatch(resp, converter.NewRegistry(converter.JSON()), dispatch.Series(),
				dispatch.On(dispatch.Successful, dispatch.To[user]()),
			)

			Expect(err).To(HaveOccurred())
			Expect(converter.IsNoSuitableConverter(err)).To(BeTrue())

			var nsc *converter.NoSuitableConverterError
			Expect(errors.As(err, &nsc)).To(BeTrue())
			Expect(nsc.ContentType).To(Equal(mediatype.ApplicationXML))
			Expect(mediatype.Strings(nsc.Available)).To(Equal([]string{"application/json", "application/*+json"}))
			Expect(err.Error()).To(ContainSubstring("application/xml"))
			Expect(body.reads).To(BeZero())
			Expect(body.closed).To(Equal(1))
		})
	})

	Describe("Scenario D: 503 with only a successful binding", func() {
		It("should report the response as unsupported", func() {
			resp, body := newResponse(503, "", "")
			calls := 0

			_, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, counter("ok", &calls)),
			)

			Expect(dispatch.IsUnsupportedResponse(err)).To(BeTrue())
			var ure *dispatch.UnsupportedResponseError
			Expect(errors.As(err, &ure)).To(BeTrue())
			Expect(ure.Observed).To(Equal("SERVER_ERROR"))
			Expect(ure.Declared).To(Equal([]string{"SUCCESSFUL"}))
			Expect(ure.StatusCode).To(Equal(503))
			Expect(err.Error()).To(ContainSubstring("SERVER_ERROR"))
			Expect(calls).To(BeZero())
			Expect(body.closed).To(Equal(1))
		})
	})

	Describe("matching laws", func() {
		DescribeTable("a matching binding beats the wildcard wherever it sits",
			func(wildcardFirst bool) {
				resp, _ := newResponse(201, "", "")
				var matched, wildcard int
				bindings := []dispatch.Binding[dispatch.StatusSeries]{
					dispatch.On(dispatch.Successful, counter("matched", &matched)),
				}
				if wildcardFirst {
					bindings = append([]dispatch.Binding[dispatch.StatusSeries]{dispatch.AnySeries(counter("wildcard", &wildcard))}, bindings...)
				} else {
					bindings = append(bindings, dispatch.AnySeries(counter("wildcard", &wildcard)))
				}

				result, err := dispatch.Dispatch(resp, registry, dispatch.Series(), bindings...)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.Value()).To(Equal("matched"))
				Expect(matched).To(Equal(1))
				Expect(wildcard).To(BeZero())
			},
			Entry("wildcard first", true),
			Entry("wildcard last", false),
		)

		It("should pick the first of several matching bindings", func() {
			resp, _ := newResponse(200, "application/json", "{}")
			var first, second int

			result, err := dispatch.Dispatch(resp, registry, dispatch.ContentType(),
				dispatch.On(mediatype.MustParse("application/*"), counter("first", &first)),
				dispatch.On(mediatype.ApplicationJSON, counter("second", &second)),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Value()).To(Equal("first"))
			Expect(result.Path()).To(Equal([]string{"application/*"}))
			Expect(first).To(Equal(1))
			Expect(second).To(BeZero())
		})

		It("should run the wildcard exactly once when nothing else matches", func() {
			resp, _ := newResponse(302, "", "")
			var wildcard, other int

			result, err := dispatch.Dispatch(resp, registry, dispatch.Status(),
				dispatch.On(200, counter("ok", &other)),
				dispatch.AnyStatus(counter("wildcard", &wildcard)),
				dispatch.On(404, counter("missing", &other)),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Path()).To(Equal([]string{"*"}))
			Expect(wildcard).To(Equal(1))
			Expect(other).To(BeZero())
		})

		It("should reject a second wildcard before running any route", func() {
			resp, body := newResponse(200, "", "")
			calls := 0

			_, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, counter("ok", &calls)),
				dispatch.AnySeries(counter("a", &calls)),
				dispatch.AnySeries(counter("b", &calls)),
			)

			Expect(errors.Is(err, dispatch.ErrDuplicateWildcard)).To(BeTrue())
			Expect(calls).To(BeZero())
			Expect(body.closed).To(Equal(1))
		})

		It("should list no declared keys for an empty binding list", func() {
			resp, _ := newResponse(200, "", "")

			_, err := dispatch.Dispatch(resp, registry, dispatch.Series())

			var ure *dispatch.UnsupportedResponseError
			Expect(errors.As(err, &ure)).To(BeTrue())
			Expect(ure.Declared).To(BeEmpty())
			Expect(err.Error()).To(ContainSubstring("declared: [none]"))
		})
	})

	Describe("nested dispatch", func() {
		It("should classify by series and then by content type", func() {
			resp, body := newResponse(200, "application/json; charset=utf-8", `{"id":1,"name":"ada"}`)

			result, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, dispatch.Nest(dispatch.ContentType(),
					dispatch.On(mediatype.TextPlain, dispatch.To[string]()),
					dispatch.On(mediatype.ApplicationJSON, dispatch.To[user]()),
				)),
				dispatch.AnySeries(dispatch.Fail(errUnexpected)),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Path()).To(Equal([]string{"SUCCESSFUL", "application/json"}))
			u, ok := dispatch.As[user](result)
			Expect(ok).To(BeTrue())
			Expect(u).To(Equal(user{ID: 1, Name: "ada"}))
			Expect(body.closed).To(Equal(1))
		})

		It("should only match the wildcard for an unspecified content type", func() {
			resp, _ := newResponse(200, "", "raw")

			result, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, dispatch.Nest(dispatch.ContentType(),
					dispatch.On(mediatype.All, dispatch.Fail(errUnexpected)),
					dispatch.AnyContentType(dispatch.To[[]byte]()),
				)),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Path()).To(Equal([]string{"SUCCESSFUL", "*"}))
			Expect(result.Value()).To(Equal([]byte("raw")))
		})

		It("should surface nested unsupported responses unchanged", func() {
			resp, _ := newResponse(200, "image/png", "")

			_, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.Successful, dispatch.Nest(dispatch.ContentType(),
					dispatch.On(mediatype.ApplicationJSON, dispatch.Pass()),
				)),
			)

			var ure *dispatch.UnsupportedResponseError
			Expect(errors.As(err, &ure)).To(BeTrue())
			Expect(ure.Selector).To(Equal("content type"))
			Expect(ure.Observed).To(Equal("image/png"))
		})
	})

	Describe("routes", func() {
		It("should propagate route errors", func() {
			resp, _ := newResponse(500, "", "")

			result, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.ServerError, dispatch.Fail(errUnexpected)),
			)

			Expect(errors.Is(err, errUnexpected)).To(BeTrue())
			Expect(result.Path()).To(Equal([]string{"SERVER_ERROR"}))
		})

		It("should hand decoded values to Consume", func() {
			resp, _ := newResponse(400, "application/problem+json", `{"id":4,"name":"bad"}`)
			var got user

			_, err := dispatch.Dispatch(resp, registry, dispatch.Series(),
				dispatch.On(dispatch.ClientError, dispatch.Consume(func(u user) error {
					got = u
					return nil
				})),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("bad"))
		})

		It("should treat a nil route as pass", func() {
			resp, body := newResponse(204, "", "")

			_, err := dispatch.Dispatch(resp, registry, dispatch.Status(), dispatch.On(204, nil))

			Expect(err).NotTo(HaveOccurred())
			Expect(body.reads).To(BeZero())
		})

		It("should expose the response to Call", func() {
			resp, _ := newResponse(429, "", "")
			resp.Header.Set("Retry-After", "5")
			var retryAfter string

			_, err := dispatch.Dispatch(resp, registry, dispatch.Reason(),
				dispatch.On("too many requests", dispatch.Call(func(r *dispatch.Retriever) error {
					retryAfter = r.Response().Header.Get("Retry-After")
					return nil
				})),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(retryAfter).To(Equal("5"))
		})
	})

	Describe("programming errors", func() {
		It("should reject a nil response", func() {
			_, err := dispatch.Dispatch[dispatch.StatusSeries](nil, registry, dispatch.Series())
			Expect(err).To(MatchError(dispatch.ErrNilResponse))
		})

		It("should reject a zero selector", func() {
			resp, body := newResponse(200, "", "")
			_, err := dispatch.Dispatch(resp, registry, dispatch.Selector[int]{})
			Expect(err).To(MatchError(dispatch.ErrNilSelector))
			Expect(body.closed).To(Equal(1))
		})
	})
})
