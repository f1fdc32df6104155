package dispatch_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/mediatype"
)

var _ = Describe("Selectors", func() {
	DescribeTable("Series",
		func(code int, want dispatch.StatusSeries, name string) {
			resp, _ := newResponse(code, "", "")
			sel := dispatch.Series()
			Expect(sel.Select(resp)).To(Equal(want))
			Expect(sel.Select(resp)).To(Equal(sel.Select(resp)))
			Expect(want.String()).To(Equal(name))
		},
		Entry("100", 100, dispatch.Informational, "INFORMATIONAL"),
		Entry("204", 204, dispatch.Successful, "SUCCESSFUL"),
		Entry("301", 301, dispatch.Redirection, "REDIRECTION"),
		Entry("418", 418, dispatch.ClientError, "CLIENT_ERROR"),
		Entry("599", 599, dispatch.ServerError, "SERVER_ERROR"),
		Entry("99", 99, dispatch.SeriesUnknown, "UNKNOWN"),
		Entry("600", 600, dispatch.SeriesUnknown, "UNKNOWN"),
	)

	DescribeTable("ParseSeries",
		func(raw string, want dispatch.StatusSeries) {
			got, err := dispatch.ParseSeries(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("name", "successful", dispatch.Successful),
		Entry("dashed", "client-error", dispatch.ClientError),
		Entry("shorthand", "5xx", dispatch.ServerError),
	)

	It("should reject unknown series names", func() {
		_, err := dispatch.ParseSeries("6xx")
		Expect(err).To(HaveOccurred())
	})

	It("should extract the exact status", func() {
		resp, _ := newResponse(409, "", "")
		Expect(dispatch.Status().Select(resp)).To(Equal(409))
		Expect(dispatch.Status().Format(409)).To(Equal("409"))
	})

	It("should match reasons case-insensitively and prefer custom phrases", func() {
		resp := dispatch.FromHTTP(&http.Response{StatusCode: 422, Status: "422 Validation Failed", Header: http.Header{}})
		sel := dispatch.Reason()
		Expect(sel.Select(resp)).To(Equal("Validation Failed"))
		Expect(sel.Matches("validation failed", sel.Select(resp))).To(BeTrue())

		plain, _ := newResponse(404, "", "")
		Expect(sel.Select(plain)).To(Equal("Not Found"))
	})

	Describe("ContentType", func() {
		sel := dispatch.ContentType()

		It("should parse parameters without affecting matching", func() {
			resp, _ := newResponse(200, "application/json; charset=UTF-8", "")
			observed := sel.Select(resp)
			Expect(observed.Essence()).To(Equal("application/json"))
			Expect(sel.Matches(mediatype.ApplicationJSON, observed)).To(BeTrue())
			Expect(sel.Matches(mediatype.MustParse("application/*"), observed)).To(BeTrue())
			Expect(sel.Matches(mediatype.TextPlain, observed)).To(BeFalse())
		})

		It("should keep the media type when a parameter is malformed", func() {
			resp, _ := newResponse(200, "application/json; charset", "")
			Expect(sel.Matches(mediatype.ApplicationJSON, sel.Select(resp))).To(BeTrue())
		})

		It("should yield unspecified for absent or malformed headers", func() {
			absent, _ := newResponse(200, "", "")
			malformed, _ := newResponse(200, "not a media type;;", "")
			Expect(sel.Select(absent).IsUnspecified()).To(BeTrue())
			Expect(sel.Select(malformed).IsUnspecified()).To(BeTrue())
			Expect(sel.Matches(mediatype.All, sel.Select(absent))).To(BeFalse())
			Expect(sel.Format(sel.Select(absent))).To(Equal("none"))
		})
	})

	DescribeTable("should yield the same key on repeated selection",
		func(twice func(*dispatch.Response) (any, any)) {
			resp, _ := newResponse(422, "application/problem+json; charset=utf-8", `{"title":"invalid"}`)
			first, second := twice(resp)
			Expect(second).To(Equal(first))

			_, err := dispatch.Dispatch(resp, nil, dispatch.Series(),
				dispatch.AnySeries(dispatch.Call(func(r *dispatch.Retriever) error {
					body, err := dispatch.Retrieve[string](r)
					Expect(err).NotTo(HaveOccurred())
					Expect(body).To(ContainSubstring("invalid"))

					afterRead, again := twice(r.Response())
					Expect(afterRead).To(Equal(first))
					Expect(again).To(Equal(first))
					return nil
				})),
			)
			Expect(err).NotTo(HaveOccurred())

			afterClose, _ := twice(resp)
			Expect(afterClose).To(Equal(first))
		},
		Entry("Series", selectTwice(dispatch.Series())),
		Entry("Status", selectTwice(dispatch.Status())),
		Entry("Reason", selectTwice(dispatch.Reason())),
		Entry("ContentType", selectTwice(dispatch.ContentType())),
	)

	It("should support caller-defined selectors", func() {
		byHeader := dispatch.NewSelector("cache", func(r *dispatch.Response) string {
			return r.Header.Get("X-Cache")
		})
		resp, _ := newResponse(200, "", "")
		resp.Header.Set("X-Cache", "HIT")

		result, err := dispatch.Dispatch(resp, nil, byHeader,
			dispatch.On("MISS", dispatch.Fail(errUnexpected)),
			dispatch.On("HIT", dispatch.Pass()),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Path()).To(Equal([]string{"HIT"}))
	})
})

func selectTwice[K any](sel dispatch.Selector[K]) func(*dispatch.Response) (any, any) {
	return func(resp *dispatch.Response) (any, any) {
		return sel.Select(resp), sel.Select(resp)
	}
}
