package dispatch_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
)

var _ = Describe("Retriever", func() {
	// retrieve runs fn against the retriever of a 200 response.
	retrieve := func(contentType, body string, fn func(r *dispatch.Retriever)) *trackedBody {
		resp, tb := newResponse(200, contentType, body)
		_, err := dispatch.Dispatch(resp, converter.Defaults(), dispatch.Series(),
			dispatch.On(dispatch.Successful, dispatch.Call(func(r *dispatch.Retriever) error {
				fn(r)
				return nil
			})),
		)
		Expect(err).NotTo(HaveOccurred())
		return tb
	}

	It("should replay the decode for the same type", func() {
		tb := retrieve("application/json", `{"id":2,"name":"bo"}`, func(r *dispatch.Retriever) {
			first, err := dispatch.Retrieve[user](r)
			Expect(err).NotTo(HaveOccurred())
			second, err := dispatch.Retrieve[user](r)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(r.Consumed()).To(BeTrue())
		})
		Expect(tb.reads).To(BeNumerically(">", 0))
	})

	It("should reject a second type once consumed", func() {
		retrieve("application/json", `{"id":2}`, func(r *dispatch.Retriever) {
			_, err := dispatch.Retrieve[map[string]any](r)
			Expect(err).NotTo(HaveOccurred())
			_, err = dispatch.Retrieve[user](r)
			Expect(errors.Is(err, dispatch.ErrBodyConsumed)).To(BeTrue())
		})
	})

	It("should replay decode errors", func() {
		retrieve("application/json", `{"id":`, func(r *dispatch.Retriever) {
			_, first := dispatch.Retrieve[user](r)
			Expect(first).To(HaveOccurred())
			_, second := dispatch.Retrieve[user](r)
			Expect(second).To(Equal(first))
		})
	})

	It("should leave the body unread when no converter fits", func() {
		tb := retrieve("image/png", "png", func(r *dispatch.Retriever) {
			_, err := dispatch.Retrieve[user](r)
			Expect(converter.IsNoSuitableConverter(err)).To(BeTrue())
			Expect(r.Consumed()).To(BeFalse())

			raw, err := dispatch.Retrieve[[]byte](r)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("png"))
		})
		Expect(tb.closed).To(Equal(1))
	})

	It("should reject targets that are not pointers", func() {
		retrieve("text/plain", "x", func(r *dispatch.Retriever) {
			Expect(errors.Is(r.Decode(user{}), dispatch.ErrInvalidTarget)).To(BeTrue())
			Expect(errors.Is(r.Decode(nil), dispatch.ErrInvalidTarget)).To(BeTrue())
			Expect(r.Consumed()).To(BeFalse())
		})
	})

	It("should share body state with nested dispatch", func() {
		retrieve("text/plain", "hello", func(r *dispatch.Retriever) {
			result, err := dispatch.Nested(r, dispatch.Status(), dispatch.On(200, dispatch.To[string]()))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Value()).To(Equal("hello"))

			again, err := dispatch.Retrieve[string](r)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal("hello"))
		})
	})
})
