package api

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TranscriptCache", func() {
	var (
		next  *mockRecognizer
		cache *TranscriptCache
	)

	BeforeEach(func() {
		next = &mockRecognizer{text: "STARBUCKS\nTotal: $4.95"}
		var err error
		cache, err = NewTranscriptCache(next, 16)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cache.Close()
	})

	recognize := func(image string) (string, error) {
		return cache.Recognize(context.Background(), []byte(image), "image/png")
	}

	It("should recognize an image once", func() {
		text, err := recognize("image-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("STARBUCKS\nTotal: $4.95"))
		cache.Wait()

		text, err = recognize("image-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("STARBUCKS\nTotal: $4.95"))
		Expect(next.calls).To(Equal(1))
	})

	It("should key by image content", func() {
		_, err := recognize("image-a")
		Expect(err).NotTo(HaveOccurred())
		cache.Wait()

		next.text = "CVS\nTotal: $9.99"
		text, err := recognize("image-b")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("CVS\nTotal: $9.99"))
		Expect(next.calls).To(Equal(2))
	})

	It("should not cache failures", func() {
		next.err = errors.New("model unavailable")
		_, err := recognize("image-a")
		Expect(err).To(MatchError("model unavailable"))
		cache.Wait()

		next.err = nil
		text, err := recognize("image-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("STARBUCKS\nTotal: $4.95"))
		Expect(next.calls).To(Equal(2))
	})

	It("should default the size", func() {
		c, err := NewTranscriptCache(next, 0)
		Expect(err).NotTo(HaveOccurred())
		c.Close()
	})
})
