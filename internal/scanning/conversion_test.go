package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

var _ = Describe("toPNG", func() {
	It("should pass PNG data through", func() {
		var buf bytes.Buffer
		Expect(png.Encode(&buf, testImage())).To(Succeed())

		out, err := toPNG(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(buf.Bytes()))
	})

	It("should convert JPEG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())

		out, err := toPNG(buf.Bytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		Expect(bytes.HasPrefix(out, pngMagic)).To(BeTrue())

		img, err := png.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(4))
	})

	It("should convert GIF whatever the declared type", func() {
		var buf bytes.Buffer
		Expect(gif.Encode(&buf, testImage(), nil)).To(Succeed())

		out, err := toPNG(buf.Bytes(), "application/octet-stream")
		Expect(err).NotTo(HaveOccurred())
		Expect(bytes.HasPrefix(out, pngMagic)).To(BeTrue())
	})

	It("should reject unknown formats", func() {
		_, err := toPNG([]byte("definitely not an image"), "image/jpeg")
		Expect(err).To(MatchError(ErrUnsupportedImage))
	})
})

var _ = Describe("isHEIC", func() {
	It("should recognise HEIF brands", func() {
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"))).To(BeTrue())
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypmif1\x00\x00\x00\x00"))).To(BeTrue())
	})

	It("should ignore other containers", func() {
		Expect(isHEIC([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x00\x00"))).To(BeFalse())
		Expect(isHEIC([]byte("short"))).To(BeFalse())
	})
})
