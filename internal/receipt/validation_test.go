package receipt

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// candidate is a file description used for validation tests
type candidate struct {
	contentType string
	size        int64
}

func (c candidate) ContentType() string { return c.contentType }
func (c candidate) Size() int64         { return c.size }

var _ = Describe("validation", func() {
	Describe("ValidateFile", func() {
		DescribeTable("accepted files",
			func(contentType string) {
				Expect(ValidateFile(candidate{contentType: contentType, size: 1024})).To(Succeed())
			},
			Entry("jpeg", "image/jpeg"),
			Entry("jpg", "image/jpg"),
			Entry("png", "image/png"),
			Entry("webp", "image/webp"),
		)

		It("should accept exactly the maximum size", func() {
			Expect(ValidateFile(candidate{contentType: "image/png", size: MaxFileSize})).To(Succeed())
		})

		When("the type is not an allowed image", func() {
			It("returns the error", func() {
				err := ValidateFile(candidate{contentType: "application/pdf", size: 10})
				Expect(err).To(MatchError("Invalid file type. Please upload a JPG, PNG, or WebP image."))
				var validationErr *ValidationError
				Expect(errors.As(err, &validationErr)).To(BeTrue())
			})
		})

		When("the file is larger than 10 MB", func() {
			It("returns the error", func() {
				err := ValidateFile(candidate{contentType: "image/jpeg", size: MaxFileSize + 1})
				Expect(err).To(MatchError("File size exceeds 10 MB. Please upload a smaller file."))
			})
		})

		When("both the type and size are wrong", func() {
			It("should report the type first", func() {
				err := ValidateFile(candidate{contentType: "text/plain", size: MaxFileSize * 2})
				Expect(err).To(MatchError(ContainSubstring("Invalid file type")))
			})
		})
	})

	Describe("FormatFileSize", func() {
		DescribeTable("formatting",
			func(size int64, expected string) {
				Expect(FormatFileSize(size)).To(Equal(expected))
			},
			Entry("zero", int64(0), "0 Bytes"),
			Entry("bytes", int64(512), "512 Bytes"),
			Entry("kilobytes", int64(1536), "1.5 KB"),
			Entry("megabytes", int64(10<<20), "10 MB"),
			Entry("rounded", int64(1234567), "1.18 MB"),
		)
	})
})
