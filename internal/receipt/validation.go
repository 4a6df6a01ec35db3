package receipt

import (
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"
)

// MaxFileSize is the largest receipt image accepted for upload (10MB)
const MaxFileSize = 10 << 20

// AllowedImageTypes are the MIME types accepted for upload
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
}

// ValidationError is a local rejection of a file before any upload
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Candidate is a file that can be checked before upload
type Candidate interface {
	ContentType() string
	Size() int64
}

// ValidateFileType checks the MIME type against AllowedImageTypes
func ValidateFileType(f Candidate) error {
	if !slices.Contains(AllowedImageTypes, f.ContentType()) {
		return &ValidationError{Message: "Invalid file type. Please upload a JPG, PNG, or WebP image."}
	}
	return nil
}

// ValidateFileSize checks the size against MaxFileSize
func ValidateFileSize(f Candidate) error {
	if f.Size() > MaxFileSize {
		return &ValidationError{
			Message: fmt.Sprintf("File size exceeds %s. Please upload a smaller file.", FormatFileSize(MaxFileSize)),
		}
	}
	return nil
}

// ValidateFile checks type first, then size
func ValidateFile(f Candidate) error {
	if err := ValidateFileType(f); err != nil {
		return err
	}
	return ValidateFileSize(f)
}

// FormatFileSize renders a byte count with 1024-based units, e.g. "10 MB"
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}
	if size < 1024 {
		return fmt.Sprintf("%d Bytes", size)
	}
	// 1024-based with decimal-style unit names, two decimals at most
	exp := math.Floor(math.Log(float64(size)) / math.Log(1024))
	value := math.Round(float64(size)/math.Pow(1024, exp)*100) / 100
	units := []string{"Bytes", "KB", "MB", "GB"}
	if int(exp) >= len(units) {
		return humanize.IBytes(uint64(size))
	}
	return fmt.Sprintf("%s %s", humanize.Ftoa(value), units[int(exp)])
}
