package upload

import (
	"bytes"
	"io"
)

// File is a binary value that is sent as its own multipart part instead of
// inside the JSON variables. *os.File satisfies it.
type File interface {
	io.Reader
	Name() string
}

// contentTyper is implemented by files that know their MIME type
type contentTyper interface {
	ContentType() string
}

// Blob is an in-memory File
type Blob struct {
	name        string
	contentType string
	size        int64
	r           *bytes.Reader
}

// NewBlob creates a Blob holding data
func NewBlob(name, contentType string, data []byte) *Blob {
	return &Blob{
		name:        name,
		contentType: contentType,
		size:        int64(len(data)),
		r:           bytes.NewReader(data),
	}
}

func (b *Blob) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

// Name returns the file name sent as the part's filename
func (b *Blob) Name() string {
	return b.name
}

// ContentType returns the MIME type of the blob
func (b *Blob) ContentType() string {
	return b.contentType
}

// Size returns the length of the blob in bytes
func (b *Blob) Size() int64 {
	return b.size
}
