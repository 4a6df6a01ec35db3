package receipt

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// LocalFile is a receipt image read from disk
type LocalFile struct {
	*os.File
	name        string
	size        int64
	contentType string
}

// OpenLocalFile opens path for upload. The content type comes from the
// extension, falling back to sniffing the first bytes.
func OpenLocalFile(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading file info: %w", err)
	}

	contentType, ok := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		contentType, err = sniffContentType(f)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	return &LocalFile{
		File:        f,
		name:        filepath.Base(path),
		size:        info.Size(),
		contentType: contentType,
	}, nil
}

// Name returns the base name of the file
func (l *LocalFile) Name() string {
	return l.name
}

// Size returns the file size in bytes
func (l *LocalFile) Size() int64 {
	return l.size
}

// ContentType returns the detected MIME type
func (l *LocalFile) ContentType() string {
	return l.contentType
}

func sniffContentType(f *os.File) (string, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding file: %w", err)
	}
	// Strip parameters such as "; charset=utf-8"
	contentType, _, _ := strings.Cut(http.DetectContentType(buf[:n]), ";")
	return contentType, nil
}
