package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultFileContentType = "application/octet-stream"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Link sends operations to a GraphQL endpoint. Operations whose variables
// contain files are sent as multipart/form-data following the GraphQL
// multipart request convention; everything else goes through an HTTPLink.
type Link struct {
	uri      string
	headers  http.Header
	client   *http.Client
	jsonLink *HTTPLink
}

// NewLink creates a Link using http.DefaultClient
func NewLink(uri string, headers http.Header) *Link {
	return NewLinkWithClient(uri, headers, http.DefaultClient)
}

// NewLinkWithClient creates a Link with a custom HTTP client
func NewLinkWithClient(uri string, headers http.Header, client *http.Client) *Link {
	if client == nil {
		client = http.DefaultClient
	}
	return &Link{
		uri:      uri,
		headers:  headers.Clone(),
		client:   client,
		jsonLink: NewHTTPLink(uri, headers, client),
	}
}

// Execute sends op and returns its single result. There are no retries; a
// failed operation must be issued again by the caller.
func (l *Link) Execute(ctx context.Context, op Operation) (*Response, error) {
	extraction := ExtractFiles(op.variables())
	if len(extraction.Files) == 0 {
		return l.jsonLink.Execute(ctx, op)
	}
	return l.executeMultipart(ctx, op, extraction)
}

// Go runs op in its own goroutine. The returned channel receives exactly one
// Result and is then closed.
func (l *Link) Go(ctx context.Context, op Operation) <-chan Result {
	results := make(chan Result, 1)
	go func() {
		defer close(results)
		resp, err := l.Execute(ctx, op)
		results <- Result{Response: resp, Err: err}
	}()
	return results
}

func (l *Link) executeMultipart(ctx context.Context, op Operation, extraction *Extraction) (*Response, error) {
	operations, err := json.Marshal(op.body(extraction.Clone))
	if err != nil {
		return nil, fmt.Errorf("marshaling operations: %w", err)
	}
	pathMap, err := extraction.MarshalMap()
	if err != nil {
		return nil, fmt.Errorf("marshaling map: %w", err)
	}

	names := make([]string, len(extraction.Files))
	for i, f := range extraction.Files {
		names[i] = partFilename(f.File)
	}
	slog.Debug("Upload request",
		"operations", string(operations),
		"map", string(pathMap),
		"files_count", len(extraction.Files),
		"file_names", names,
	)

	body, contentType, err := encodeMultipart(operations, pathMap, extraction.Files)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.uri, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	copyHeaders(req.Header, l.headers)
	req.Header.Set(contentTypeHeader, contentType)
	req.Header.Set(preflightHeader, "true")
	setAcceptEncoding(req.Header)

	resp, err := do(l.client, req)
	if err != nil {
		slog.Debug("Upload failed", "operation", op.OperationName, "error", err)
		return nil, err
	}
	return resp, nil
}

// encodeMultipart writes operations, map, then one part per file. The
// receiving parser requires operations and map to precede the files.
func encodeMultipart(operations, pathMap []byte, files []ExtractedFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("operations", string(operations)); err != nil {
		return nil, "", fmt.Errorf("writing operations field: %w", err)
	}
	if err := w.WriteField("map", string(pathMap)); err != nil {
		return nil, "", fmt.Errorf("writing map field: %w", err)
	}

	for i, f := range files {
		field := strconv.Itoa(i)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(partFilename(f.File))))
		h.Set(contentTypeHeader, partContentType(f.File))

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", field, err)
		}
		if _, err := io.Copy(part, f.File); err != nil {
			return nil, "", fmt.Errorf("copying file %s: %w", field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// partFilename strips directories from names like those of *os.File.
// Unnamed files are sent as "blob", as browsers do.
func partFilename(f File) string {
	name := f.Name()
	if name == "" {
		return "blob"
	}
	return filepath.Base(name)
}

func partContentType(f File) string {
	if ct, ok := f.(contentTyper); ok && ct.ContentType() != "" {
		return ct.ContentType()
	}
	return defaultFileContentType
}
