package upload

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

const (
	contentTypeHeader     = "Content-Type"
	contentEncodingHeader = "Content-Encoding"
	acceptEncodingHeader  = "Accept-Encoding"
	acceptHeader          = "Accept"
	preflightHeader       = "Apollo-Require-Preflight"

	contentTypeJSON = "application/json"

	encodingGzip    = "gzip"
	encodingDeflate = "deflate"
	encodingBrotli  = "br"
)

// HTTPLink sends operations as a single JSON POST
type HTTPLink struct {
	uri     string
	headers http.Header
	client  *http.Client
}

// NewHTTPLink creates an HTTPLink. A nil client means http.DefaultClient.
func NewHTTPLink(uri string, headers http.Header, client *http.Client) *HTTPLink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLink{
		uri:     uri,
		headers: headers.Clone(),
		client:  client,
	}
}

// Execute posts {query, variables, operationName} and decodes the response
func (h *HTTPLink) Execute(ctx context.Context, op Operation) (*Response, error) {
	body, err := json.Marshal(op.body(op.variables()))
	if err != nil {
		return nil, fmt.Errorf("marshaling operation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.uri, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	copyHeaders(req.Header, h.headers)
	req.Header.Set(contentTypeHeader, contentTypeJSON)
	req.Header.Set(acceptHeader, contentTypeJSON)
	setAcceptEncoding(req.Header)

	return do(h.client, req)
}

// setAcceptEncoding advertises every encoding respBodyReader can decode
func setAcceptEncoding(h http.Header) {
	h.Set(acceptEncodingHeader, encodingGzip)
	h.Add(acceptEncodingHeader, encodingDeflate)
	h.Add(acceptEncodingHeader, encodingBrotli)
}

// do sends req and turns the reply into a Response or an error
func do(client *http.Client, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := respBodyReader(resp)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	defer body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var result Response
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}

func respBodyReader(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get(contentEncodingHeader) {
	case encodingGzip:
		return gzip.NewReader(resp.Body)
	case encodingDeflate:
		// HTTP deflate is zlib-wrapped
		return zlib.NewReader(resp.Body)
	case encodingBrotli:
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
