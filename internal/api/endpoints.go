package api

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is used when no base URL is configured
const DefaultBaseURL = "http://localhost:4000"

// Endpoints holds the URLs derived from the API base URL
type Endpoints struct {
	BaseURL  string
	GraphQL  string
	Receipts string
	Upload   string
	Analyze  string
}

// NewEndpoints derives every endpoint from baseURL
func NewEndpoints(baseURL string) Endpoints {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return Endpoints{
		BaseURL:  base,
		GraphQL:  base + "/graphql",
		Receipts: base + "/api/receipts",
		Upload:   base + "/api/receipts/upload",
		Analyze:  base + "/api/receipts/analyze",
	}
}

// ReceiptByID returns the REST URL of a single receipt
func (e Endpoints) ReceiptByID(id string) string {
	return fmt.Sprintf("%s/%s", e.Receipts, id)
}

// ImageURL resolves a receipt image path against the base URL.
// Absolute URLs are returned unchanged.
func (e Endpoints) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return e.BaseURL + path
	}
	return e.BaseURL + "/" + path
}
