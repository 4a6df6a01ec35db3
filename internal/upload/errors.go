package upload

import "fmt"

// HTTPError is returned when the endpoint answers with a non-2xx status
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}
