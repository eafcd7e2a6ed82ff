package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

const redacted = "[REDACTED]"

// secretPatterns matches credential material that upstream error bodies have
// been observed to echo back. Applied before any body text reaches an error
// message or a log line.
var secretPatterns = []*regexp.Regexp{
	// JWT tokens (three base64url segments)
	regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
	// Bearer and Basic authorization values
	regexp.MustCompile(`(?i)(?:Bearer|Basic)\s+[A-Za-z0-9\-._~+/]{20,}=*`),
	// Hosted-app secret keys
	regexp.MustCompile(`(?:^|\s|["'])[a-f0-9]{64}`),
}

// FieldNotFoundError reports that no field definition with the requested
// display name exists upstream. This is operator-actionable (the field must
// be created upstream first), not transient, so it is distinct from
// TransportError.
type FieldNotFoundError struct {
	Name string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field definition %q not found upstream", e.Name)
}

// IsFieldNotFound reports whether err is a FieldNotFoundError.
func IsFieldNotFound(err error) bool {
	var fnf *FieldNotFoundError
	return errors.As(err, &fnf)
}

// TransportError is a non-2xx, non-429 upstream response, surfaced to the
// caller unchanged. The body excerpt is scrubbed and truncated.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFoundStatus reports whether err is a TransportError for a 404, which
// for person fetches means the person does not exist upstream.
func IsNotFoundStatus(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

// newTransportError builds a TransportError with a scrubbed body excerpt.
func newTransportError(statusCode int, body []byte) *TransportError {
	return &TransportError{
		StatusCode: statusCode,
		Body:       scrub(truncate(string(body), 200)),
	}
}

// scrub replaces credential-shaped substrings with [REDACTED].
func scrub(s string) string {
	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, redacted)
	}
	return s
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
