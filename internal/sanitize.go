package internal

import (
	"fmt"
	"strings"
)

const maxPathLength = 2048

type SanitizationError struct {
	Message string
	Details string
}

func (e *SanitizationError) Error() string {
	return e.Message + ": " + e.Details
}

// SanitizeRequestPath validates an inbound request path before it is used
// for registry lookup or renderer-entry derivation. Paths failing here are
// never a page, so callers treat the error as "not ours" and pass through.
func SanitizeRequestPath(path string) error {
	if path == "" || path[0] != '/' {
		return &SanitizationError{
			Message: "Malformed request path",
			Details: "path must be absolute",
		}
	}
	if len(path) > maxPathLength {
		return &SanitizationError{
			Message: "Request path exceeds maximum length",
			Details: fmt.Sprintf("Max length allowed is %d", maxPathLength),
		}
	}
	for _, r := range path {
		if r == 0 || r < 0x20 {
			return &SanitizationError{
				Message: "Prohibited control character in request path",
				Details: fmt.Sprintf("byte 0x%02x", r),
			}
		}
	}
	if strings.Contains(path, "..") {
		return &SanitizationError{
			Message: "Prohibited path traversal detected",
			Details: "path contains '..'",
		}
	}
	lowered := strings.ToLower(path)
	if strings.Contains(lowered, "%2e") || strings.Contains(lowered, "%2f") || strings.Contains(lowered, "%5c") {
		return &SanitizationError{
			Message: "Prohibited encoded separator detected",
			Details: "path contains percent-encoded dot or slash",
		}
	}
	return nil
}
