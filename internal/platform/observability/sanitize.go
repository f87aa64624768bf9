package observability

import "unicode"

const defaultStringLimit = 256

func keepLogRune(r rune) bool {
	if !unicode.IsControl(r) {
		return true
	}
	return r == '\n' || r == '\r' || r == '\t'
}

// sanitizeString strips control characters and caps the rune length so
// attacker-supplied values cannot forge log lines.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if !keepLogRune(r) {
			continue
		}
		cleaned = append(cleaned, r)
		if len(cleaned) == limit {
			break
		}
	}
	return string(cleaned)
}

// SanitizeRoute cleans a route pattern for log fields and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod cleans an HTTP method for log fields.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}
