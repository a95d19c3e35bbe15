package domain

import "strings"

// MimeAllowed reports whether detected is permitted by allowlist. An empty
// allowlist permits anything. Entries ending in "/*" match the whole type
// family (e.g. "image/*" matches "image/png").
func MimeAllowed(detected string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	detected = strings.ToLower(strings.TrimSpace(detected))
	for _, allowed := range allowlist {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if strings.HasSuffix(allowed, "/*") {
			family := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(detected, family) {
				return true
			}
			continue
		}
		if allowed == detected {
			return true
		}
	}
	return false
}
