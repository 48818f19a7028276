package api

import "strings"

// parseOrigins splits a comma separated origin list. A nil result means
// every origin is allowed.
func parseOrigins(raw string) map[string]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil
	}
	out := make(map[string]struct{})
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return nil
		}
		if o != "" {
			out[o] = struct{}{}
		}
	}
	return out
}
