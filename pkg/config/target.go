package config

import (
	"fmt"
	"strings"
)

// NormalizeTarget parses the configured target into a scheme and authority.
// Accepted forms are "host:port", "http://host[:port]" and
// "https://host[:port]". A bare authority implies http. Any path, query or
// fragment on the target is rejected: the proxy forwards the client's path
// verbatim and a base path would silently be dropped.
func NormalizeTarget(target string) (scheme, authority string, err error) {
	if target == "" {
		return "", "", fmt.Errorf("target is required")
	}

	scheme = "http"
	rest := target
	switch {
	case strings.HasPrefix(target, "http://"):
		rest = strings.TrimPrefix(target, "http://")
	case strings.HasPrefix(target, "https://"):
		scheme = "https"
		rest = strings.TrimPrefix(target, "https://")
	case strings.Contains(target, "://"):
		return "", "", fmt.Errorf("unsupported target scheme in %q", target)
	}

	if rest == "" {
		return "", "", fmt.Errorf("target %q has no authority", target)
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		if rest[i:] != "/" {
			return "", "", fmt.Errorf("target %q must not carry a path or query", target)
		}
		rest = rest[:i]
	}

	return scheme, rest, nil
}
