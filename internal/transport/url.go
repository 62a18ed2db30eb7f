package transport

import (
	"fmt"
	"net/url"
)

// DefaultPath is the real-time endpoint path on the FixitQuick origin.
const DefaultPath = "/ws"

// BuildURL derives the WebSocket URL from the application origin.
// The scheme mirrors the origin's transport security: https becomes wss,
// http becomes ws. ws/wss origins pass through unchanged.
func BuildURL(origin, path string) (string, error) {
	if origin == "" {
		return "", fmt.Errorf("build ws url: empty origin")
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("build ws url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("build ws url: unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("build ws url: origin %q has no host", origin)
	}

	if path == "" {
		path = DefaultPath
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}
