package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Domain returns the host component of rawURL, including any port, exactly as
// supplied. Malformed URLs yield "".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// SameDomain reports whether a and b share a non-empty domain.
// Malformed URLs never match anything, including each other.
func SameDomain(a, b string) bool {
	da := Domain(a)
	return da != "" && da == Domain(b)
}

// NormalizeSeed trims raw and prefixes http:// when no http(s) scheme is
// present. The result must have a host.
func NormalizeSeed(raw string) (string, error) {
	seed := strings.TrimSpace(raw)
	if seed == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidSeed)
	}

	lower := strings.ToLower(seed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		seed = "http://" + seed
	}

	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidSeed, raw)
	}
	return seed, nil
}
