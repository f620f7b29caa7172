// Package validation checks user-supplied values before they reach
// generated markup or the feed.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateSiteURL checks the absolute URL that feed links are built on.
// It must be http or https, have a host, and carry no query or fragment.
func ValidateSiteURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	if parsed.RawQuery != "" || parsed.Fragment != "" || strings.HasSuffix(rawURL, "?") {
		return fmt.Errorf("URL must not have a query or fragment")
	}

	// ends up inside XML and HTML attributes
	for _, char := range []string{"<", ">", "\"", "'", " ", "\n", "\r"} {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains invalid character %q", char)
		}
	}

	return nil
}

// ValidateBasePath checks a normalized base path such as "/blog".
func ValidateBasePath(p string) error {
	if p == "" {
		return nil
	}
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return fmt.Errorf("base path %q must start and not end with /", p)
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("base path %q has an empty or relative segment", p)
		}
	}
	if strings.ContainsAny(p, "?#<>\"' ") {
		return fmt.Errorf("base path %q contains invalid characters", p)
	}
	return nil
}
