package normalization

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidSubmissionURL is returned when a URL submitted for scoring is rejected.
var ErrInvalidSubmissionURL = errors.New("invalid URL")

// NormalizeSubmissionURL applies the scoring service's acceptance rules to a submitted URL.
// The scheme is forced to https and the host must look like name.extension with no empty
// labels.
func NormalizeSubmissionURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: URL cannot be empty", ErrInvalidSubmissionURL)
	}

	switch {
	case strings.HasPrefix(trimmed, schemeHTTP):
		trimmed = schemeHTTPS + strings.TrimPrefix(trimmed, schemeHTTP)
	case !strings.HasPrefix(trimmed, schemeHTTPS):
		trimmed = schemeHTTPS + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSubmissionURL, err.Error())
	}

	host := parsed.Hostname()
	if !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: must be at least name.extension (e.g. nike.com)", ErrInvalidSubmissionURL)
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return "", fmt.Errorf("%w: domain parts cannot be empty", ErrInvalidSubmissionURL)
		}
	}

	return trimmed, nil
}

// ExtractRootDomain returns the last two labels of the URL's host, ignoring a leading www.
// For example https://careers.google.com/jobs yields google.com.
func ExtractRootDomain(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), wwwLabel+".")
	if host == "" {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) >= 2 {
		return strings.Join(labels[len(labels)-2:], "."), true
	}
	return host, true
}

// CompanyNameFromURL derives the display name used as a company's lookup key,
// the capitalised registrable label of the root domain (https://jobs.target.com -> Target).
func CompanyNameFromURL(rawURL string) (string, error) {
	root, ok := ExtractRootDomain(rawURL)
	if !ok {
		return "", fmt.Errorf("%w: cannot determine domain of %q", ErrInvalidSubmissionURL, rawURL)
	}

	label, _, _ := strings.Cut(root, ".")
	if label == "" {
		return "", fmt.Errorf("%w: cannot determine company name of %q", ErrInvalidSubmissionURL, rawURL)
	}

	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + label[size:], nil
}
