// Package normalization turns free-form company identifiers into canonical https URLs.
//
// Everything in this package is pure and synchronous: no network access and no shared
// state, so results depend only on the input string.
package normalization

import (
	"net/url"
	"strings"
)

// User-facing validation messages.
const (
	ErrMsgEmptyInput    = "Please enter a URL"
	ErrMsgMissingDomain = "Please enter a valid URL (e.g., company.com)"
	ErrMsgInvalidFormat = "Invalid URL format"
)

const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"

	wwwLabel = "www"

	// minLabelsForSubdomain is the host label count at which the first label is treated
	// as a subdomain.
	minLabelsForSubdomain = 3
)

// strippedSubdomains are first labels that never identify a company on their own.
var strippedSubdomains = map[string]bool{
	"careers": true,
	"jobs":    true,
	"about":   true,
	"corp":    true,
}

// singleLabelTLDs are the top-level labels for which any leading subdomain is stripped.
// Multi-label suffixes such as co.uk are deliberately not recognised.
var singleLabelTLDs = map[string]bool{
	"com": true,
	"net": true,
	"org": true,
	"io":  true,
	"ai":  true,
}

// ValidationResult is the outcome of validating one raw input string.
// Exactly one of NormalizedURL and Error is set; Warning only accompanies valid results.
type ValidationResult struct {
	IsValid       bool   `json:"is_valid"`
	NormalizedURL string `json:"normalized_url,omitempty"`
	Error         string `json:"error,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

func invalid(msg string) ValidationResult {
	return ValidationResult{IsValid: false, Error: msg}
}

// Validate classifies raw user input and canonicalizes it into an https URL.
//
// Bare words without a dot or protocol are rejected, a missing protocol becomes https://,
// http:// is upgraded to https://, and hosts with three or more labels lose their first
// label (unless it is www) when it is a known non-semantic subdomain or the TLD is one of
// com, net, org, io, ai.
func Validate(raw string) ValidationResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid(ErrMsgEmptyInput)
	}

	hasHTTP := hasPrefixFold(trimmed, schemeHTTP)
	hasHTTPS := hasPrefixFold(trimmed, schemeHTTPS)
	if !hasHTTP && !hasHTTPS && !strings.Contains(trimmed, ".") {
		return invalid(ErrMsgMissingDomain)
	}

	var urlStr string
	switch {
	case hasHTTPS:
		urlStr = schemeHTTPS + trimmed[len(schemeHTTPS):]
	case hasHTTP:
		urlStr = schemeHTTPS + trimmed[len(schemeHTTP):]
	default:
		urlStr = schemeHTTPS + trimmed
	}

	host, ok := parseHost(urlStr)
	if !ok {
		return invalid(ErrMsgInvalidFormat)
	}

	result := ValidationResult{IsValid: true, NormalizedURL: urlStr}

	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) < minLabelsForSubdomain || labels[0] == wwwLabel {
		return result
	}

	newHost := strings.Join(labels[1:], ".")
	switch {
	case strippedSubdomains[labels[0]]:
		result.Warning = "Searching main domain (" + newHost + ") instead of individual subdomain."
	case singleLabelTLDs[labels[len(labels)-1]]:
		result.Warning = "Searching main domain (" + newHost + ") instead of subdomain."
	default:
		return result
	}

	result.NormalizedURL = replaceHost(urlStr, newHost)
	return result
}

// replaceHost swaps the host of an https URL for newHost, leaving userinfo, port, path,
// query and fragment byte for byte as they were.
func replaceHost(urlStr, newHost string) string {
	rest := urlStr[len(schemeHTTPS):]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority := rest[:end]
	hostStart := strings.LastIndex(authority, "@") + 1

	hostPort := authority[hostStart:]
	port := ""
	if i := strings.LastIndex(hostPort, ":"); i >= 0 {
		port = hostPort[i:]
	}
	return schemeHTTPS + authority[:hostStart] + newHost + port + rest[end:]
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// parseHost parses an absolute URL and returns its host name without port. Only
// unparseable URLs and empty hosts are rejected; a trailing dot or an empty label is left
// for the server to judge.
func parseHost(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := parsed.Hostname()
	if host == "" {
		return "", false
	}
	return host, true
}
