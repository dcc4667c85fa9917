package utils

import (
	"errors"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>]+`)

var hashRegex = regexp.MustCompile(`^(?i:[0-9a-f]{32}|[0-9a-f]{40}|[0-9a-f]{64})$`)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// Indicator kinds understood by /scan.
const (
	IndicatorURL    = "url"
	IndicatorDomain = "domain"
	IndicatorIP     = "ip"
	IndicatorHash   = "file"
)

var ErrEmptyIndicator = errors.New("empty indicator")

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

func NormalizeURL(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := NormalizeDomain(parsed.Hostname())
	parsed.Host = host
	if port := parsed.Port(); port != "" {
		parsed.Host = net.JoinHostPort(host, port)
	}
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

// NormalizeDomain lower-cases a host and converts it to its ASCII form.
func NormalizeDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if ascii, err := idna.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// ClassifyIndicator guesses what a /scan argument is and returns it normalized.
func ClassifyIndicator(raw string) (kind, value string, err error) {
	raw = strings.Trim(strings.TrimSpace(raw), "<>")
	if raw == "" {
		return "", "", ErrEmptyIndicator
	}
	if hashRegex.MatchString(raw) {
		return IndicatorHash, strings.ToLower(raw), nil
	}
	if ip := net.ParseIP(raw); ip != nil {
		return IndicatorIP, ip.String(), nil
	}
	if strings.Contains(raw, "://") || strings.ContainsAny(raw, "/?") {
		normalized, _, err := NormalizeURL(raw)
		if err != nil {
			return "", "", err
		}
		return IndicatorURL, normalized, nil
	}
	return IndicatorDomain, NormalizeDomain(raw), nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}
