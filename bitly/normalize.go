package bitly

import (
	"net/url"
	"strings"
)

// NormalizeURL prefixes raw with "http://" unless it already starts with
// "http", then form-encodes the whole result when encode is set.
// Empty input is the only thing rejected.
func NormalizeURL(raw string, encode bool) (string, error) {
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(raw, "http") {
		raw = "http://" + raw
	}
	if encode {
		raw = url.QueryEscape(raw)
	}

	return raw, nil
}
