package utils

import (
	"errors"
	"net/url"
	"strings"
)

// sensitiveParams are query parameters that carry credentials. SerpAPI and
// Gemini-style endpoints accept keys this way.
var sensitiveParams = []string{"api_key", "apikey", "key", "access_token", "token"}

const redacted = "REDACTED"

// RedactURL masks credential query parameters and userinfo in raw. Unparsable
// input is returned with its whole query dropped.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	return redactedString(u)
}

func redactedString(u *url.URL) string {
	if u.RawQuery != "" {
		query := u.Query()
		changed := false
		for key := range query {
			if isSensitiveParam(key) {
				query.Set(key, redacted)
				changed = true
			}
		}
		if changed {
			clone := *u
			clone.RawQuery = query.Encode()
			u = &clone
		}
	}
	return u.Redacted()
}

func isSensitiveParam(key string) bool {
	for _, name := range sensitiveParams {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

// redactError rewrites the URL inside a *url.Error so that transport failures
// never echo credentials back to callers.
func redactError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: RedactURL(urlErr.URL), Err: urlErr.Err}
}
