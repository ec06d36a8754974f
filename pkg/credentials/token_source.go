package credentials

import (
	"os"
	"strings"
)

// TokenSource is one strategy for locating the bearer token. Sources are
// tried in priority order and the first non-empty result wins.
type TokenSource func() string

// CookieTokenSource looks for a cookie literally named "token" — the service
// stores the bearer token there after a web login.
func CookieTokenSource(cookies map[string]string) TokenSource {
	return func() string {
		return cookies["token"]
	}
}

// FileTokenSource reads the token from a plain-text file
func FileTokenSource(path string) TokenSource {
	return func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

// EnvTokenSource reads the token from an environment variable
func EnvTokenSource(key string) TokenSource {
	return func() string {
		return strings.TrimSpace(os.Getenv(key))
	}
}

// FirstToken tries each source in order and returns the first hit
func FirstToken(sources ...TokenSource) string {
	for _, source := range sources {
		if source == nil {
			continue
		}
		if token := source(); token != "" {
			return token
		}
	}
	return ""
}

// ResolveToken applies the default lookup order: cookie named "token", then
// the token file, then the QWENWEB_TOKEN environment variable.
func ResolveToken(cookies map[string]string, tokenPath string) string {
	return FirstToken(
		CookieTokenSource(cookies),
		FileTokenSource(tokenPath),
		EnvTokenSource("QWENWEB_TOKEN"),
	)
}
