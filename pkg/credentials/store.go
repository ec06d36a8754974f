package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	qwerrors "github.com/qwenweb/qwenweb/pkg/errors"
)

const (
	cookiesFileName = "cookies.json"
	tokenFileName   = "token.txt"
)

// Credentials is the bundle the chat client authenticates with. Cookies and
// token are independently optional; chat operations require non-empty cookies.
type Credentials struct {
	Cookies  map[string]string
	Token    string
	IssuedAt time.Time
}

// HasCookies reports whether the cookie jar is usable for chat calls
func (c *Credentials) HasCookies() bool {
	return c != nil && len(c.Cookies) > 0
}

// Age returns the time elapsed since the credentials were acquired
func (c *Credentials) Age(now time.Time) time.Duration {
	if c == nil || c.IssuedAt.IsZero() {
		return 0
	}
	return now.Sub(c.IssuedAt)
}

// Store persists credentials under a directory: a JSON key-value file for
// cookies and a plain-text file for the token. The login automation writes
// the same files, so the on-disk format is the integration contract.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

// CookiesPath returns the path of the persisted cookie file
func (s *Store) CookiesPath() string {
	return filepath.Join(s.dir, cookiesFileName)
}

// TokenPath returns the path of the persisted token file
func (s *Store) TokenPath() string {
	return filepath.Join(s.dir, tokenFileName)
}

// Load reads the persisted credentials. Absent files yield (nil, nil) rather
// than an error so callers can treat missing credentials as "needs login".
// IssuedAt is the cookie file's modification time.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.CookiesPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsRead, "reading cookie file")
	}

	cookies := make(map[string]string)
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsRead, "parsing cookie file").
			WithContext("path", s.CookiesPath())
	}

	creds := &Credentials{Cookies: cookies}
	if info, err := os.Stat(s.CookiesPath()); err == nil {
		creds.IssuedAt = info.ModTime()
	}

	creds.Token = ResolveToken(creds.Cookies, s.TokenPath())
	return creds, nil
}

// Save persists the credentials. Load(Save(x)) round-trips cookies and token.
func (s *Store) Save(creds *Credentials) error {
	if creds == nil {
		return qwerrors.New(qwerrors.ErrCodeInvalidInput, "credentials cannot be nil")
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsWrite, "creating credentials directory")
	}

	data, err := json.MarshalIndent(creds.Cookies, "", "  ")
	if err != nil {
		return qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsWrite, "encoding cookies")
	}
	if err := os.WriteFile(s.CookiesPath(), data, 0o600); err != nil {
		return qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsWrite, "writing cookie file")
	}

	if strings.TrimSpace(creds.Token) != "" {
		if err := os.WriteFile(s.TokenPath(), []byte(creds.Token), 0o600); err != nil {
			return qwerrors.Wrap(err, qwerrors.ErrCodeCredentialsWrite, "writing token file")
		}
	}

	return nil
}
