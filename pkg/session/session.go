package session

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qwenweb/qwenweb/pkg/credentials"
)

// Policy sets the maximum credential age before reauthentication is required,
// regardless of whether requests currently succeed.
type Policy struct {
	MaxAge time.Duration
}

// Manager owns the live credential set and derives per-request headers.
// A read failure from the store is treated as "credentials absent", never as
// a hard failure: the browser-login collaborator is responsible for refills.
type Manager struct {
	store   *credentials.Store
	policy  Policy
	baseURL string

	mu    sync.RWMutex
	creds *credentials.Credentials

	now func() time.Time
}

// NewManager builds a manager over the given store and policy
func NewManager(store *credentials.Store, policy Policy, baseURL string) *Manager {
	m := &Manager{
		store:   store,
		policy:  policy,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	m.Reload()
	return m
}

// Reload re-reads the credential store, treating read failures as absent
func (m *Manager) Reload() {
	creds, err := m.store.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.creds = nil
		return
	}
	m.creds = creds
}

// Credentials returns the current credential bundle, nil when absent
func (m *Manager) Credentials() *credentials.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// HasCookies reports whether chat operations can authenticate
func (m *Manager) HasCookies() bool {
	return m.Credentials().HasCookies()
}

// NeedsReauth reports whether the credential set is absent or stale
func (m *Manager) NeedsReauth() bool {
	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()

	if creds == nil || !creds.HasCookies() {
		return true
	}
	return creds.Age(m.now()) > m.policy.MaxAge
}

// RecordLogin persists a freshly acquired credential set and adopts it with
// IssuedAt reset to now
func (m *Manager) RecordLogin(creds *credentials.Credentials) error {
	if err := m.store.Save(creds); err != nil {
		return err
	}

	adopted := *creds
	adopted.IssuedAt = m.now()

	m.mu.Lock()
	m.creds = &adopted
	m.mu.Unlock()
	return nil
}

// Headers derives the request headers for a chat-service call. Every call
// gets a fresh X-Request-Id; everything else is deterministic.
func (m *Manager) Headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Origin", m.baseURL)
	h.Set("Referer", m.baseURL+"/")
	h.Set("User-Agent", defaultUserAgent)
	h.Set("X-Request-Id", uuid.NewString())
	h.Set("X-Accel-Buffering", "no")
	h.Set("source", "web")

	if creds := m.Credentials(); creds != nil && creds.Token != "" {
		h.Set("Authorization", "Bearer "+creds.Token)
	}
	return h
}

// CookieHeader serializes the cookie jar for the Cookie request header.
// Pair order is unspecified; the service does not depend on it.
func (m *Manager) CookieHeader() string {
	creds := m.Credentials()
	if creds == nil {
		return ""
	}
	pairs := make([]string, 0, len(creds.Cookies))
	for name, value := range creds.Cookies {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, "; ")
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
