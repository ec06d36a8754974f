package session

import (
	"strings"
	"testing"
	"time"

	"github.com/qwenweb/qwenweb/pkg/credentials"
)

func newTestManager(t *testing.T, maxAge time.Duration) (*Manager, *credentials.Store) {
	t.Helper()
	store := credentials.NewStore(t.TempDir())
	mgr := NewManager(store, Policy{MaxAge: maxAge}, "https://chat.example.com")
	return mgr, store
}

func TestNeedsReauth_NoCredentials(t *testing.T) {
	mgr, _ := newTestManager(t, 24*time.Hour)

	if !mgr.NeedsReauth() {
		t.Error("NeedsReauth should be true with no stored credentials")
	}
}

func TestNeedsReauth_FreshCredentials(t *testing.T) {
	mgr, _ := newTestManager(t, 24*time.Hour)

	if err := mgr.RecordLogin(&credentials.Credentials{
		Cookies: map[string]string{"session": "abc"},
		Token:   "tok",
	}); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}

	if mgr.NeedsReauth() {
		t.Error("NeedsReauth should be false right after login")
	}
}

func TestNeedsReauth_StaleCredentials(t *testing.T) {
	mgr, _ := newTestManager(t, 24*time.Hour)

	if err := mgr.RecordLogin(&credentials.Credentials{
		Cookies: map[string]string{"session": "abc"},
	}); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}

	// Shift the manager's clock past the max age.
	base := time.Now()
	mgr.now = func() time.Time { return base.Add(25 * time.Hour) }

	if !mgr.NeedsReauth() {
		t.Error("NeedsReauth should be true past max age")
	}
}

func TestReload_MissingStoreTreatedAsAbsent(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)
	mgr.Reload()

	if mgr.Credentials() != nil {
		t.Error("expected nil credentials after reload from empty store")
	}
	if mgr.HasCookies() {
		t.Error("HasCookies should be false")
	}
}

func TestHeaders(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)
	if err := mgr.RecordLogin(&credentials.Credentials{
		Cookies: map[string]string{"session": "abc"},
		Token:   "tok-123",
	}); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}

	h := mgr.Headers()

	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := h.Get("Origin"); got != "https://chat.example.com" {
		t.Errorf("Origin = %q", got)
	}
	if got := h.Get("Referer"); got != "https://chat.example.com/" {
		t.Errorf("Referer = %q", got)
	}
	if got := h.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("source"); got != "web" {
		t.Errorf("source = %q", got)
	}

	// X-Request-Id must be fresh per call.
	first := h.Get("X-Request-Id")
	second := mgr.Headers().Get("X-Request-Id")
	if first == "" || second == "" {
		t.Fatal("X-Request-Id missing")
	}
	if first == second {
		t.Error("X-Request-Id should differ between calls")
	}
}

func TestHeaders_NoTokenOmitsAuthorization(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)

	if got := mgr.Headers().Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty without token", got)
	}
}

func TestCookieHeader(t *testing.T) {
	mgr, _ := newTestManager(t, time.Hour)
	if err := mgr.RecordLogin(&credentials.Credentials{
		Cookies: map[string]string{"a": "1", "b": "2"},
	}); err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}

	header := mgr.CookieHeader()
	if !strings.Contains(header, "a=1") || !strings.Contains(header, "b=2") {
		t.Errorf("CookieHeader = %q, missing pairs", header)
	}

	empty, _ := newTestManager(t, time.Hour)
	if got := empty.CookieHeader(); got != "" {
		t.Errorf("CookieHeader = %q, want empty without credentials", got)
	}
}

func TestGenerateSessionID(t *testing.T) {
	id := GenerateSessionID("My Chat!")
	if !strings.HasPrefix(id, "my-chat-") {
		t.Errorf("GenerateSessionID = %q, want my-chat- prefix", id)
	}

	if GenerateSessionID("x") == GenerateSessionID("x") {
		t.Error("session IDs should be unique")
	}

	if !strings.HasPrefix(GenerateSessionID("  "), "session-") {
		t.Error("blank base should fall back to 'session'")
	}
}
