package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_LoadAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "creds"))

	creds, err := store.Load()
	if err != nil {
		t.Fatalf("Load on empty store: %v", err)
	}
	if creds != nil {
		t.Errorf("expected nil credentials for absent store, got %+v", creds)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "creds"))

	in := &Credentials{
		Cookies: map[string]string{
			"ssxmod_itna": "abc123",
			"token":       "bearer-xyz",
		},
		Token: "bearer-xyz",
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out == nil {
		t.Fatal("Load returned nil after Save")
	}
	if len(out.Cookies) != 2 || out.Cookies["ssxmod_itna"] != "abc123" {
		t.Errorf("cookies did not round-trip: %+v", out.Cookies)
	}
	if out.Token != "bearer-xyz" {
		t.Errorf("Token = %q, want bearer-xyz", out.Token)
	}
	if out.IssuedAt.IsZero() {
		t.Error("IssuedAt should be set from the cookie file mtime")
	}
	if time.Since(out.IssuedAt) > time.Minute {
		t.Errorf("IssuedAt too old: %v", out.IssuedAt)
	}
}

func TestStore_LoadCorruptCookies(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := os.WriteFile(store.CookiesPath(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("expected error for corrupt cookie file")
	}
}

func TestStore_TokenFromFileWhenNotInCookies(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Save(&Credentials{
		Cookies: map[string]string{"session": "s1"},
		Token:   "file-token",
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Token != "file-token" {
		t.Errorf("Token = %q, want file-token", out.Token)
	}
}

func TestCredentials_HasCookies(t *testing.T) {
	var nilCreds *Credentials
	if nilCreds.HasCookies() {
		t.Error("nil credentials should not have cookies")
	}
	if (&Credentials{}).HasCookies() {
		t.Error("empty credentials should not have cookies")
	}
	if !(&Credentials{Cookies: map[string]string{"a": "b"}}).HasCookies() {
		t.Error("populated cookie jar should report true")
	}
}

func TestFirstToken(t *testing.T) {
	got := FirstToken(
		func() string { return "" },
		nil,
		func() string { return "second" },
		func() string { return "third" },
	)
	if got != "second" {
		t.Errorf("FirstToken = %q, want second", got)
	}

	if got := FirstToken(func() string { return "" }); got != "" {
		t.Errorf("FirstToken with no hits = %q, want empty", got)
	}
}

func TestResolveToken_Priority(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.txt")
	if err := os.WriteFile(tokenPath, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Cookie wins over file.
	got := ResolveToken(map[string]string{"token": "from-cookie"}, tokenPath)
	if got != "from-cookie" {
		t.Errorf("ResolveToken = %q, want from-cookie", got)
	}

	// File wins when no cookie.
	got = ResolveToken(map[string]string{}, tokenPath)
	if got != "from-file" {
		t.Errorf("ResolveToken = %q, want from-file", got)
	}

	// Env is the last resort.
	t.Setenv("QWENWEB_TOKEN", "from-env")
	got = ResolveToken(nil, filepath.Join(dir, "missing.txt"))
	if got != "from-env" {
		t.Errorf("ResolveToken = %q, want from-env", got)
	}
}
