package gdrive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/Ning0612/Explorer/internal/testutil"
)

func TestAuthenticator_SaveAndLoadToken(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := filepath.Join(dir, "tokens", "drive.json")
	auth := NewAuthenticator("id", "secret", path)

	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	if err := auth.saveToken(token); err != nil {
		t.Fatalf("saveToken() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("token file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	got, err := auth.Token(context.Background(), "drive")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(token.Expiry) {
		t.Errorf("unexpected token %+v", got)
	}

	client, err := auth.Client(context.Background(), "drive")
	if err != nil || client == nil {
		t.Errorf("Client() = %v, %v", client, err)
	}
}

func TestAuthenticator_NoToken(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	auth := NewAuthenticator("id", "secret", filepath.Join(dir, "missing.json"))

	_, err := auth.Token(context.Background(), "drive")
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestAuthenticator_ExpiredWithoutRefresh(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	auth := NewAuthenticator("id", "secret", filepath.Join(dir, "token.json"))
	expired := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}
	if err := auth.saveToken(expired); err != nil {
		t.Fatalf("saveToken() error = %v", err)
	}

	if _, err := auth.Token(context.Background(), "drive"); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestAuthenticator_InvalidTokenFile(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	path := testutil.CreateTestFile(t, dir, "token.json", []byte("{not json"))
	auth := NewAuthenticator("id", "secret", path)

	if _, err := auth.loadToken(); err == nil {
		t.Error("expected error for invalid token file")
	}
}

func TestNewAuthenticator_DefaultPath(t *testing.T) {
	auth := NewAuthenticator("id", "secret", "")

	if filepath.Base(auth.TokenPath()) != DefaultTokenFile {
		t.Errorf("unexpected default token path %s", auth.TokenPath())
	}
}
