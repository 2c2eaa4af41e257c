package gdrive

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// DefaultTokenFile is the token file name used when no path is configured
const DefaultTokenFile = "gdrive-token.json"

// ErrNoToken is returned when no usable token is stored
var ErrNoToken = errors.New("no valid google drive token")

// Token is the on-disk form of an OAuth2 token
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func (t *Token) toOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func fromOAuth2Token(t *oauth2.Token) *Token {
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// Authenticator handles OAuth2 authentication for Google Drive. Only
// metadata read access is requested.
type Authenticator struct {
	config    *oauth2.Config
	tokenPath string
}

// NewAuthenticator creates a new authenticator. An empty tokenPath stores
// the token in the user config directory.
func NewAuthenticator(clientID, clientSecret, tokenPath string) *Authenticator {
	if tokenPath == "" {
		tokenPath = DefaultTokenFile
		if configDir, err := os.UserConfigDir(); err == nil {
			tokenPath = filepath.Join(configDir, "explorer", DefaultTokenFile)
		}
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{drive.DriveMetadataReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		tokenPath: tokenPath,
	}
}

// Token returns a valid token, refreshing and saving it if it expired
func (a *Authenticator) Token(ctx context.Context, sourceName string) (*oauth2.Token, error) {
	token, err := a.loadToken()
	if err != nil {
		return nil, fmt.Errorf("%w, please run 'explorer auth %s' first", ErrNoToken, sourceName)
	}

	if token.Valid() {
		return token, nil
	}

	if token.RefreshToken != "" {
		if refreshed, err := a.RefreshToken(ctx, token); err == nil {
			return refreshed, nil
		}
	}

	return nil, fmt.Errorf("%w: token expired and refresh failed, please run 'explorer auth %s' to re-authenticate",
		ErrNoToken, sourceName)
}

// Client returns an HTTP client authorized with the stored token
func (a *Authenticator) Client(ctx context.Context, sourceName string) (*http.Client, error) {
	token, err := a.Token(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	return a.config.Client(ctx, token), nil
}

func generateRandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Authenticate runs the authorization code flow: it prints the consent URL
// to out, reads the code from in and stores the resulting token
func (a *Authenticator) Authenticate(ctx context.Context, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	state, err := generateRandomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	authURL := a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "\nTo let Explorer read your Google Drive folders:\n\n")
	fmt.Fprintf(out, "1. Visit this URL:\n   %s\n\n", authURL)
	fmt.Fprintf(out, "2. Sign in and authorize the application\n\n")
	fmt.Fprintf(out, "Enter authorization code: ")

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := a.saveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(out, "\nAuthentication successful. Token saved to %s\n", a.tokenPath)
	return token, nil
}

// RefreshToken refreshes an expired token and stores the result
func (a *Authenticator) RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	newToken, err := a.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := a.saveToken(newToken); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	return newToken, nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file: %w", err)
	}

	return token.toOAuth2Token(), nil
}

// saveToken writes the token through a temp file and rename
func (a *Authenticator) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(fromOAuth2Token(token), "", "  ")
	if err != nil {
		return err
	}

	tempPath := a.tokenPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp token file: %w", err)
	}

	if err := os.Rename(tempPath, a.tokenPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename token file: %w", err)
	}

	return nil
}

// TokenPath returns the path where the token is stored
func (a *Authenticator) TokenPath() string {
	return a.tokenPath
}
