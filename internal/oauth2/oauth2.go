// Package oauth2 manages XOAUTH2 credentials for mailbox providers that
// no longer accept password logins.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// LocalRedirectURL is where the interactive consent flow sends the
// browser back to.
const LocalRedirectURL = "http://localhost:8085/oauth/callback"

// TokenManager loads, refreshes and persists the OAuth2 token for one
// account. Tokens live as JSON files named after the account ID.
type TokenManager struct {
	config    *oauth2.Config
	tokenFile string
	logger    *slog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenManager opens the token store for accountID under tokenDir,
// loading an existing token if one is on disk.
func NewTokenManager(config *oauth2.Config, tokenDir, accountID string, logger *slog.Logger) (*TokenManager, error) {
	if tokenDir == "" {
		tokenDir = "tokens"
	}
	tokenDir = os.ExpandEnv(tokenDir)

	if err := os.MkdirAll(tokenDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	tm := &TokenManager{
		config:    config,
		tokenFile: filepath.Join(tokenDir, accountID+".json"),
		logger:    logger,
	}

	token, err := tm.readTokenFile()
	if err != nil {
		logger.Warn("stored OAuth2 token unreadable, re-authentication required", "error", err)
	} else {
		tm.token = token
	}
	return tm, nil
}

// GetAccessToken returns a valid access token, refreshing through the
// provider when the stored one has expired.
func (tm *TokenManager) GetAccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.token == nil {
		return "", fmt.Errorf("no OAuth2 token stored, run the oauth2 setup command first")
	}
	if tm.token.Valid() {
		return tm.token.AccessToken, nil
	}

	if tm.token.RefreshToken == "" {
		return "", fmt.Errorf("stored OAuth2 token expired and has no refresh token")
	}

	fresh, err := tm.config.TokenSource(ctx, tm.token).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh OAuth2 token: %w", err)
	}
	tm.token = fresh

	if err := tm.writeTokenFile(fresh); err != nil {
		tm.logger.Warn("failed to persist refreshed OAuth2 token", "error", err)
	}
	return fresh.AccessToken, nil
}

// SetToken stores a freshly obtained token.
func (tm *TokenManager) SetToken(token *oauth2.Token) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.token = token
	return tm.writeTokenFile(token)
}

// Delete removes the stored token file.
func (tm *TokenManager) Delete() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.token = nil
	if err := os.Remove(tm.tokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Authorize runs the interactive consent flow: it prints the consent
// URL, waits for the provider to call back the local server, exchanges
// the code and persists the resulting token.
func (tm *TokenManager) Authorize(ctx context.Context) error {
	authURL := tm.config.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following URL in your browser:\n\n  %s\n\n", authURL)

	code, err := waitForCallback(ctx, tm.logger)
	if err != nil {
		return err
	}

	token, err := tm.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return tm.SetToken(token)
}

func (tm *TokenManager) readTokenFile() (*oauth2.Token, error) {
	data, err := os.ReadFile(tm.tokenFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return &token, nil
}

func (tm *TokenManager) writeTokenFile(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tm.tokenFile, data, 0600)
}
