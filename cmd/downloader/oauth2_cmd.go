package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/altafino/imap-attachment-downloader/internal/config"
	"github.com/altafino/imap-attachment-downloader/internal/oauth2"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

func newOAuth2Command() *cobra.Command {
	oauth2Cmd := &cobra.Command{
		Use:   "oauth2",
		Short: "OAuth2 token management",
		Long:  `Manage OAuth2 tokens for mailbox accounts`,
	}

	oauth2Cmd.AddCommand(&cobra.Command{
		Use:   "generate [config-id]",
		Short: "Run the interactive consent flow and store the token",
		Args:  cobra.ExactArgs(1),
		RunE:  generateOAuth2Token,
	})

	oauth2Cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored OAuth2 tokens",
		RunE:  listOAuth2Tokens,
	})

	oauth2Cmd.AddCommand(&cobra.Command{
		Use:   "delete [config-id]",
		Short: "Delete the stored OAuth2 token",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteOAuth2Token,
	})

	return oauth2Cmd
}

func tokenManagerFor(cfg *types.Config) (*oauth2.TokenManager, error) {
	oauthCfg := &cfg.Email.Protocols.IMAP.Security.OAuth2
	if !oauthCfg.Enabled {
		return nil, fmt.Errorf("OAuth2 is not enabled for configuration %s", cfg.Meta.ID)
	}

	providerCfg, err := oauth2.GetProviderConfig(
		oauthCfg.Provider,
		oauthCfg.ClientID,
		oauthCfg.ClientSecret,
		oauth2.LocalRedirectURL,
	)
	if err != nil {
		return nil, err
	}

	accountID := fmt.Sprintf("%s_%s", cfg.Meta.ID, cfg.Email.Protocols.IMAP.Username)
	return oauth2.NewTokenManager(providerCfg, oauthCfg.TokenStoragePath, accountID, log)
}

func generateOAuth2Token(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig(args[0])
	if err != nil {
		return err
	}

	tm, err := tokenManagerFor(cfg)
	if err != nil {
		return err
	}

	if err := tm.Authorize(context.Background()); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Println("Token stored successfully.")
	return nil
}

func listOAuth2Tokens(cmd *cobra.Command, args []string) error {
	seen := make(map[string]bool)
	for _, cfg := range config.ListConfigs() {
		dir := cfg.Email.Protocols.IMAP.Security.OAuth2.TokenStoragePath
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(os.ExpandEnv(dir))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			fmt.Println(strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return nil
}

func deleteOAuth2Token(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig(args[0])
	if err != nil {
		return err
	}

	tm, err := tokenManagerFor(cfg)
	if err != nil {
		return err
	}

	if err := tm.Delete(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	fmt.Println("Token deleted.")
	return nil
}
