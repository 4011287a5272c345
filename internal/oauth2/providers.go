package oauth2

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// GetProviderConfig returns the OAuth2 endpoint and scope set for a
// known mailbox provider.
func GetProviderConfig(provider, clientID, clientSecret, redirectURL string) (*oauth2.Config, error) {
	base := oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	}

	switch provider {
	case "google":
		base.Scopes = []string{"https://mail.google.com/"}
		base.Endpoint = google.Endpoint
	case "microsoft":
		base.Scopes = []string{
			"https://outlook.office.com/IMAP.AccessAsUser.All",
			"offline_access",
		}
		base.Endpoint = microsoft.AzureADEndpoint("common")
	default:
		return nil, fmt.Errorf("unsupported OAuth2 provider: %s", provider)
	}
	return &base, nil
}
