package bootstrap

import (
	"fmt"
	"log"
	"net/http"

	"github.com/aqeluk/THYNKAPI/internal/auth"
	"github.com/aqeluk/THYNKAPI/internal/client"
	"github.com/aqeluk/THYNKAPI/internal/config"
	"github.com/aqeluk/THYNKAPI/internal/core"
)

// initializeOAuthProviders builds the provider registry from the enabled providers
func initializeOAuthProviders(cfg *config.Config, httpClient *http.Client) (*auth.Registry, error) {
	var providers []core.OAuthProvider

	if cfg.GitHub.Enabled {
		providers = append(providers, auth.NewGitHubProvider(providerConfig(cfg.GitHub), httpClient))
		log.Printf("GitHub OAuth configured: redirect=%s", cfg.GitHub.RedirectURL)
	}

	if cfg.Microsoft.Enabled {
		providers = append(providers, auth.NewMicrosoftProvider(
			providerConfig(cfg.Microsoft),
			cfg.MicrosoftTenantID,
			httpClient,
		))
		log.Printf(
			"Microsoft OAuth configured: tenant=%s redirect=%s",
			cfg.MicrosoftTenantID,
			cfg.Microsoft.RedirectURL,
		)
	}

	if cfg.Google.Enabled {
		providers = append(providers, auth.NewGoogleProvider(providerConfig(cfg.Google), httpClient))
		log.Printf("Google OAuth configured: redirect=%s", cfg.Google.RedirectURL)
	}

	registry, err := auth.NewRegistry(providers...)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	return registry, nil
}

func providerConfig(s config.OAuthProviderSettings) auth.ProviderConfig {
	return auth.ProviderConfig{
		AuthorizationEndpoint: s.AuthURL,
		TokenEndpoint:         s.TokenURL,
		UserInfoEndpoint:      s.UserInfoURL,
		ClientID:              s.ClientID,
		ClientSecret:          s.ClientSecret,
		RedirectURI:           s.RedirectURL,
		Scopes:                s.Scopes,
	}
}

// createOAuthHTTPClient creates the HTTP client shared by all provider calls
func createOAuthHTTPClient(cfg *config.Config) (*http.Client, error) {
	if cfg.OAuthInsecureSkipVerify {
		log.Printf("WARNING: OAuth TLS verification is disabled (OAUTH_INSECURE_SKIP_VERIFY=true)")
	}

	httpClient, err := client.NewOAuthHTTPClient(cfg.OAuthTimeout, cfg.OAuthInsecureSkipVerify)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth HTTP client: %w", err)
	}
	return httpClient, nil
}

// logOAuthProvidersStatus logs enabled OAuth providers
func logOAuthProvidersStatus(registry *auth.Registry) {
	if registry.Len() > 0 {
		log.Printf("OAuth providers enabled: %v", registry.Keys())
		return
	}
	log.Println("No OAuth providers enabled; only password login is available")
}
