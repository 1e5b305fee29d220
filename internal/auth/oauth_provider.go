package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aqeluk/THYNKAPI/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/microsoft"
)

const (
	defaultOAuthTimeout = 15 * time.Second
	maxProfileBodySize  = 1 << 20

	gitHubUserInfoURL    = "https://api.github.com/user"
	microsoftUserInfoURL = "https://graph.microsoft.com/v1.0/me"
	googleUserInfoURL    = "https://openidconnect.googleapis.com/v1/userinfo"
)

// ProviderConfig contains the endpoints and client credentials of one OAuth provider
type ProviderConfig struct {
	Key                   string
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
	ClientID              string
	ClientSecret          string
	RedirectURI           string
	Scopes                []string
}

var _ core.OAuthProvider = (*OAuthProvider)(nil)

// OAuthProvider runs the authorization-code flow against one provider.
type OAuthProvider struct {
	cfg        ProviderConfig
	oauth      *oauth2.Config
	adapter    ProfileAdapter
	httpClient *http.Client
}

// NewOAuthProvider creates a provider from explicit endpoints.
// Outbound calls use httpClient and are bounded by its Timeout.
func NewOAuthProvider(
	cfg ProviderConfig,
	adapter ProfileAdapter,
	httpClient *http.Client,
) *OAuthProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultOAuthTimeout}
	}
	return &OAuthProvider{
		cfg:        cfg,
		adapter:    adapter,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizationEndpoint,
				TokenURL:  cfg.TokenEndpoint,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// NewGitHubProvider creates a GitHub provider; empty endpoints use github.com.
func NewGitHubProvider(cfg ProviderConfig, httpClient *http.Client) *OAuthProvider {
	cfg.Key = "github"
	applyDefaults(&cfg, github.Endpoint, gitHubUserInfoURL)
	return NewOAuthProvider(cfg, GitHubProfile{}, httpClient)
}

// NewMicrosoftProvider creates a Microsoft Entra ID provider for tenant
// ("common", "organizations", "consumers" or a tenant id).
func NewMicrosoftProvider(
	cfg ProviderConfig,
	tenant string,
	httpClient *http.Client,
) *OAuthProvider {
	cfg.Key = "microsoft"
	if tenant == "" {
		tenant = "common"
	}
	applyDefaults(&cfg, microsoft.AzureADEndpoint(tenant), microsoftUserInfoURL)
	return NewOAuthProvider(cfg, MicrosoftProfile{}, httpClient)
}

// NewGoogleProvider creates a Google provider; empty endpoints use accounts.google.com.
func NewGoogleProvider(cfg ProviderConfig, httpClient *http.Client) *OAuthProvider {
	cfg.Key = "google"
	applyDefaults(&cfg, endpoints.Google, googleUserInfoURL)
	return NewOAuthProvider(cfg, GoogleProfile{}, httpClient)
}

func applyDefaults(cfg *ProviderConfig, endpoint oauth2.Endpoint, userInfoURL string) {
	if cfg.AuthorizationEndpoint == "" {
		cfg.AuthorizationEndpoint = endpoint.AuthURL
	}
	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = endpoint.TokenURL
	}
	if cfg.UserInfoEndpoint == "" {
		cfg.UserInfoEndpoint = userInfoURL
	}
}

func (p *OAuthProvider) Key() string {
	return p.cfg.Key
}

// Config returns a copy of the provider configuration.
func (p *OAuthProvider) Config() ProviderConfig {
	cfg := p.cfg
	cfg.Scopes = append([]string(nil), p.cfg.Scopes...)
	return cfg
}

// AuthorizationURL returns the provider login URL carrying client_id,
// redirect_uri, scope and response_type=code.
func (p *OAuthProvider) AuthorizationURL() string {
	return p.oauth.AuthCodeURL("")
}

// ExchangeCode trades code for an access token at the token endpoint. It is not retried.
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := p.requestContext(ctx)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrExchangeFailed)
	}
	return token.AccessToken, nil
}

// FetchProfile reads the userinfo endpoint with accessToken as bearer and
// normalizes the response with the provider's adapter.
func (p *OAuthProvider) FetchProfile(
	ctx context.Context,
	accessToken string,
) (*core.ExternalProfile, error) {
	ctx, cancel := p.requestContext(ctx)
	defer cancel()

	client := p.oauth.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	body, err := getJSON(ctx, client, p.cfg.UserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}

	profile, err := p.adapter.Normalize(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}

	if profile.Email == "" {
		if resolver, ok := p.adapter.(EmailResolver); ok {
			email, err := resolver.ResolveEmail(ctx, client, p.cfg.UserInfoEndpoint)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to get user email: %v", ErrProfileFetchFailed, err)
			}
			profile.Email = email
		}
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: %s account has no email address", ErrProfileFetchFailed, p.cfg.Key)
	}
	if profile.DisplayName == "" {
		profile.DisplayName = profile.Email
	}

	return profile, nil
}

// requestContext attaches the provider HTTP client and bounds the call by its timeout.
func (p *OAuthProvider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	if p.httpClient.Timeout > 0 {
		return context.WithTimeout(ctx, p.httpClient.Timeout)
	}
	return context.WithCancel(ctx)
}

func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s - %s", url, resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
