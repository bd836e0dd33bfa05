package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// SocialProfile is the provider-side identity returned by a connector
// exchange.
type SocialProfile struct {
	UserID string
	Email  string
	Name   string
	Avatar string
	Raw    map[string]any
}

// Connector exchanges caller-supplied authorization data for the provider
// profile of the identity being linked. Implementations live per provider;
// the service looks them up by connector id.
type Connector interface {
	// Target is the provider key the linked identity is stored under,
	// e.g. "google".
	Target() string

	// Exchange trades the authorization payload (typically {"code": ...,
	// "redirectUri": ...}) for the provider profile.
	Exchange(ctx context.Context, data map[string]string) (*SocialProfile, error)
}

// OAuth2Connector links identities from any OAuth2 provider exposing a JSON
// userinfo endpoint.
type OAuth2Connector struct {
	target      string
	config      *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// OAuth2ConnectorConfig describes one provider.
type OAuth2ConnectorConfig struct {
	Target       string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// NewOAuth2Connector creates a connector for the given provider.
func NewOAuth2Connector(cfg OAuth2ConnectorConfig) *OAuth2Connector {
	return &OAuth2Connector{
		target: cfg.Target,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (c *OAuth2Connector) Target() string {
	return c.target
}

func (c *OAuth2Connector) Exchange(ctx context.Context, data map[string]string) (*SocialProfile, error) {
	code := data["code"]
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrUpstreamFailure)
	}

	var exchangeOpts []oauth2.AuthCodeOption
	if redirectURI := data["redirectUri"]; redirectURI != "" {
		exchangeOpts = append(exchangeOpts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	if c.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	}

	tok, err := c.config.Exchange(ctx, code, exchangeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	resp, err := c.config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo endpoint returned %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid userinfo payload: %w", ErrUpstreamFailure, err)
	}

	p := &SocialProfile{Raw: raw}
	// OIDC uses "sub"; several providers still return "id".
	if sub, ok := raw["sub"].(string); ok {
		p.UserID = sub
	} else if id, ok := raw["id"].(string); ok {
		p.UserID = id
	}
	if email, ok := raw["email"].(string); ok {
		p.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		p.Name = name
	}
	if pic, ok := raw["picture"].(string); ok {
		p.Avatar = pic
	}

	if p.UserID == "" {
		return nil, fmt.Errorf("%w: userinfo payload has no subject id", ErrUpstreamFailure)
	}

	return p, nil
}

var _ Connector = (*OAuth2Connector)(nil)
