package oauth

import (
	"strings"

	"github.com/prior-it/socialauth/config"
)

// ProviderConfig contains the fixed endpoints of a provider.
// It is resolved once when an adapter is created and never changes afterwards.
type ProviderConfig struct {
	APIBaseURL       string
	AuthorizeURL     string
	TokenURL         string
	Scope            string
	DocumentationURL string
}

// Override returns a copy of the provider config where all non-empty values from cfg replace the defaults.
func (p ProviderConfig) Override(cfg config.OauthProviderConfig) ProviderConfig {
	if len(cfg.APIURL) > 0 {
		p.APIBaseURL = cfg.APIURL
	}
	if len(cfg.AuthURL) > 0 {
		p.AuthorizeURL = cfg.AuthURL
	}
	if len(cfg.TokenURL) > 0 {
		p.TokenURL = cfg.TokenURL
	}
	if len(cfg.Scope) > 0 {
		p.Scope = strings.Join(cfg.Scope, ",")
	}
	return p
}

// Credentials identify the application at the provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}
