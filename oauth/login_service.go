package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/login"
)

// Provider is the part of a provider adapter that is needed to log users in.
type Provider interface {
	AuthorizeURL(ctx context.Context) (string, error)
	Authenticate(ctx context.Context, code string, state string) error
	UserProfile(ctx context.Context) (*core.UserProfile, error)
	Disconnect(ctx context.Context) error
}

type ProviderFactory func(
	ctx context.Context,
	cfg config.OauthProviderConfig,
	callbackURL string,
	storage core.Storage,
	opts ...AdapterOption,
) (Provider, error)

var factories = map[string]ProviderFactory{
	ProviderInstagram: func(
		ctx context.Context,
		cfg config.OauthProviderConfig,
		callbackURL string,
		storage core.Storage,
		opts ...AdapterOption,
	) (Provider, error) {
		return NewInstagramAdapter(ctx, cfg, callbackURL, storage, opts...)
	},
}

func NewLoginService(
	providers map[string]config.OauthProviderConfig,
	opts ...AdapterOption,
) *LoginService {
	return &LoginService{providers, opts}
}

// OAuth implementation of the login Service interface.
type LoginService struct {
	providers map[string]config.OauthProviderConfig
	opts      []AdapterOption
}

// Force struct to implement the login interface
var _ login.Service = &LoginService{}

// Provider creates the adapter for the specified provider, backed by storage.
func (s *LoginService) Provider(
	ctx context.Context,
	provider string,
	callbackURL string,
	storage core.Storage,
) (Provider, error) {
	cfg, exists := s.providers[provider]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownProvider, provider)
	}
	factory, exists := factories[provider]
	if !exists {
		return nil, fmt.Errorf(
			"%w: logging in is currently not supported for provider %q",
			core.ErrUnknownProvider,
			provider,
		)
	}
	return factory(ctx, cfg, callbackURL, storage, s.opts...)
}

func (s *LoginService) GetLoginRedirectURL(
	ctx context.Context,
	provider string,
	callbackURL string,
	storage core.Storage,
) (string, error) {
	p, err := s.Provider(ctx, provider, callbackURL, storage)
	if err != nil {
		return "", err
	}
	return p.AuthorizeURL(ctx)
}

func (s *LoginService) LoginCallback(
	ctx context.Context,
	provider string,
	code string,
	state string,
	callbackURL string,
	storage core.Storage,
) (*login.UserData, error) {
	slog.Debug("Login callback received", "provider", provider)

	if len(code) == 0 {
		return nil, errors.New("expected to receive a code")
	}

	p, err := s.Provider(ctx, provider, callbackURL, storage)
	if err != nil {
		return nil, err
	}

	if err := p.Authenticate(ctx, code, state); err != nil {
		return nil, err
	}

	profile, err := p.UserProfile(ctx)
	if err != nil {
		return nil, err
	}

	userData := login.NewUserData(provider, profile)
	slog.Debug("User data retrieved", "provider", provider, "provider_id", userData.ProviderID)

	return userData, nil
}

func (s *LoginService) Logout(ctx context.Context, provider string, storage core.Storage) error {
	p, err := s.Provider(ctx, provider, "", storage)
	if err != nil {
		return err
	}
	return p.Disconnect(ctx)
}
