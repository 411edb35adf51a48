package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-chi/render"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/login"
	"github.com/prior-it/socialauth/oauth"
)

// AuthState is the application state needed by the authentication and Instagram routes.
type AuthState interface {
	State
	Logins() *oauth.LoginService
	// Accounts may return nil, in which case logged in accounts are not persisted.
	Accounts() login.AccountService
}

// MediaQuery holds the query parameters of the media endpoints.
type MediaQuery struct {
	Limit  int    `schema:"limit"`
	After  string `schema:"after"`
	Fields string `schema:"fields"`
}

func (q MediaQuery) fields() []string {
	if len(q.Fields) == 0 {
		return nil
	}
	return strings.Split(q.Fields, ",")
}

// RegisterRoutes attaches the login and Instagram routes to the server.
func RegisterRoutes[state AuthState](server *Server[state]) {
	server.Get("/ping", Ping[state])

	server.Get("/auth/{provider}", Login[state]).
		Get("/auth/{provider}/callback", LoginCallback[state]).
		Post("/auth/{provider}/logout", Logout[state])

	server.Group("/instagram").
		Use(RequireInstagram[state]).
		Get("/profile", InstagramProfile[state]).
		Get("/media", InstagramMedia[state]).
		Get("/media/{id}", InstagramMediaItem[state])
}

func Ping[state any](call *Call, _ state) error {
	render.PlainText(call.Writer, call.Request, "pong")
	return nil
}

// Login redirects the user to the authorization page of the requested provider.
func Login[state AuthState](call *Call, s state) error {
	provider := call.GetPath("provider")
	call.LogString("provider", provider)
	storage, err := call.Storage()
	if err != nil {
		return err
	}
	url, err := s.Logins().GetLoginRedirectURL(
		call.Context(),
		provider,
		call.Cfg.CallbackURL(provider),
		storage,
	)
	if err != nil {
		return err
	}
	call.Redirect(url)
	return nil
}

// LoginCallback finishes the login and responds with the data of the user that logged in.
func LoginCallback[state AuthState](call *Call, s state) error {
	ctx := call.Context()
	provider := call.GetPath("provider")
	call.LogString("provider", provider)

	// The user declined the authorization request
	if reason := call.GetQuery("error"); len(reason) > 0 {
		return fmt.Errorf(
			"%w: %s (%s)",
			core.ErrUnauthenticated,
			reason,
			call.GetQuery("error_description"),
		)
	}

	storage, err := call.Storage()
	if err != nil {
		return err
	}
	data, err := s.Logins().LoginCallback(
		ctx,
		provider,
		call.GetQuery("code"),
		call.GetQuery("state"),
		call.Cfg.CallbackURL(provider),
		storage,
	)
	if err != nil {
		return err
	}

	if accounts := s.Accounts(); accounts != nil {
		if err := saveAccount(call, accounts, data); err != nil {
			return err
		}
	}

	call.JSON(data)
	return nil
}

func saveAccount(call *Call, accounts login.AccountService, data *login.UserData) error {
	ctx := call.Context()
	_, err := accounts.FindAccount(ctx, data.Provider, data.ProviderID)
	if errors.Is(err, core.ErrNotFound) {
		call.Debug("Creating new account", "provider", data.Provider, "provider_id", data.ProviderID)
		return accounts.CreateAccount(ctx, data)
	} else if err != nil {
		return fmt.Errorf("cannot retrieve account: %w", err)
	}
	return accounts.UpdateAccount(ctx, data)
}

// Logout forgets the stored token of the requested provider.
func Logout[state AuthState](call *Call, s state) error {
	provider := call.GetPath("provider")
	call.LogString("provider", provider)
	storage, err := call.Storage()
	if err != nil {
		return err
	}
	if err := s.Logins().Logout(call.Context(), provider, storage); err != nil {
		return err
	}
	call.NoContent()
	return nil
}

// RequireInstagram is middleware that makes the Instagram provider of the current session available to the next
// handlers, see InstagramProvider. If the session is not connected to Instagram, this returns
// core.ErrUnauthenticated.
func RequireInstagram[state AuthState](call *Call, s state) (context.Context, error) {
	storage, err := call.Storage()
	if err != nil {
		return nil, err
	}
	provider, err := s.Logins().Provider(
		call.Context(),
		oauth.ProviderInstagram,
		call.Cfg.CallbackURL(oauth.ProviderInstagram),
		storage,
	)
	if err != nil {
		return nil, err
	}
	ig, ok := provider.(*oauth.Instagram)
	if !ok {
		return nil, fmt.Errorf("unexpected instagram provider type %T", provider)
	}
	connected, err := ig.IsConnected(call.Context())
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, fmt.Errorf("%w: not connected to instagram", core.ErrUnauthenticated)
	}
	// Reading the session attaches the session registry to the request, so the context is taken afterwards
	return context.WithValue(call.Context(), ctxInstagram, ig), nil
}

func InstagramProfile[state any](call *Call, _ state) error {
	ig, err := InstagramProvider(call.Context())
	if err != nil {
		return err
	}
	profile, err := ig.UserProfile(call.Context())
	if err != nil {
		return err
	}
	call.JSON(profile)
	return nil
}

func InstagramMedia[state any](call *Call, _ state) error {
	var query MediaQuery
	if err := call.DecodeQuery(&query); err != nil {
		return err
	}
	if query.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidQuery)
	}
	ig, err := InstagramProvider(call.Context())
	if err != nil {
		return err
	}
	media, err := ig.UserMedia(call.Context(), query.Limit, query.After, query.fields()...)
	if err != nil {
		return err
	}
	slog.Debug("Media page retrieved", "count", media.Filter("data").Count())
	call.JSON(media)
	return nil
}

func InstagramMediaItem[state any](call *Call, _ state) error {
	var query MediaQuery
	if err := call.DecodeQuery(&query); err != nil {
		return err
	}
	ig, err := InstagramProvider(call.Context())
	if err != nil {
		return err
	}
	media, err := ig.Media(call.Context(), call.GetPath("id"), query.fields()...)
	if err != nil {
		return err
	}
	call.JSON(json.RawMessage(media.Raw))
	return nil
}
