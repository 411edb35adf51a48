package oauth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeInstagram(t *testing.T) *graphAPI {
	t.Helper()
	return newGraphAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token/":
			respond(`{"access_token":"IGQVJ-token","user_id":17841405793187218}`)(w, r)
		case "/me":
			if r.URL.Query().Get("access_token") != "IGQVJ-token" {
				respondStatus(http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token."}}`)(w, r)
				return
			}
			respond(`{"id":"17841405793187218","username":"jane","account_type":"PERSONAL","media_count":3}`)(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLoginService(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: full login flow", func(t *testing.T) {
		api := fakeInstagram(t)
		service := oauth.NewLoginService(map[string]config.OauthProviderConfig{
			"instagram": providerConfig(api),
		})
		storage := oauth.NewMemoryStorage()

		redirectURL, err := service.GetLoginRedirectURL(ctx, "instagram", callbackURL, storage)
		require.NoError(t, err)

		data, err := service.LoginCallback(
			ctx,
			"instagram",
			"the-code",
			stateFromURL(t, redirectURL),
			callbackURL,
			storage,
		)
		require.NoError(t, err)
		assert.Equal(t, "instagram", data.Provider)
		assert.Equal(t, "17841405793187218", data.ProviderID)
		assert.Equal(t, "jane", data.Name)
		assert.Equal(t, "https://instagram.com/jane", data.ProfileURL)
		assert.Empty(t, data.Email, "Instagram does not share e-mail addresses")

		require.NoError(t, service.Logout(ctx, "instagram", storage))
		token, err := storage.Get(ctx, "instagram.access_token")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("err: unknown provider", func(t *testing.T) {
		service := oauth.NewLoginService(map[string]config.OauthProviderConfig{})
		_, err := service.GetLoginRedirectURL(ctx, "instagram", callbackURL, oauth.NewMemoryStorage())
		assert.ErrorIs(t, err, core.ErrUnknownProvider)
	})

	t.Run("err: configured provider without an adapter", func(t *testing.T) {
		service := oauth.NewLoginService(map[string]config.OauthProviderConfig{
			"myspace": {ID: "id"},
		})
		_, err := service.GetLoginRedirectURL(ctx, "myspace", callbackURL, oauth.NewMemoryStorage())
		assert.ErrorIs(t, err, core.ErrUnknownProvider)
	})

	t.Run("err: missing code", func(t *testing.T) {
		api := fakeInstagram(t)
		service := oauth.NewLoginService(map[string]config.OauthProviderConfig{
			"instagram": providerConfig(api),
		})
		_, err := service.LoginCallback(ctx, "instagram", "", "state", callbackURL, oauth.NewMemoryStorage())
		assert.Error(t, err)
	})

	t.Run("err: callback without matching state", func(t *testing.T) {
		api := fakeInstagram(t)
		service := oauth.NewLoginService(map[string]config.OauthProviderConfig{
			"instagram": providerConfig(api),
		})
		_, err := service.LoginCallback(
			ctx,
			"instagram",
			"the-code",
			"state",
			callbackURL,
			oauth.NewMemoryStorage(),
		)
		assert.ErrorIs(t, err, core.ErrInvalidState)
	})
}
