package oauth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstagramConfig(t *testing.T) {
	cfg := oauth.InstagramConfig()
	assert.Equal(t, "https://graph.instagram.com/", cfg.APIBaseURL)
	assert.Equal(t, "https://api.instagram.com/oauth/authorize/", cfg.AuthorizeURL)
	assert.Equal(t, "https://api.instagram.com/oauth/access_token/", cfg.TokenURL)
	assert.Equal(t, "user_profile,user_media", cfg.Scope)
}

func TestInstagramUserProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: profile is mapped from the me endpoint", func(t *testing.T) {
		id := gofakeit.DigitN(17)
		username := gofakeit.Username()
		token := gofakeit.UUID()
		api := newGraphAPI(t, respond(fmt.Sprintf(
			`{"id":%q,"username":%q,"account_type":"PERSONAL","media_count":42}`,
			id,
			username,
		)))
		instagram, _ := newInstagram(t, api, token)

		profile, err := instagram.UserProfile(ctx)
		require.NoError(t, err)

		assert.Equal(t, id, profile.Identifier)
		assert.Equal(t, username, profile.DisplayName)
		assert.Equal(t, "https://instagram.com/"+username, profile.ProfileURL)
		assert.Len(t, profile.Data, 2, "Data should contain exactly account_type and media_count")
		assert.Equal(t, "PERSONAL", profile.Data["account_type"])
		assert.EqualValues(t, 42, profile.Data["media_count"])

		req := api.last(t)
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/me", req.URL.Path)
		assert.Equal(t, "id,username,account_type,media_count", req.URL.Query().Get("fields"))
		assert.Equal(t, []string{token}, req.URL.Query()["access_token"])
		assert.Equal(t, "Bearer "+token, req.Header.Get("Authorization"))
	})

	t.Run("ok: missing optional fields are nil", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"id":"1","username":"jane"}`))
		instagram, _ := newInstagram(t, api, "token")

		profile, err := instagram.UserProfile(ctx)
		require.NoError(t, err)
		assert.Len(t, profile.Data, 2)
		assert.Nil(t, profile.Data["account_type"])
		assert.Nil(t, profile.Data["media_count"])
	})

	t.Run("err: response without id", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"username":"jane","account_type":"BUSINESS"}`))
		instagram, _ := newInstagram(t, api, "token")

		profile, err := instagram.UserProfile(ctx)
		assert.ErrorIs(t, err, core.ErrUnexpectedAPIResponse)
		assert.Nil(t, profile)
	})

	t.Run("err: rejected token is reported as unauthenticated", func(t *testing.T) {
		api := newGraphAPI(t, respondStatus(
			http.StatusUnauthorized,
			`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
		))
		instagram, _ := newInstagram(t, api, "expired")

		_, err := instagram.UserProfile(ctx)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)

		var apiErr *oauth.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "Invalid OAuth access token.", apiErr.Message)
	})

	t.Run("err: malformed response", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"id":`))
		instagram, _ := newInstagram(t, api, "token")

		_, err := instagram.UserProfile(ctx)
		assert.ErrorIs(t, err, core.ErrMalformedResponse)
	})
}

func TestInstagramUserMedia(t *testing.T) {
	ctx := context.Background()
	page := `{"data":[{"id":"17895695668004550","media_type":"IMAGE"}],` +
		`"paging":{"cursors":{"before":"QVFIUkx","after":"QVFIUmx1"}}}`

	t.Run("ok: defaults are requested", func(t *testing.T) {
		api := newGraphAPI(t, respond(page))
		instagram, _ := newInstagram(t, api, "token")

		media, err := instagram.UserMedia(ctx, 0, "")
		require.NoError(t, err)

		req := api.last(t)
		assert.Equal(t, "/me/media", req.URL.Path)
		assert.Equal(t, strings.Join(oauth.DefaultMediaFields, ","), req.URL.Query().Get("fields"))
		assert.Equal(
			t,
			"id,caption,media_type,media_url,thumbnail_url,permalink,timestamp,username",
			req.URL.Query().Get("fields"),
		)
		assert.Equal(t, "12", req.URL.Query().Get("limit"))
		assert.False(t, req.URL.Query().Has("after"), "The after cursor should be omitted for the first page")
		assert.Equal(t, "token", req.URL.Query().Get("access_token"))

		assert.Len(t, media.Get("data").Array(), 1)
		assert.Equal(t, "17895695668004550", media.Path("data.0.id").String())
		assert.Equal(t, "QVFIUmx1", media.Path("paging.cursors.after").String())
	})

	t.Run("ok: explicit fields, limit and cursor", func(t *testing.T) {
		api := newGraphAPI(t, respond(page))
		instagram, _ := newInstagram(t, api, "token")

		_, err := instagram.UserMedia(ctx, 5, "QVFIUmx1", "permalink", "id", "caption")
		require.NoError(t, err)

		query := api.last(t).URL.Query()
		assert.Equal(t, "permalink,id,caption", query.Get("fields"))
		assert.Equal(t, "5", query.Get("limit"))
		assert.Equal(t, []string{"QVFIUmx1"}, query["after"])
	})

	t.Run("ok: limit is not bounded", func(t *testing.T) {
		api := newGraphAPI(t, respond(page))
		instagram, _ := newInstagram(t, api, "token")

		_, err := instagram.UserMedia(ctx, 1000, "")
		require.NoError(t, err)
		assert.Equal(t, "1000", api.last(t).URL.Query().Get("limit"))
	})

	t.Run("ok: empty field list uses the defaults", func(t *testing.T) {
		api := newGraphAPI(t, respond(page))
		instagram, _ := newInstagram(t, api, "token")

		_, err := instagram.UserMedia(ctx, 0, "", []string{}...)
		require.NoError(t, err)
		assert.Equal(t, strings.Join(oauth.DefaultMediaFields, ","), api.last(t).URL.Query().Get("fields"))
	})

	t.Run("err: response without data", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"paging":{}}`))
		instagram, _ := newInstagram(t, api, "token")

		media, err := instagram.UserMedia(ctx, 0, "")
		assert.ErrorIs(t, err, core.ErrUnexpectedAPIResponse)
		assert.Nil(t, media)
	})
}

func TestInstagramMedia(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: raw response is returned without validation", func(t *testing.T) {
		body := `{"caption":"no id here","unexpected":[1,2,3]}`
		api := newGraphAPI(t, respond(body))
		instagram, _ := newInstagram(t, api, "token")

		media, err := instagram.Media(ctx, "17895695668004550")
		require.NoError(t, err)
		assert.Equal(t, body, media.Raw)

		req := api.last(t)
		assert.Equal(t, "/17895695668004550", req.URL.Path)
		assert.Equal(t, strings.Join(oauth.DefaultMediaFields, ","), req.URL.Query().Get("fields"))
		assert.Equal(t, "token", req.URL.Query().Get("access_token"), "The stored token is a default parameter")
	})

	t.Run("ok: explicit fields", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"id":"1"}`))
		instagram, _ := newInstagram(t, api, "token")

		_, err := instagram.Media(ctx, "1", "media_url", "id")
		require.NoError(t, err)
		assert.Equal(t, "media_url,id", api.last(t).URL.Query().Get("fields"))
	})

	t.Run("ok: ids stay below the API base path", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{}`))
		cfg := providerConfig(api)
		cfg.APIURL = api.URL + "/v21.0"
		instagram, err := oauth.NewInstagramAdapter(ctx, cfg, callbackURL, oauth.NewMemoryStorage())
		require.NoError(t, err)

		for id, path := range map[string]string{
			"a:b":                "/v21.0/a:b",
			"https://evil.test/": "/v21.0/https:%2F%2Fevil.test%2F",
			"../me":              "/v21.0/..%2Fme",
		} {
			_, err := instagram.Media(ctx, id)
			require.NoError(t, err, id)
			assert.Equal(t, path, api.last(t).URL.EscapedPath(), id)
		}
	})

	t.Run("err: ids that resolve outside the media endpoint", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{}`))
		instagram, _ := newInstagram(t, api, "token")

		for _, id := range []string{"", ".", ".."} {
			_, err := instagram.Media(ctx, id)
			assert.ErrorIs(t, err, core.ErrNotFound, id)
		}
		assert.Zero(t, api.count(), "No request should be sent for an invalid id")
	})

	t.Run("ok: without a stored token no access token is sent", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{}`))
		instagram, _ := newInstagram(t, api, "")

		_, err := instagram.Media(ctx, "1")
		require.NoError(t, err)
		req := api.last(t)
		assert.False(t, req.URL.Query().Has("access_token"))
		assert.Empty(t, req.Header.Get("Authorization"))
	})
}

func TestInstagramAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: token is stored and used for API requests", func(t *testing.T) {
		token := gofakeit.UUID()
		api := newGraphAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/access_token/" {
				respond(fmt.Sprintf(`{"access_token":%q,"user_id":17841405793187218}`, token))(w, r)
				return
			}
			respond(`{"id":"17841405793187218","username":"jane"}`)(w, r)
		})
		instagram, storage := newInstagram(t, api, "")

		connected, err := instagram.IsConnected(ctx)
		require.NoError(t, err)
		assert.False(t, connected)

		authURL, err := instagram.AuthorizeURL(ctx)
		require.NoError(t, err)
		state := stateFromURL(t, authURL)

		require.NoError(t, instagram.Authenticate(ctx, "the-code", state))

		form := api.lastForm(t)
		assert.Equal(t, "the-code", form.Get("code"))
		assert.Equal(t, "client-id", form.Get("client_id"))
		assert.Equal(t, "client-secret", form.Get("client_secret"))
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, callbackURL, form.Get("redirect_uri"))

		stored, err := storage.Get(ctx, "instagram.access_token")
		require.NoError(t, err)
		assert.Equal(t, token, stored)

		connected, err = instagram.IsConnected(ctx)
		require.NoError(t, err)
		assert.True(t, connected)

		_, err = instagram.Media(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, token, api.last(t).URL.Query().Get("access_token"))
	})

	t.Run("ok: disconnect removes the token from API requests", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{}`))
		instagram, _ := newInstagram(t, api, "token")

		require.NoError(t, instagram.Disconnect(ctx))

		connected, err := instagram.IsConnected(ctx)
		require.NoError(t, err)
		assert.False(t, connected)

		_, err = instagram.Media(ctx, "1")
		require.NoError(t, err)
		assert.False(t, api.last(t).URL.Query().Has("access_token"))
	})

	t.Run("err: state mismatch", func(t *testing.T) {
		api := newGraphAPI(t, respond(`{"access_token":"token"}`))
		instagram, storage := newInstagram(t, api, "")

		_, err := instagram.AuthorizeURL(ctx)
		require.NoError(t, err)

		err = instagram.Authenticate(ctx, "the-code", "forged")
		assert.ErrorIs(t, err, core.ErrInvalidState)

		stored, err := storage.Get(ctx, "instagram.access_token")
		require.NoError(t, err)
		assert.Empty(t, stored, "No token should be stored after a failed state check")
	})
}
