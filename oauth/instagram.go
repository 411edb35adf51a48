package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/core"
	"github.com/tidwall/gjson"
)

const (
	ProviderInstagram = "instagram"

	// Page size used by Instagram.UserMedia when no limit is given
	DefaultMediaLimit = 12

	instagramProfileURL = "https://instagram.com/"
	instagramUserFields = "id,username,account_type,media_count"
)

// DefaultMediaFields are requested for every media item when the caller does not select any fields.
var DefaultMediaFields = []string{
	"id",
	"caption",
	"media_type",
	"media_url",
	"thumbnail_url",
	"permalink",
	"timestamp",
	"username",
}

// InstagramConfig returns the endpoints of the Instagram Graph API.
func InstagramConfig() ProviderConfig {
	return ProviderConfig{
		APIBaseURL:       "https://graph.instagram.com/",
		AuthorizeURL:     "https://api.instagram.com/oauth/authorize/",
		TokenURL:         "https://api.instagram.com/oauth/access_token/",
		Scope:            "user_profile,user_media",
		DocumentationURL: "https://www.instagram.com/developer/authentication/",
	}
}

// Instagram is the provider adapter for the Instagram Graph API.
type Instagram struct {
	Client
}

// NewInstagram creates an Instagram provider on top of an existing client.
func NewInstagram(ctx context.Context, client Client) (*Instagram, error) {
	p := &Instagram{Client: client}
	if err := p.initialize(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// NewInstagramAdapter creates an Instagram provider that uses the default Adapter.
func NewInstagramAdapter(
	ctx context.Context,
	cfg config.OauthProviderConfig,
	callbackURL string,
	storage core.Storage,
	opts ...AdapterOption,
) (*Instagram, error) {
	if cfg.Timeout > 0 {
		opts = append([]AdapterOption{WithTimeout(time.Duration(cfg.Timeout) * time.Second)}, opts...)
	}
	adapter := NewAdapter(
		ProviderInstagram,
		InstagramConfig().Override(cfg),
		Credentials{
			ClientID:     cfg.ID,
			ClientSecret: cfg.Secret,
			CallbackURL:  callbackURL,
		},
		storage,
		opts...,
	)
	return NewInstagram(ctx, adapter)
}

// The Instagram API requires the access token of the authenticated user as a parameter on every request.
func (p *Instagram) initialize(ctx context.Context) error {
	if err := p.Client.Initialize(ctx); err != nil {
		return err
	}
	token, err := p.StoredData(ctx, KeyAccessToken)
	if err != nil {
		return err
	}
	p.SetDefaultParameter(KeyAccessToken, token)
	return nil
}

// Authenticate finishes the authorization code flow and prepares the provider for API requests.
func (p *Instagram) Authenticate(ctx context.Context, code string, state string) error {
	if err := p.ExchangeToken(ctx, code, state); err != nil {
		return err
	}
	return p.initialize(ctx)
}

func (p *Instagram) Disconnect(ctx context.Context) error {
	if err := p.Client.Disconnect(ctx); err != nil {
		return err
	}
	return p.initialize(ctx)
}

// UserProfile returns the profile of the authenticated user.
func (p *Instagram) UserProfile(ctx context.Context) (*core.UserProfile, error) {
	token, err := p.StoredData(ctx, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("fields", instagramUserFields)
	params.Set(KeyAccessToken, token)

	response, err := p.APIRequest(ctx, http.MethodGet, "me", params)
	if err != nil {
		return nil, err
	}

	data := NewCollection(response)
	id, ok := data.Lookup("id")
	if !ok {
		return nil, core.ErrUnexpectedAPIResponse
	}

	username := data.Get("username").String()
	return &core.UserProfile{
		Identifier:  id.String(),
		DisplayName: username,
		ProfileURL:  instagramProfileURL + username,
		Data: map[string]any{
			"account_type": data.Get("account_type").Value(),
			"media_count":  data.Get("media_count").Value(),
		},
	}, nil
}

// UserMedia returns a page of media of the authenticated user.
// A limit of 0 uses DefaultMediaLimit. pageID is the "after" cursor of the previous page, leave it empty for the
// first page. Without fields, DefaultMediaFields are requested.
//
// The response is returned as-is, media items are under "data" and the next cursor under "paging.cursors.after".
func (p *Instagram) UserMedia(
	ctx context.Context,
	limit int,
	pageID string,
	fields ...string,
) (*Collection, error) {
	if limit == 0 {
		limit = DefaultMediaLimit
	}
	params := url.Values{}
	params.Set("fields", mediaFields(fields))
	params.Set("limit", strconv.Itoa(limit))
	if len(pageID) > 0 {
		params.Set("after", pageID)
	}

	response, err := p.APIRequest(ctx, http.MethodGet, "me/media", params)
	if err != nil {
		return nil, err
	}

	data := NewCollection(response)
	if !data.Exists("data") {
		return nil, core.ErrUnexpectedAPIResponse
	}
	return data, nil
}

// Media returns a single media item. The response is not validated.
// The id is always requested directly below the API base url, ids that would resolve elsewhere are not found.
func (p *Instagram) Media(ctx context.Context, mediaID string, fields ...string) (gjson.Result, error) {
	if mediaID == "" || mediaID == "." || mediaID == ".." {
		return gjson.Result{}, fmt.Errorf("%w: media %q", core.ErrNotFound, mediaID)
	}
	params := url.Values{}
	params.Set("fields", mediaFields(fields))
	// The "./" prefix keeps ids with a colon from parsing as an absolute url
	return p.APIRequest(ctx, http.MethodGet, "./"+url.PathEscape(mediaID), params)
}

func mediaFields(fields []string) string {
	if len(fields) == 0 {
		fields = DefaultMediaFields
	}
	return strings.Join(fields, ",")
}
