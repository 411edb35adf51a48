package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/prior-it/socialauth/config"
	"github.com/prior-it/socialauth/oauth"
	"github.com/stretchr/testify/require"
)

const callbackURL = "http://localhost:3000/auth/instagram/callback"

// graphAPI is a fake Instagram Graph API that records the requests it receives.
type graphAPI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []*http.Request
	forms    []url.Values
}

func newGraphAPI(t *testing.T, handler http.HandlerFunc) *graphAPI {
	t.Helper()
	api := &graphAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		api.mu.Lock()
		api.requests = append(api.requests, r)
		api.forms = append(api.forms, r.PostForm)
		api.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

func (api *graphAPI) last(t *testing.T) *http.Request {
	t.Helper()
	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.requests, "The graph API should have received a request")
	return api.requests[len(api.requests)-1]
}

func (api *graphAPI) count() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return len(api.requests)
}

func (api *graphAPI) lastForm(t *testing.T) url.Values {
	t.Helper()
	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.forms, "The graph API should have received a request")
	return api.forms[len(api.forms)-1]
}

func respond(body string) http.HandlerFunc {
	return respondStatus(http.StatusOK, body)
}

func respondStatus(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func providerConfig(api *graphAPI) config.OauthProviderConfig {
	return config.OauthProviderConfig{
		ID:       "client-id",
		Secret:   "client-secret",
		APIURL:   api.URL,
		AuthURL:  api.URL + "/oauth/authorize/",
		TokenURL: api.URL + "/oauth/access_token/",
	}
}

// newInstagram creates an Instagram provider against api. If token is not empty, it is stored before the provider
// is initialized.
func newInstagram(
	t *testing.T,
	api *graphAPI,
	token string,
) (*oauth.Instagram, *oauth.MemoryStorage) {
	t.Helper()
	ctx := context.Background()
	storage := oauth.NewMemoryStorage()
	if len(token) > 0 {
		require.NoError(t, storage.Set(ctx, "instagram.access_token", token))
	}
	instagram, err := oauth.NewInstagramAdapter(ctx, providerConfig(api), callbackURL, storage)
	require.NoError(t, err)
	return instagram, storage
}
