package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prior-it/socialauth/core"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// Keys under which the adapter keeps its data in storage. Every key is prefixed with the provider name.
const (
	KeyAccessToken = "access_token"
	KeyTokenType   = "token_type"
	KeyExpiresAt   = "expires_at"
	keyState       = "authorization_state"
)

const defaultTimeout = 30 * time.Second

// Client is the OAuth2 capability a provider adapter is built on.
// It runs the authorization code flow, keeps the resulting token in storage and executes API requests.
type Client interface {
	// Initialize prepares the client for API requests with the token that is currently stored, if any.
	Initialize(ctx context.Context) error
	// AuthorizeURL returns the url the user should visit to grant access.
	AuthorizeURL(ctx context.Context) (string, error)
	// ExchangeToken verifies state and trades an authorization code for an access token.
	ExchangeToken(ctx context.Context, code string, state string) error
	// StoredData returns a value stored for this provider, e.g. KeyAccessToken.
	StoredData(ctx context.Context, key string) (string, error)
	// SetDefaultParameter attaches a parameter to every following API request.
	SetDefaultParameter(key string, value string)
	// APIRequest calls endpoint relative to the API base url and returns the parsed JSON response.
	APIRequest(
		ctx context.Context,
		method string,
		endpoint string,
		params url.Values,
	) (gjson.Result, error)
	// IsConnected reports whether a token is stored that has not expired yet.
	IsConnected(ctx context.Context) (bool, error)
	// Disconnect forgets the stored token.
	Disconnect(ctx context.Context) error
}

// APIError is returned when the provider API responds with an error status.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("%s API responded with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API responded with status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Is makes rejected credentials match core.ErrUnauthenticated.
func (e *APIError) Is(target error) bool {
	return target == core.ErrUnauthenticated &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

type AdapterOption func(*Adapter)

// WithHTTPClient replaces the HTTP client used for token exchanges and API requests.
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = client
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.httpClient = &http.Client{Timeout: timeout}
	}
}

// Adapter is the default Client implementation, built on golang.org/x/oauth2.
type Adapter struct {
	name       string
	provider   ProviderConfig
	oauth      *oauth2.Config
	storage    core.Storage
	httpClient *http.Client

	mu      sync.RWMutex
	params  url.Values
	headers http.Header
}

var _ Client = &Adapter{}

func NewAdapter(
	name string,
	provider ProviderConfig,
	credentials Credentials,
	storage core.Storage,
	opts ...AdapterOption,
) *Adapter {
	var scopes []string
	if len(provider.Scope) > 0 {
		scopes = []string{provider.Scope}
	}
	adapter := &Adapter{
		name:     name,
		provider: provider,
		oauth: &oauth2.Config{
			ClientID:     credentials.ClientID,
			ClientSecret: credentials.ClientSecret,
			RedirectURL:  credentials.CallbackURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   provider.AuthorizeURL,
				TokenURL:  provider.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		storage:    storage,
		httpClient: &http.Client{Timeout: defaultTimeout},
		params:     url.Values{},
		headers:    http.Header{},
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

func (a *Adapter) key(key string) string {
	return a.name + "." + key
}

func (a *Adapter) Initialize(ctx context.Context) error {
	token, err := a.StoredData(ctx, KeyAccessToken)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(token) > 0 {
		a.headers.Set("Authorization", "Bearer "+token)
	} else {
		a.headers.Del("Authorization")
	}
	return nil
}

func (a *Adapter) AuthorizeURL(ctx context.Context) (string, error) {
	state := oauth2.GenerateVerifier()
	if err := a.storage.Set(ctx, a.key(keyState), state); err != nil {
		return "", fmt.Errorf("cannot store authorization state for %s: %w", a.name, err)
	}
	return a.oauth.AuthCodeURL(state), nil
}

func (a *Adapter) ExchangeToken(ctx context.Context, code string, state string) error {
	expected, err := a.StoredData(ctx, keyState)
	if err != nil {
		return err
	}
	if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		return core.ErrInvalidState
	}
	// A state can only be used once
	if err := a.storage.Delete(ctx, a.key(keyState)); err != nil {
		return fmt.Errorf("cannot delete authorization state for %s: %w", a.name, err)
	}

	token, err := a.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), code)
	if err != nil {
		return fmt.Errorf("cannot exchange authorization code for %s: %w", a.name, err)
	}
	slog.Debug("Token exchange complete", "provider", a.name, "expiry", token.Expiry)

	if err := a.storage.Set(ctx, a.key(KeyAccessToken), token.AccessToken); err != nil {
		return fmt.Errorf("cannot store access token for %s: %w", a.name, err)
	}
	if err := a.storage.Set(ctx, a.key(KeyTokenType), token.Type()); err != nil {
		return fmt.Errorf("cannot store token type for %s: %w", a.name, err)
	}
	if token.Expiry.IsZero() {
		if err := a.storage.Delete(ctx, a.key(KeyExpiresAt)); err != nil {
			return fmt.Errorf("cannot delete token expiry for %s: %w", a.name, err)
		}
		return nil
	}
	err = a.storage.Set(ctx, a.key(KeyExpiresAt), token.Expiry.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cannot store token expiry for %s: %w", a.name, err)
	}
	return nil
}

func (a *Adapter) StoredData(ctx context.Context, key string) (string, error) {
	value, err := a.storage.Get(ctx, a.key(key))
	if err != nil {
		return "", fmt.Errorf("cannot read %q for %s: %w", key, a.name, err)
	}
	return value, nil
}

// SetDefaultParameter attaches a parameter to every following API request.
// An empty value removes the parameter.
func (a *Adapter) SetDefaultParameter(key string, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(value) == 0 {
		a.params.Del(key)
		return
	}
	a.params.Set(key, value)
}

func (a *Adapter) IsConnected(ctx context.Context) (bool, error) {
	token, err := a.StoredData(ctx, KeyAccessToken)
	if err != nil || len(token) == 0 {
		return false, err
	}
	expiresAt, err := a.StoredData(ctx, KeyExpiresAt)
	if err != nil {
		return false, err
	}
	if len(expiresAt) == 0 {
		return true, nil
	}
	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return false, fmt.Errorf("invalid token expiry stored for %s: %w", a.name, err)
	}
	return time.Now().Before(expiry), nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	for _, key := range []string{KeyAccessToken, KeyTokenType, KeyExpiresAt} {
		if err := a.storage.Delete(ctx, a.key(key)); err != nil {
			return fmt.Errorf("cannot delete %q for %s: %w", key, a.name, err)
		}
	}
	return a.Initialize(ctx)
}

func (a *Adapter) APIRequest(
	ctx context.Context,
	method string,
	endpoint string,
	params url.Values,
) (gjson.Result, error) {
	if len(method) == 0 {
		method = http.MethodGet
	}
	target, err := a.resolve(endpoint)
	if err != nil {
		return gjson.Result{}, err
	}

	a.mu.RLock()
	values := target.Query()
	for key, value := range a.params {
		values[key] = value
	}
	headers := a.headers.Clone()
	a.mu.RUnlock()
	for key, value := range params {
		values[key] = value
	}

	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		target.RawQuery = values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create %s API request: %w", a.name, err)
	}
	req.Header = headers
	req.Header.Set("Accept", "application/json")

	slog.Debug("Provider API request", "provider", a.name, "method", method, "path", target.Path)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to send %s API request: %w", a.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read %s API response: %w", a.name, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Provider: a.name, StatusCode: resp.StatusCode}
		if gjson.ValidBytes(respBody) {
			apiErr.Message = gjson.GetBytes(respBody, "error.message").String()
		}
		slog.Debug("Provider API error", "provider", a.name, "status", resp.StatusCode, "error", apiErr)
		return gjson.Result{}, apiErr
	}

	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, fmt.Errorf("%w: %s %s", core.ErrMalformedResponse, method, target.Path)
	}
	return gjson.ParseBytes(respBody), nil
}

// resolve builds the full url for endpoint. Absolute endpoints are used as-is.
func (a *Adapter) resolve(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s API endpoint %q: %w", a.name, endpoint, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	baseURL := a.provider.APIBaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s API base url %q: %w", a.name, baseURL, err)
	}
	return base.ResolveReference(ref), nil
}
