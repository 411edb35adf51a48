package login

import (
	"context"

	"github.com/prior-it/socialauth/core"
)

type UserData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// The OAuth provider the user logged in with
	Provider string `json:"provider"`
	// External user id at the provider
	ProviderID string `json:"provider_id"`
	ProfileURL string `json:"profile_url"`
}

// NewUserData converts a provider profile to login data.
func NewUserData(provider string, profile *core.UserProfile) *UserData {
	data := &UserData{
		Name:       profile.DisplayName,
		Provider:   provider,
		ProviderID: profile.Identifier,
		ProfileURL: profile.ProfileURL,
	}
	if email, ok := profile.Data["email"].(string); ok {
		data.Email = email
	}
	return data
}

type Service interface {
	// Return the url that the user should be redirected to to start logging in.
	// The authorization state is kept in storage so the callback can be verified.
	GetLoginRedirectURL(
		ctx context.Context,
		provider string,
		callbackURL string,
		storage core.Storage,
	) (string, error)

	// Handle the callback from a login server. This exchanges the code for an access token, keeps the token in
	// storage and returns the data of the user that just logged in.
	LoginCallback(
		ctx context.Context,
		provider string,
		code string,
		state string,
		callbackURL string,
		storage core.Storage,
	) (*UserData, error)

	// Forget all tokens that were stored for the specified provider.
	Logout(ctx context.Context, provider string, storage core.Storage) error
}

type AccountService interface {
	// Create a new account linked to data.Provider and data.ProviderID.
	// If the account already exists, this will return core.ErrConflict.
	CreateAccount(ctx context.Context, data *UserData) error

	// Update the name, email and profile url of an existing account.
	UpdateAccount(ctx context.Context, data *UserData) error

	// Find the account for the specified provider and provider id.
	// If the account does not exist, this will return core.ErrNotFound.
	FindAccount(ctx context.Context, provider string, providerID string) (*UserData, error)
}
