package postgres

import (
	"context"
	"fmt"

	"github.com/prior-it/socialauth/core"
	"github.com/prior-it/socialauth/login"
)

func NewAccountService(db *DB) *AccountService {
	return &AccountService{db}
}

// Postgres implementation of the login AccountService interface.
type AccountService struct {
	db *DB
}

// Force struct to implement the login interface
var _ login.AccountService = &AccountService{}

func (s *AccountService) CreateAccount(ctx context.Context, data *login.UserData) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO accounts (provider, provider_id, name, email, profile_url)
		VALUES ($1, $2, $3, $4, $5)`,
		data.Provider,
		data.ProviderID,
		data.Name,
		nullable(data.Email),
		data.ProfileURL,
	)
	if err != nil {
		return fmt.Errorf("cannot create account: %w", convertPgError(err))
	}
	return nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, data *login.UserData) error {
	tag, err := s.db.Exec(
		ctx,
		`UPDATE accounts SET name = $3, email = $4, profile_url = $5, updated_at = now()
		WHERE provider = $1 AND provider_id = $2`,
		data.Provider,
		data.ProviderID,
		data.Name,
		nullable(data.Email),
		data.ProfileURL,
	)
	if err != nil {
		return fmt.Errorf("cannot update account: %w", convertPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *AccountService) FindAccount(
	ctx context.Context,
	provider string,
	providerID string,
) (*login.UserData, error) {
	var email *string
	data := login.UserData{
		Provider:   provider,
		ProviderID: providerID,
	}
	err := s.db.QueryRow(
		ctx,
		"SELECT name, email, profile_url FROM accounts WHERE provider = $1 AND provider_id = $2",
		provider,
		providerID,
	).Scan(&data.Name, &email, &data.ProfileURL)
	if err != nil {
		return nil, convertPgError(err)
	}
	if email != nil {
		data.Email = *email
	}
	return &data, nil
}

// DeleteAccount removes the account linked to the specified provider id.
func (s *AccountService) DeleteAccount(ctx context.Context, provider string, providerID string) error {
	_, err := s.db.Exec(
		ctx,
		"DELETE FROM accounts WHERE provider = $1 AND provider_id = $2",
		provider,
		providerID,
	)
	return convertPgError(err)
}

func nullable(value string) *string {
	if len(value) == 0 {
		return nil
	}
	return &value
}
