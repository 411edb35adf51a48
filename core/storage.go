package core

import "context"

// Storage persists provider data such as authorization state and access tokens between requests.
type Storage interface {
	// Get returns the value stored for key. Keys that were never set return an empty string.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) error
}
