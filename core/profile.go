package core

// UserProfile is the normalized profile of a user at a third-party provider.
type UserProfile struct {
	// Unique user id at the provider
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
	// Provider-specific data that does not fit any of the other fields
	Data map[string]any `json:"data"`
}
