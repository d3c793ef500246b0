package auth

import "time"

// User represents an authenticated user account with mobile API credentials.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	APIKey       string
	APISecret    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credentials is the api_key/api_secret pair handed to the mobile client.
type Credentials struct {
	APIKey    string
	APISecret string
}
