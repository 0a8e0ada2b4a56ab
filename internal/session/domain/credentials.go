package domain

import "time"

// Credentials is the token triple persisted by the token lifecycle manager.
// ExpiresAt is absolute.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginCredentials is what a user submits to sign in.
type LoginCredentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	UserType   Role   `json:"userType,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}
