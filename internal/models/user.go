package models

// User is the single dashboard identity. Credentials come from configuration;
// there is no users table.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// UserContext identifies the user on whose behalf an operation runs.
// It is passed explicitly through services and the webhook pipeline.
type UserContext struct {
	UserID string
}

// NewUserContext returns a UserContext for userID
func NewUserContext(userID string) UserContext {
	return UserContext{UserID: userID}
}

// IsZero reports whether no user is set
func (u UserContext) IsZero() bool {
	return u.UserID == ""
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}
