package models

// User is the signed-in user as known to the backend.
type User struct {
	ID        int64  `json:"id"`
	GoogleID  string `json:"google_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DisplayName falls back to the email address when the name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// AuthResponse is returned by POST /auth/google. Older backends answer
// with access_token/refresh_token instead of jwt_token.
type AuthResponse struct {
	JWTToken     string `json:"jwt_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user,omitempty"`
}

// Token returns the bearer token regardless of which field carried it.
func (r *AuthResponse) Token() string {
	if r.JWTToken != "" {
		return r.JWTToken
	}
	return r.AccessToken
}
