package dto

type RegisterRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password1 string `json:"password1" binding:"required,min=8,max=100"`
	Password2 string `json:"password2" binding:"required"`
}

type ConfirmEmailRequest struct {
	ConfirmationToken string `json:"confirmation_token" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ConfirmLoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	AccessCode string `json:"access_code" binding:"required,len=6,numeric"`
}

type ResetPasswordEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	ResetToken string `json:"reset_token" binding:"required"`
	Password1  string `json:"password1" binding:"required,min=8,max=100"`
	Password2  string `json:"password2" binding:"required"`
}

type ChangeTwoFactorRequest struct {
	Activate *bool `json:"activate" binding:"required"`
}

type UpdateEmailRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdatePasswordRequest struct {
	Password  string `json:"password" binding:"required"`
	Password1 string `json:"password1" binding:"required,min=8,max=100"`
	Password2 string `json:"password2" binding:"required"`
}

// AuthResponse carries the access token; the refresh token travels only in
// the HTTP-only cookie set by the handler.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // access token lifetime in seconds
}

// LoginResponse is either an AuthResponse or a pending message when two-factor
// authentication intercepts the login.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	Message     string `json:"message,omitempty"`
	TwoFactor   bool   `json:"two_factor,omitempty"`
}
