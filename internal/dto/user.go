package dto

import "time"

type UserResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Confirmed     bool      `json:"confirmed"`
	TwoFactor     bool      `json:"two_factor"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	OnlineStatus  string    `json:"online_status"`
	DefaultStatus string    `json:"default_status"`
	LastLogin     time.Time `json:"last_login"`
	LastOnline    time.Time `json:"last_online"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UpdateStatusRequest struct {
	DefaultStatus string `json:"default_status" binding:"required,oneof=ONLINE AWAY BUSY INVISIBLE OFFLINE"`
}

type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url" binding:"required,url"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}
