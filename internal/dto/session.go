package dto

// Session DTOs are consumed by the realtime gateway, not by browsers.

type CreateSessionRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
}

type SessionResponse struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id"`
}

type SessionRefRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required,uuid4"`
}

type RefreshSessionResponse struct {
	Valid bool `json:"valid"`
}
