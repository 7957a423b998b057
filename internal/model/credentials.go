package model

import "time"

// Credentials is the version record embedded in every user row. Version is a
// monotonic counter: refresh, confirmation and reset tokens snapshot it at
// issuance and are rejected once it moves. Bumping it once therefore revokes
// every outstanding long-lived token and realtime session for the user.
type Credentials struct {
	Version      int    `gorm:"column:version;default:0;not null"`
	LastPassword string `gorm:"column:last_password;default:'';not null"`
	UpdatedAt    int64  `gorm:"column:updated_at;autoCreateTime"`
}

// UpdateVersion invalidates all previously issued versioned tokens without
// touching the password history. Used on email change, 2FA toggles and
// explicit revocation.
func (c *Credentials) UpdateVersion() {
	c.Version++
	c.UpdatedAt = time.Now().Unix()
}

// UpdatePassword invalidates versioned tokens and keeps the immediately
// prior hash around for the "you changed your password N days ago" login
// hint.
func (c *Credentials) UpdatePassword(oldHash string) {
	c.Version++
	c.LastPassword = oldHash
	c.UpdatedAt = time.Now().Unix()
}
