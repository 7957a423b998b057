package model

import (
	"time"

	"gorm.io/gorm"
)

// OnlineStatus is the presence state shown on a user's realtime connections.
type OnlineStatus string

const (
	StatusOnline    OnlineStatus = "ONLINE"
	StatusAway      OnlineStatus = "AWAY"
	StatusBusy      OnlineStatus = "BUSY"
	StatusInvisible OnlineStatus = "INVISIBLE"
	StatusOffline   OnlineStatus = "OFFLINE"
)

type User struct {
	gorm.Model
	Name          string       `gorm:"column:name;not null"`
	Username      string       `gorm:"column:username;unique;not null"`
	Email         string       `gorm:"column:email;unique;not null"`
	Password      string       `gorm:"column:password;not null"`
	Confirmed     bool         `gorm:"column:confirmed;default:false;not null"`
	TwoFactor     bool         `gorm:"column:two_factor;default:false;not null"`
	AvatarURL     string       `gorm:"column:avatar_url"`
	LastLogin     time.Time    `gorm:"column:last_login"`
	LastOnline    time.Time    `gorm:"column:last_online"`
	OnlineStatus  OnlineStatus `gorm:"column:online_status;default:OFFLINE;not null"`
	DefaultStatus OnlineStatus `gorm:"column:default_status;default:ONLINE;not null"`
	Credentials   Credentials  `gorm:"embedded;embeddedPrefix:credentials_"`
}
