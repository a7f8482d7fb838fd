package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Profile struct {
	Name     string `gorm:"size:255" json:"name"`
	Gender   string `gorm:"size:64"  json:"gender"`
	Location string `gorm:"size:255" json:"location"`
	Website  string `gorm:"size:255" json:"website"`
}

// ProfilePatch names the profile fields to overwrite. Nil fields are left as they are.
type ProfilePatch struct {
	Name     *string
	Gender   *string
	Location *string
	Website  *string
}

func (p ProfilePatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["profile_name"] = *p.Name
	}
	if p.Gender != nil {
		cols["profile_gender"] = *p.Gender
	}
	if p.Location != nil {
		cols["profile_location"] = *p.Location
	}
	if p.Website != nil {
		cols["profile_website"] = *p.Website
	}
	return cols
}

type Account struct {
	ID           string     `gorm:"primaryKey;size:36"                  json:"id"`
	Email        string     `gorm:"uniqueIndex;not null;size:320"       json:"email"`
	PasswordHash string     `gorm:"not null"                            json:"-"`
	Role         Role       `gorm:"not null;default:user;size:16"       json:"role"`
	Profile      Profile    `gorm:"embedded;embeddedPrefix:profile_"    json:"profile"`
	ResetToken   *string    `gorm:"uniqueIndex;size:64"                 json:"-"`
	ResetExpires *time.Time `                                           json:"-"`
	CreatedAt    time.Time  `                                           json:"created_at"`
	UpdatedAt    time.Time  `                                           json:"updated_at"`
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// HasPendingReset reports whether a reset token is set and still valid at now.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.ResetToken != nil && a.ResetExpires != nil && now.Before(*a.ResetExpires)
}
