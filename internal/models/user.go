package models

import (
	"fmt"
	"time"
)

// User represents a chat participant. A user belongs to at most one family.
type User struct {
	ID          int64     `json:"id" db:"id"`
	ExternalID  int64     `json:"external_id" db:"external_id"`
	Username    string    `json:"username" db:"username"`
	FullName    string    `json:"full_name" db:"full_name"`
	FamilyID    *int64    `json:"family_id" db:"family_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	IsAdmin     bool      `json:"is_admin" db:"is_admin"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// HasFamily returns true if the user currently belongs to a family
func (u *User) HasFamily() bool {
	return u.FamilyID != nil
}

// InFamily reports whether the user is a member of the given family.
func (u *User) InFamily(familyID int64) bool {
	return u.FamilyID != nil && *u.FamilyID == familyID
}

// Label returns the best name to show other family members.
func (u *User) Label() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return "@" + u.Username
	default:
		return fmt.Sprintf("User%d", u.ExternalID)
	}
}
