package models

import "time"

// Family is the sharing group whose members see one shopping list.
type Family struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	InviteCode string    `json:"invite_code" db:"invite_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

const (
	// MaxFamilyNameLength is the longest family name, in runes.
	MaxFamilyNameLength = 50
	// MaxDisplayNameLength is the longest per-family display name, in runes.
	MaxDisplayNameLength = 30
	// InviteCodeLength is the length of issued invite codes.
	InviteCodeLength = 8
)
