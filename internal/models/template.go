package models

import "time"

// Template is a cached shortlist entry of a frequently bought item text.
// Templates are derived from archived items and can be rebuilt at any time.
type Template struct {
	FamilyID    int64     `json:"family_id" db:"family_id"`
	ItemText    string    `json:"item_text" db:"item_text"`
	Hits        int       `json:"hits" db:"hits"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}
