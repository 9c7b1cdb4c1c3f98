package models

import "time"

// ItemState is the lifecycle state of a shopping item.
type ItemState string

const (
	StateActive   ItemState = "active"
	StateArchived ItemState = "archived"
	StateTrashed  ItemState = "trashed"
	StatePurged   ItemState = "purged"
)

// ParseItemState converts a textual state into an ItemState.
func ParseItemState(s string) (ItemState, bool) {
	switch st := ItemState(s); st {
	case StateActive, StateArchived, StateTrashed:
		return st, true
	default:
		return "", false
	}
}

// MaxItemTextLength matches the Telegram message limit.
const MaxItemTextLength = 4096

// Item is implemented by every persisted item variant.
type Item interface {
	State() ItemState
	Base() ItemCore
}

// ItemCore holds the fields that survive every lifecycle transition.
type ItemCore struct {
	ID        int64     `json:"id" db:"id"`
	FamilyID  int64     `json:"family_id" db:"family_id"`
	AddedByID int64     `json:"added_by_id" db:"added_by_user_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Base returns the shared part of the item.
func (c ItemCore) Base() ItemCore { return c }

// ActiveItem is an item still on the shopping list.
type ActiveItem struct {
	ItemCore
	AddedByName string `json:"added_by_name,omitempty" db:"added_by_name"`
}

func (ActiveItem) State() ItemState { return StateActive }

// ArchivedItem is an item somebody bought.
type ArchivedItem struct {
	ItemCore
	BoughtByID   int64     `json:"bought_by_id" db:"owner_user_id"`
	BoughtAt     time.Time `json:"bought_at" db:"bought_at"`
	AddedByName  string    `json:"added_by_name,omitempty" db:"added_by_name"`
	BoughtByName string    `json:"bought_by_name,omitempty" db:"owner_name"`
}

func (ArchivedItem) State() ItemState { return StateArchived }

// TrashedItem is an item somebody deleted. It can be restored until purged.
type TrashedItem struct {
	ItemCore
	DeletedByID   int64     `json:"deleted_by_id" db:"owner_user_id"`
	DeletedAt     time.Time `json:"deleted_at" db:"deleted_at"`
	AddedByName   string    `json:"added_by_name,omitempty" db:"added_by_name"`
	DeletedByName string    `json:"deleted_by_name,omitempty" db:"owner_name"`
}

func (TrashedItem) State() ItemState { return StateTrashed }
