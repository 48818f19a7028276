package models

import "time"

// Item is the API representation of a row in the items table.
type Item struct {
	ID          string     `json:"id"`
	CategoryID  *string    `json:"categoryId,omitempty"`
	Name        string     `json:"name"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// ItemInput carries the writable fields of an item. Nil fields are left
// untouched on update.
type ItemInput struct {
	CategoryID  *string `json:"categoryId,omitempty"`
	Name        *string `json:"name,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	Description *string `json:"description,omitempty"`
}
