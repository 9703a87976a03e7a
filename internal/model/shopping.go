package model

import "time"

type ShoppingItem struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	AddedBy     Source    `json:"added_by"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}
