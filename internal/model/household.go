package model

import "time"

type Household struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	Members   []string  `json:"members"`
}

// User is the member record for an identity-provider subject. HouseholdID is
// nil until the user creates or joins a household.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	HouseholdID *string   `json:"household_id"`
	CreatedAt   time.Time `json:"created_at"`
}
