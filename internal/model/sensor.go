package model

import "time"

type Sensor struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Name        string    `json:"name"`
	KeyHash     string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
