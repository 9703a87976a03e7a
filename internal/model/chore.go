package model

import "time"

type ChoreType string

const (
	ChoreDishes  ChoreType = "dishes"
	ChoreTrash   ChoreType = "trash"
	ChoreVacuum  ChoreType = "vacuum"
	ChoreLaundry ChoreType = "laundry"
	ChoreCleanup ChoreType = "cleanup"
	ChoreGrocery ChoreType = "grocery"
)

var ChoreTypes = []ChoreType{ChoreDishes, ChoreTrash, ChoreVacuum, ChoreLaundry, ChoreCleanup, ChoreGrocery}

func (t ChoreType) Valid() bool {
	for _, v := range ChoreTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ChoreStatus is the persisted status. Overdue is never stored.
type ChoreStatus string

const (
	ChoreStatusPending   ChoreStatus = "pending"
	ChoreStatusCompleted ChoreStatus = "completed"
)

// Source records whether a chore or shopping item came from a sensor or a person.
type Source string

const (
	SourceSensor Source = "sensor"
	SourceManual Source = "manual"
)

func (s Source) Valid() bool {
	return s == SourceSensor || s == SourceManual
}

type Chore struct {
	ID          string      `json:"id"`
	HouseholdID string      `json:"household_id"`
	Type        ChoreType   `json:"type"`
	AssignedTo  string      `json:"assigned_to"`
	Status      ChoreStatus `json:"status"`
	DueBy       time.Time   `json:"due_by"`
	TriggeredBy Source      `json:"triggered_by"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
