package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreboard/internal/model"
	"github.com/google/uuid"
)

type SensorStore struct {
	db *sql.DB
}

func NewSensorStore(db *sql.DB) *SensorStore {
	return &SensorStore{db: db}
}

func scanSensor(scanner interface{ Scan(...any) error }) (*model.Sensor, error) {
	var sn model.Sensor
	err := scanner.Scan(&sn.ID, &sn.HouseholdID, &sn.Name, &sn.KeyHash, &sn.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

const sensorCols = `id, household_id, name, key_hash, created_at`

func (s *SensorStore) Create(ctx context.Context, householdID, name, keyHash string, now time.Time) (*model.Sensor, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sensors (id, household_id, name, key_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, householdID, name, keyHash, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert sensor: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SensorStore) GetByID(ctx context.Context, id string) (*model.Sensor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sensorCols+` FROM sensors WHERE id = ?`, id)
	sn, err := scanSensor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sensor: %w", err)
	}
	return sn, nil
}

func (s *SensorStore) ListByHousehold(ctx context.Context, householdID string) ([]model.Sensor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sensorCols+` FROM sensors WHERE household_id = ? ORDER BY created_at ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	defer rows.Close()

	var sensors []model.Sensor
	for rows.Next() {
		sn, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}
		sensors = append(sensors, *sn)
	}
	return sensors, rows.Err()
}

func (s *SensorStore) Delete(ctx context.Context, householdID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sensors WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return fmt.Errorf("delete sensor: %w", err)
	}
	return nil
}
