package meterdb

import (
	"context"
	"time"
)

// InsertReading appends one reading row.
func InsertReading(ctx context.Context, reading *MeterDbReading) error {
	db := GetDB()

	_, err := db.ExecContext(ctx,
		"INSERT INTO data (entity_id, time, value) VALUES (?, ?, ?)",
		reading.EntityID,
		reading.Time,
		reading.Value,
	)
	if err != nil {
		return err
	}
	return nil
}

// Store adapts the database to the collector's sink contract.
type Store struct{}

func (Store) Publish(ctx context.Context, entityID int64, ts time.Time, value float64) error {
	return InsertReading(ctx, &MeterDbReading{
		EntityID: entityID,
		Time:     ts.UnixMilli(),
		Value:    value,
	})
}
