package meterdb

// MeterDbReading is one row of the append-only data table. Entity ids
// map registers to series the way the original deployment did: 2 for
// positive active energy, 3 for negative active energy.
type MeterDbReading struct {
	EntityID int64   `db:"entity_id"`
	Time     int64   `db:"time"` // unix milliseconds
	Value    float64 `db:"value"`
}
