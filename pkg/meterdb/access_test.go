package meterdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "meterdb-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("DWS7612_DATA_DIR", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func ensureSchema(t *testing.T) {
	t.Helper()
	_, err := GetDB().Exec(`
		CREATE TABLE IF NOT EXISTS data (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_id INTEGER NOT NULL,
			time INTEGER NOT NULL,
			value REAL NOT NULL
		);`)
	require.NoError(t, err)
}

func TestInsertAndReadBack(t *testing.T) {
	ensureSchema(t)

	ts := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	err := Store{}.Publish(context.Background(), 2, ts, 2810.000)
	require.NoError(t, err)

	var reading MeterDbReading
	row := GetDB().QueryRow(
		"SELECT entity_id, time, value FROM data WHERE entity_id = ? ORDER BY id DESC LIMIT 1", 2)
	require.NoError(t, row.Scan(&reading.EntityID, &reading.Time, &reading.Value))

	assert.Equal(t, int64(2), reading.EntityID)
	assert.Equal(t, ts.UnixMilli(), reading.Time)
	assert.InDelta(t, 2810.000, reading.Value, 1e-9)
}

func TestInsertMultipleEntities(t *testing.T) {
	ensureSchema(t)

	now := time.Now()
	require.NoError(t, Store{}.Publish(context.Background(), 2, now, 2810.0))
	require.NoError(t, Store{}.Publish(context.Background(), 3, now, 0.120))

	var count int
	row := GetDB().QueryRow("SELECT COUNT(*) FROM data WHERE entity_id = ?", 3)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
