// MeterDB is the persistence sink for register readings. It is written
// to by the logger only; other tooling may read it. The table layout is
// a plain append-only series store, no aggregation or query layer lives
// here.
package meterdb

import (
	"database/sql"
	"embed"
	"log"
	"sync"

	"github.com/NotCoffee418/dbmigrator"

	"github.com/DeltaHotelKilo/DWS7612-Logger/pkg/pathing"

	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// InitializeDatabase must be called manually on startup when
// persistence is enabled.
func InitializeDatabase() {
	// Create DB before migrations
	db := GetDB()
	_, err := db.Exec("SELECT 1;")
	if err != nil {
		log.Printf("Warning: Could not create DB: %v", err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)
}

func GetDB() *sql.DB {
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite", pathing.GetMeterDbPath())
		if err != nil {
			log.Fatal(err)
		}
		// Verify connection
		if err = db.Ping(); err != nil {
			log.Fatal(err)
		}
	})
	return db
}
