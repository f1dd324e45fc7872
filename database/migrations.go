package database

import (
	"database/sql"
	"log"
	"strings"
)

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			area REAL NOT NULL CHECK(area > 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS meter_readings (
			unit_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
			electricity_reading REAL NOT NULL DEFAULT 0,
			water_reading REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (unit_id, year, month),
			FOREIGN KEY (unit_id) REFERENCES units(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS monthly_bills (
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
			total_electricity_cost REAL NOT NULL DEFAULT 0,
			total_water_cost REAL NOT NULL DEFAULT 0,
			total_management_cost REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (year, month)
		)`,

		`CREATE TABLE IF NOT EXISTS unit_bills (
			unit_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
			electricity_cost REAL NOT NULL DEFAULT 0,
			water_cost REAL NOT NULL DEFAULT 0,
			management_cost REAL NOT NULL DEFAULT 0,
			total_cost REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (unit_id, year, month),
			FOREIGN KEY (unit_id) REFERENCES units(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_meter_readings_period ON meter_readings(year, month)`,
		`CREATE INDEX IF NOT EXISTS idx_unit_bills_period ON unit_bills(year, month)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if !strings.Contains(err.Error(), "already exists") {
				log.Printf("Migration %d warning: %v", i+1, err)
			}
		}
	}

	log.Println("Tables and indexes created/verified")
	return nil
}

// Tables that make up the persisted store. Backup validation and the
// full data clear both work off this list.
var storeTables = []string{"units", "meter_readings", "monthly_bills", "unit_bills"}

// ClearAllData removes every row from the store while keeping the schema.
// Child tables go first so the cascade order never matters.
func ClearAllData(db *sql.DB) error {
	for i := len(storeTables) - 1; i >= 0; i-- {
		if _, err := db.Exec("DELETE FROM " + storeTables[i]); err != nil {
			return err
		}
	}
	return nil
}
