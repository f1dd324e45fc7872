package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Export produces a consistent snapshot of the store as raw SQLite bytes.
// VACUUM INTO writes a compacted copy, so the snapshot is valid even while
// the live database has WAL pages that were never checkpointed.
func Export(db *sql.DB) ([]byte, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("condo-billing-export-%d.db", time.Now().UnixNano()))
	defer os.Remove(tmpPath)

	if _, err := db.Exec("VACUUM INTO ?", tmpPath); err != nil {
		return nil, fmt.Errorf("snapshot failed: %v", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %v", err)
	}

	log.Printf("[BACKUP] Exported %d bytes", len(data))
	return data, nil
}

// Import replaces the entire store with the uploaded blob. The blob is
// written to a temp file and validated before any live data is touched;
// a bad upload leaves the current store unchanged.
func Import(db *sql.DB, data []byte) error {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("condo-billing-import-%d.db", time.Now().UnixNano()))
	defer os.Remove(tmpPath)

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to stage upload: %v", err)
	}

	if err := validateBackup(tmpPath); err != nil {
		return err
	}

	// ATTACH has to happen outside the transaction; SQLite rejects it
	// once a transaction is open. The pool is capped at one connection,
	// so the transaction below runs on the same connection that holds
	// the attachment.
	if _, err := db.Exec("ATTACH DATABASE ? AS backup", tmpPath); err != nil {
		return fmt.Errorf("failed to attach backup: %v", err)
	}
	defer db.Exec("DETACH DATABASE backup")

	// Last-write-wins: wipe current rows, then copy everything over.
	// Parent tables load first so the foreign keys on readings and
	// bills are satisfied. One transaction covers both phases, so a
	// backup that passes validation but fails mid-copy (e.g. a table
	// with the right name but the wrong columns) rolls back to the
	// pre-import state.
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start restore: %v", err)
	}
	defer tx.Rollback()

	for i := len(storeTables) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DELETE FROM " + storeTables[i]); err != nil {
			return fmt.Errorf("failed to clear current data: %v", err)
		}
	}

	for _, table := range storeTables {
		query := fmt.Sprintf("INSERT INTO %s SELECT * FROM backup.%s", table, table)
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to restore table %s: %v", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %v", err)
	}

	log.Printf("[BACKUP] Imported %d bytes", len(data))
	return nil
}

// validateBackup opens the staged file read-only and checks that it is a
// healthy SQLite database containing the expected tables.
func validateBackup(path string) error {
	check, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("not a readable database: %v", err)
	}
	defer check.Close()

	var result string
	if err := check.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil || result != "ok" {
		return fmt.Errorf("backup failed integrity check: %v (%s)", err, result)
	}

	for _, table := range storeTables {
		var name string
		err := check.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			return fmt.Errorf("backup is missing table %s", table)
		}
	}

	return nil
}
