package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/brokerecon/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database schema for:", databasePath)
	}
	migrateReconRuns()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS recon_runs (
		id TEXT PRIMARY KEY,
		account_label TEXT NOT NULL,
		trade_date TEXT,
		clearing_file TEXT NOT NULL,
		broker_files TEXT NOT NULL,
		total_clearing INTEGER NOT NULL,
		total_broker INTEGER NOT NULL,
		matched_count INTEGER NOT NULL,
		unmatched_clearing_count INTEGER NOT NULL,
		unmatched_broker_count INTEGER NOT NULL,
		match_rate REAL NOT NULL,
		total_brokerage REAL NOT NULL,
		total_taxes REAL NOT NULL,
		error_type TEXT,
		error_message TEXT,
		enhanced_path TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateReconRuns adds columns that older databases predate. The table
// itself is created by InitDB if missing.
func migrateReconRuns() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='recon_runs'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'recon_runs' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'recon_runs' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'recon_runs' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'recon_runs' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(recon_runs)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'recon_runs'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'recon_runs': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'recon_runs'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'recon_runs': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'recon_runs'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'recon_runs': %v", err)
		}
		return
	}

	if _, ok := columnExists["enhanced_path"]; !ok {
		_, err := DB.Exec("ALTER TABLE recon_runs ADD COLUMN enhanced_path TEXT")
		if err != nil {
			logger.L.Error("Error adding 'enhanced_path' column to 'recon_runs' table", "error", err)
		} else {
			logger.L.Info("Added 'enhanced_path' column to 'recon_runs' table")
		}
	}
	if _, ok := columnExists["error_type"]; !ok {
		_, err := DB.Exec("ALTER TABLE recon_runs ADD COLUMN error_type TEXT")
		if err != nil {
			logger.L.Error("Error adding 'error_type' column to 'recon_runs' table", "error", err)
		} else {
			logger.L.Info("Added 'error_type' column to 'recon_runs' table")
		}
	}
	if _, ok := columnExists["error_message"]; !ok {
		_, err := DB.Exec("ALTER TABLE recon_runs ADD COLUMN error_message TEXT")
		if err != nil {
			logger.L.Error("Error adding 'error_message' column to 'recon_runs' table", "error", err)
		} else {
			logger.L.Info("Added 'error_message' column to 'recon_runs' table")
		}
	}
}
