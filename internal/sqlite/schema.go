package sqlite

// schemaStatements run on every Attach.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS local_storage (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
}

const (
	selectItem = `SELECT value FROM local_storage WHERE key = ?`
	upsertItem = `INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteItem = `DELETE FROM local_storage WHERE key = ?`
)
