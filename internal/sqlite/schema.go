package sqlite

// dbFileName is the database file inside DataDir.
const dbFileName = "ledger.db"

// Schema DDL. records holds every table's rows keyed by (tbl, id); data is
// the full record as JSON text, including id, created_at and updated_at.
// tables lists table names that have been ensured or written.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    tbl TEXT NOT NULL,
    id INTEGER NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (tbl, id)
);`

	createTables = `CREATE TABLE IF NOT EXISTS tables (
    name TEXT PRIMARY KEY
);`
)

// schemaStatements lists the DDL executed on Attach, in order.
var schemaStatements = []string{
	createRecords,
	createTables,
}

// Queries used by the backend.
const (
	sqlRegisterTable = `INSERT OR IGNORE INTO tables (name) VALUES (?)`
	sqlListTables    = `SELECT name FROM tables ORDER BY name`
	sqlMaxID         = `SELECT COALESCE(MAX(id), 0) FROM records WHERE tbl = ?`
	sqlInsertRecord  = `INSERT INTO records (tbl, id, data) VALUES (?, ?, ?)`
	sqlSelectRecord  = `SELECT data FROM records WHERE tbl = ? AND id = ?`
	sqlUpdateRecord  = `UPDATE records SET data = ? WHERE tbl = ? AND id = ?`
	sqlSelectTable   = `SELECT id, data FROM records WHERE tbl = ? ORDER BY id`
)
