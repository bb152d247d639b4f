package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as TEXT so decimal values round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS applicants (
    applicant_id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    age INTEGER NOT NULL,
    gender TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS applications (
    applicant_id TEXT PRIMARY KEY,
    identity_token TEXT NOT NULL,
    target_payout_account TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Under Review',
    fraud_score REAL NOT NULL DEFAULT 0,
    flag_reason TEXT NOT NULL DEFAULT '',
    calculated_income REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS financial_records (
    id TEXT PRIMARY KEY,
    identity_token TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('CREDIT', 'DEBIT')),
    amount TEXT NOT NULL,
    period_label TEXT NOT NULL DEFAULT '',
    timestamp INTEGER NOT NULL,
    credit_account TEXT NOT NULL DEFAULT '',
    debit_account TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_financial_records_token ON financial_records(identity_token);
CREATE INDEX IF NOT EXISTS idx_applications_payout ON applications(target_payout_account);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
