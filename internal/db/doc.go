// ABOUTME: Package db is the single data gateway for the matchmaking desk
// ABOUTME: Statements are written once in MySQL dialect and run on MySQL or embedded SQLite

// Package db routes every statement in the application through one Execute
// call. The backend is chosen once per process: a MySQL pool for the hosted
// deployment, or a single SQLite file for the desktop build. For SQLite the
// gateway translates a fixed set of MySQL idioms (see TranslateSQLite), creates
// the schema on first open, and seeds a default admin when no users exist.
//
// Read statements yield Rows; writes yield a WriteResult. Uniqueness and
// foreign-key violations from either engine surface as *ConstraintError
// matching ErrDuplicateKey or ErrForeignKey.
package db
