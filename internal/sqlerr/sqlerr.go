// Package sqlerr handles database driver errors.
//
// It parses SQLSTATE codes from pgx and converts them into
// client-facing errors (a foreign key violation becomes a 400 that
// names the missing entity, a unique violation names the duplicated
// column, and so on).
package sqlerr
