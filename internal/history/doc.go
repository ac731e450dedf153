// Package history persists pipeline run reports in SQLite.
//
// Each run stores its outcome, budgets used, the final candidate source and
// one row per failed validation or trial attempt. The database uses WAL mode
// and a schema_version table; a version mismatch is reported as
// ErrSchemaMismatch and the file must be removed to continue.
package history
