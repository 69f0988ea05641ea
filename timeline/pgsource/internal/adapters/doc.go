// Package adapters lets the PostGIS feature source read through pgxpool.Pool, sql.DB or sqlx.DB.
//
// All adapters expose the same read-only DBAdapter. Rows are scanned into untyped values; the adapters
// normalize driver specific representations (byte slices, pgx numerics) into plain Go values.
package adapters
