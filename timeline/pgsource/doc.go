// Package pgsource implements timeline.Source on top of a PostgreSQL/PostGIS table.
//
// Queries are built with goqu (postgres dialect). Geometries are selected as ST_AsGeoJSON and
// decoded with orb, so the source works for any PostGIS geometry column without a binary decoder.
// Column names are quoted, so they must match the table's spelling exactly.
//
// Three connection types are supported, each with its own constructor:
//
//	source, err := pgsource.NewFromPGXPool(pool, pgsource.WithTableName("incidents"))
//	source, err := pgsource.NewFromSQLDB(db, pgsource.WithTableName("incidents"))
//	source, err := pgsource.NewFromSQLX(dbx, pgsource.WithTableName("incidents"))
//
// ApplyStandingFilter keeps the timeline query, and Features re-reads the table under it,
// which is what a map layer drawing the timeline's features uses.
package pgsource
