// Package postgres implements authcore.UserStore and authcore.TokenStore on PostgreSQL
// through pgx.
//
// Email uniqueness is enforced by a unique index on lower(email); single-use tokens are
// consumed with DELETE ... RETURNING so at most one caller observes a record. Schema
// changes ship as embedded goose migrations applied by [Migrate].
package postgres
