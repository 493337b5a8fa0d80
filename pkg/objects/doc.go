// Package objects models PostgreSQL catalog objects (roles, databases,
// tables, views, sequences, schemas, replication slots, procedures and HBA
// rules) as mutable Go values with change tracking.
//
// Setters do not touch the server. On a synced object they queue an ALTER
// statement per property; Alter applies everything queued in one transaction
// scope. On an ephemeral object (not yet created) setters just assign, and
// Create renders the full CREATE statement from the current field values.
//
// Collections load lazily: Keys and Contains only run the catalog metadata
// query, Get materializes a single object, and the strategy chosen at
// construction (LoadLazy, LoadEager, LoadHybrid) decides how much work
// happens up front.
package objects
