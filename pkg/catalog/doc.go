// Package catalog holds the SQL queries used to read object definitions from
// a PostgreSQL cluster, along with the Version type used to select
// version-specific variants of those queries.
//
// Queries are embedded files under sql/. A query may carry versioned
// overrides named <query>_<major>.sql; Query returns the override with the
// highest major version not exceeding the server's.
package catalog
