// Package backup wraps pg_dump and pg_restore invocations executed on the
// database server host. Flag bags render to deterministic, shell-quoted
// command lines; archives target server-local paths or Google Cloud Storage
// buckets through gsutil.
package backup
