// Package cmd implements the pgkeeper command line interface.
//
// Commands are provided through an fx value group and assembled into the root
// application by Run. Each command resolves its cluster connection from the
// global --profile/--dsn flags and the pgkeeper.yaml configuration file.
//
// Commands:
//   - list: list object keys by kind
//   - script: print the CREATE statement for an object
//   - terminate: terminate backend sessions
//   - reload: reload server configuration
//   - reassign: transfer object ownership between roles
//   - backup/restore: pg_dump and pg_restore on the server host
//   - hba: show client authentication rules
//   - dev: manage a local development server in Docker
package cmd
