package backup

import (
	"fmt"

	"github.com/pseudomuto/pgkeeper/pkg/utils"
)

type (
	// Options is the flag set shared by pg_dump and pg_restore. Flags render
	// in a fixed order so that identical option sets always produce identical
	// command lines. Every interpolated value is shell-quoted.
	Options struct {
		DataOnly        bool
		SchemaOnly      bool
		Clean           bool
		Create          bool
		StrictNames     bool
		AddIfExists     bool
		NoPrivileges    bool
		NoSubscriptions bool
		NoPublications  bool
		NoTablespaces   bool
		Verbose         bool

		Tables         []string
		Schemas        []string
		ExcludeSchemas []string

		Superuser string
		Role      string
		Section   string
	}

	// BackupOptions extends Options with pg_dump-only flags. The archive
	// format defaults to custom ("c") and the compression level to 5.
	BackupOptions struct {
		Options

		Format           string
		Compress         bool
		CompressionLevel int
		Blobs            bool
		AsInserts        bool

		ExcludeTables    []string
		ExcludeTableData []string
		LockWaitTimeout  *int
	}

	// RestoreOptions extends Options with pg_restore-only flags.
	RestoreOptions struct {
		Options

		Format string

		Indexes   []string
		Functions []string
		Triggers  []string

		Jobs                  *int
		SingleTransaction     bool
		ExitOnError           bool
		DisableTriggers       bool
		NoDataForFailedTables bool
		UseList               string
	}
)

// NewBackupOptions returns pg_dump options with their defaults.
func NewBackupOptions() *BackupOptions {
	return &BackupOptions{Format: "c", CompressionLevel: 5, Blobs: true}
}

// NewRestoreOptions returns pg_restore options with their defaults. The
// format is left for pg_restore to detect from the archive.
func NewRestoreOptions() *RestoreOptions {
	return &RestoreOptions{}
}

// head renders the flags that precede the tool-specific ones.
func (o *Options) head() []string {
	var args []string
	appendIf := func(on bool, flag string) {
		if on {
			args = append(args, flag)
		}
	}
	appendIf(o.DataOnly, "--data-only")
	appendIf(o.SchemaOnly, "--schema-only")
	appendIf(o.Clean, "--clean")
	appendIf(o.Create, "--create")
	appendIf(o.StrictNames, "--strict-names")
	appendIf(o.AddIfExists, "--if-exists")
	appendIf(o.NoPrivileges, "--no-privileges")
	appendIf(o.NoSubscriptions, "--no-subscriptions")
	appendIf(o.NoPublications, "--no-publications")
	appendIf(o.NoTablespaces, "--no-tablespaces")
	appendIf(o.Verbose, "--verbose")
	args = append(args, quotedList("--table", o.Tables)...)
	args = append(args, quotedList("--schema", o.Schemas)...)
	args = append(args, quotedList("--exclude-schema", o.ExcludeSchemas)...)
	return args
}

// tail renders the flags that follow the tool-specific ones.
func (o *Options) tail() []string {
	var args []string
	if o.Superuser != "" {
		args = append(args, "--superuser="+utils.ShellQuote(o.Superuser))
	}
	if o.Role != "" {
		args = append(args, "--role="+utils.ShellQuote(o.Role))
	}
	if o.Section != "" {
		args = append(args, "--section="+o.Section)
	}
	return args
}

// renderArgs produces the full pg_dump argument list in deterministic order.
func (o *BackupOptions) renderArgs() []string {
	args := o.head()
	if o.Format != "" {
		args = append(args, "--format="+o.Format)
	}
	if o.Compress {
		args = append(args, fmt.Sprintf("--compress=%d", o.CompressionLevel))
	}
	if !o.Blobs {
		args = append(args, "--no-blobs")
	}
	if o.AsInserts {
		args = append(args, "--inserts")
	}
	args = append(args, quotedList("--exclude-table", o.ExcludeTables)...)
	args = append(args, quotedList("--exclude-table-data", o.ExcludeTableData)...)
	if o.LockWaitTimeout != nil {
		args = append(args, fmt.Sprintf("--lock-wait-timeout=%d", *o.LockWaitTimeout))
	}
	return append(args, o.tail()...)
}

// renderArgs produces the full pg_restore argument list in deterministic order.
func (o *RestoreOptions) renderArgs() []string {
	args := o.head()
	if o.Format != "" {
		args = append(args, "--format="+o.Format)
	}
	args = append(args, quotedList("--index", o.Indexes)...)
	args = append(args, quotedList("--function", o.Functions)...)
	args = append(args, quotedList("--trigger", o.Triggers)...)
	if o.Jobs != nil {
		args = append(args, fmt.Sprintf("--jobs=%d", *o.Jobs))
	}
	if o.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if o.ExitOnError {
		args = append(args, "--exit-on-error")
	}
	if o.DisableTriggers {
		args = append(args, "--disable-triggers")
	}
	if o.NoDataForFailedTables {
		args = append(args, "--no-data-for-failed-tables")
	}
	if o.UseList != "" {
		args = append(args, "--use-list="+utils.ShellQuote(o.UseList))
	}
	return append(args, o.tail()...)
}

func quotedList(flag string, values []string) []string {
	args := make([]string, 0, len(values))
	for _, v := range values {
		args = append(args, flag+"="+utils.ShellQuote(v))
	}
	return args
}
