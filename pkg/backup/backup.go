package backup

import (
	"context"
	"strings"

	"github.com/pseudomuto/pgkeeper/pkg/utils"
)

type (
	// Runner executes shell commands on the database server host.
	// *cluster.Cluster satisfies it.
	Runner interface {
		RunOSCommand(ctx context.Context, command string) (string, error)
	}

	// target is the shared shape of the backup and restore runners: where the
	// tool binary lives and where archive paths resolve relative to.
	target struct {
		runner   Runner
		env      ShellEnv
		basePath string
		binary   string
	}

	// TargetOption configures a backup or restore target.
	TargetOption func(*target)

	// FileBackup writes pg_dump archives to paths on the server host.
	FileBackup struct {
		target

		// Options drive the generated pg_dump command line.
		Options *BackupOptions
	}

	// FileRestore restores pg_restore archives from paths on the server host.
	FileRestore struct {
		target

		Options *RestoreOptions
	}

	// GCPBackup streams pg_dump archives into a Google Cloud Storage bucket
	// through gsutil on the server host.
	GCPBackup struct {
		target

		Options *BackupOptions
	}

	// GCPRestore stages an archive from Google Cloud Storage into /tmp on the
	// server host, restores it, and removes the staged copy.
	GCPRestore struct {
		target

		Options *RestoreOptions
	}
)

// WithBasePath resolves relative archive paths under base.
func WithBasePath(base string) TargetOption {
	return func(t *target) { t.basePath = base }
}

// WithBucket resolves relative archive paths under the given gs:// bucket.
func WithBucket(bucket string) TargetOption {
	return func(t *target) { t.basePath = bucket }
}

// WithBinary overrides the tool binary path.
func WithBinary(path string) TargetOption {
	return func(t *target) { t.binary = path }
}

func newTarget(runner Runner, binary string, opts []TargetOption) target {
	t := target{runner: runner, binary: binary}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t *target) path(p string) string { return t.env.JoinPath(t.basePath, p) }

// command assembles "<binary> <args> -d <database>". The argument list may be
// empty; the resulting double space matches what the tools accept.
func (t *target) command(args []string, database string) string {
	return t.binary + " " + strings.Join(args, " ") + " -d " + utils.ShellQuote(database)
}

// NewFileBackup returns a file-target backup with default options.
func NewFileBackup(runner Runner, opts ...TargetOption) *FileBackup {
	return &FileBackup{target: newTarget(runner, "pg_dump", opts), Options: NewBackupOptions()}
}

// Backup dumps database into the archive at path, resolved against the base
// path when relative.
func (b *FileBackup) Backup(ctx context.Context, database, path string) error {
	cmd := b.command(b.Options.renderArgs(), database) + " > " + utils.ShellQuote(b.path(path))
	_, err := b.runner.RunOSCommand(ctx, cmd)
	return err
}

// NewFileRestore returns a file-target restore with default options.
func NewFileRestore(runner Runner, opts ...TargetOption) *FileRestore {
	return &FileRestore{target: newTarget(runner, "pg_restore", opts), Options: NewRestoreOptions()}
}

// Restore loads the archive at path into database.
func (r *FileRestore) Restore(ctx context.Context, database, path string) error {
	cmd := r.command(r.Options.renderArgs(), database) + " " + utils.ShellQuote(r.path(path))
	_, err := r.runner.RunOSCommand(ctx, cmd)
	return err
}

// NewGCPBackup returns a GCS-target backup with default options.
func NewGCPBackup(runner Runner, opts ...TargetOption) *GCPBackup {
	return &GCPBackup{target: newTarget(runner, "pg_dump", opts), Options: NewBackupOptions()}
}

// Backup dumps database straight into the bucket object at path.
func (b *GCPBackup) Backup(ctx context.Context, database, path string) error {
	cmd := b.command(b.Options.renderArgs(), database) + " | gsutil cp - " + utils.ShellQuote(b.path(path))
	_, err := b.runner.RunOSCommand(ctx, cmd)
	return err
}

// NewGCPRestore returns a GCS-target restore with default options.
func NewGCPRestore(runner Runner, opts ...TargetOption) *GCPRestore {
	return &GCPRestore{target: newTarget(runner, "pg_restore", opts), Options: NewRestoreOptions()}
}

// Restore stages the bucket object at path into /tmp, restores it into
// database, and removes the staged file. The staged copy is removed even when
// the restore fails.
func (r *GCPRestore) Restore(ctx context.Context, database, path string) error {
	remote := r.path(path)
	staged := r.env.JoinPath("/tmp", remote[strings.LastIndex(remote, "/")+1:])

	fetch := "gsutil cp " + utils.ShellQuote(remote) + " " + utils.ShellQuote(staged)
	if _, err := r.runner.RunOSCommand(ctx, fetch); err != nil {
		return err
	}

	cmd := r.command(r.Options.renderArgs(), database) + " " + utils.ShellQuote(staged)
	_, restoreErr := r.runner.RunOSCommand(ctx, cmd)

	if _, err := r.runner.RunOSCommand(ctx, "rm -f "+utils.ShellQuote(staged)); err != nil && restoreErr == nil {
		return err
	}
	return restoreErr
}
